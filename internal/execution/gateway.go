package execution

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"codecheck/internal/common/cache"
	"codecheck/pkg/utils/logger"

	"go.uber.org/zap"
)

// Runner is the synchronous-looking execution surface every validation
// strategy uses. Each call consumes one execution slot on the judge service,
// so callers should not run more than a test case strictly requires.
type Runner interface {
	Run(ctx context.Context, sub Submission) (Outcome, error)
}

// Gateway composes Client.Submit with Poller.Await so that, from the caller's
// perspective, code execution is synchronous even though the judge service is
// not. An optional cache short-circuits identical (source, language, stdin)
// triples within a TTL instead of burning an execution slot.
type Gateway struct {
	client   Client
	poller   *Poller
	cache    cache.Cache
	cacheTTL time.Duration
}

// GatewayOption configures optional Gateway behavior.
type GatewayOption func(*Gateway)

// WithOutcomeCache enables outcome caching with the given TTL.
func WithOutcomeCache(c cache.Cache, ttl time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.cache = c
		g.cacheTTL = ttl
	}
}

// NewGateway creates a gateway over the given client and poller.
func NewGateway(client Client, poller *Poller, opts ...GatewayOption) *Gateway {
	g := &Gateway{client: client, poller: poller}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run submits the code and waits for its terminal outcome.
func (g *Gateway) Run(ctx context.Context, sub Submission) (Outcome, error) {
	key := outcomeKey(sub)
	if cached, ok := g.cachedOutcome(ctx, key); ok {
		return cached, nil
	}

	start := time.Now()
	handle, err := g.client.Submit(ctx, sub)
	if err != nil {
		return Outcome{}, err
	}

	outcome, err := g.poller.Await(ctx, handle)
	if err != nil {
		return Outcome{}, err
	}

	logger.Debug(ctx, "execution finished",
		zap.String("token", handle.Token),
		zap.Int("status_id", outcome.StatusID),
		zap.Duration("round_trip", time.Since(start)),
	)

	g.storeOutcome(ctx, key, outcome)
	return outcome, nil
}

// cachedOutcome returns a previously stored outcome for the key, if any.
// Cache failures degrade to a miss; they never fail the run.
func (g *Gateway) cachedOutcome(ctx context.Context, key string) (Outcome, bool) {
	if g.cache == nil {
		return Outcome{}, false
	}
	raw, err := g.cache.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "outcome cache get failed", zap.Error(err))
		return Outcome{}, false
	}
	if raw == "" {
		return Outcome{}, false
	}
	var outcome Outcome
	if err := json.Unmarshal([]byte(raw), &outcome); err != nil {
		return Outcome{}, false
	}
	return outcome, true
}

func (g *Gateway) storeOutcome(ctx context.Context, key string, outcome Outcome) {
	if g.cache == nil {
		return
	}
	raw, err := json.Marshal(outcome)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, key, string(raw), g.cacheTTL); err != nil {
		logger.Warn(ctx, "outcome cache set failed", zap.Error(err))
	}
}

func outcomeKey(sub Submission) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d\x00%s\x00%s", sub.LanguageID, sub.Stdin, sub.SourceCode)
	return "codecheck:outcome:" + hex.EncodeToString(h.Sum(nil))
}
