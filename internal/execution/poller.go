package execution

import (
	"context"
	"time"

	appErr "codecheck/pkg/errors"
	"codecheck/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	// DefaultMaxAttempts and DefaultInterval give roughly a 30s ceiling,
	// matching interactive-use latency expectations.
	DefaultMaxAttempts = 30
	DefaultInterval    = time.Second
)

// Poller repeatedly queries the judge service until a submission reaches a
// terminal status or the polling budget is exhausted. Fixed interval, no
// backoff: judge latency is typically uniform once a submission is accepted.
type Poller struct {
	client      Client
	maxAttempts int
	interval    time.Duration
}

// NewPoller creates a poller. Non-positive attempts/interval fall back to the
// defaults.
func NewPoller(client Client, maxAttempts int, interval time.Duration) *Poller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{client: client, maxAttempts: maxAttempts, interval: interval}
}

// Await polls until the submission is terminal. A transport error on a
// non-final attempt is swallowed and consumes an attempt, since the judge
// service tolerably flakes. An error on the final attempt is surfaced rather
// than silently reported as a timeout. Budget exhaustion while still pending
// yields ExecutionTimeout.
func (p *Poller) Await(ctx context.Context, handle Handle) (Outcome, error) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		res, err := p.client.Fetch(ctx, handle)
		if err != nil {
			if attempt == p.maxAttempts {
				return Outcome{}, appErr.GetError(err)
			}
			logger.Warn(ctx, "judge fetch failed, retrying",
				zap.String("token", handle.Token),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		} else if !res.Pending {
			return res.Outcome, nil
		}

		if attempt < p.maxAttempts {
			if err := sleep(ctx, p.interval); err != nil {
				return Outcome{}, appErr.Wrap(err, appErr.Timeout)
			}
		}
	}
	return Outcome{}, appErr.Newf(appErr.ExecutionTimeout,
		"submission %s still pending after %d attempts", handle.Token, p.maxAttempts)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
