package execution_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"codecheck/internal/execution"
)

type memoryCache struct {
	mu    sync.Mutex
	items map[string]string
	gets  int
	sets  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string]string{}}
}

func (m *memoryCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	return m.items[key], nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.items[key] = value.(string)
	return nil
}

func (m *memoryCache) Del(ctx context.Context, keys ...string) error { return nil }
func (m *memoryCache) Ping(ctx context.Context) error                { return nil }
func (m *memoryCache) Close() error                                  { return nil }

func TestGatewayRunSubmitsAndAwaits(t *testing.T) {
	t.Parallel()
	client := &scriptedClient{fetches: []func() (execution.FetchResult, error){
		pendingStep(),
		doneStep(execution.StatusAccepted),
	}}
	gw := execution.NewGateway(client, execution.NewPoller(client, 5, time.Millisecond))

	outcome, err := gw.Run(context.Background(), execution.Submission{SourceCode: "print(1)", LanguageID: 71})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !outcome.Accepted() {
		t.Fatalf("expected accepted outcome, got status %d", outcome.StatusID)
	}
	if client.submits != 1 {
		t.Fatalf("expected one submit, got %d", client.submits)
	}
}

func TestGatewayRunUsesCachedOutcome(t *testing.T) {
	t.Parallel()
	client := &scriptedClient{fetches: []func() (execution.FetchResult, error){
		doneStep(execution.StatusAccepted),
	}}
	cache := newMemoryCache()
	gw := execution.NewGateway(client, execution.NewPoller(client, 5, time.Millisecond),
		execution.WithOutcomeCache(cache, time.Minute))

	sub := execution.Submission{SourceCode: "print(1)", LanguageID: 71}
	if _, err := gw.Run(context.Background(), sub); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("expected outcome stored once, got %d", cache.sets)
	}

	outcome, err := gw.Run(context.Background(), sub)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !outcome.Accepted() {
		t.Fatalf("expected accepted cached outcome, got status %d", outcome.StatusID)
	}
	if client.submits != 1 {
		t.Fatalf("expected cache hit to skip submit, got %d submits", client.submits)
	}
}

type corruptCache struct {
	*memoryCache
}

func (c *corruptCache) Get(ctx context.Context, key string) (string, error) {
	return "{not-json", nil
}

func TestGatewayRunIgnoresCorruptCacheEntry(t *testing.T) {
	t.Parallel()
	client := &scriptedClient{fetches: []func() (execution.FetchResult, error){
		doneStep(execution.StatusAccepted),
	}}
	cache := &corruptCache{newMemoryCache()}
	gw := execution.NewGateway(client, execution.NewPoller(client, 5, time.Millisecond),
		execution.WithOutcomeCache(cache, time.Minute))

	outcome, err := gw.Run(context.Background(), execution.Submission{SourceCode: "print(2)", LanguageID: 71})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !outcome.Accepted() {
		t.Fatalf("expected corrupt entry to degrade to a miss, got status %d", outcome.StatusID)
	}
	if client.submits != 1 {
		t.Fatalf("expected submit after cache miss, got %d", client.submits)
	}

	var stored execution.Outcome
	cache.mu.Lock()
	defer cache.mu.Unlock()
	for _, raw := range cache.items {
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			t.Fatalf("stored outcome is not valid json: %v", err)
		}
	}
	if stored.StatusID != execution.StatusAccepted {
		t.Fatalf("unexpected stored status: %d", stored.StatusID)
	}
}

func TestOutcomeFailureCategories(t *testing.T) {
	t.Parallel()
	cases := []struct {
		statusID int
		accepted bool
	}{
		{execution.StatusInQueue, false},
		{execution.StatusProcessing, false},
		{execution.StatusAccepted, true},
		{5, false},
		{6, false},
		{11, false},
	}
	for _, tc := range cases {
		outcome := execution.Outcome{StatusID: tc.statusID}
		if outcome.Accepted() != tc.accepted {
			t.Fatalf("status %d: accepted=%v, want %v", tc.statusID, outcome.Accepted(), tc.accepted)
		}
	}
}
