package conversation

import (
	"sync"
	"time"
)

// CallBudget decides whether a session may spend another LLM call. When the
// budget is exhausted the service answers with scripted prompts instead, so
// a chatty session degrades gracefully rather than erroring.
type CallBudget interface {
	Allow(sessionID string) bool
}

// TokenBucketBudget is an in-memory per-session token bucket. It is injected
// rather than kept as package state so tests and callers control its scope.
type TokenBucketBudget struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int     // max tokens
	now     func() time.Time
}

type bucket struct {
	tokens   float64
	lastTime time.Time
}

// NewTokenBucketBudget creates a budget refilling rate calls/sec per session
// with the given burst.
func NewTokenBucketBudget(rate float64, burst int) *TokenBucketBudget {
	return &TokenBucketBudget{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		now:     time.Now,
	}
}

// Allow returns true if the session has budget for another LLM call.
func (b *TokenBucketBudget) Allow(sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	bk, ok := b.buckets[sessionID]
	if !ok {
		bk = &bucket{tokens: float64(b.burst), lastTime: now}
		b.buckets[sessionID] = bk
	}

	elapsed := now.Sub(bk.lastTime).Seconds()
	bk.tokens += elapsed * b.rate
	if bk.tokens > float64(b.burst) {
		bk.tokens = float64(b.burst)
	}
	bk.lastTime = now

	if bk.tokens < 1 {
		return false
	}
	bk.tokens--
	return true
}

// Evict drops buckets idle since before cutoff. The service calls this from
// its janitor loop to bound memory on long-running processes.
func (b *TokenBucketBudget) Evict(cutoff time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, bk := range b.buckets {
		if bk.lastTime.Before(cutoff) {
			delete(b.buckets, id)
		}
	}
}

// UnlimitedBudget never throttles; used when no LLM provider is configured.
type UnlimitedBudget struct{}

func (UnlimitedBudget) Allow(string) bool { return true }
