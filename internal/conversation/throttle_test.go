package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketBudgetBurstThenDeny(t *testing.T) {
	now := time.Now()
	b := NewTokenBucketBudget(1, 3)
	b.now = func() time.Time { return now }

	assert.True(t, b.Allow("s1"))
	assert.True(t, b.Allow("s1"))
	assert.True(t, b.Allow("s1"))
	assert.False(t, b.Allow("s1"))
}

func TestTokenBucketBudgetRefills(t *testing.T) {
	now := time.Now()
	b := NewTokenBucketBudget(0.5, 1)
	b.now = func() time.Time { return now }

	assert.True(t, b.Allow("s1"))
	assert.False(t, b.Allow("s1"))

	now = now.Add(2 * time.Second)
	assert.True(t, b.Allow("s1"))
}

func TestTokenBucketBudgetSessionsAreIndependent(t *testing.T) {
	now := time.Now()
	b := NewTokenBucketBudget(1, 1)
	b.now = func() time.Time { return now }

	assert.True(t, b.Allow("s1"))
	assert.False(t, b.Allow("s1"))
	assert.True(t, b.Allow("s2"))
}

func TestTokenBucketBudgetEvict(t *testing.T) {
	now := time.Now()
	b := NewTokenBucketBudget(1, 1)
	b.now = func() time.Time { return now }

	b.Allow("old")
	now = now.Add(time.Hour)
	b.Allow("fresh")

	b.Evict(now.Add(-time.Minute))

	b.mu.Lock()
	_, oldKept := b.buckets["old"]
	_, freshKept := b.buckets["fresh"]
	b.mu.Unlock()

	assert.False(t, oldKept)
	assert.True(t, freshKept)
}

func TestUnlimitedBudget(t *testing.T) {
	var b UnlimitedBudget
	for i := 0; i < 100; i++ {
		assert.True(t, b.Allow("s1"))
	}
}
