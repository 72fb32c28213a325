package notify

import (
	"context"
	"sync"
)

// SentLedger records which sessions have already triggered a staff
// notification, so a completed booking notifies exactly once no matter how
// many confirmed transcripts the client replays.
type SentLedger interface {
	// MarkNotified returns true the first time it is called for a session and
	// false on every later call.
	MarkNotified(ctx context.Context, sessionID string) (bool, error)
}

// MemoryLedger is an in-process SentLedger for tests and single-instance
// deployments without Redis.
type MemoryLedger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{seen: make(map[string]struct{})}
}

func (l *MemoryLedger) MarkNotified(_ context.Context, sessionID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[sessionID]; ok {
		return false, nil
	}
	l.seen[sessionID] = struct{}{}
	return true, nil
}

var _ SentLedger = (*MemoryLedger)(nil)
