package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// HistoryStore mirrors conversation transcripts in Redis so a widget session
// can resume after a page reload. The client-held transcript remains the
// source of truth; entries expire after the configured TTL.
type HistoryStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewHistoryStore creates a Redis-backed transcript mirror.
func NewHistoryStore(rdb *redis.Client, ttl time.Duration, tracer trace.Tracer) *HistoryStore {
	if rdb == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if tracer == nil {
		tracer = otel.Tracer("dentalchat.internal.conversation.history")
	}
	return &HistoryStore{redis: rdb, ttl: ttl, tracer: tracer}
}

// Save persists the full transcript for a session, refreshing the TTL.
func (s *HistoryStore) Save(ctx context.Context, sessionID string, history []ChatMessage) error {
	ctx, span := s.tracer.Start(ctx, "conversation.save_history")
	defer span.End()

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, historyKey(sessionID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist history: %w", err)
	}
	return nil
}

// Load returns the mirrored transcript, or nil when the session is unknown.
func (s *HistoryStore) Load(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, historyKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load history: %w", err)
	}

	var history []ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode history: %w", err)
	}
	return history, nil
}

// MarkNotified records that the completion email for a session has been sent.
// Returns true on the first call per session and false afterwards, so the
// caller sends exactly one notification. Implements notify.SentLedger.
func (s *HistoryStore) MarkNotified(ctx context.Context, sessionID string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.mark_notified")
	defer span.End()

	first, err := s.redis.SetNX(ctx, notifiedKey(sessionID), "1", s.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("conversation: failed to mark session notified: %w", err)
	}
	return first, nil
}

func historyKey(sessionID string) string {
	return fmt.Sprintf("chat:history:%s", sessionID)
}

func notifiedKey(sessionID string) string {
	return fmt.Sprintf("chat:notified:%s", sessionID)
}
