package conversation

import (
	"context"
	"log/slog"
	"time"

	"github.com/brightsmile/dental-chat-widget/internal/booking"
	"github.com/brightsmile/dental-chat-widget/internal/observability/metrics"
	"github.com/brightsmile/dental-chat-widget/pkg/logging"
)

// Reply sources reported to the widget and to metrics.
const (
	SourceLLM      = "llm"
	SourceScripted = "scripted"
)

// TranscriptStore mirrors transcripts server-side for session resume.
type TranscriptStore interface {
	Save(ctx context.Context, sessionID string, history []ChatMessage) error
	Load(ctx context.Context, sessionID string) ([]ChatMessage, error)
}

// Notifier delivers the one-shot staff notification for a completed booking.
type Notifier interface {
	NotifyBookingComplete(ctx context.Context, sessionID string, rec booking.Record) error
}

// Reply is the assistant's turn plus the booking state it was computed from.
type Reply struct {
	Text         string
	Record       booking.Record
	QuickReplies []string
	Source       string
}

// Service turns a transcript into an assistant reply. The booking record is
// recomputed from scratch on every call; the service itself holds no
// per-conversation state.
type Service struct {
	clinicName  string
	llm         LLMClient
	budget      CallBudget
	transcripts TranscriptStore
	notifier    Notifier
	metrics     *metrics.ChatMetrics
	logger      *logging.Logger

	maxTokens   int32
	temperature float32
}

// ServiceOptions configures LLM generation parameters.
type ServiceOptions struct {
	MaxTokens   int32
	Temperature float32
}

// NewService creates the conversation service. llm may be nil, in which case
// every reply is scripted. budget may be nil for no throttling.
func NewService(clinicName string, llm LLMClient, budget CallBudget, transcripts TranscriptStore, notifier Notifier, m *metrics.ChatMetrics, logger *logging.Logger, opts ServiceOptions) *Service {
	if budget == nil {
		budget = UnlimitedBudget{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 300
	}
	return &Service{
		clinicName:  clinicName,
		llm:         llm,
		budget:      budget,
		transcripts: transcripts,
		notifier:    notifier,
		metrics:     m,
		logger:      logger,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}
}

// Respond computes the booking state from the full transcript and produces
// the next assistant turn. It never fails on malformed input: when the LLM is
// unavailable, throttled, or errors, the scripted prompt for the current step
// is returned instead.
func (s *Service) Respond(ctx context.Context, sessionID string, transcript []ChatMessage) Reply {
	started := time.Now()

	rec := booking.Extract(toBookingMessages(transcript))
	s.logDiscardedCorrections(sessionID, transcript, rec)

	text, source := s.replyText(ctx, sessionID, rec, transcript)

	reply := Reply{
		Text:         text,
		Record:       rec,
		QuickReplies: booking.QuickRepliesForStep(rec.Step),
		Source:       source,
	}

	s.mirrorTranscript(ctx, sessionID, transcript, text)

	if rec.Complete && s.notifier != nil {
		if err := s.notifier.NotifyBookingComplete(ctx, sessionID, rec); err != nil {
			s.logger.Error("booking notification failed", "error", err, "session_id", sessionID)
		}
	}

	s.metrics.ObserveMessage(source, rec.Complete)
	s.metrics.ObserveHandlingLatency(time.Since(started).Seconds())
	if rec.Complete {
		s.metrics.ObserveBookingComplete(rec.Urgency)
	}
	return reply
}

// replyText picks the LLM or the scripted prompt for the current step.
func (s *Service) replyText(ctx context.Context, sessionID string, rec booking.Record, transcript []ChatMessage) (string, string) {
	if len(transcript) == 0 {
		return booking.WelcomeMessage, SourceScripted
	}
	if s.llm == nil {
		return booking.PromptForStep(rec), SourceScripted
	}
	if !s.budget.Allow(sessionID) {
		s.logger.Debug("session over LLM call budget, using scripted prompt", "session_id", sessionID)
		s.metrics.ObserveFallback("throttled")
		return booking.PromptForStep(rec), SourceScripted
	}

	req := LLMRequest{
		System:      []string{BuildSystemPrompt(s.clinicName, rec)},
		Messages:    transcript,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	}
	resp, err := s.llm.Complete(ctx, req)
	if err != nil || resp.Text == "" {
		if err != nil {
			s.logger.Warn("LLM unavailable, using scripted prompt", "error", err, "session_id", sessionID)
		}
		s.metrics.ObserveFallback("llm_error")
		return booking.PromptForStep(rec), SourceScripted
	}
	return resp.Text, SourceLLM
}

// mirrorTranscript saves transcript plus the new assistant turn; failures are
// logged and ignored since the client keeps the authoritative copy.
func (s *Service) mirrorTranscript(ctx context.Context, sessionID string, transcript []ChatMessage, replyText string) {
	if s.transcripts == nil {
		return
	}
	mirrored := make([]ChatMessage, 0, len(transcript)+1)
	mirrored = append(mirrored, transcript...)
	mirrored = append(mirrored, ChatMessage{Role: ChatRoleAssistant, Content: replyText})
	if err := s.transcripts.Save(ctx, sessionID, mirrored); err != nil {
		s.logger.Warn("failed to mirror transcript", "error", err, "session_id", sessionID)
	}
}

// logDiscardedCorrections surfaces the locked-field behavior: if the newest
// user message re-matches an already locked field with a different value, the
// correction is silently discarded by design, but we leave a debug trail.
func (s *Service) logDiscardedCorrections(sessionID string, transcript []ChatMessage, rec booking.Record) {
	if len(transcript) == 0 || !s.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	last := transcript[len(transcript)-1]
	if last.Role != ChatRoleUser {
		return
	}
	solo := booking.Extract([]booking.Message{{Role: booking.RoleUser, Content: last.Content}})
	type pair struct{ field, locked, fresh string }
	for _, p := range []pair{
		{"patient_name", rec.PatientName, solo.PatientName},
		{"phone_number", rec.PhoneNumber, solo.PhoneNumber},
		{"email", rec.Email, solo.Email},
		{"service_type", rec.ServiceType, solo.ServiceType},
		{"preferred_date", rec.PreferredDate, solo.PreferredDate},
		{"preferred_time", rec.PreferredTime, solo.PreferredTime},
	} {
		if p.locked != "" && p.fresh != "" && p.locked != p.fresh {
			s.logger.Debug("discarding correction for locked field",
				"session_id", sessionID, "field", p.field, "kept", p.locked, "ignored", p.fresh)
		}
	}
}

func toBookingMessages(transcript []ChatMessage) []booking.Message {
	msgs := make([]booking.Message, 0, len(transcript))
	for _, m := range transcript {
		msgs = append(msgs, booking.Message{Role: m.Role, Content: m.Content})
	}
	return msgs
}
