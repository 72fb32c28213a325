package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/brightsmile/dental-chat-widget/internal/booking"
	"github.com/brightsmile/dental-chat-widget/pkg/logging"
)

// Service sends the staff notification when a booking reaches confirmation.
type Service struct {
	sender     EmailSender
	ledger     SentLedger
	recipients []string
	clinicName string
	logger     *logging.Logger
}

// NewService creates a notification service. sender may be nil to disable
// notifications entirely; ledger may be nil to skip de-duplication.
func NewService(sender EmailSender, ledger SentLedger, recipients []string, clinicName string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if clinicName == "" {
		clinicName = "BrightSmile Dental"
	}
	return &Service{
		sender:     sender,
		ledger:     ledger,
		recipients: recipients,
		clinicName: clinicName,
		logger:     logger,
	}
}

// NotifyBookingComplete emails the clinic staff about a confirmed booking.
// Each session notifies at most once; replayed confirmations are skipped via
// the ledger. Per-recipient failures are aggregated so one bad address does
// not hide the rest.
func (s *Service) NotifyBookingComplete(ctx context.Context, sessionID string, rec booking.Record) error {
	if s.sender == nil || len(s.recipients) == 0 {
		s.logger.Debug("booking notification disabled", "session_id", sessionID)
		return nil
	}

	if s.ledger != nil {
		first, err := s.ledger.MarkNotified(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("notify: ledger check failed: %w", err)
		}
		if !first {
			s.logger.Debug("booking already notified, skipping", "session_id", sessionID)
			return nil
		}
	}

	msg := s.buildMessage(sessionID, rec)

	var errs []error
	for _, to := range s.recipients {
		msg.To = to
		if err := s.sender.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("notify: send to %s: %w", to, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.logger.Info("booking notification sent",
		"session_id", sessionID,
		"recipients", len(s.recipients),
		"urgency", rec.Urgency)
	return nil
}

func (s *Service) buildMessage(sessionID string, rec booking.Record) EmailMessage {
	subject := fmt.Sprintf("New appointment request from %s", rec.PatientName)
	if rec.Urgency == booking.UrgencyEmergency {
		subject = fmt.Sprintf("EMERGENCY appointment request from %s", rec.PatientName)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "A new appointment was booked through the %s chat widget.\n\n", s.clinicName)
	body.WriteString(rec.Summary())
	fmt.Fprintf(&body, "\n\nSession: %s\n", sessionID)
	if rec.Urgency == booking.UrgencyEmergency {
		body.WriteString("\nThe patient reported an emergency. Please call them back as soon as possible.\n")
	}

	return EmailMessage{
		Subject: subject,
		Body:    body.String(),
		HTML:    buildHTML(s.clinicName, sessionID, rec),
	}
}

func buildHTML(clinicName, sessionID string, rec booking.Record) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h2>New appointment request</h2>")
	if rec.Urgency == booking.UrgencyEmergency {
		b.WriteString(`<p style="color:#c0392b;font-weight:bold;">EMERGENCY - please call the patient back immediately.</p>`)
	}
	fmt.Fprintf(&b, "<p>Booked through the %s chat widget.</p>", html.EscapeString(clinicName))
	b.WriteString("<table cellpadding=\"4\">")
	row := func(label, value string) {
		if value == "" {
			value = "(not provided)"
		}
		fmt.Fprintf(&b, "<tr><td><b>%s</b></td><td>%s</td></tr>", label, html.EscapeString(value))
	}
	row("Name", rec.PatientName)
	row("Phone", rec.PhoneNumber)
	row("Email", rec.Email)
	row("Service", rec.ServiceType)
	row("Preferred day", rec.PreferredDate)
	row("Preferred time", rec.PreferredTime)
	b.WriteString("</table>")
	fmt.Fprintf(&b, "<p style=\"color:#888;\">Session %s</p>", html.EscapeString(sessionID))
	b.WriteString("</body></html>")
	return b.String()
}
