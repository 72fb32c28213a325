package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightsmile/dental-chat-widget/internal/booking"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg EmailMessage) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func confirmedRecord() booking.Record {
	return booking.Record{
		Step:          booking.StepDone,
		PatientName:   "John Smith",
		PhoneNumber:   "555-123-4567",
		Email:         "john.smith@example.com",
		ServiceType:   "cleaning",
		PreferredDate: "monday",
		PreferredTime: "10:30am",
		Urgency:       booking.UrgencyRoutine,
		Complete:      true,
	}
}

func TestNotifyBookingCompleteSendsToAllRecipients(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, NewMemoryLedger(), []string{"front@clinic.test", "manager@clinic.test"}, "BrightSmile Dental", nil)

	err := svc.NotifyBookingComplete(context.Background(), "sess-1", confirmedRecord())
	require.NoError(t, err)
	require.Len(t, sender.sent, 2)

	assert.Equal(t, "front@clinic.test", sender.sent[0].To)
	assert.Equal(t, "manager@clinic.test", sender.sent[1].To)
	assert.Equal(t, "New appointment request from John Smith", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Body, "Name: John Smith")
	assert.Contains(t, sender.sent[0].Body, "Session: sess-1")
	assert.Contains(t, sender.sent[0].HTML, "John Smith")
}

func TestNotifyBookingCompleteOnlyOncePerSession(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, NewMemoryLedger(), []string{"front@clinic.test"}, "", nil)

	require.NoError(t, svc.NotifyBookingComplete(context.Background(), "sess-1", confirmedRecord()))
	require.NoError(t, svc.NotifyBookingComplete(context.Background(), "sess-1", confirmedRecord()))
	require.NoError(t, svc.NotifyBookingComplete(context.Background(), "sess-2", confirmedRecord()))

	assert.Len(t, sender.sent, 2)
}

func TestNotifyBookingCompleteEmergencySubject(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, nil, []string{"front@clinic.test"}, "", nil)

	rec := confirmedRecord()
	rec.ServiceType = "emergency"
	rec.Urgency = booking.UrgencyEmergency

	require.NoError(t, svc.NotifyBookingComplete(context.Background(), "sess-1", rec))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "EMERGENCY appointment request from John Smith", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Body, "call them back as soon as possible")
	assert.Contains(t, sender.sent[0].HTML, "EMERGENCY")
}

func TestNotifyBookingCompleteNoSenderIsNoop(t *testing.T) {
	svc := NewService(nil, NewMemoryLedger(), []string{"front@clinic.test"}, "", nil)
	assert.NoError(t, svc.NotifyBookingComplete(context.Background(), "sess-1", confirmedRecord()))
}

func TestNotifyBookingCompleteAggregatesSendErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	svc := NewService(sender, nil, []string{"a@clinic.test", "b@clinic.test"}, "", nil)

	err := svc.NotifyBookingComplete(context.Background(), "sess-1", confirmedRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a@clinic.test")
	assert.Contains(t, err.Error(), "b@clinic.test")
}

func TestMemoryLedgerMarkNotified(t *testing.T) {
	ledger := NewMemoryLedger()

	first, err := ledger.MarkNotified(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := ledger.MarkNotified(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, again)

	other, err := ledger.MarkNotified(context.Background(), "s2")
	require.NoError(t, err)
	assert.True(t, other)
}

func TestHTMLBodyEscapesUserInput(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, nil, []string{"front@clinic.test"}, "", nil)

	rec := confirmedRecord()
	rec.PatientName = "John <script>"

	require.NoError(t, svc.NotifyBookingComplete(context.Background(), "sess-1", rec))
	require.Len(t, sender.sent, 1)
	assert.NotContains(t, sender.sent[0].HTML, "<script>")
	assert.Contains(t, sender.sent[0].HTML, "&lt;script&gt;")
}
