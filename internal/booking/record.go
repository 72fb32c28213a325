package booking

import (
	"fmt"
	"strings"
)

// Conversation roles mirrored from the chat transport. The extractor only
// reads user turns; assistant and system turns never populate fields.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn of the client-held conversation transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Urgency classifications for a booking request.
const (
	UrgencyRoutine   = "routine"
	UrgencyEmergency = "emergency"
)

// Booking steps. Fields are collected strictly in this order; Step is always
// the ordinal of the earliest unfilled field.
const (
	StepName    = 1
	StepPhone   = 2
	StepEmail   = 3
	StepService = 4
	StepDate    = 5
	StepTime    = 6
	StepConfirm = 7
	StepDone    = 8
)

// Record is the structured booking state recomputed from the full transcript
// on every request. It is never patched incrementally; the transcript is the
// only durable home of the conversation.
type Record struct {
	Step          int    `json:"step"`
	PatientName   string `json:"patient_name,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	Email         string `json:"email,omitempty"`
	ServiceType   string `json:"service_type,omitempty"`
	PreferredDate string `json:"preferred_date,omitempty"`
	PreferredTime string `json:"preferred_time,omitempty"`
	Urgency       string `json:"urgency"`
	Complete      bool   `json:"complete"`
}

// fields returns the six collected values in collection order.
func (r *Record) fields() []string {
	return []string{
		r.PatientName,
		r.PhoneNumber,
		r.Email,
		r.ServiceType,
		r.PreferredDate,
		r.PreferredTime,
	}
}

// currentStep derives the step from filled fields: the 1-based ordinal of the
// first empty field, or StepConfirm when all six are present.
func (r *Record) currentStep() int {
	for i, v := range r.fields() {
		if v == "" {
			return i + 1
		}
	}
	return StepConfirm
}

// AllFieldsFilled reports whether every booking field has been extracted.
func (r *Record) AllFieldsFilled() bool {
	return r.currentStep() == StepConfirm
}

// Summary renders the collected booking details for the confirmation step and
// the staff notification email.
func (r *Record) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", valueOrPending(r.PatientName))
	fmt.Fprintf(&b, "Phone: %s\n", valueOrPending(r.PhoneNumber))
	fmt.Fprintf(&b, "Email: %s\n", valueOrPending(r.Email))
	fmt.Fprintf(&b, "Service: %s\n", valueOrPending(r.ServiceType))
	fmt.Fprintf(&b, "Preferred day: %s\n", valueOrPending(r.PreferredDate))
	fmt.Fprintf(&b, "Preferred time: %s", valueOrPending(r.PreferredTime))
	if r.Urgency == UrgencyEmergency {
		b.WriteString("\nUrgency: EMERGENCY")
	}
	return b.String()
}

func valueOrPending(v string) string {
	if v == "" {
		return "(not provided)"
	}
	return v
}
