package conversation

import (
	"fmt"
	"strings"

	"github.com/brightsmile/dental-chat-widget/internal/booking"
)

// stepObjectives tell the model what single piece of information to collect
// next. The model converses; the extractor decides what was actually captured.
var stepObjectives = map[int]string{
	booking.StepName:    "Ask for the patient's name.",
	booking.StepPhone:   "Ask for the best phone number to reach them.",
	booking.StepEmail:   "Ask for their email address for the confirmation.",
	booking.StepService: "Ask which service they need: cleaning, checkup, whitening, filling, or emergency.",
	booking.StepDate:    "Ask which weekday works best (the clinic is open Monday to Friday).",
	booking.StepTime:    "Ask what time of day suits them.",
	booking.StepConfirm: "Read back the collected details and ask them to confirm the booking.",
	booking.StepDone:    "Thank them and let them know the front desk will confirm shortly.",
}

// BuildSystemPrompt assembles the instructions for the LLM: persona, hard
// rules, the booking state extracted so far, and the objective for the
// current step.
func BuildSystemPrompt(clinicName string, rec booking.Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are the friendly booking assistant for %s, a dental clinic.\n", clinicName)
	b.WriteString("Keep replies to one or two short sentences. Never give medical advice. ")
	b.WriteString("Collect exactly one missing detail at a time, in this order: name, phone, email, service, preferred day, preferred time, then a final confirmation.\n\n")

	b.WriteString("Details collected so far:\n")
	b.WriteString(rec.Summary())
	b.WriteString("\n\n")

	if rec.Urgency == booking.UrgencyEmergency {
		b.WriteString("This is a dental EMERGENCY. Be reassuring and keep the process moving quickly.\n")
	}

	if objective, ok := stepObjectives[rec.Step]; ok {
		fmt.Fprintf(&b, "Current objective: %s", objective)
	}
	return b.String()
}
