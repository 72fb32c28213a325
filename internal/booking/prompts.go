package booking

import "fmt"

// WelcomeMessage opens a fresh conversation before any user turn arrives.
const WelcomeMessage = "Hi! I'm the BrightSmile Dental booking assistant. I can get an appointment on the books in under a minute. What's your name?"

// stepPrompts are the scripted replies used when the LLM is unavailable or
// the per-session call budget is spent. One entry per step.
var stepPrompts = map[int]string{
	StepName:    "Happy to get you booked in! Could I have your name first?",
	StepPhone:   "Thanks! What's the best phone number to reach you at?",
	StepEmail:   "Got it. And your email address, for the appointment confirmation?",
	StepService: "What can we help you with? We offer cleanings, checkups, whitening, fillings, and emergency visits.",
	StepDate:    "Which day works best for you? We're open Monday through Friday.",
	StepTime:    "And what time of day suits you?",
	StepConfirm: "Here's what I have so far:\n\n%s\n\nShall I book it?",
	StepDone:    "You're all set! The front desk has your request and will confirm shortly. See you soon!",
}

// PromptForStep returns the scripted fallback reply for the record's current
// step. The confirmation step embeds the collected summary.
func PromptForStep(rec Record) string {
	prompt, ok := stepPrompts[rec.Step]
	if !ok {
		return stepPrompts[StepName]
	}
	if rec.Step == StepConfirm {
		return fmt.Sprintf(prompt, rec.Summary())
	}
	return prompt
}

// QuickRepliesForStep returns suggestion chips the widget renders under the
// input box. Steps that expect free text (name, phone, email) get none.
func QuickRepliesForStep(step int) []string {
	switch step {
	case StepService:
		return []string{"Cleaning", "Checkup", "Whitening", "Filling", "Emergency"}
	case StepDate:
		return []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Tomorrow"}
	case StepTime:
		return []string{"9:00 am", "11:00 am", "2:00 pm", "4:00 pm"}
	case StepConfirm:
		return []string{"Yes, book it", "Start over"}
	default:
		return nil
	}
}
