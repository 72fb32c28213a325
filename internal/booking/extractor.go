package booking

import (
	"regexp"
	"strings"
)

// Canonical service categories offered by the clinic.
const (
	ServiceCleaning  = "cleaning"
	ServiceCheckup   = "checkup"
	ServiceWhitening = "whitening"
	ServiceFilling   = "filling"
	ServiceEmergency = "emergency"
)

// ---------- package-level compiled patterns ----------

var (
	// Explicit self-introductions. Capture is capped at two words so trailing
	// sentence text is not swallowed into the name.
	nameIntroRE = regexp.MustCompile(`(?i)\b(?:my name is|i'?m|i am|name is)\s+([A-Za-z]+(?: [A-Za-z]+)?)`)
	// A two-word alphabetic message on its own line.
	nameLineRE = regexp.MustCompile(`^[A-Za-z]{2,}\s+[A-Za-z]{2,}$`)
	// Any two-word alphabetic substring, the loosest fallback.
	namePairRE  = regexp.MustCompile(`\b([A-Za-z]{2,} [A-Za-z]{2,})\b`)
	validNameRE = regexp.MustCompile(`^[A-Za-z][A-Za-z ]+$`)

	// Phone candidates, most specific first. No checksum or locale
	// validation; the first structural match wins.
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{10}\b`),
		regexp.MustCompile(`\b\d{3}[-.\s]\d{3}[-.\s]\d{4}\b`),
		regexp.MustCompile(`\+\d{1,3}[-.\s]?\d{6,12}`),
		regexp.MustCompile(`\b\d{10,12}\b`),
	}

	emailRE = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// Time candidates: h:mm am/pm, h am/pm, bare h:mm.
	timePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(\d{1,2}:\d{2}\s*(?:am|pm))`),
		regexp.MustCompile(`(?i)\b(\d{1,2}\s*(?:am|pm))\b`),
		regexp.MustCompile(`\b(\d{1,2}:\d{2})\b`),
	}
)

// serviceCategories maps each category to its synonym list. Categories are
// checked in this order; the first category with any synonym present wins.
var serviceCategories = []struct {
	name     string
	synonyms []string
}{
	{ServiceCleaning, []string{"cleaning", "clean", "hygiene", "polish", "scale"}},
	{ServiceCheckup, []string{"checkup", "check-up", "check up", "exam", "examination", "consultation"}},
	{ServiceWhitening, []string{"whitening", "whiten", "bleach"}},
	{ServiceFilling, []string{"filling", "cavity", "fill"}},
	{ServiceEmergency, []string{"emergency", "urgent", "broken tooth", "toothache", "severe pain", "pain", "swelling", "bleeding"}},
}

// dateVocabulary is the full set of accepted scheduling words. No calendar
// parsing is attempted; the matched word is stored verbatim.
var dateVocabulary = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday",
	"tomorrow", "next week",
}

// affirmativeTokens close out the booking once all fields are collected.
var affirmativeTokens = []string{"yes", "confirm", "book it", "correct"}

// Extract rebuilds the booking record from the full transcript. User messages
// are scanned in order; each still-unfilled field tries its matchers against
// the message and locks on first success, so later messages never overwrite an
// extracted value. Assistant and system turns are ignored. Extract is a pure
// function of its input and never fails: malformed input simply leaves fields
// empty.
func Extract(msgs []Message) Record {
	rec := Record{Step: StepName, Urgency: UrgencyRoutine}

	var lastUser string
	for _, m := range msgs {
		if m.Role != RoleUser {
			continue
		}
		lastUser = m.Content

		if rec.PatientName == "" {
			rec.PatientName = extractName(m.Content)
		}
		if rec.PhoneNumber == "" {
			rec.PhoneNumber = extractPhone(m.Content)
		}
		if rec.Email == "" {
			rec.Email = extractEmail(m.Content)
		}
		if rec.ServiceType == "" {
			if svc := extractService(m.Content); svc != "" {
				rec.ServiceType = svc
				if svc == ServiceEmergency {
					rec.Urgency = UrgencyEmergency
				}
			}
		}
		if rec.PreferredDate == "" {
			rec.PreferredDate = extractDate(m.Content)
		}
		if rec.PreferredTime == "" {
			rec.PreferredTime = extractTime(m.Content)
		}
	}

	rec.Step = rec.currentStep()
	if rec.Step == StepConfirm && containsAffirmation(lastUser) {
		rec.Step = StepDone
		rec.Complete = true
	}
	return rec
}

// extractName tries the three name candidates in order: explicit
// self-introduction, a bare two-word line, then any two-word substring.
func extractName(text string) string {
	if m := nameIntroRE.FindStringSubmatch(text); len(m) == 2 {
		if name := cleanName(m[1]); name != "" {
			return name
		}
	}
	if line := strings.TrimSpace(text); nameLineRE.MatchString(line) {
		if name := cleanName(line); name != "" {
			return name
		}
	}
	if m := namePairRE.FindStringSubmatch(text); len(m) == 2 {
		if name := cleanName(m[1]); name != "" {
			return name
		}
	}
	return ""
}

// cleanName validates a candidate: at least two characters, letters and
// spaces only.
func cleanName(raw string) string {
	name := strings.Join(strings.Fields(raw), " ")
	if len(name) < 2 || !validNameRE.MatchString(name) {
		return ""
	}
	return name
}

func extractPhone(text string) string {
	for _, re := range phonePatterns {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

func extractEmail(text string) string {
	if m := emailRE.FindString(text); m != "" {
		return strings.ToLower(m)
	}
	return ""
}

// stripEmails blanks out email addresses before substring keyword matching;
// "john@example.com" contains "exam" and would lock the wrong service.
func stripEmails(text string) string {
	return emailRE.ReplaceAllString(text, " ")
}

func extractService(text string) string {
	lower := strings.ToLower(stripEmails(text))
	for _, cat := range serviceCategories {
		for _, syn := range cat.synonyms {
			if strings.Contains(lower, syn) {
				return cat.name
			}
		}
	}
	return ""
}

func extractDate(text string) string {
	lower := strings.ToLower(stripEmails(text))
	for _, word := range dateVocabulary {
		if strings.Contains(lower, word) {
			return word
		}
	}
	return ""
}

func extractTime(text string) string {
	for _, re := range timePatterns {
		if m := re.FindStringSubmatch(text); len(m) == 2 {
			return strings.ToLower(strings.Join(strings.Fields(m[1]), ""))
		}
	}
	return ""
}

func containsAffirmation(text string) bool {
	lower := strings.ToLower(text)
	for _, tok := range affirmativeTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
