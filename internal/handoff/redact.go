package handoff

import (
	"regexp"
	"strings"

	"github.com/wolfman30/billing-support-ai/internal/session"
)

var (
	emailRe    = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	ssnRe      = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	phoneRe    = regexp.MustCompile(`\+?1?[-.\s]?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`)
	dateRe     = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b|\b\d{4}-\d{2}-\d{2}\b`)
	lastFourRe = regexp.MustCompile(`^\D*\d{4}\D*$`)
)

// ScrubPII masks e-mail addresses, SSNs, phone numbers and dates.
func ScrubPII(text string) string {
	text = emailRe.ReplaceAllString(text, "[EMAIL]")
	text = ssnRe.ReplaceAllString(text, "[SSN]")
	text = dateRe.ReplaceAllString(text, "[DATE]")
	text = phoneRe.ReplaceAllString(text, "[PHONE]")
	return text
}

// scrubbed returns a copy of t safe for long-term storage. Customer turns
// that are only a four digit answer are treated as verification secrets.
func scrubbed(t *Ticket) *Ticket {
	out := t.clone()
	out.Summary = ScrubPII(out.Summary)
	out.IdentifyingInfo = ScrubPII(out.IdentifyingInfo)
	for i, msg := range out.History {
		if msg.Role == session.RoleUser && lastFourRe.MatchString(strings.TrimSpace(msg.Content)) {
			out.History[i].Content = "[REDACTED]"
			continue
		}
		out.History[i].Content = ScrubPII(msg.Content)
	}
	return out
}
