package auth

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/wolfman30/billing-support-ai/internal/identity"
)

var dobLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"01.02.2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"20060102",
}

// matchFactor compares an answer against the customer's record. It has no
// side effects.
func matchFactor(rec *identity.CustomerRecord, factor Factor, answer string) (bool, error) {
	switch factor {
	case FactorSSN:
		return matchSSN(rec.SSNLast4, answer), nil
	case FactorDOB:
		return matchDOB(rec.DateOfBirth, answer), nil
	default:
		return false, ErrUnknownFactor
	}
}

// matchSSN accepts four digits or a full nine digit SSN in any punctuation.
func matchSSN(last4, answer string) bool {
	digits := digitsOnly(answer)
	switch len(digits) {
	case 4:
	case 9:
		digits = digits[5:]
	default:
		return false
	}
	want := digitsOnly(last4)
	if len(want) != 4 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(digits), []byte(want)) == 1
}

func matchDOB(dob time.Time, answer string) bool {
	if dob.IsZero() {
		return false
	}
	parsed, ok := ParseDate(answer)
	if !ok {
		return false
	}
	y1, m1, d1 := parsed.Date()
	y2, m2, d2 := dob.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// ParseDate accepts the date formats customers commonly type.
func ParseDate(answer string) (time.Time, bool) {
	answer = strings.TrimSpace(answer)
	answer = strings.TrimSuffix(answer, ".")
	answer = strings.Join(strings.Fields(answer), " ")
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, answer); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
