package identity

import (
	"strings"
	"unicode"
)

// NormalizePhone strips non-digits and normalizes 10-digit US numbers to 11-digit format.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) == 10 {
		return "1" + d
	}
	return d
}

// NormalizeEmail lower-cases and trims an address. Returns "" for non-addresses.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ""
	}
	return email
}

// NormalizeAccount keeps letters and digits, upper-cased.
func NormalizeAccount(account string) string {
	var b strings.Builder
	for _, r := range account {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// minPhoneDigits keeps short numeric answers (SSN fragments, account numbers
// typed without letters) from being read as phone numbers.
const minPhoneDigits = 7

func phoneCandidate(identifier string) string {
	if strings.Contains(identifier, "@") {
		return ""
	}
	for _, r := range identifier {
		if unicode.IsLetter(r) {
			return ""
		}
	}
	digits := NormalizePhone(identifier)
	if len(digits) < minPhoneDigits {
		return ""
	}
	return digits
}
