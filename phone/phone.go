// Package phone canonicalizes participant phone numbers into the 10-digit local
// form used as the registration uniqueness key.
package phone

import (
	"regexp"
	"strings"
)

var localPattern = regexp.MustCompile(`^0\d{9}$`)

// Normalize strips non-digits, rewrites a leading 84 country code to 0 and
// prefixes a missing leading 0.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "84") {
		digits = "0" + digits[2:]
	}
	if digits != "" && !strings.HasPrefix(digits, "0") {
		digits = "0" + digits
	}
	return digits
}

// Valid reports whether raw normalizes to exactly 10 digits starting with 0.
func Valid(raw string) bool {
	return localPattern.MatchString(Normalize(raw))
}

// Mask renders the normalized number as first three digits, four stars, last three.
// Numbers shorter than 7 digits are returned normalized but unmasked.
func Mask(raw string) string {
	n := Normalize(raw)
	if len(n) < 7 {
		return n
	}
	return n[:3] + "****" + n[len(n)-3:]
}
