// Package phone recognizes phone numbers in free text and decides whether a
// captured number belongs to the user or to the business being called.
package phone

import (
	"regexp"
	"strings"
)

const (
	minDigits = 10
	maxDigits = 15
)

// candidateRE matches phone-like runs: digits optionally grouped with spaces,
// dots, dashes or parentheses, with an optional leading plus.
var candidateRE = regexp.MustCompile(`\+?\(?\d[\d().\-\s]*\d\)?`)

var e164RE = regexp.MustCompile(`^\+[1-9]\d{9,14}$`)

// Extract returns the first phone number in text normalized to E.164, or ""
// when nothing in the text has between 10 and 15 digits. A 10-digit number is
// treated as domestic (+1).
func Extract(text string) string {
	for _, candidate := range candidateRE.FindAllString(text, -1) {
		if normalized := normalizeDigits(candidate); normalized != "" {
			return normalized
		}
	}
	return ""
}

// ExtractLast returns the last phone number in text, used when a summary ends
// with the number to dial.
func ExtractLast(text string) string {
	candidates := candidateRE.FindAllString(text, -1)
	for i := len(candidates) - 1; i >= 0; i-- {
		if normalized := normalizeDigits(candidates[i]); normalized != "" {
			return normalized
		}
	}
	return ""
}

// Match is a normalized number and the byte span it came from.
type Match struct {
	Number     string
	Start, End int
}

// ExtractAll returns every phone number in text in order of appearance.
func ExtractAll(text string) []Match {
	var out []Match
	for _, loc := range candidateRE.FindAllStringIndex(text, -1) {
		if normalized := normalizeDigits(text[loc[0]:loc[1]]); normalized != "" {
			out = append(out, Match{Number: normalized, Start: loc[0], End: loc[1]})
		}
	}
	return out
}

// Normalize coerces a single phone value: values already in E.164 are kept
// as-is, anything else goes through Extract.
func Normalize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if compact := strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "").Replace(value); IsE164(compact) {
		return compact
	}
	return Extract(value)
}

// IsE164 reports whether value is a plus-prefixed 10 to 15 digit number.
func IsE164(value string) bool {
	return e164RE.MatchString(value)
}

func normalizeDigits(candidate string) string {
	digits := sanitize(candidate)
	switch {
	case len(digits) == minDigits:
		return "+1" + digits
	case len(digits) > minDigits && len(digits) <= maxDigits:
		return "+" + digits
	default:
		return ""
	}
}

func sanitize(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
