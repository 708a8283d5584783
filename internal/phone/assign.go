package phone

import (
	"regexp"
	"strings"
)

// Target identifies which slot a captured number should fill.
type Target int

const (
	TargetUser Target = iota
	TargetDestination
)

func (t Target) String() string {
	if t == TargetDestination {
		return "destination"
	}
	return "user"
}

var destinationPhrases = []string{
	"their phone",
	"their number",
	"their #",
	"restaurant's number",
	"restaurants number",
	"restaurant number",
	"restaurant's phone",
	"restaurant phone",
	"business number",
	"business phone",
	"front desk",
	"number to call",
	"call them at",
	"reach them at",
	"place's number",
	"host stand",
}

var selfRE = regexp.MustCompile(`(?i)\b(my|mine|me at)\b`)

// ImpliesDestination reports whether text describes a number as the
// business's rather than the user's.
func ImpliesDestination(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range destinationPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// ImpliesSelf reports whether text describes a number as the user's own.
func ImpliesSelf(text string) bool {
	return selfRE.MatchString(text)
}

// Assign decides which slot a number captured from text belongs to.
// Destination phrasing wins over self phrasing. Without either, a pending
// request for the destination number wins, then an empty user slot, then
// the destination.
func Assign(text string, expectingDestination, haveUserPhone bool) Target {
	switch {
	case ImpliesDestination(text):
		return TargetDestination
	case ImpliesSelf(text):
		return TargetUser
	case expectingDestination:
		return TargetDestination
	case !haveUserPhone:
		return TargetUser
	default:
		return TargetDestination
	}
}
