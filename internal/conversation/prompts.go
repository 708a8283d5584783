package conversation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wolfman30/concierge-dialer/internal/naturaldate"
	"github.com/wolfman30/concierge-dialer/internal/slots"
)

const (
	transportErrorPrompt = "Sorry, I couldn't reach the assistant just now. Please try sending that again."
	roundLimitPrompt     = "Sorry, I got a bit tangled up there. Could you tell me again what you'd like to do?"
	destinationPrompt    = "What's the restaurant's phone number? I'll call them for you."
	discoveryRedirect    = "Happy to help you find a spot first. What kind of food or neighborhood are you in the mood for?"
	followUpPrompt       = "Anything else I can help with?"
)

// missingPrompt turns a missing-field list into one question.
func missingPrompt(missing []string) string {
	if len(missing) == 0 {
		return followUpPrompt
	}
	labels := make([]string, 0, len(missing))
	seen := map[string]bool{}
	for _, f := range missing {
		// A missing start implies a missing end; ask once.
		if f == slots.FieldTimeWindowEnd && seen[slots.FieldTimeWindowStart] {
			continue
		}
		seen[f] = true
		labels = append(labels, slots.Label(f))
	}
	return "To book this I still need " + joinList(labels) + "."
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

func guidePrompt(title string, steps []string) string {
	var b strings.Builder
	if title != "" {
		b.WriteString(title)
	}
	for i, step := range steps {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s", i+1, step)
	}
	return b.String()
}

func dispatchedPrompt(d slots.Details) string {
	return fmt.Sprintf("Calling %s now to book a table for %d on %s, %s. I'll let you know how it goes.",
		d.RestaurantName, d.PartySize, naturaldate.PrettyDate(d.Date),
		naturaldate.PrettyRange(d.TimeWindowStart, d.TimeWindowEnd))
}

func dispatchFailedPrompt(d slots.Details, reason string) string {
	return fmt.Sprintf("I couldn't place the call to %s (%s). Want me to try again?", d.RestaurantName, reason)
}

var detailAskRE = regexp.MustCompile(`(?i)\b(how many (?:people|guests|of you|in your party)|party size|what(?:'s| is) your (?:phone|number|cell)|callback number|what time (?:would|do|should|works)|which (?:date|day) (?:would|do|works))`)

// guardDiscovery redirects a premature request for booking details while
// the user is still choosing where to go.
func guardDiscovery(content string, s slots.State) string {
	if s.Mode != slots.ModeDiscovery || s.Details.RestaurantName != "" {
		return content
	}
	if detailAskRE.MatchString(content) {
		return discoveryRedirect
	}
	return content
}
