// Package intent classifies user utterances with cheap keyword heuristics.
package intent

import (
	"regexp"
	"strings"

	"github.com/wolfman30/concierge-dialer/internal/phone"
	"github.com/wolfman30/concierge-dialer/internal/slots"
)

var (
	bookingRE = regexp.MustCompile(`(?i)\b(book|booking|reserve|reservation|make a reservation|hold a table|get (?:us |me )?a table|let'?s do|go with|i'?ll take|i pick|let'?s pick|pick (?:that|this|it|the|number|option)|call (?:them|it|the restaurant|and book))\b`)

	destIntentRE = regexp.MustCompile(`(?i)\b(i have (?:their|the) (?:number|phone)|here'?s (?:their|the restaurant'?s?) (?:number|phone)|(?:i'?ll|let me) give you (?:their|the) (?:number|phone)|i know (?:their|the) (?:number|phone))\b`)
)

// Result is the classification of a single utterance.
type Result struct {
	Mode slots.Mode
	// DestinationPhoneIntent is set when the user signals that they are
	// about to supply the business's number.
	DestinationPhoneIntent bool
}

// Classify runs every heuristic against text.
func Classify(text string, current slots.Mode) Result {
	return Result{
		Mode:                   ClassifyMode(text, current),
		DestinationPhoneIntent: ExpectsDestinationPhone(text),
	}
}

// ClassifyMode returns booking when text carries booking or commitment
// phrasing. Booking is sticky: once current is booking it stays booking.
func ClassifyMode(text string, current slots.Mode) slots.Mode {
	if current == slots.ModeBooking {
		return slots.ModeBooking
	}
	if bookingRE.MatchString(text) {
		return slots.ModeBooking
	}
	return slots.ModeDiscovery
}

// ExpectsDestinationPhone reports whether the user is talking about the
// business's number without having given it yet.
func ExpectsDestinationPhone(text string) bool {
	if phone.Extract(text) != "" {
		return false
	}
	lower := strings.ToLower(text)
	return destIntentRE.MatchString(lower) || phone.ImpliesDestination(lower)
}
