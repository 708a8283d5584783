// Package calls composes outbound reservation calls, places them through the
// call-now service and keeps a record of every attempt.
package calls

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/concierge-dialer/internal/naturaldate"
	"github.com/wolfman30/concierge-dialer/internal/slots"
)

// ErrIncompleteRequest is returned when details lack a required field or the
// destination phone.
var ErrIncompleteRequest = errors.New("calls: incomplete request")

// Request is the body sent to the call-now service. It is rebuilt from the
// current details on every attempt.
type Request struct {
	TargetName         string `json:"targetName"`
	TargetPhone        string `json:"targetPhone"`
	Notes              string `json:"notes"`
	Script             string `json:"script,omitempty"`
	Source             string `json:"source"`
	RequestID          string `json:"requestId,omitempty"`
	PartySize          int    `json:"partySize,omitempty"`
	Date               string `json:"date,omitempty"`
	Time               string `json:"time,omitempty"`
	DesiredWindowStart string `json:"desiredWindowStart,omitempty"`
	DesiredWindowEnd   string `json:"desiredWindowEnd,omitempty"`
	PhoneE164          string `json:"phoneE164,omitempty"`
	BusinessName       string `json:"businessName,omitempty"`
	BusinessAddress    string `json:"businessAddress,omitempty"`
}

// BuildRequest composes the call from fully resolved details. dates, when
// non-nil, adds ISO window bounds in the reference timezone.
func BuildRequest(d slots.Details, source string, dates *naturaldate.Parser) (Request, error) {
	missing := d.MissingRequired()
	if d.DestinationPhone == "" {
		missing = append(missing, slots.FieldDestinationPhone)
	}
	if len(missing) > 0 {
		return Request{}, fmt.Errorf("%w: missing %s", ErrIncompleteRequest, strings.Join(missing, ", "))
	}

	req := Request{
		TargetName:      d.RestaurantName,
		TargetPhone:     d.DestinationPhone,
		Notes:           Notes(d),
		Script:          Script(d),
		Source:          source,
		PartySize:       d.PartySize,
		Date:            d.Date,
		Time:            d.TimeWindowStart,
		PhoneE164:       d.UserPhone,
		BusinessName:    d.RestaurantName,
		BusinessAddress: d.Address,
	}
	if dates != nil {
		if start, err := dates.Combine(d.Date, d.TimeWindowStart); err == nil {
			req.DesiredWindowStart = start.Format("2006-01-02T15:04:05Z07:00")
		}
		if end, err := dates.Combine(d.Date, d.TimeWindowEnd); err == nil {
			req.DesiredWindowEnd = end.Format("2006-01-02T15:04:05Z07:00")
		}
	}
	return req, nil
}

// Notes is the one-line audit string stored with the call.
func Notes(d slots.Details) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reservation for %d at %s on %s, %s.", d.PartySize, d.RestaurantName, d.Date,
		naturaldate.PrettyRange(d.TimeWindowStart, d.TimeWindowEnd))
	if d.UserPhone != "" {
		fmt.Fprintf(&b, " Callback %s.", d.UserPhone)
	}
	if d.SpecialRequests != "" {
		fmt.Fprintf(&b, " Requests: %s.", strings.TrimRight(d.SpecialRequests, "."))
	}
	return b.String()
}

// Script is the opening brief for the call agent.
func Script(d slots.Details) string {
	var b strings.Builder
	people := "people"
	if d.PartySize == 1 {
		people = "person"
	}
	fmt.Fprintf(&b, "Hi, I'm calling to book a table for %d %s on %s at %s.",
		d.PartySize, people, naturaldate.PrettyDate(d.Date), naturaldate.PrettyTime(d.TimeWindowStart))
	if d.TimeWindowEnd != "" && d.TimeWindowEnd != slots.DefaultEnd(d.TimeWindowStart) {
		fmt.Fprintf(&b, " Anything up to %s works.", naturaldate.PrettyTime(d.TimeWindowEnd))
	}
	if d.SpecialRequests != "" {
		fmt.Fprintf(&b, " Please note: %s.", strings.TrimRight(d.SpecialRequests, "."))
	}
	b.WriteString(" If that time isn't available, offer alternatives within 60 minutes.")
	if d.UserPhone != "" {
		fmt.Fprintf(&b, " The callback number for the reservation is %s.", d.UserPhone)
	}
	b.WriteString(" Before you hang up, repeat the agreed name, party size, date and time back to confirm.")
	return b.String()
}
