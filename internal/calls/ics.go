package calls

import (
	"fmt"
	"strings"
	"time"
)

const icsStamp = "20060102T150405"

// ICS renders the reservation window of rec as a single-event calendar in
// loc. Records without a date or start time cannot be exported.
func ICS(rec Record, loc *time.Location, now time.Time) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	if rec.ReservationDate == "" || rec.WindowStart == "" {
		return nil, fmt.Errorf("calls: record %s has no reservation window", rec.ID)
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", rec.ReservationDate+" "+rec.WindowStart, loc)
	if err != nil {
		return nil, fmt.Errorf("calls: parse reservation start: %w", err)
	}
	end := start.Add(90 * time.Minute)
	if rec.WindowEnd != "" {
		if e, err := time.ParseInLocation("2006-01-02 15:04", rec.ReservationDate+" "+rec.WindowEnd, loc); err == nil && e.After(start) {
			end = e
		}
	}

	summary := "Reservation at " + rec.TargetName
	if rec.PartySize > 0 {
		summary += fmt.Sprintf(" (party of %d)", rec.PartySize)
	}

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//concierge-dialer//reservations//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		"UID:" + rec.ID.String() + "@concierge-dialer",
		"DTSTAMP:" + now.UTC().Format(icsStamp) + "Z",
		"DTSTART;TZID=" + loc.String() + ":" + start.Format(icsStamp),
		"DTEND;TZID=" + loc.String() + ":" + end.Format(icsStamp),
		"SUMMARY:" + escapeICS(summary),
	}
	if rec.Notes != "" {
		lines = append(lines, "DESCRIPTION:"+escapeICS(rec.Notes))
	}
	if rec.TargetPhone != "" {
		lines = append(lines, "CONTACT:"+escapeICS(rec.TargetPhone))
	}
	lines = append(lines, "STATUS:"+icsStatus(rec.Status), "END:VEVENT", "END:VCALENDAR")

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(foldICS(line))
		b.WriteString("\r\n")
	}
	return []byte(b.String()), nil
}

func icsStatus(s Status) string {
	switch s {
	case StatusCompleted:
		return "CONFIRMED"
	case StatusFailed:
		return "CANCELLED"
	default:
		return "TENTATIVE"
	}
}

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

func escapeICS(s string) string {
	return icsEscaper.Replace(s)
}

// foldICS wraps content lines at 75 octets with a leading space on each
// continuation.
func foldICS(line string) string {
	const limit = 75
	if len(line) <= limit {
		return line
	}
	var b strings.Builder
	for len(line) > limit {
		cut := limit
		for cut > 0 && !isRuneStart(line[cut]) {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
	}
	b.WriteString(line)
	return b.String()
}

func isRuneStart(c byte) bool {
	return c&0xC0 != 0x80
}
