// Package naturaldate resolves natural-language dates and times ("tomorrow",
// "next friday", "Oct 3", "7:30pm") into ISO dates and 24-hour clock strings.
// Every relative expression is anchored to one configured IANA timezone.
package naturaldate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	isoDateLayout = "2006-01-02"
	clockLayout   = "15:04"
)

// Parser resolves dates relative to "today" in a fixed location.
type Parser struct {
	loc *time.Location
	now func() time.Time
}

// NewParser builds a Parser anchored to the named IANA timezone.
func NewParser(timezone string) (*Parser, error) {
	if strings.TrimSpace(timezone) == "" {
		return nil, fmt.Errorf("naturaldate: timezone required")
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("naturaldate: load timezone %q: %w", timezone, err)
	}
	return &Parser{loc: loc, now: time.Now}, nil
}

// NewParserInLocation builds a Parser for an already loaded location.
func NewParserInLocation(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{loc: loc, now: time.Now}
}

// WithClock returns a copy of the parser that reads the current time from now.
func (p *Parser) WithClock(now func() time.Time) *Parser {
	cp := *p
	if now != nil {
		cp.now = now
	}
	return &cp
}

// Location returns the reference timezone.
func (p *Parser) Location() *time.Location {
	return p.loc
}

// Today returns midnight of the current day in the reference timezone.
func (p *Parser) Today() time.Time {
	now := p.now().In(p.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.loc)
}

var (
	todayRE    = regexp.MustCompile(`(?i)\b(today|tonight)\b`)
	tomorrowRE = regexp.MustCompile(`(?i)\b(tomorrow|tmrw|tmr)\b`)
	weekdayRE  = regexp.MustCompile(`(?i)\b(?:(this|next|coming)\s+)?(monday|mon|tuesday|tues|tue|wednesday|wed|thursday|thurs|thur|thu|friday|fri|saturday|sat|sunday|sun)\b`)

	monthPattern = `(january|jan|february|feb|march|mar|april|apr|may|june|jun|july|jul|august|aug|september|sept|sep|october|oct|november|nov|december|dec)`
	monthDayRE   = regexp.MustCompile(`(?i)\b` + monthPattern + `\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4})\b)?`)
	dayMonthRE   = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthPattern + `\b\.?(?:,?\s+(\d{4})\b)?`)
	numericRE    = regexp.MustCompile(`(?:^|[^\d/])(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?(?:[^\d/]|$)`)
	isoRE        = regexp.MustCompile(`(?:^|[^\d])(\d{4})-(\d{2})-(\d{2})(?:[^\d]|$)`)
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tues": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thurs": time.Thursday, "thur": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// ParseDate resolves the first date expression in text to YYYY-MM-DD.
// Recognized forms, in priority order: today/tomorrow, weekday names with an
// optional this/next qualifier, "Oct 3[, 2025]", "3 Oct[ 2025]", M/D[/YY],
// and ISO YYYY-MM-DD. When nothing resolves, fallback is returned if it is a
// valid ISO date, otherwise "".
func (p *Parser) ParseDate(text, fallback string) string {
	if date, ok := p.resolve(text); ok {
		return date.Format(isoDateLayout)
	}
	if IsISODate(fallback) {
		return fallback
	}
	return ""
}

// CaptureDate is ParseDate for text that was not necessarily talking about a
// date. Bare "sat", "sun", "mon" and "wed" are ordinary words there and only
// count with a this/next/coming qualifier.
func (p *Parser) CaptureDate(text string) string {
	if date, ok := p.resolveWith(text, true); ok {
		return date.Format(isoDateLayout)
	}
	return ""
}

// ambiguousWeekdays double as English words or names.
var ambiguousWeekdays = map[string]bool{"sat": true, "sun": true, "mon": true, "wed": true}

func (p *Parser) resolve(text string) (time.Time, bool) {
	return p.resolveWith(text, false)
}

func (p *Parser) resolveWith(text string, strict bool) (time.Time, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return time.Time{}, false
	}
	today := p.Today()

	if todayRE.MatchString(text) {
		return today, true
	}
	if tomorrowRE.MatchString(text) {
		return today.AddDate(0, 0, 1), true
	}

	for _, m := range weekdayRE.FindAllStringSubmatch(text, -1) {
		if strict && m[1] == "" && ambiguousWeekdays[m[2]] {
			continue
		}
		target := weekdays[m[2]]
		delta := (int(target) - int(today.Weekday()) + 7) % 7
		if m[1] == "next" {
			delta += 7
		}
		return today.AddDate(0, 0, delta), true
	}

	if m := monthDayRE.FindStringSubmatch(text); m != nil {
		if date, ok := p.calendarDate(months[m[1]], m[2], m[3], today); ok {
			return date, true
		}
	}
	if m := dayMonthRE.FindStringSubmatch(text); m != nil {
		if date, ok := p.calendarDate(months[m[2]], m[1], m[3], today); ok {
			return date, true
		}
	}
	if m := numericRE.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		if month >= 1 && month <= 12 {
			if date, ok := p.calendarDate(time.Month(month), m[2], m[3], today); ok {
				return date, true
			}
		}
	}
	if m := isoRE.FindStringSubmatch(text); m != nil {
		if date, err := time.ParseInLocation(isoDateLayout, m[1]+"-"+m[2]+"-"+m[3], p.loc); err == nil {
			return date, true
		}
	}
	return time.Time{}, false
}

// calendarDate validates a month/day[/year] triple. Without a year the next
// occurrence on or after today is used.
func (p *Parser) calendarDate(month time.Month, dayStr, yearStr string, today time.Time) (time.Time, bool) {
	day, err := strconv.Atoi(dayStr)
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}

	year := today.Year()
	explicitYear := yearStr != ""
	if explicitYear {
		y, err := strconv.Atoi(yearStr)
		if err != nil {
			return time.Time{}, false
		}
		year = expandYear(y, len(yearStr))
	}

	date := time.Date(year, month, day, 0, 0, 0, 0, p.loc)
	if date.Month() != month || date.Day() != day {
		return time.Time{}, false
	}
	if !explicitYear && date.Before(today) {
		date = time.Date(year+1, month, day, 0, 0, 0, 0, p.loc)
		if date.Month() != month {
			return time.Time{}, false
		}
	}
	return date, true
}

// expandYear applies the two-digit pivot: 70-99 → 19xx, 00-69 → 20xx.
func expandYear(year, digits int) int {
	if digits != 2 {
		return year
	}
	if year >= 70 {
		return 1900 + year
	}
	return 2000 + year
}

// SplitDateTime decomposes an ISO datetime hint into a date and a 24-hour
// time in the reference timezone. Values with an explicit offset are
// converted; naive values are read as local. A bare date yields an empty time.
func (p *Parser) SplitDateTime(value string) (date, clock string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ""
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04Z07:00"} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.In(p.loc)
			return t.Format(isoDateLayout), t.Format(clockLayout)
		}
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, value, p.loc); err == nil {
			return t.Format(isoDateLayout), t.Format(clockLayout)
		}
	}
	if IsISODate(value) {
		return value, ""
	}
	return "", ""
}

// Combine joins an ISO date and a 24-hour time into a time in the reference
// timezone.
func (p *Parser) Combine(date, clock string) (time.Time, error) {
	t, err := time.ParseInLocation(isoDateLayout+" "+clockLayout, date+" "+clock, p.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("naturaldate: combine %q %q: %w", date, clock, err)
	}
	return t, nil
}

// IsISODate reports whether value is a valid YYYY-MM-DD calendar date.
func IsISODate(value string) bool {
	if len(value) != len(isoDateLayout) {
		return false
	}
	_, err := time.Parse(isoDateLayout, value)
	return err == nil
}
