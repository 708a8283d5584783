package naturaldate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// "7pm", "7:30 pm", "7 p.m.", "7p". A bare a/p must touch the digits so
	// "party of 7 a table" is not read as a time.
	meridiemRE = regexp.MustCompile(`(?i)\b(\d{1,2})(?::([0-5]\d))?(?:\s*(am|pm|a\.m\.?|p\.m\.?)|(a|p))(?:[^a-z]|$)`)
	clock24RE  = regexp.MustCompile(`(?:^|[^\d:])([01]?\d|2[0-3]):([0-5]\d)(?:[^\d]|$)`)
	noonRE     = regexp.MustCompile(`(?i)\b(noon|midday)\b`)
	midnightRE = regexp.MustCompile(`(?i)\bmidnight\b`)

	rangeRE   = regexp.MustCompile(`(?i)\b(\d{1,2})(?::([0-5]\d))?\s*(am|pm|a|p)?\s*(?:-|–|—|to|until|till)\s*(\d{1,2})(?::([0-5]\d))?\s*(am|pm|a|p)\b`)
	betweenRE = regexp.MustCompile(`(?i)\bbetween\s+(\d{1,2})(?::([0-5]\d))?\s*(am|pm|a|p)?\s+and\s+(\d{1,2})(?::([0-5]\d))?\s*(am|pm|a|p)\b`)
	hhmmRE    = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)
)

// To24h returns the first time expression in text as "HH:mm", or "".
// 12-hour forms are tried before 24-hour "HH:MM"; "noon" and "midnight" are
// accepted last.
func To24h(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	for _, m := range meridiemRE.FindAllStringSubmatch(text, -1) {
		meridiem := m[3]
		if meridiem == "" {
			meridiem = m[4]
		}
		if clock, ok := twelveHour(m[1], m[2], meridiem); ok {
			return clock
		}
	}
	if m := clock24RE.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		return formatClock(h, min)
	}
	if noonRE.MatchString(text) {
		return "12:00"
	}
	if midnightRE.MatchString(text) {
		return "00:00"
	}
	return ""
}

// ParseTimeRange extracts a window such as "7-9pm", "7pm to 8:30pm" or
// "between 6 and 7pm". A start without its own am/pm borrows the end's,
// unless that would put the start after the end ("11-1pm" is 11am-1pm).
func ParseTimeRange(text string) (start, end string, ok bool) {
	for _, re := range []*regexp.Regexp{betweenRE, rangeRE} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		endMeridiem := normalizeMeridiem(m[6])
		startMeridiem := normalizeMeridiem(m[3])
		if startMeridiem == "" {
			startMeridiem = endMeridiem
			sh, _ := strconv.Atoi(m[1])
			eh, _ := strconv.Atoi(m[4])
			if endMeridiem == "pm" && sh != 12 && (eh == 12 || sh > eh) {
				startMeridiem = "am"
			}
		}
		s, okStart := twelveHour(m[1], m[2], startMeridiem)
		e, okEnd := twelveHour(m[4], m[5], endMeridiem)
		if okStart && okEnd && s < e {
			return s, e, true
		}
	}
	return "", "", false
}

// AddMinutes shifts an "HH:mm" clock by n minutes, wrapping across midnight.
// The day component is discarded. Invalid input yields "".
func AddMinutes(hhmm string, n int) string {
	t, err := time.Parse(clockLayout, hhmm)
	if err != nil {
		return ""
	}
	ref := time.Date(2000, time.January, 1, t.Hour(), t.Minute(), 0, 0, time.UTC)
	return ref.Add(time.Duration(n) * time.Minute).Format(clockLayout)
}

// IsHHMM reports whether value is a zero-padded 24-hour clock.
func IsHHMM(value string) bool {
	return hhmmRE.MatchString(value)
}

// PrettyDate renders an ISO date as "Tuesday, November 5".
func PrettyDate(iso string) string {
	t, err := time.Parse(isoDateLayout, iso)
	if err != nil {
		return iso
	}
	return t.Format("Monday, January 2")
}

// PrettyTime renders "19:30" as "7:30 PM".
func PrettyTime(hhmm string) string {
	t, err := time.Parse(clockLayout, hhmm)
	if err != nil {
		return hhmm
	}
	return t.Format("3:04 PM")
}

// PrettyRange renders a window as "7:00 PM - 7:30 PM", or just the start when
// the end is unknown.
func PrettyRange(start, end string) string {
	switch {
	case start == "":
		return ""
	case end == "":
		return PrettyTime(start)
	default:
		return PrettyTime(start) + " - " + PrettyTime(end)
	}
}

func twelveHour(hourStr, minStr, meridiem string) (string, bool) {
	h, err := strconv.Atoi(hourStr)
	if err != nil {
		return "", false
	}
	m := 0
	if minStr != "" {
		if m, err = strconv.Atoi(minStr); err != nil {
			return "", false
		}
	}
	switch normalizeMeridiem(meridiem) {
	case "am":
		if h < 1 || h > 12 {
			return "", false
		}
		if h == 12 {
			h = 0
		}
	case "pm":
		if h < 1 || h > 12 {
			return "", false
		}
		if h != 12 {
			h += 12
		}
	default:
		if h > 23 {
			return "", false
		}
	}
	return formatClock(h, m), true
}

func normalizeMeridiem(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ".", "")
	switch s {
	case "a", "am":
		return "am"
	case "p", "pm":
		return "pm"
	default:
		return ""
	}
}

func formatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
