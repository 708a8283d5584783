package conversation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/wolfman30/concierge-dialer/internal/naturaldate"
	"github.com/wolfman30/concierge-dialer/internal/phone"
	"github.com/wolfman30/concierge-dialer/internal/slots"
)

var (
	partyOfRE     = regexp.MustCompile(`(?i)\b(?:party of|table for|group of)\s+(\d{1,2})\b`)
	partyPeopleRE = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:people|persons|guests|pax|ppl|adults)\b`)
	partyForOnRE  = regexp.MustCompile(`(?i)\bfor\s+(\d{1,2})\s+(?:on|at|this|next|tomorrow|tonight|today)\b`)
	partyColonRE  = regexp.MustCompile(`(?i)\bparty(?:\s+size)?\s*[:=]\s*(\d{1,2})\b`)
	partyForRE    = regexp.MustCompile(`(?i)\bfor\s+(\d{1,2})\b(\s*(?::\d|[ap]\.?m\b|o'?clock))?`)
	callbackRE    = regexp.MustCompile(`(?i)\b(callback|call back|call-back|reach you|your (?:phone|number|cell))\b`)
)

// confirmArgs reads slot values out of a confirmation summary. Only values
// actually present in the prose are returned.
func confirmArgs(summary string, dates *naturaldate.Parser) map[string]any {
	args := map[string]any{}
	if n, ok := summaryPartySize(summary); ok {
		args[slots.FieldPartySize] = n
	}
	if d := dates.ParseDate(summary, ""); d != "" {
		args[slots.FieldDate] = d
	}
	if start, end, ok := naturaldate.ParseTimeRange(summary); ok {
		args[slots.FieldTimeWindowStart] = start
		args[slots.FieldTimeWindowEnd] = end
	} else if start := naturaldate.To24h(summary); start != "" {
		args[slots.FieldTimeWindowStart] = start
	}
	return args
}

// summaryPartySize skips matches whose second group is set: partyForRE uses
// it to flag "for 7:30" and "for 7 pm", which are times.
func summaryPartySize(summary string) (int, bool) {
	for _, re := range []*regexp.Regexp{partyOfRE, partyPeopleRE, partyForOnRE, partyColonRE, partyForRE} {
		for _, m := range re.FindAllStringSubmatch(summary, -1) {
			if len(m) > 2 && m[2] != "" {
				continue
			}
			if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 20 {
				return n, true
			}
		}
	}
	return 0, false
}

// applyConfirmPhone stores the last number in a summary. Numbers already
// held in either slot are left alone.
func applyConfirmPhone(summary string, s *slots.State) {
	num := phone.ExtractLast(summary)
	if num == "" || num == s.Details.UserPhone || num == s.Details.DestinationPhone {
		return
	}
	tail := summary
	if idx := strings.LastIndex(summary, lastDigitRun(summary)); idx > 0 {
		tail = summary[:idx]
	}
	if callbackRE.MatchString(lastClause(tail)) {
		s.Details.UserPhone = num
		return
	}
	switch phone.Assign(lastClause(tail), s.UI.ExpectingDestPhone, s.Details.UserPhone != "") {
	case phone.TargetDestination:
		s.Details.DestinationPhone = num
		s.UI.ExpectingDestPhone = false
	default:
		s.Details.UserPhone = num
	}
}

var digitRunRE = regexp.MustCompile(`\+?[\d(][\d\s().-]{8,}\d`)

func lastDigitRun(s string) string {
	runs := digitRunRE.FindAllString(s, -1)
	if len(runs) == 0 {
		return ""
	}
	return runs[len(runs)-1]
}

// lastClause is the text between the previous sentence or list break and
// the end of s.
func lastClause(s string) string {
	if i := strings.LastIndexAny(s, ".;\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}
