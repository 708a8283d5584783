package slots

import (
	"strings"

	"github.com/wolfman30/concierge-dialer/internal/naturaldate"
	"github.com/wolfman30/concierge-dialer/internal/phone"
)

// fieldSpec binds a canonical field to the keys the brain has been seen to
// use for it, in precedence order.
type fieldSpec struct {
	name    string
	aliases []string
	set     func(n *Normalizer, d *Details, v any) bool
}

var detailFields = []fieldSpec{
	{FieldRestaurantName, []string{"restaurantName", "restaurant_name", "restaurant", "name", "businessName", "business_name", "targetName", "target_name"}, setRestaurantName},
	{FieldPartySize, []string{"partySize", "party_size", "party", "guests", "people", "covers", "size"}, setPartySize},
	{FieldDate, []string{"date", "reservationDate", "reservation_date", "day"}, setDate},
	{FieldTimeWindowStart, []string{"timeWindowStart", "time_window_start", "windowStart", "window_start", "time", "startTime", "start_time"}, setWindowStart},
	{FieldTimeWindowEnd, []string{"timeWindowEnd", "time_window_end", "windowEnd", "window_end", "endTime", "end_time"}, setWindowEnd},
	{FieldSpecialRequests, []string{"specialRequests", "special_requests", "notes", "requests"}, setText(func(d *Details) *string { return &d.SpecialRequests })},
	{FieldUserPhone, []string{"userPhone", "user_phone", "callbackPhone", "customerCallback", "customer_phone", "myPhone"}, setPhone(func(d *Details) *string { return &d.UserPhone })},
	{FieldDestinationPhone, []string{"destinationPhone", "destination_phone", "destPhone", "dest_phone", "targetPhone", "target_phone", "phone", "restaurantPhone"}, setPhone(func(d *Details) *string { return &d.DestinationPhone })},
	{FieldAddress, []string{"address", "formatted_address", "businessAddress"}, setText(func(d *Details) *string { return &d.Address })},
	{FieldWebsite, []string{"website", "url", "site"}, setText(func(d *Details) *string { return &d.Website })},
	{FieldPlaceID, []string{"placeId", "place_id", "googlePlaceId"}, setText(func(d *Details) *string { return &d.PlaceID })},
	{FieldCity, []string{"city", "locality"}, setText(func(d *Details) *string { return &d.City })},
	{FieldDistanceMi, []string{"distanceMi", "distance_mi", "distance", "distanceMiles"}, setDistance},
}

var (
	kindAliases         = []string{"kind", "vertical", "category"}
	geoAliases          = []string{"geoCenter", "geo_center", "geo", "near"}
	radiusAliases       = []string{"radiusMiles", "radius_miles", "radius"}
	desiredStartAliases = []string{"desiredStart", "desired_start", "desiredWindowStart"}
	desiredEndAliases   = []string{"desiredEnd", "desired_end", "desiredWindowEnd"}
	nestedKeys          = []string{"details", "slots"}
)

// reserved keys are consumed by State-level handling or are tool envelope
// fields, so they never land in Details.Extra.
var reserved = func() map[string]bool {
	m := map[string]bool{"mode": true, "ui": true, "question": true, "summary": true, "steps": true, "key": true, "value": true}
	for _, group := range [][]string{kindAliases, geoAliases, radiusAliases, desiredStartAliases, desiredEndAliases, nestedKeys} {
		for _, k := range group {
			m[k] = true
		}
	}
	for _, f := range detailFields {
		for _, k := range f.aliases {
			m[k] = true
		}
	}
	return m
}()

// Normalizer merges brain tool arguments into canonical slot values.
type Normalizer struct {
	dates *naturaldate.Parser
}

// NewNormalizer builds a Normalizer that resolves free-text dates with p.
func NewNormalizer(p *naturaldate.Parser) *Normalizer {
	if p == nil {
		panic("slots: date parser required")
	}
	return &Normalizer{dates: p}
}

// Normalize merges args into existing. Incoming valid values win; empty or
// invalid incoming values never replace a populated field. ISO datetime hints
// under desiredStart/desiredEnd fill date and window fields only when those
// are still empty.
func (n *Normalizer) Normalize(existing Details, args map[string]any) Details {
	flat := flatten(args)
	out := existing.Clone()
	prevStart, prevEnd := existing.TimeWindowStart, existing.TimeWindowEnd

	endGiven := false
	for _, field := range detailFields {
		for _, key := range field.aliases {
			v, ok := flat[key]
			if !ok {
				continue
			}
			if field.set(n, &out, v) {
				if field.name == FieldTimeWindowEnd {
					endGiven = true
				}
				break
			}
		}
	}
	if out.TimeWindowEnd != existing.TimeWindowEnd {
		endGiven = true
	}

	if s, ok := firstString(flat, desiredStartAliases); ok {
		n.backfill(&out, s, true)
	}
	if s, ok := firstString(flat, desiredEndAliases); ok {
		n.backfill(&out, s, false)
	}

	for k, v := range flat {
		if reserved[k] {
			continue
		}
		if s, ok := scalarString(v); ok && s != "" {
			if out.Extra == nil {
				out.Extra = map[string]string{}
			}
			out.Extra[k] = s
		}
	}

	fixWindow(&out, prevStart, prevEnd, endGiven)
	return out
}

// Apply merges args into the whole state: category, search anchor and
// datetime hints at the top level, everything else through Normalize. A
// "mode" value can promote the state to booking but never demote it.
func (n *Normalizer) Apply(state State, args map[string]any) State {
	flat := flatten(args)
	out := state.Clone()

	if s, ok := firstString(flat, kindAliases); ok {
		out.Kind = coerceKind(s)
	}
	for _, key := range geoAliases {
		if g, ok := coerceGeo(flat[key]); ok {
			out.GeoCenter = &g
			break
		}
	}
	for _, key := range radiusAliases {
		if r, ok := coerceFloat(flat[key]); ok && r > 0 {
			out.RadiusMiles = r
			break
		}
	}
	if s, ok := firstString(flat, desiredStartAliases); ok {
		if date, _ := n.dates.SplitDateTime(s); date != "" {
			out.DesiredStart = s
		}
	}
	if s, ok := firstString(flat, desiredEndAliases); ok {
		if date, _ := n.dates.SplitDateTime(s); date != "" {
			out.DesiredEnd = s
		}
	}
	if m, ok := flat["mode"].(string); ok && Mode(strings.ToLower(strings.TrimSpace(m))) == ModeBooking {
		out.Mode = ModeBooking
	}

	out.Details = n.Normalize(out.Details, flat)
	n.BackfillFromHints(&out)
	return out
}

// BackfillFromHints fills empty date and window fields from the state's
// desiredStart/desiredEnd hints.
func (n *Normalizer) BackfillFromHints(s *State) {
	prevStart, prevEnd := s.Details.TimeWindowStart, s.Details.TimeWindowEnd
	if s.DesiredStart != "" {
		n.backfill(&s.Details, s.DesiredStart, true)
	}
	if s.DesiredEnd != "" {
		n.backfill(&s.Details, s.DesiredEnd, false)
	}
	fixWindow(&s.Details, prevStart, prevEnd, s.Details.TimeWindowEnd != prevEnd)
}

// NormalizeDate re-resolves a stored date through the parser. A value that
// cannot be resolved is cleared so the date is reported missing.
func (n *Normalizer) NormalizeDate(d Details) Details {
	if d.Date == "" || naturaldate.IsISODate(d.Date) {
		return d
	}
	out := d.Clone()
	out.Date = n.dates.ParseDate(d.Date, "")
	return out
}

// Dates exposes the parser the normalizer resolves dates with.
func (n *Normalizer) Dates() *naturaldate.Parser {
	return n.dates
}

func (n *Normalizer) backfill(d *Details, hint string, start bool) {
	date, clock := n.dates.SplitDateTime(hint)
	if date == "" {
		return
	}
	if d.Date == "" {
		d.Date = date
	}
	if clock == "" {
		return
	}
	if start && d.TimeWindowStart == "" {
		d.TimeWindowStart = clock
	}
	if !start && d.TimeWindowEnd == "" {
		d.TimeWindowEnd = clock
	}
}

// fixWindow keeps start < end. A lone start gets a 30 minute window; an end
// that was the old default follows a moved start.
func fixWindow(d *Details, prevStart, prevEnd string, endGiven bool) {
	if d.TimeWindowStart == "" {
		return
	}
	switch {
	case d.TimeWindowEnd == "":
		d.TimeWindowEnd = DefaultEnd(d.TimeWindowStart)
	case !endGiven && prevStart != "" && d.TimeWindowStart != prevStart && prevEnd == DefaultEnd(prevStart):
		d.TimeWindowEnd = DefaultEnd(d.TimeWindowStart)
	}
	if d.TimeWindowEnd != "" && d.TimeWindowEnd <= d.TimeWindowStart {
		d.TimeWindowEnd = DefaultEnd(d.TimeWindowStart)
	}
}

// DefaultEnd is start + 30 minutes, clamped to 23:59 so the window never
// crosses midnight. It is "" when no later time exists on the same day.
func DefaultEnd(start string) string {
	end := naturaldate.AddMinutes(start, 30)
	if end == "" {
		return ""
	}
	if end <= start {
		end = "23:59"
	}
	if end <= start {
		return ""
	}
	return end
}

// flatten lifts nested "details"/"slots" objects to the top level. Keys set
// directly on args take precedence.
func flatten(args map[string]any) map[string]any {
	flat := make(map[string]any, len(args))
	for _, key := range nestedKeys {
		if nested, ok := args[key].(map[string]any); ok {
			for k, v := range flatten(nested) {
				flat[k] = v
			}
		}
	}
	for k, v := range args {
		if k == "details" || k == "slots" {
			if _, ok := v.(map[string]any); ok {
				continue
			}
		}
		flat[k] = v
	}
	return flat
}

func firstString(flat map[string]any, keys []string) (string, bool) {
	for _, k := range keys {
		if s, ok := flat[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}

func setRestaurantName(_ *Normalizer, d *Details, v any) bool {
	s, ok := coerceName(v)
	if ok {
		d.RestaurantName = s
	}
	return ok
}

func setPartySize(_ *Normalizer, d *Details, v any) bool {
	size, ok := coercePartySize(v)
	if ok {
		d.PartySize = size
	}
	return ok
}

func setDate(n *Normalizer, d *Details, v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	date := n.coerceDate(s)
	if date == "" {
		return false
	}
	d.Date = date
	return true
}

func setWindowStart(n *Normalizer, d *Details, v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	if start, end, ok := naturaldate.ParseTimeRange(s); ok {
		d.TimeWindowStart = start
		d.TimeWindowEnd = end
		return true
	}
	clock := n.coerceClock(s)
	if clock == "" {
		return false
	}
	d.TimeWindowStart = clock
	return true
}

func setWindowEnd(n *Normalizer, d *Details, v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	clock := n.coerceClock(s)
	if clock == "" {
		return false
	}
	d.TimeWindowEnd = clock
	return true
}

func setDistance(_ *Normalizer, d *Details, v any) bool {
	f, ok := coerceFloat(v)
	if !ok || f < 0 {
		return false
	}
	d.DistanceMi = f
	return true
}

func setText(field func(*Details) *string) func(*Normalizer, *Details, any) bool {
	return func(_ *Normalizer, d *Details, v any) bool {
		s, ok := v.(string)
		s = strings.TrimSpace(s)
		if !ok || s == "" {
			return false
		}
		*field(d) = s
		return true
	}
}

func setPhone(field func(*Details) *string) func(*Normalizer, *Details, any) bool {
	return func(_ *Normalizer, d *Details, v any) bool {
		s, ok := scalarString(v)
		if !ok {
			return false
		}
		e164 := phone.Normalize(s)
		if e164 == "" {
			return false
		}
		*field(d) = e164
		return true
	}
}
