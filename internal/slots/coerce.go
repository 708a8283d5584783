package slots

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/wolfman30/concierge-dialer/internal/naturaldate"
)

const maxPartySize = 20

var (
	firstIntRE  = regexp.MustCompile(`\d+`)
	allDigitsRE = regexp.MustCompile(`^[\d\s().+\-]+$`)
)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
	"couple": 2, "pair": 2,
}

// coerceName rejects empty names and values that are only digits, which
// the brain sometimes emits when it confuses a party size or phone for a name.
func coerceName(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" || allDigitsRE.MatchString(s) {
		return "", false
	}
	return s, true
}

// coercePartySize accepts integral numbers and strings such as "4",
// "party of 4" or "two", bounded to 1..20.
func coercePartySize(v any) (int, bool) {
	var n int
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		n = int(t)
	case int:
		n = t
	case int64:
		n = int(t)
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return 0, false
		}
		n = int(i)
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if m := firstIntRE.FindString(s); m != "" {
			n, _ = strconv.Atoi(m)
			break
		}
		for _, word := range strings.FieldsFunc(s, func(r rune) bool { return r < 'a' || r > 'z' }) {
			if w, ok := numberWords[word]; ok {
				n = w
				break
			}
		}
	default:
		return 0, false
	}
	if n < 1 || n > maxPartySize {
		return 0, false
	}
	return n, true
}

func (n *Normalizer) coerceDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if date, _ := n.dates.SplitDateTime(s); date != "" {
		return date
	}
	return n.dates.ParseDate(s, "")
}

func (n *Normalizer) coerceClock(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if naturaldate.IsHHMM(s) {
		return s
	}
	if _, clock := n.dates.SplitDateTime(s); clock != "" {
		return clock
	}
	return naturaldate.To24h(s)
}

func coerceKind(s string) Kind {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindRestaurant, KindAppliance, KindTires:
		return k
	case "restaurants", "dining", "food":
		return KindRestaurant
	case "tire":
		return KindTires
	default:
		return KindOther
	}
}

func coerceGeo(v any) (Geo, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Geo{}, false
	}
	lat, okLat := firstFloat(m, "lat", "latitude")
	lng, okLng := firstFloat(m, "lng", "lon", "long", "longitude")
	if !okLat || !okLng || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Geo{}, false
	}
	return Geo{Lat: lat, Lng: lng}, true
}

func firstFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := coerceFloat(m[k]); ok {
			return f, true
		}
	}
	return 0, false
}

func coerceFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return 0, false
	}
}

// scalarString renders strings, numbers and booleans; composite values are
// rejected.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
