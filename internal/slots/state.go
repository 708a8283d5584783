// Package slots holds the canonical booking record a conversation fills in
// and the normalizer that folds heterogeneous tool arguments into it.
package slots

import (
	"strconv"
)

// Mode is the conversation's coarse intent.
type Mode string

const (
	ModeDiscovery Mode = "discovery"
	ModeBooking   Mode = "booking"
)

// Kind is the domain category being booked.
type Kind string

const (
	KindRestaurant Kind = "restaurant"
	KindAppliance  Kind = "appliance"
	KindTires      Kind = "tires"
	KindOther      Kind = "other"
)

// Geo is a search anchor.
type Geo struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Details are the normalized booking fields. Extra carries scalar values the
// brain supplied under keys that have no dedicated field.
type Details struct {
	RestaurantName   string            `json:"restaurantName,omitempty"`
	PartySize        int               `json:"partySize,omitempty"`
	Date             string            `json:"date,omitempty"`
	TimeWindowStart  string            `json:"timeWindowStart,omitempty"`
	TimeWindowEnd    string            `json:"timeWindowEnd,omitempty"`
	SpecialRequests  string            `json:"specialRequests,omitempty"`
	UserPhone        string            `json:"userPhone,omitempty"`
	DestinationPhone string            `json:"destinationPhone,omitempty"`
	Address          string            `json:"address,omitempty"`
	Website          string            `json:"website,omitempty"`
	PlaceID          string            `json:"placeId,omitempty"`
	City             string            `json:"city,omitempty"`
	DistanceMi       float64           `json:"distanceMi,omitempty"`
	Extra            map[string]string `json:"extra,omitempty"`
}

// UI carries flags that change how the next user utterance is read.
type UI struct {
	ExpectingDestPhone bool `json:"expectingDestPhone"`
}

// State is the slot record owned by one conversation.
type State struct {
	Mode         Mode    `json:"mode"`
	Kind         Kind    `json:"kind,omitempty"`
	GeoCenter    *Geo    `json:"geoCenter,omitempty"`
	RadiusMiles  float64 `json:"radiusMiles,omitempty"`
	DesiredStart string  `json:"desiredStart,omitempty"`
	DesiredEnd   string  `json:"desiredEnd,omitempty"`
	Details      Details `json:"details"`
	UI           UI      `json:"ui"`
}

// New returns the empty state a conversation starts with.
func New() State {
	return State{Mode: ModeDiscovery}
}

// Clone returns a deep copy so callers can roll back a failed turn.
func (s State) Clone() State {
	cp := s
	if s.GeoCenter != nil {
		g := *s.GeoCenter
		cp.GeoCenter = &g
	}
	cp.Details = s.Details.Clone()
	return cp
}

// Clone returns a deep copy of the details.
func (d Details) Clone() Details {
	cp := d
	if d.Extra != nil {
		cp.Extra = make(map[string]string, len(d.Extra))
		for k, v := range d.Extra {
			cp.Extra[k] = v
		}
	}
	return cp
}

// Field returns the display value of a canonical field, or "" when unset.
func (d Details) Field(name string) string {
	switch name {
	case FieldRestaurantName:
		return d.RestaurantName
	case FieldPartySize:
		if d.PartySize == 0 {
			return ""
		}
		return strconv.Itoa(d.PartySize)
	case FieldDate:
		return d.Date
	case FieldTimeWindowStart:
		return d.TimeWindowStart
	case FieldTimeWindowEnd:
		return d.TimeWindowEnd
	case FieldSpecialRequests:
		return d.SpecialRequests
	case FieldUserPhone:
		return d.UserPhone
	case FieldDestinationPhone:
		return d.DestinationPhone
	case FieldAddress:
		return d.Address
	case FieldWebsite:
		return d.Website
	case FieldPlaceID:
		return d.PlaceID
	case FieldCity:
		return d.City
	case FieldDistanceMi:
		if d.DistanceMi == 0 {
			return ""
		}
		return strconv.FormatFloat(d.DistanceMi, 'f', -1, 64)
	default:
		return d.Extra[name]
	}
}
