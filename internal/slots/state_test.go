package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissingRequiredOrder(t *testing.T) {
	assert.Equal(t, RequiredFields, Details{}.MissingRequired())

	d := Details{RestaurantName: "Via Carota", Date: "2024-11-05", TimeWindowStart: "19:00", TimeWindowEnd: "19:30"}
	assert.Equal(t, []string{FieldPartySize}, d.MissingRequired())

	d.PartySize = 2
	assert.Empty(t, d.MissingRequired())
	assert.False(t, d.Complete())

	d.DestinationPhone = "+12125551234"
	assert.True(t, d.Complete())
}

func TestCloneIsDeep(t *testing.T) {
	s := New()
	s.GeoCenter = &Geo{Lat: 1, Lng: 2}
	s.Details.Extra = map[string]string{"seating": "bar"}

	cp := s.Clone()
	cp.GeoCenter.Lat = 9
	cp.Details.Extra["seating"] = "patio"

	assert.Equal(t, 1.0, s.GeoCenter.Lat)
	assert.Equal(t, "bar", s.Details.Extra["seating"])
}

func TestFieldAndLabel(t *testing.T) {
	d := Details{PartySize: 4, DistanceMi: 1.5, Extra: map[string]string{"seating": "bar"}}
	assert.Equal(t, "4", d.Field(FieldPartySize))
	assert.Equal(t, "1.5", d.Field(FieldDistanceMi))
	assert.Equal(t, "bar", d.Field("seating"))
	assert.Equal(t, "", d.Field(FieldDate))

	assert.Equal(t, "how many people", Label(FieldPartySize))
	assert.Equal(t, "seating", Label("seating"))
}

func TestNewStartsInDiscovery(t *testing.T) {
	assert.Equal(t, ModeDiscovery, New().Mode)
}
