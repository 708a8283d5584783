package slots

// Canonical field names, as they appear on the wire.
const (
	FieldRestaurantName   = "restaurantName"
	FieldPartySize        = "partySize"
	FieldDate             = "date"
	FieldTimeWindowStart  = "timeWindowStart"
	FieldTimeWindowEnd    = "timeWindowEnd"
	FieldSpecialRequests  = "specialRequests"
	FieldUserPhone        = "userPhone"
	FieldDestinationPhone = "destinationPhone"
	FieldAddress          = "address"
	FieldWebsite          = "website"
	FieldPlaceID          = "placeId"
	FieldCity             = "city"
	FieldDistanceMi       = "distanceMi"
)

// RequiredFields must all be present before a call is placed. The
// destination phone is resolved separately.
var RequiredFields = []string{
	FieldRestaurantName,
	FieldPartySize,
	FieldDate,
	FieldTimeWindowStart,
	FieldTimeWindowEnd,
}

// MissingRequired lists the required fields that are still empty, in
// RequiredFields order.
func (d Details) MissingRequired() []string {
	var missing []string
	for _, f := range RequiredFields {
		if d.Field(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Complete reports whether every required field and the destination phone
// are present.
func (d Details) Complete() bool {
	return len(d.MissingRequired()) == 0 && d.DestinationPhone != ""
}

var fieldLabels = map[string]string{
	FieldRestaurantName:   "the restaurant name",
	FieldPartySize:        "how many people",
	FieldDate:             "the date",
	FieldTimeWindowStart:  "the time",
	FieldTimeWindowEnd:    "the latest time that works",
	FieldDestinationPhone: "the restaurant's phone number",
	FieldUserPhone:        "your callback number",
}

// Label returns a conversational name for a field.
func Label(field string) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	return field
}
