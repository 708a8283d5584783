package calls

import (
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/wolfman30/concierge-dialer/internal/slots"
)

// ReservationForm is the direct-dispatch payload. Either a valid
// TargetPhone or RestaurantName plus City identifies the destination.
type ReservationForm struct {
	RestaurantName  string `json:"restaurantName" validate:"required_without=TargetPhone,max=200"`
	City            string `json:"city" validate:"required_without=TargetPhone,max=100"`
	TargetPhone     string `json:"targetPhone" validate:"omitempty,e164"`
	PartySize       int    `json:"partySize" validate:"min=1,max=20"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string `json:"time" validate:"required,datetime=15:04"`
	UserPhone       string `json:"userPhone" validate:"required,e164"`
	Consent         bool   `json:"consent" validate:"required"`
	SpecialRequests string `json:"specialRequests,omitempty" validate:"max=500"`
}

var (
	formValidator     *validator.Validate
	formValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	formValidatorOnce.Do(func() {
		formValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	return formValidator
}

var formLabels = map[string]string{
	"RestaurantName":  "restaurant name + city OR restaurant phone",
	"City":            "restaurant name + city OR restaurant phone",
	"TargetPhone":     "restaurant phone (+E.164)",
	"PartySize":       "party size (1-20)",
	"Date":            "date (YYYY-MM-DD)",
	"Time":            "time (HH:mm)",
	"UserPhone":       "your phone (+E.164)",
	"Consent":         "consent to call",
	"SpecialRequests": "special requests (max 500 characters)",
}

// Validate returns the human-readable list of missing or invalid fields in
// field order, or nil when the form is complete.
func (f ReservationForm) Validate() []string {
	err := getValidator().Struct(f)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	seen := map[string]bool{}
	var problems []string
	for _, fe := range fieldErrs {
		label, ok := formLabels[fe.Field()]
		if !ok {
			label = fe.Field()
		}
		if seen[label] {
			continue
		}
		seen[label] = true
		problems = append(problems, label)
	}
	return problems
}

// Details converts a valid form into slot details with a 30 minute window.
func (f ReservationForm) Details() slots.Details {
	return slots.Details{
		RestaurantName:   f.RestaurantName,
		City:             f.City,
		DestinationPhone: f.TargetPhone,
		PartySize:        f.PartySize,
		Date:             f.Date,
		TimeWindowStart:  f.Time,
		TimeWindowEnd:    slots.DefaultEnd(f.Time),
		UserPhone:        f.UserPhone,
		SpecialRequests:  f.SpecialRequests,
	}
}
