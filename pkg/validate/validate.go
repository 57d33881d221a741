package validate

import (
	"regexp"
	"strings"

	"flightcast-service/internal/domain/entity"
)

// IATA format patterns
const (
	FlightNumberPattern = `^[A-Z]{2}\d{1,4}$`
	AirportCodePattern  = `^[A-Z]{3}$`
	AirlineCodePattern  = `^[A-Z]{2}$`
	EmailPattern        = `^[\w.+-]+@[\w-]+(\.[\w-]+)+$`
)

var (
	flightNumberRe = regexp.MustCompile(FlightNumberPattern)
	airportCodeRe  = regexp.MustCompile(AirportCodePattern)
	emailRe        = regexp.MustCompile(EmailPattern)
)

// FlightNumber checks the IATA airline-code + number format, e.g. AA123
func FlightNumber(number string) error {
	if !flightNumberRe.MatchString(strings.ToUpper(number)) {
		return &entity.ValidationError{Field: "flightNumber", Message: "must match IATA format, e.g. AA123"}
	}
	return nil
}

// AirportCode checks the IATA 3-letter airport code format
func AirportCode(field, code string) error {
	if !airportCodeRe.MatchString(strings.ToUpper(code)) {
		return &entity.ValidationError{Field: field, Message: "must be a 3-letter IATA airport code"}
	}
	return nil
}

// Email checks the recipient address format
func Email(address string) error {
	if !emailRe.MatchString(address) {
		return &entity.ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	return nil
}

// Flight checks the cross-field invariants of a flight document before it
// is registered or mutated
func Flight(f *entity.Flight) error {
	if err := FlightNumber(f.FlightNumber); err != nil {
		return err
	}
	if err := AirportCode("origin.airport", f.Origin.Airport); err != nil {
		return err
	}
	if err := AirportCode("destination.airport", f.Destination.Airport); err != nil {
		return err
	}
	if strings.EqualFold(f.Origin.Airport, f.Destination.Airport) {
		return &entity.ValidationError{Field: "destination.airport", Message: "origin and destination must differ"}
	}
	if !f.ScheduledDeparture.Before(f.ScheduledArrival) {
		return &entity.ValidationError{Field: "scheduledArrival", Message: "scheduled departure must precede scheduled arrival"}
	}
	if f.Delay.Minutes < 0 {
		return &entity.ValidationError{Field: "delay.minutes", Message: "delay cannot be negative"}
	}
	return nil
}

// Subscription checks a new subscription before creation. Both consent
// booleans are mandatory.
func Subscription(s *entity.Subscription) error {
	if err := Email(s.Email); err != nil {
		return err
	}
	if err := FlightNumber(s.FlightNumber); err != nil {
		return err
	}
	if s.FlightDate.IsZero() {
		return &entity.ValidationError{Field: "flightDate", Message: "flight date is required"}
	}
	if !s.Consent.Given {
		return &entity.ValidationError{Field: "consent.given", Message: "consent is required"}
	}
	if !s.Consent.DataProcessing {
		return &entity.ValidationError{Field: "consent.dataProcessing", Message: "data processing consent is required"}
	}
	if s.Consent.RetentionDays <= 0 {
		return &entity.ValidationError{Field: "consent.retentionDays", Message: "retention days must be positive"}
	}
	return nil
}
