package validate

import (
	"testing"
	"time"

	"flightcast-service/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlightNumber(t *testing.T) {
	assert.NoError(t, FlightNumber("AA123"))
	assert.NoError(t, FlightNumber("ba9"))
	assert.NoError(t, FlightNumber("LH4711"))

	for _, bad := range []string{"", "A123", "AAA123", "AA", "AA12345", "12AB"} {
		err := FlightNumber(bad)
		var ve *entity.ValidationError
		require.ErrorAs(t, err, &ve, "input %q", bad)
		assert.Equal(t, "flightNumber", ve.Field)
	}
}

func TestAirportCode(t *testing.T) {
	assert.NoError(t, AirportCode("origin.airport", "JFK"))
	assert.NoError(t, AirportCode("origin.airport", "lax"))

	assert.Error(t, AirportCode("origin.airport", "JF"))
	assert.Error(t, AirportCode("origin.airport", "JFKX"))
	assert.Error(t, AirportCode("origin.airport", "J1K"))
}

func TestEmail(t *testing.T) {
	assert.NoError(t, Email("pax@example.com"))
	assert.NoError(t, Email("first.last+tag@mail.example.co.uk"))

	assert.Error(t, Email("not-an-email"))
	assert.Error(t, Email("missing@tld"))
	assert.Error(t, Email("@example.com"))
}

func validTestFlight() *entity.Flight {
	dep := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	return &entity.Flight{
		FlightNumber:       "AA123",
		Origin:             entity.Endpoint{Airport: "JFK", Country: "US"},
		Destination:        entity.Endpoint{Airport: "LAX", Country: "US"},
		ScheduledDeparture: dep,
		ScheduledArrival:   dep.Add(6 * time.Hour),
	}
}

func TestFlightInvariants(t *testing.T) {
	assert.NoError(t, Flight(validTestFlight()))

	sameAirports := validTestFlight()
	sameAirports.Destination.Airport = "JFK"
	assert.Error(t, Flight(sameAirports))

	arrivalFirst := validTestFlight()
	arrivalFirst.ScheduledArrival = arrivalFirst.ScheduledDeparture.Add(-time.Hour)
	assert.Error(t, Flight(arrivalFirst))

	negativeDelay := validTestFlight()
	negativeDelay.Delay.Minutes = -5
	assert.Error(t, Flight(negativeDelay))
}

func TestSubscriptionConsent(t *testing.T) {
	valid := &entity.Subscription{
		Email:        "pax@example.com",
		FlightNumber: "AA123",
		FlightDate:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Consent:      entity.Consent{Given: true, DataProcessing: true, RetentionDays: 30},
	}
	assert.NoError(t, Subscription(valid))

	noConsent := *valid
	noConsent.Consent.Given = false
	assert.Error(t, Subscription(&noConsent))

	noProcessing := *valid
	noProcessing.Consent.DataProcessing = false
	assert.Error(t, Subscription(&noProcessing))

	noDate := *valid
	noDate.FlightDate = time.Time{}
	assert.Error(t, Subscription(&noDate))
}
