package templates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"flightcast-service/internal/domain/entity"
	"flightcast-service/internal/domain/repository"
	"flightcast-service/pkg/logger"
)

// Subject lines per target status
var subjects = map[entity.FlightStatus]string{
	entity.StatusDelayed:   "Flight %s is delayed",
	entity.StatusBoarding:  "Flight %s is now boarding",
	entity.StatusDeparted:  "Flight %s has departed",
	entity.StatusInAir:     "Flight %s is in the air",
	entity.StatusArrived:   "Flight %s has arrived",
	entity.StatusCancelled: "Flight %s has been cancelled",
	entity.StatusDiverted:  "Flight %s has been diverted",
}

const textTemplate = `Hello,

Your flight %s (%s) has a status update: %s -> %s.

Route: %s -> %s
Scheduled departure: %s
%s
Manage or stop these notifications: %s
`

const htmlTemplate = `<html><body>
<p>Hello,</p>
<p>Your flight <strong>%s</strong> (%s) has a status update: <strong>%s &rarr; %s</strong>.</p>
<p>Route: %s &rarr; %s<br>
Scheduled departure: %s</p>
%s
<p><a href="%s">Manage or stop these notifications</a></p>
</body></html>`

// StatusRenderer renders flight status change notifications. Airline and
// airport names come from the reference repositories; a lookup failure falls
// back to the bare IATA codes rather than blocking the dispatch.
type StatusRenderer struct {
	airlineRepo repository.AirlineRepository
	airportRepo repository.AirportRepository
	unsubBase   string
	logger      logger.Logger
}

// NewStatusRenderer creates a new status notification renderer
func NewStatusRenderer(airlineRepo repository.AirlineRepository, airportRepo repository.AirportRepository, unsubBase string, logger logger.Logger) *StatusRenderer {
	return &StatusRenderer{
		airlineRepo: airlineRepo,
		airportRepo: airportRepo,
		unsubBase:   unsubBase,
		logger:      logger,
	}
}

// Render produces subject, text and html for one subscription, including the
// unsubscribe link derived from the subscription's unsubscribe token
func (r *StatusRenderer) Render(ctx context.Context, sub *entity.Subscription, flight *entity.Flight, oldStatus entity.FlightStatus) (*entity.RenderedContent, error) {
	subjectFmt, ok := subjects[flight.CurrentStatus]
	if !ok {
		subjectFmt = "Flight %s status update"
	}
	subject := fmt.Sprintf(subjectFmt, flight.FlightNumber)

	airlineName := r.airlineName(ctx, flight.FlightNumber)
	origin := r.airportLabel(ctx, flight.Origin.Airport)
	destination := r.airportLabel(ctx, flight.Destination.Airport)
	departure := r.localDeparture(ctx, flight)

	unsubURL := fmt.Sprintf("%s/unsubscribe?token=%s", strings.TrimRight(r.unsubBase, "/"), sub.Unsubscribe.Token)

	delayText := ""
	delayHTML := ""
	if flight.CurrentStatus == entity.StatusDelayed && flight.Delay.Minutes > 0 {
		line := fmt.Sprintf("Current delay: %d minutes", flight.Delay.Minutes)
		if flight.Delay.Reason != "" {
			line += fmt.Sprintf(" (%s)", flight.Delay.Reason)
		}
		delayText = line + "\n"
		delayHTML = "<p>" + line + "</p>"
	}

	text := fmt.Sprintf(textTemplate,
		flight.FlightNumber, airlineName,
		oldStatus, flight.CurrentStatus,
		origin, destination,
		departure,
		delayText,
		unsubURL,
	)
	html := fmt.Sprintf(htmlTemplate,
		flight.FlightNumber, airlineName,
		oldStatus, flight.CurrentStatus,
		origin, destination,
		departure,
		delayHTML,
		unsubURL,
	)

	return &entity.RenderedContent{
		Subject: subject,
		Text:    text,
		HTML:    html,
	}, nil
}

// airlineName resolves the 2-letter prefix of the flight number
func (r *StatusRenderer) airlineName(ctx context.Context, flightNumber string) string {
	if len(flightNumber) < 2 {
		return flightNumber
	}
	code := flightNumber[:2]
	airline, err := r.airlineRepo.GetByCode(ctx, code)
	if err != nil {
		r.logger.Debug("Airline lookup failed", "code", code, "error", err)
		return code
	}
	return airline.Name
}

func (r *StatusRenderer) airportLabel(ctx context.Context, code string) string {
	airport, err := r.airportRepo.GetByCode(ctx, code)
	if err != nil {
		r.logger.Debug("Airport lookup failed", "code", code, "error", err)
		return code
	}
	return fmt.Sprintf("%s | %s", airport.Name, airport.CityName)
}

// localDeparture formats the scheduled departure in the origin airport's
// timezone when it is known, UTC otherwise
func (r *StatusRenderer) localDeparture(ctx context.Context, flight *entity.Flight) string {
	t := flight.ScheduledDeparture
	airport, err := r.airportRepo.GetByCode(ctx, flight.Origin.Airport)
	if err == nil && airport.TzName != "" {
		if loc, lerr := time.LoadLocation(airport.TzName); lerr == nil {
			return t.In(loc).Format("2006-01-02 15:04 MST")
		}
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}
