package entity

import (
	"time"
)

// FlightStatus is the lifecycle state of a flight
type FlightStatus string

const (
	StatusScheduled FlightStatus = "scheduled"
	StatusDelayed   FlightStatus = "delayed"
	StatusBoarding  FlightStatus = "boarding"
	StatusDeparted  FlightStatus = "departed"
	StatusInAir     FlightStatus = "in_air"
	StatusArrived   FlightStatus = "arrived"
	StatusCancelled FlightStatus = "cancelled"
	StatusDiverted  FlightStatus = "diverted"
)

// IsTerminal reports whether no further transitions are allowed from s
func (s FlightStatus) IsTerminal() bool {
	return s == StatusArrived || s == StatusCancelled
}

// Endpoint identifies one end of a route
type Endpoint struct {
	Airport string `bson:"airport"` // IATA 3-letter code
	Country string `bson:"country"`
}

// StatusChange is one entry in a flight's status history
type StatusChange struct {
	PreviousStatus FlightStatus           `bson:"previousStatus"`
	Timestamp      time.Time              `bson:"timestamp"`
	Reason         string                 `bson:"reason,omitempty"`
	Actor          string                 `bson:"actor"`
	Metadata       map[string]interface{} `bson:"metadata,omitempty"`
}

// Delay describes the currently computed departure delay
type Delay struct {
	Minutes     int    `bson:"minutes"`
	Reason      string `bson:"reason,omitempty"`
	Description string `bson:"description,omitempty"`
}

// Flight represents a tracked flight
type Flight struct {
	ID                 string         `bson:"_id,omitempty"`
	FlightNumber       string         `bson:"flightNumber"` // IATA format, unique index
	Origin             Endpoint       `bson:"origin"`
	Destination        Endpoint       `bson:"destination"`
	ScheduledDeparture time.Time      `bson:"scheduledDeparture"`
	ScheduledArrival   time.Time      `bson:"scheduledArrival"`
	EstimatedDeparture *time.Time     `bson:"estimatedDeparture,omitempty"`
	EstimatedArrival   *time.Time     `bson:"estimatedArrival,omitempty"`
	ActualDeparture    *time.Time     `bson:"actualDeparture,omitempty"`
	ActualArrival      *time.Time     `bson:"actualArrival,omitempty"`
	CurrentStatus      FlightStatus   `bson:"currentStatus"`
	StatusHistory      []StatusChange `bson:"statusHistory"`
	Delay              Delay          `bson:"delay"`
	Version            int64          `bson:"version"` // optimistic concurrency token
	CreatedAt          time.Time      `bson:"createdAt"`
	UpdatedAt          time.Time      `bson:"updatedAt"`
}

// IsDelayed reports whether the computed delay is non-zero
func (f *Flight) IsDelayed() bool {
	return f.Delay.Minutes > 0
}

// DepartureDay returns the UTC day boundaries of the scheduled departure,
// used to match subscriptions on flight date
func (f *Flight) DepartureDay() (time.Time, time.Time) {
	d := f.ScheduledDeparture.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
