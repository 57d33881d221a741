package usecase

import (
	"context"
	"time"

	"flightcast-service/internal/domain/entity"
	"flightcast-service/internal/domain/repository"
	"flightcast-service/pkg/logger"
	"flightcast-service/pkg/metrics"
)

// allowedTransitions is the full transition table; statuses absent from the
// map are terminal
var allowedTransitions = map[entity.FlightStatus][]entity.FlightStatus{
	entity.StatusScheduled: {entity.StatusDelayed, entity.StatusBoarding, entity.StatusCancelled},
	entity.StatusDelayed:   {entity.StatusBoarding, entity.StatusCancelled},
	entity.StatusBoarding:  {entity.StatusDeparted, entity.StatusCancelled},
	entity.StatusDeparted:  {entity.StatusInAir, entity.StatusDiverted},
	entity.StatusInAir:     {entity.StatusArrived, entity.StatusDiverted},
	entity.StatusDiverted:  {entity.StatusArrived},
}

// AllowedTransitions returns the statuses reachable from the given one
func AllowedTransitions(from entity.FlightStatus) []entity.FlightStatus {
	return allowedTransitions[from]
}

// StatusMachine validates and applies flight status transitions
type StatusMachine struct {
	flightRepo repository.FlightRepository
	logger     logger.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewStatusMachine creates a new flight status machine
func NewStatusMachine(flightRepo repository.FlightRepository, logger logger.Logger, m *metrics.Metrics) *StatusMachine {
	return &StatusMachine{
		flightRepo: flightRepo,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
}

// SetClock overrides the time source, for tests
func (sm *StatusMachine) SetClock(now func() time.Time) {
	sm.now = now
}

// RequestTransition applies newStatus to the flight if the transition is in
// the allowed table. On success it appends a history entry, records actual
// departure/arrival times when they are first implied, recomputes the delay
// and persists the flight. The flight is left untouched on any failure.
func (sm *StatusMachine) RequestTransition(ctx context.Context, flight *entity.Flight, newStatus entity.FlightStatus, reason, actor string, metadata map[string]interface{}) (*entity.Flight, error) {
	current := flight.CurrentStatus
	allowed := allowedTransitions[current]

	if newStatus == current || !containsStatus(allowed, newStatus) {
		return nil, &entity.InvalidTransitionError{
			Current:   current,
			Requested: newStatus,
			Allowed:   allowed,
		}
	}

	now := sm.now()
	flight.StatusHistory = append(flight.StatusHistory, entity.StatusChange{
		PreviousStatus: current,
		Timestamp:      now,
		Reason:         reason,
		Actor:          actor,
		Metadata:       metadata,
	})
	flight.CurrentStatus = newStatus

	switch newStatus {
	case entity.StatusDeparted:
		if flight.ActualDeparture == nil {
			t := now
			flight.ActualDeparture = &t
		}
	case entity.StatusArrived:
		if flight.ActualArrival == nil {
			t := now
			flight.ActualArrival = &t
		}
	}

	flight.Delay.Minutes = sm.CalculateDelay(flight)
	flight.UpdatedAt = now

	if err := sm.flightRepo.Save(ctx, flight); err != nil {
		sm.logger.Error("Failed to save flight after transition",
			"flightNumber", flight.FlightNumber,
			"from", current,
			"to", newStatus,
			"error", err)
		if sm.metrics != nil {
			sm.metrics.ErrorsCount.WithLabelValues("status_transition").Inc()
		}
		return nil, err
	}

	sm.logger.Info("Flight status transition applied",
		"flightNumber", flight.FlightNumber,
		"from", current,
		"to", newStatus,
		"actor", actor,
		"delayMinutes", flight.Delay.Minutes)
	if sm.metrics != nil {
		sm.metrics.StatusTransitions.WithLabelValues(string(newStatus)).Inc()
	}

	return flight, nil
}

// UpdateDelay records an explicit delay reason and recomputes the minutes
func (sm *StatusMachine) UpdateDelay(ctx context.Context, flight *entity.Flight, reason, description string) (*entity.Flight, error) {
	flight.Delay.Reason = reason
	flight.Delay.Description = description
	flight.Delay.Minutes = sm.CalculateDelay(flight)
	flight.UpdatedAt = sm.now()

	if err := sm.flightRepo.Save(ctx, flight); err != nil {
		return nil, err
	}
	return flight, nil
}

// CalculateDelay computes the departure delay in minutes, never negative.
// Actual departure wins over estimated; with neither recorded, a flight past
// its scheduled departure accrues delay against the clock.
func (sm *StatusMachine) CalculateDelay(flight *entity.Flight) int {
	scheduled := flight.ScheduledDeparture
	var delta time.Duration

	switch {
	case flight.ActualDeparture != nil:
		delta = flight.ActualDeparture.Sub(scheduled)
	case flight.EstimatedDeparture != nil:
		delta = flight.EstimatedDeparture.Sub(scheduled)
	default:
		now := sm.now()
		if now.After(scheduled) {
			delta = now.Sub(scheduled)
		}
	}

	minutes := int(delta.Minutes())
	if minutes < 0 {
		minutes = 0
	}
	return minutes
}

func containsStatus(list []entity.FlightStatus, s entity.FlightStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
