package repository

import (
	"context"

	"flightcast-service/internal/domain/entity"
)

// FlightRepository defines persistence for flight documents.
// Save performs a compare-and-swap on the flight's version so concurrent
// transition requests on the same flight cannot lose history entries.
type FlightRepository interface {
	FindByNumber(ctx context.Context, flightNumber string) (*entity.Flight, error)
	Create(ctx context.Context, flight *entity.Flight) error
	Save(ctx context.Context, flight *entity.Flight) error
}
