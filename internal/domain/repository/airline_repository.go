package repository

import (
	"context"

	"flightcast-service/internal/domain/entity"
)

// AirlineRepository defines the interface for airline reference data
type AirlineRepository interface {
	GetByCode(ctx context.Context, code string) (*entity.Airline, error)
}
