package entity

import (
	"time"

	"gorm.io/gorm"
)

// Airline is reference data keyed by IATA 2-letter code
type Airline struct {
	ID        uint
	Code      string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt
}
