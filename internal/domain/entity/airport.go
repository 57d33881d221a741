package entity

import (
	"time"

	"gorm.io/gorm"
)

// Airport is reference data keyed by IATA 3-letter code, carrying the
// timezone used to localize departure and arrival times in notifications
type Airport struct {
	ID        uint
	Code      string
	Name      string
	CityName  string
	Country   string
	TzName    string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt
}
