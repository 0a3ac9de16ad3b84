package models

import "time"

// Station is a monitoring site owning zero or more sensors.
type Station struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Description  *string   `db:"description" json:"description,omitempty"`
	Latitude     float64   `db:"latitude" json:"latitude"`
	Longitude    float64   `db:"longitude" json:"longitude"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
	Sensors      []Sensor  `db:"-" json:"sensors,omitempty"`
	ReadingCount *int64    `db:"-" json:"readingCount,omitempty"`
}
