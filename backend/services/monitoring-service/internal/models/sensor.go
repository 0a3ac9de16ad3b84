package models

import "time"

// SensorType enumerates the kinds of measurement a sensor reports.
type SensorType string

const (
	SensorTemperature     SensorType = "TEMPERATURE"
	SensorHumidity        SensorType = "HUMIDITY"
	SensorAirQuality      SensorType = "AIR_QUALITY"
	SensorWaterQuality    SensorType = "WATER_QUALITY"
	SensorSpeciesPresence SensorType = "SPECIES_PRESENCE"
	SensorPH              SensorType = "PH"
	SensorTurbidity       SensorType = "TURBIDITY"
	SensorDissolvedOxygen SensorType = "DISSOLVED_OXYGEN"
)

var sensorTypes = map[SensorType]struct{}{
	SensorTemperature:     {},
	SensorHumidity:        {},
	SensorAirQuality:      {},
	SensorWaterQuality:    {},
	SensorSpeciesPresence: {},
	SensorPH:              {},
	SensorTurbidity:       {},
	SensorDissolvedOxygen: {},
}

// Valid reports whether t is one of the known sensor types.
func (t SensorType) Valid() bool {
	_, ok := sensorTypes[t]
	return ok
}

// Sensor belongs to a station. MinValue/MaxValue describe the valid operating
// range and AlertThreshold a soft ceiling; nil means "not configured".
type Sensor struct {
	ID             string     `db:"id" json:"id"`
	StationID      string     `db:"station_id" json:"stationId"`
	Name           string     `db:"name" json:"name"`
	Type           SensorType `db:"type" json:"type"`
	Unit           string     `db:"unit" json:"unit"`
	MinValue       *float64   `db:"min_value" json:"minValue"`
	MaxValue       *float64   `db:"max_value" json:"maxValue"`
	AlertThreshold *float64   `db:"alert_threshold" json:"alertThreshold"`
	IsActive       bool       `db:"is_active" json:"isActive"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
	Station        *Station   `db:"-" json:"station,omitempty"`
}
