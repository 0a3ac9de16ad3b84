package models

import "time"

// Reading is an immutable measurement. Sensor and Station are populated on
// the joined views returned by the readings repository.
type Reading struct {
	ID        string    `db:"id" json:"id"`
	SensorID  string    `db:"sensor_id" json:"sensorId"`
	StationID string    `db:"station_id" json:"stationId"`
	Value     float64   `db:"value" json:"value"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	Sensor    *Sensor   `db:"-" json:"sensor,omitempty"`
	Station   *Station  `db:"-" json:"station,omitempty"`
}

// ReadingStatistics aggregates readings of one sensor over a time range.
type ReadingStatistics struct {
	SensorID string    `json:"sensorId"`
	From     time.Time `json:"startDate"`
	To       time.Time `json:"endDate"`
	Count    int64     `json:"count"`
	Avg      *float64  `json:"avg"`
	Min      *float64  `json:"min"`
	Max      *float64  `json:"max"`
}
