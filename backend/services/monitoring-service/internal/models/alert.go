package models

import "time"

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

const (
	AlertActive    AlertStatus = "ACTIVE"
	AlertResolved  AlertStatus = "RESOLVED"
	AlertDismissed AlertStatus = "DISMISSED"
)

// Valid reports whether s is a known status.
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertActive, AlertResolved, AlertDismissed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s AlertStatus) Terminal() bool {
	return s == AlertResolved || s == AlertDismissed
}

// Alert records a threshold breach of a sensor. At most one ACTIVE alert
// exists per sensor.
type Alert struct {
	ID         string      `db:"id" json:"id"`
	SensorID   string      `db:"sensor_id" json:"sensorId"`
	Message    string      `db:"message" json:"message"`
	Value      float64     `db:"value" json:"value"`
	Threshold  float64     `db:"threshold" json:"threshold"`
	Status     AlertStatus `db:"status" json:"status"`
	UserID     *string     `db:"user_id" json:"userId"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
	ResolvedAt *time.Time  `db:"resolved_at" json:"resolvedAt"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updatedAt"`
	Sensor     *Sensor     `db:"-" json:"sensor,omitempty"`
	User       *User       `db:"-" json:"user,omitempty"`
}
