package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"envmonitor/backend/services/monitoring-service/internal/models"
)

const alertColumns = `a.id, a.sensor_id, a.message, a.value, a.threshold, a.status, a.user_id, a.created_at, a.resolved_at, a.updated_at`

const alertJoinedSelect = `
		SELECT ` + alertColumns + `, ` + sensorColumns + `, ` + stationColumns + `,
		       u.id, u.email, u.name, u.role, u.created_at
		FROM alerts a
		JOIN sensors s ON s.id = a.sensor_id
		JOIN stations st ON st.id = s.station_id
		LEFT JOIN users u ON u.id = a.user_id
`

// AlertRepository persists alerts and their status transitions.
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository returns repository.
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// FindActiveBySensor returns the ACTIVE alert of a sensor or ErrAlertNotFound.
func (r *AlertRepository) FindActiveBySensor(ctx context.Context, sensorID string) (*models.Alert, error) {
	const query = `
		SELECT ` + alertColumns + `
		FROM alerts a
		WHERE a.sensor_id = $1 AND a.status = 'ACTIVE'
		LIMIT 1
	`
	var a models.Alert
	if err := r.db.QueryRowContext(ctx, query, sensorID).Scan(alertDest(&a)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return &a, nil
}

// CreateActive inserts an ACTIVE alert unless the sensor already has one.
// The partial unique index on (sensor_id) WHERE status = 'ACTIVE' makes the
// check and the insert a single atomic statement; created is false when
// another ACTIVE alert won.
func (r *AlertRepository) CreateActive(ctx context.Context, alert *models.Alert) (created bool, err error) {
	const query = `
		INSERT INTO alerts (id, sensor_id, message, value, threshold, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'ACTIVE', NOW(), NOW())
		ON CONFLICT (sensor_id) WHERE status = 'ACTIVE' DO NOTHING
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		alert.ID,
		alert.SensorID,
		alert.Message,
		alert.Value,
		alert.Threshold,
	).Scan(&alert.CreatedAt, &alert.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	alert.Status = models.AlertActive
	return true, nil
}

// List returns alerts newest first, optionally filtered by status.
func (r *AlertRepository) List(ctx context.Context, status *models.AlertStatus) ([]models.Alert, error) {
	query := alertJoinedSelect
	args := []interface{}{}
	if status != nil {
		query += ` WHERE a.status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY a.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := make([]models.Alert, 0)
	for rows.Next() {
		alert, err := scanAlertJoined(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}
	return alerts, rows.Err()
}

// Get returns one alert with sensor, station and user.
func (r *AlertRepository) Get(ctx context.Context, id string) (*models.Alert, error) {
	alert, err := scanAlertJoined(r.db.QueryRowContext(ctx, alertJoinedSelect+` WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return alert, nil
}

// CountActive returns the number of ACTIVE alerts.
func (r *AlertRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts WHERE status = 'ACTIVE'`).Scan(&count)
	return count, err
}

// Transition moves an ACTIVE alert to a terminal status. It returns
// ErrAlertNotActive when no ACTIVE alert with that id exists.
func (r *AlertRepository) Transition(ctx context.Context, id string, to models.AlertStatus, userID string, resolvedAt *time.Time) (*models.Alert, error) {
	const query = `
		UPDATE alerts a
		SET status = $2,
		    user_id = $3,
		    resolved_at = $4,
		    updated_at = NOW()
		WHERE a.id = $1 AND a.status = 'ACTIVE'
		RETURNING ` + alertColumns
	var a models.Alert
	err := r.db.QueryRowContext(ctx, query, id, to, nullableString(userID), resolvedAt).Scan(alertDest(&a)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlertNotActive
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func alertDest(a *models.Alert) []interface{} {
	return []interface{}{
		&a.ID,
		&a.SensorID,
		&a.Message,
		&a.Value,
		&a.Threshold,
		&a.Status,
		&a.UserID,
		&a.CreatedAt,
		&a.ResolvedAt,
		&a.UpdatedAt,
	}
}

func scanAlertJoined(row rowScanner) (*models.Alert, error) {
	var (
		a  models.Alert
		s  models.Sensor
		st models.Station

		userID, userEmail, userName, userRole *string
		userCreated                           *time.Time
	)
	dest := alertDest(&a)
	dest = append(dest, sensorDest(&s)...)
	dest = append(dest, stationDest(&st)...)
	dest = append(dest, &userID, &userEmail, &userName, &userRole, &userCreated)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	s.Station = &st
	a.Sensor = &s
	if userID != nil {
		a.User = &models.User{
			ID:        *userID,
			Email:     deref(userEmail),
			Name:      deref(userName),
			Role:      models.Role(deref(userRole)),
			CreatedAt: derefTime(userCreated),
		}
	}
	return &a, nil
}

func nullableString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefTime(v *time.Time) time.Time {
	if v == nil {
		return time.Time{}
	}
	return *v
}
