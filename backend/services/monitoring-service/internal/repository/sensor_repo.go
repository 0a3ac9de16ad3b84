package repository

import (
	"context"
	"database/sql"
	"errors"

	libdb "envmonitor/backend/libs/db"
	"envmonitor/backend/services/monitoring-service/internal/models"
)

const sensorColumns = `s.id, s.station_id, s.name, s.type, s.unit, s.min_value, s.max_value, s.alert_threshold, s.is_active, s.created_at, s.updated_at`

// SensorRepository handles persistence of sensors.
type SensorRepository struct {
	db *sql.DB
}

// NewSensorRepository returns repository.
func NewSensorRepository(db *sql.DB) *SensorRepository {
	return &SensorRepository{db: db}
}

// Create inserts a sensor and loads its station.
func (r *SensorRepository) Create(ctx context.Context, sensor *models.Sensor) error {
	const query = `
		INSERT INTO sensors (id, station_id, name, type, unit, min_value, max_value, alert_threshold, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		sensor.ID,
		sensor.StationID,
		sensor.Name,
		sensor.Type,
		sensor.Unit,
		sensor.MinValue,
		sensor.MaxValue,
		sensor.AlertThreshold,
		sensor.IsActive,
	).Scan(&sensor.CreatedAt, &sensor.UpdatedAt)
	if err != nil {
		if libdb.IsForeignKeyViolation(err) {
			return ErrStationNotFound
		}
		return err
	}
	return nil
}

// List returns every sensor with its station.
func (r *SensorRepository) List(ctx context.Context) ([]models.Sensor, error) {
	const query = `
		SELECT ` + sensorColumns + `, ` + stationColumns + `
		FROM sensors s
		JOIN stations st ON st.id = s.station_id
		ORDER BY st.name, s.name
	`
	return r.query(ctx, query)
}

// ListByStation returns the active sensors of a station.
func (r *SensorRepository) ListByStation(ctx context.Context, stationID string) ([]models.Sensor, error) {
	const query = `
		SELECT ` + sensorColumns + `, ` + stationColumns + `
		FROM sensors s
		JOIN stations st ON st.id = s.station_id
		WHERE s.station_id = $1 AND s.is_active
		ORDER BY s.name
	`
	return r.query(ctx, query, stationID)
}

// Get returns a sensor with its station.
func (r *SensorRepository) Get(ctx context.Context, id string) (*models.Sensor, error) {
	const query = `
		SELECT ` + sensorColumns + `, ` + stationColumns + `
		FROM sensors s
		JOIN stations st ON st.id = s.station_id
		WHERE s.id = $1
	`
	sensor, err := scanSensorWithStation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSensorNotFound
		}
		return nil, err
	}
	return sensor, nil
}

// Update overwrites the mutable columns of a sensor.
func (r *SensorRepository) Update(ctx context.Context, sensor *models.Sensor) error {
	const query = `
		UPDATE sensors
		SET station_id = $2,
		    name = $3,
		    type = $4,
		    unit = $5,
		    min_value = $6,
		    max_value = $7,
		    alert_threshold = $8,
		    is_active = $9,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		sensor.ID,
		sensor.StationID,
		sensor.Name,
		sensor.Type,
		sensor.Unit,
		sensor.MinValue,
		sensor.MaxValue,
		sensor.AlertThreshold,
		sensor.IsActive,
	).Scan(&sensor.CreatedAt, &sensor.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrSensorNotFound
	case libdb.IsForeignKeyViolation(err):
		return ErrStationNotFound
	}
	return err
}

// Delete removes a sensor; readings and alerts cascade.
func (r *SensorRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sensors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSensorNotFound
	}
	return nil
}

func (r *SensorRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.Sensor, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sensors := make([]models.Sensor, 0)
	for rows.Next() {
		sensor, err := scanSensorWithStation(rows)
		if err != nil {
			return nil, err
		}
		sensors = append(sensors, *sensor)
	}
	return sensors, rows.Err()
}

func sensorDest(s *models.Sensor) []interface{} {
	return []interface{}{
		&s.ID,
		&s.StationID,
		&s.Name,
		&s.Type,
		&s.Unit,
		&s.MinValue,
		&s.MaxValue,
		&s.AlertThreshold,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	}
}

func scanSensor(row rowScanner, s *models.Sensor, extra ...interface{}) error {
	return row.Scan(append(sensorDest(s), extra...)...)
}

func stationDest(st *models.Station) []interface{} {
	return []interface{}{
		&st.ID,
		&st.Name,
		&st.Description,
		&st.Latitude,
		&st.Longitude,
		&st.IsActive,
		&st.CreatedAt,
		&st.UpdatedAt,
	}
}

func scanSensorWithStation(row rowScanner) (*models.Sensor, error) {
	var (
		s  models.Sensor
		st models.Station
	)
	if err := scanSensor(row, &s, stationDest(&st)...); err != nil {
		return nil, err
	}
	s.Station = &st
	return &s, nil
}
