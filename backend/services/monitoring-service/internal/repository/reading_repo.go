package repository

import (
	"context"
	"database/sql"
	"time"

	libdb "envmonitor/backend/libs/db"
	"envmonitor/backend/services/monitoring-service/internal/models"
)

const readingColumns = `r.id, r.sensor_id, r.station_id, r.value, r.timestamp, r.created_at`

const readingJoin = `
		JOIN sensors s ON s.id = r.sensor_id
		JOIN stations st ON st.id = r.station_id
`

// ReadingRepository persists and queries readings. There is no update or
// delete path: readings are immutable.
type ReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository returns repository.
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Create inserts a reading and returns the joined view (sensor with station,
// station) in the same round trip.
func (r *ReadingRepository) Create(ctx context.Context, reading *models.Reading) (*models.Reading, error) {
	const query = `
		WITH r AS (
			INSERT INTO readings (id, sensor_id, station_id, value, timestamp, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			RETURNING id, sensor_id, station_id, value, timestamp, created_at
		)
		SELECT ` + readingColumns + `, ` + sensorColumns + `, ` + stationColumns + `
		FROM r` + readingJoin
	row := r.db.QueryRowContext(ctx, query,
		reading.ID,
		reading.SensorID,
		reading.StationID,
		reading.Value,
		reading.Timestamp,
	)
	created, err := scanReadingJoined(row)
	if err != nil {
		if libdb.IsForeignKeyViolation(err) {
			return nil, ErrUnknownReference
		}
		return nil, err
	}
	return created, nil
}

// List returns the newest readings across all sensors.
func (r *ReadingRepository) List(ctx context.Context, limit int) ([]models.Reading, error) {
	const query = `
		SELECT ` + readingColumns + `, ` + sensorColumns + `, ` + stationColumns + `
		FROM readings r` + readingJoin + `
		ORDER BY r.timestamp DESC, r.created_at DESC
		LIMIT $1
	`
	return r.query(ctx, query, clampLimit(limit, 1000))
}

// ByStation returns the newest readings of a station.
func (r *ReadingRepository) ByStation(ctx context.Context, stationID string, limit int) ([]models.Reading, error) {
	const query = `
		SELECT ` + readingColumns + `, ` + sensorColumns + `, ` + stationColumns + `
		FROM readings r` + readingJoin + `
		WHERE r.station_id = $1
		ORDER BY r.timestamp DESC, r.created_at DESC
		LIMIT $2
	`
	return r.query(ctx, query, stationID, clampLimit(limit, 100))
}

// BySensor returns the newest readings of a sensor.
func (r *ReadingRepository) BySensor(ctx context.Context, sensorID string, limit int) ([]models.Reading, error) {
	const query = `
		SELECT ` + readingColumns + `, ` + sensorColumns + `, ` + stationColumns + `
		FROM readings r` + readingJoin + `
		WHERE r.sensor_id = $1
		ORDER BY r.timestamp DESC, r.created_at DESC
		LIMIT $2
	`
	return r.query(ctx, query, sensorID, clampLimit(limit, 100))
}

// Statistics aggregates a sensor's readings within [from, to].
func (r *ReadingRepository) Statistics(ctx context.Context, sensorID string, from, to time.Time) (*models.ReadingStatistics, error) {
	const query = `
		SELECT COUNT(*), AVG(value), MIN(value), MAX(value)
		FROM readings
		WHERE sensor_id = $1 AND timestamp >= $2 AND timestamp <= $3
	`
	stats := &models.ReadingStatistics{SensorID: sensorID, From: from, To: to}
	err := r.db.QueryRowContext(ctx, query, sensorID, from, to).
		Scan(&stats.Count, &stats.Avg, &stats.Min, &stats.Max)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *ReadingRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.Reading, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readings := make([]models.Reading, 0)
	for rows.Next() {
		reading, err := scanReadingJoined(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, *reading)
	}
	return readings, rows.Err()
}

func scanReadingJoined(row rowScanner) (*models.Reading, error) {
	var (
		rd models.Reading
		s  models.Sensor
		st models.Station
	)
	dest := []interface{}{
		&rd.ID,
		&rd.SensorID,
		&rd.StationID,
		&rd.Value,
		&rd.Timestamp,
		&rd.CreatedAt,
	}
	dest = append(dest, sensorDest(&s)...)
	dest = append(dest, stationDest(&st)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	rd.Timestamp = rd.Timestamp.UTC()
	sensorStation := st
	s.Station = &sensorStation
	rd.Sensor = &s
	rd.Station = &st
	return &rd, nil
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 10000 {
		return 10000
	}
	return limit
}
