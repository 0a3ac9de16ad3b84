package repository

import (
	"context"
	"database/sql"
	"errors"

	libdb "envmonitor/backend/libs/db"
	"envmonitor/backend/services/monitoring-service/internal/models"
)

const stationColumns = `st.id, st.name, st.description, st.latitude, st.longitude, st.is_active, st.created_at, st.updated_at`

// StationRepository handles persistence of stations.
type StationRepository struct {
	db *sql.DB
}

// NewStationRepository returns repository.
func NewStationRepository(db *sql.DB) *StationRepository {
	return &StationRepository{db: db}
}

// Create inserts a station; ID must be set by the caller.
func (r *StationRepository) Create(ctx context.Context, station *models.Station) error {
	const query = `
		INSERT INTO stations (id, name, description, latitude, longitude, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		station.ID,
		station.Name,
		station.Description,
		station.Latitude,
		station.Longitude,
		station.IsActive,
	).Scan(&station.CreatedAt, &station.UpdatedAt)
	if libdb.IsUniqueViolation(err) {
		return ErrDuplicateID
	}
	return err
}

// List returns all stations with their active sensors and reading counts.
func (r *StationRepository) List(ctx context.Context) ([]models.Station, error) {
	const query = `
		SELECT ` + stationColumns + `,
		       (SELECT COUNT(*) FROM readings rd WHERE rd.station_id = st.id)
		FROM stations st
		ORDER BY st.name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations := make([]models.Station, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			st    models.Station
			count int64
		)
		if err := scanStation(rows, &st, &count); err != nil {
			return nil, err
		}
		st.ReadingCount = &count
		st.Sensors = []models.Sensor{}
		index[st.ID] = len(stations)
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sensorRows, err := r.db.QueryContext(ctx, `
		SELECT `+sensorColumns+`
		FROM sensors s
		WHERE s.is_active
		ORDER BY s.name
	`)
	if err != nil {
		return nil, err
	}
	defer sensorRows.Close()

	for sensorRows.Next() {
		var s models.Sensor
		if err := scanSensor(sensorRows, &s); err != nil {
			return nil, err
		}
		if i, ok := index[s.StationID]; ok {
			stations[i].Sensors = append(stations[i].Sensors, s)
		}
	}
	return stations, sensorRows.Err()
}

// Get returns one station with all of its sensors and its reading count.
func (r *StationRepository) Get(ctx context.Context, id string) (*models.Station, error) {
	const query = `
		SELECT ` + stationColumns + `,
		       (SELECT COUNT(*) FROM readings rd WHERE rd.station_id = st.id)
		FROM stations st
		WHERE st.id = $1
	`
	var (
		st    models.Station
		count int64
	)
	if err := scanStation(r.db.QueryRowContext(ctx, query, id), &st, &count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStationNotFound
		}
		return nil, err
	}
	st.ReadingCount = &count

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sensorColumns+`
		FROM sensors s
		WHERE s.station_id = $1
		ORDER BY s.name
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	st.Sensors = []models.Sensor{}
	for rows.Next() {
		var s models.Sensor
		if err := scanSensor(rows, &s); err != nil {
			return nil, err
		}
		st.Sensors = append(st.Sensors, s)
	}
	return &st, rows.Err()
}

// Update overwrites the mutable columns of a station.
func (r *StationRepository) Update(ctx context.Context, station *models.Station) error {
	const query = `
		UPDATE stations
		SET name = $2,
		    description = $3,
		    latitude = $4,
		    longitude = $5,
		    is_active = $6,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		station.ID,
		station.Name,
		station.Description,
		station.Latitude,
		station.Longitude,
		station.IsActive,
	).Scan(&station.CreatedAt, &station.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrStationNotFound
	}
	return err
}

// Delete removes a station; sensors, readings and alerts cascade.
func (r *StationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM stations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStationNotFound
	}
	return nil
}

func scanStation(row rowScanner, st *models.Station, extra ...interface{}) error {
	return row.Scan(append(stationDest(st), extra...)...)
}
