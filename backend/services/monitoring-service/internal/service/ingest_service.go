package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"envmonitor/backend/services/monitoring-service/internal/live"
	"envmonitor/backend/services/monitoring-service/internal/metrics"
	"envmonitor/backend/services/monitoring-service/internal/models"
	"envmonitor/backend/services/monitoring-service/internal/repository"
)

const (
	latestReadingsLimit = 50
	allReadingsLimit    = 1000
	defaultQueryLimit   = 100
)

// ReadingRepository defines storage contract used by the ingest service.
type ReadingRepository interface {
	Create(ctx context.Context, reading *models.Reading) (*models.Reading, error)
	List(ctx context.Context, limit int) ([]models.Reading, error)
	ByStation(ctx context.Context, stationID string, limit int) ([]models.Reading, error)
	BySensor(ctx context.Context, sensorID string, limit int) ([]models.Reading, error)
	Statistics(ctx context.Context, sensorID string, from, to time.Time) (*models.ReadingStatistics, error)
}

// SensorLookup resolves the sensor a reading belongs to.
type SensorLookup interface {
	Get(ctx context.Context, id string) (*models.Sensor, error)
}

// AlertEvaluator decides whether a reading opens an alert.
type AlertEvaluator interface {
	Evaluate(ctx context.Context, reading *models.Reading, sensor *models.Sensor) (*models.Alert, error)
}

// ReadingInput is a measurement submitted by a station.
type ReadingInput struct {
	StationID string     `json:"stationId"`
	SensorID  string     `json:"sensorId"`
	Value     *float64   `json:"value"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// IngestService persists readings, evaluates them and notifies viewers.
type IngestService struct {
	readings    ReadingRepository
	sensors     SensorLookup
	evaluator   AlertEvaluator
	broadcaster live.Broadcaster
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

// NewIngestService builds IngestService.
func NewIngestService(readings ReadingRepository, sensors SensorLookup, evaluator AlertEvaluator, broadcaster live.Broadcaster, logger *zap.Logger) *IngestService {
	return &IngestService{
		readings:    readings,
		sensors:     sensors,
		evaluator:   evaluator,
		broadcaster: broadcaster,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// Ingest stores a reading, evaluates it and broadcasts the reading followed
// by the alert it opened, if any. An evaluation failure is returned after the
// reading was stored; nothing is broadcast in that case.
func (s *IngestService) Ingest(ctx context.Context, in ReadingInput) (*models.Reading, error) {
	if err := validateReading(in); err != nil {
		metrics.ReadingsIngested.WithLabelValues("rejected").Inc()
		return nil, err
	}

	sensor, err := s.sensors.Get(ctx, in.SensorID)
	if err != nil {
		metrics.ReadingsIngested.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if sensor.StationID != in.StationID {
		metrics.ReadingsIngested.WithLabelValues("rejected").Inc()
		return nil, invalid("sensor %s does not belong to station %s", in.SensorID, in.StationID)
	}

	ts := s.now()
	if in.Timestamp != nil {
		ts = in.Timestamp.UTC()
	}
	reading, err := s.readings.Create(ctx, &models.Reading{
		ID:        s.newID(),
		SensorID:  in.SensorID,
		StationID: in.StationID,
		Value:     *in.Value,
		Timestamp: ts,
	})
	if err != nil {
		metrics.ReadingsIngested.WithLabelValues("failed").Inc()
		if errors.Is(err, repository.ErrUnknownReference) {
			return nil, repository.ErrSensorNotFound
		}
		return nil, fmt.Errorf("persist reading: %w", err)
	}

	evaluated := sensor
	if reading.Sensor != nil {
		evaluated = reading.Sensor
	}
	alert, err := s.evaluator.Evaluate(ctx, reading, evaluated)
	if err != nil {
		metrics.ReadingsIngested.WithLabelValues("failed").Inc()
		s.logger.Error("alert evaluation failed",
			zap.String("reading_id", reading.ID),
			zap.String("sensor_id", reading.SensorID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("evaluate reading: %w", err)
	}
	metrics.ReadingsIngested.WithLabelValues("accepted").Inc()

	s.broadcaster.PublishReading(reading)
	if alert != nil {
		s.broadcaster.PublishAlert(alert)
	}
	return reading, nil
}

// Latest returns the 50 newest readings.
func (s *IngestService) Latest(ctx context.Context) ([]models.Reading, error) {
	return s.readings.List(ctx, latestReadingsLimit)
}

// List returns the 1000 newest readings.
func (s *IngestService) List(ctx context.Context) ([]models.Reading, error) {
	return s.readings.List(ctx, allReadingsLimit)
}

// ByStation returns the newest readings of a station.
func (s *IngestService) ByStation(ctx context.Context, stationID string, limit int) ([]models.Reading, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	return s.readings.ByStation(ctx, stationID, limit)
}

// BySensor returns the newest readings of a sensor.
func (s *IngestService) BySensor(ctx context.Context, sensorID string, limit int) ([]models.Reading, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	return s.readings.BySensor(ctx, sensorID, limit)
}

// Statistics aggregates the readings of a sensor within [from, to].
func (s *IngestService) Statistics(ctx context.Context, sensorID string, from, to time.Time) (*models.ReadingStatistics, error) {
	if from.IsZero() || to.IsZero() {
		return nil, invalid("startDate and endDate are required")
	}
	if to.Before(from) {
		return nil, invalid("endDate must not be before startDate")
	}
	return s.readings.Statistics(ctx, sensorID, from.UTC(), to.UTC())
}

func validateReading(in ReadingInput) error {
	switch {
	case strings.TrimSpace(in.StationID) == "":
		return invalid("stationId is required")
	case strings.TrimSpace(in.SensorID) == "":
		return invalid("sensorId is required")
	case in.Value == nil:
		return invalid("value is required")
	case math.IsNaN(*in.Value) || math.IsInf(*in.Value, 0):
		return invalid("value must be a finite number")
	}
	return nil
}
