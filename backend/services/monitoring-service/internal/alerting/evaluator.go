package alerting

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"envmonitor/backend/services/monitoring-service/internal/metrics"
	"envmonitor/backend/services/monitoring-service/internal/models"
	"envmonitor/backend/services/monitoring-service/internal/repository"
)

// AlertStore is the persistence the evaluator needs.
type AlertStore interface {
	FindActiveBySensor(ctx context.Context, sensorID string) (*models.Alert, error)
	CreateActive(ctx context.Context, alert *models.Alert) (bool, error)
}

// Evaluator turns breaching readings into at most one ACTIVE alert per sensor.
type Evaluator struct {
	store  AlertStore
	logger *zap.Logger
	locks  *keyedMutex
	newID  func() string
}

// NewEvaluator creates an evaluator.
func NewEvaluator(store AlertStore, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		store:  store,
		logger: logger,
		locks:  newKeyedMutex(),
		newID:  uuid.NewString,
	}
}

// Evaluate returns the alert created for reading, or nil when the reading is
// within bounds or the sensor already has an ACTIVE alert. Storage errors are
// returned as is.
func (e *Evaluator) Evaluate(ctx context.Context, reading *models.Reading, sensor *models.Sensor) (*models.Alert, error) {
	breach, ok := Check(reading.Value, sensor)
	if !ok {
		return nil, nil
	}

	unlock, err := e.locks.Lock(ctx, sensor.ID)
	if err != nil {
		return nil, fmt.Errorf("wait for sensor %s: %w", sensor.ID, err)
	}
	defer unlock()

	existing, err := e.store.FindActiveBySensor(ctx, sensor.ID)
	switch {
	case err == nil:
		metrics.AlertsSuppressed.WithLabelValues("existing").Inc()
		e.logger.Debug("alert suppressed, sensor already has an active alert",
			zap.String("sensor_id", sensor.ID),
			zap.String("alert_id", existing.ID),
		)
		return nil, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("find active alert: %w", err)
	}

	alert := &models.Alert{
		ID:        e.newID(),
		SensorID:  sensor.ID,
		Message:   breach.Message,
		Value:     breach.Value,
		Threshold: breach.Threshold,
		Status:    models.AlertActive,
	}
	created, err := e.store.CreateActive(ctx, alert)
	if err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}
	if !created {
		// another instance won the race on the partial unique index
		metrics.AlertsSuppressed.WithLabelValues("conflict").Inc()
		e.logger.Warn("concurrent active alert detected",
			zap.String("sensor_id", sensor.ID),
			zap.String("reading_id", reading.ID),
		)
		return nil, nil
	}

	alert.Sensor = sensor
	metrics.AlertsCreated.Inc()
	e.logger.Info("alert created",
		zap.String("alert_id", alert.ID),
		zap.String("sensor_id", sensor.ID),
		zap.String("kind", string(breach.Kind)),
		zap.Float64("value", breach.Value),
		zap.Float64("threshold", breach.Threshold),
	)
	return alert, nil
}
