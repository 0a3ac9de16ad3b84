package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"envmonitor/backend/services/monitoring-service/internal/alerting"
	"envmonitor/backend/services/monitoring-service/internal/models"
	"envmonitor/backend/services/monitoring-service/internal/repository"
)

type memAlertStore struct {
	mu     sync.Mutex
	active map[string]*models.Alert
}

func (s *memAlertStore) FindActiveBySensor(_ context.Context, sensorID string) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.active[sensorID]; ok {
		return a, nil
	}
	return nil, repository.ErrAlertNotFound
}

func (s *memAlertStore) CreateActive(_ context.Context, a *models.Alert) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[a.SensorID]; ok {
		return false, nil
	}
	s.active[a.SensorID] = a
	return true, nil
}

type failingEvaluator struct{ err error }

func (e failingEvaluator) Evaluate(context.Context, *models.Reading, *models.Sensor) (*models.Alert, error) {
	return nil, e.err
}

func phSensor() *models.Sensor {
	return &models.Sensor{
		ID:             "sensor-ph",
		StationID:      "station-1",
		Name:           "pH Sensor",
		Type:           models.SensorPH,
		Unit:           "pH",
		MinValue:       ptr(6.5),
		MaxValue:       ptr(8.5),
		AlertThreshold: ptr(7.0),
		IsActive:       true,
	}
}

type ingestFixture struct {
	svc         *IngestService
	readings    *fakeReadingRepo
	sensors     *fakeSensorRepo
	broadcaster *fakeBroadcaster
}

func newIngestFixture(evaluator AlertEvaluator) *ingestFixture {
	sensor := phSensor()
	sensors := newFakeSensorRepo(sensor)
	readings := &fakeReadingRepo{sensors: map[string]*models.Sensor{sensor.ID: sensor}}
	if evaluator == nil {
		evaluator = alerting.NewEvaluator(&memAlertStore{active: map[string]*models.Alert{}}, zap.NewNop())
	}
	b := &fakeBroadcaster{}
	svc := NewIngestService(readings, NewSensorCache(sensors, time.Minute), evaluator, b, zap.NewNop())
	return &ingestFixture{svc: svc, readings: readings, sensors: sensors, broadcaster: b}
}

func input(value float64) ReadingInput {
	return ReadingInput{StationID: "station-1", SensorID: "sensor-ph", Value: &value}
}

func TestIngestWithoutBreachBroadcastsReadingOnly(t *testing.T) {
	fx := newIngestFixture(nil)

	reading, err := fx.svc.Ingest(context.Background(), input(6.8))
	require.NoError(t, err)
	assert.NotEmpty(t, reading.ID)
	assert.False(t, reading.Timestamp.IsZero())
	require.NotNil(t, reading.Sensor)
	assert.Equal(t, []string{"new-reading"}, fx.broadcaster.names())
	assert.Len(t, fx.readings.readings, 1)
}

func TestIngestBreachBroadcastsReadingThenAlert(t *testing.T) {
	fx := newIngestFixture(nil)

	_, err := fx.svc.Ingest(context.Background(), input(7.2))
	require.NoError(t, err)
	assert.Equal(t, []string{"new-reading", "new-alert"}, fx.broadcaster.names())

	_, err = fx.svc.Ingest(context.Background(), input(9.0))
	require.NoError(t, err)
	assert.Equal(t, []string{"new-reading", "new-alert", "new-reading"}, fx.broadcaster.names(), "second breach is suppressed")
}

func TestIngestEvaluatorFailureKeepsReadingButBroadcastsNothing(t *testing.T) {
	boom := errors.New("db down")
	fx := newIngestFixture(failingEvaluator{err: boom})

	_, err := fx.svc.Ingest(context.Background(), input(9))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, fx.readings.readings, 1)
	assert.Empty(t, fx.broadcaster.names())
}

func TestIngestRejectsInvalidInput(t *testing.T) {
	fx := newIngestFixture(nil)
	nan := math.NaN()
	inf := math.Inf(1)

	cases := map[string]ReadingInput{
		"missing station": {SensorID: "sensor-ph", Value: ptr(1.0)},
		"missing sensor":  {StationID: "station-1", Value: ptr(1.0)},
		"missing value":   {StationID: "station-1", SensorID: "sensor-ph"},
		"nan":             {StationID: "station-1", SensorID: "sensor-ph", Value: &nan},
		"inf":             {StationID: "station-1", SensorID: "sensor-ph", Value: &inf},
		"wrong station":   {StationID: "station-2", SensorID: "sensor-ph", Value: ptr(1.0)},
	}
	for name, in := range cases {
		_, err := fx.svc.Ingest(context.Background(), in)
		assert.ErrorIs(t, err, ErrValidation, name)
	}
	assert.Empty(t, fx.readings.readings)
	assert.Empty(t, fx.broadcaster.names())
}

func TestIngestUnknownSensor(t *testing.T) {
	fx := newIngestFixture(nil)
	in := input(1)
	in.SensorID = "missing"

	_, err := fx.svc.Ingest(context.Background(), in)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestIngestUsesSuppliedTimestampAndCache(t *testing.T) {
	fx := newIngestFixture(nil)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	in := input(6.9)
	in.Timestamp = &ts

	reading, err := fx.svc.Ingest(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, ts.UTC(), reading.Timestamp)
	assert.Equal(t, time.UTC, reading.Timestamp.Location())

	_, err = fx.svc.Ingest(context.Background(), input(6.9))
	require.NoError(t, err)
	assert.Equal(t, 1, fx.sensors.gets, "second lookup served from cache")
}

func TestReadingQueriesNewestFirst(t *testing.T) {
	fx := newIngestFixture(nil)
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		in := input(6.8)
		in.Timestamp = &ts
		_, err := fx.svc.Ingest(context.Background(), in)
		require.NoError(t, err)
	}

	readings, err := fx.svc.BySensor(context.Background(), "sensor-ph", 0)
	require.NoError(t, err)
	require.Len(t, readings, 5)
	for i := 1; i < len(readings); i++ {
		assert.False(t, readings[i].Timestamp.After(readings[i-1].Timestamp))
	}

	latest, err := fx.svc.Latest(context.Background())
	require.NoError(t, err)
	assert.Len(t, latest, 5)
}

func TestStatisticsValidatesRange(t *testing.T) {
	fx := newIngestFixture(nil)
	now := time.Now()

	_, err := fx.svc.Statistics(context.Background(), "sensor-ph", now, now.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = fx.svc.Statistics(context.Background(), "sensor-ph", time.Time{}, now)
	assert.ErrorIs(t, err, ErrValidation)

	stats, err := fx.svc.Statistics(context.Background(), "sensor-ph", now.Add(-time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, "sensor-ph", stats.SensorID)
}
