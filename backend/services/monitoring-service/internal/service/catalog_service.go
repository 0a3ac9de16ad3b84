package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"envmonitor/backend/services/monitoring-service/internal/authz"
	"envmonitor/backend/services/monitoring-service/internal/live"
	"envmonitor/backend/services/monitoring-service/internal/models"
	"envmonitor/backend/services/monitoring-service/internal/repository"
)

// StationRepository defines station storage used by the catalog.
type StationRepository interface {
	Create(ctx context.Context, station *models.Station) error
	List(ctx context.Context) ([]models.Station, error)
	Get(ctx context.Context, id string) (*models.Station, error)
	Update(ctx context.Context, station *models.Station) error
	Delete(ctx context.Context, id string) error
}

// SensorRepository defines sensor storage used by the catalog.
type SensorRepository interface {
	Create(ctx context.Context, sensor *models.Sensor) error
	List(ctx context.Context) ([]models.Sensor, error)
	ListByStation(ctx context.Context, stationID string) ([]models.Sensor, error)
	Get(ctx context.Context, id string) (*models.Sensor, error)
	Update(ctx context.Context, sensor *models.Sensor) error
	Delete(ctx context.Context, id string) error
}

// StationInput carries station fields; nil fields are left untouched on
// update.
type StationInput struct {
	ID          string   `json:"id,omitempty"`
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	IsActive    *bool    `json:"isActive"`
}

// SensorInput carries sensor fields; nil fields are left untouched on update.
type SensorInput struct {
	StationID      *string            `json:"stationId"`
	Name           *string            `json:"name"`
	Type           *models.SensorType `json:"type"`
	Unit           *string            `json:"unit"`
	MinValue       *float64           `json:"minValue"`
	MaxValue       *float64           `json:"maxValue"`
	AlertThreshold *float64           `json:"alertThreshold"`
	IsActive       *bool              `json:"isActive"`
}

// CatalogService manages stations and sensors.
type CatalogService struct {
	stations    StationRepository
	sensors     SensorRepository
	cache       *SensorCache
	broadcaster live.Broadcaster
	logger      *zap.Logger
	newID       func() string
}

// NewCatalogService builds CatalogService. cache may be nil.
func NewCatalogService(stations StationRepository, sensors SensorRepository, cache *SensorCache, broadcaster live.Broadcaster, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		stations:    stations,
		sensors:     sensors,
		cache:       cache,
		broadcaster: broadcaster,
		logger:      logger,
		newID:       uuid.NewString,
	}
}

// CreateStation validates and stores a station, then broadcasts it.
func (s *CatalogService) CreateStation(ctx context.Context, actor authz.Actor, in StationInput) (*models.Station, error) {
	if err := authorize(actor, authz.ActionManageCatalog); err != nil {
		return nil, err
	}
	if in.Name == nil || in.Latitude == nil || in.Longitude == nil {
		return nil, invalid("name, latitude and longitude are required")
	}

	station := &models.Station{ID: strings.TrimSpace(in.ID), IsActive: true}
	if station.ID == "" {
		station.ID = s.newID()
	}
	applyStation(station, in)
	if err := validateStation(station); err != nil {
		return nil, err
	}

	if err := s.stations.Create(ctx, station); err != nil {
		if errors.Is(err, repository.ErrDuplicateID) {
			return nil, fmt.Errorf("%w: station %s already exists", ErrConflict, station.ID)
		}
		return nil, err
	}
	station.Sensors = []models.Sensor{}

	s.logger.Info("station created", zap.String("station_id", station.ID), zap.String("user_id", actor.UserID))
	s.broadcaster.PublishStationUpdate(station)
	return station, nil
}

// ListStations returns stations with their active sensors and reading counts.
func (s *CatalogService) ListStations(ctx context.Context) ([]models.Station, error) {
	return s.stations.List(ctx)
}

// GetStation returns one station with all its sensors.
func (s *CatalogService) GetStation(ctx context.Context, id string) (*models.Station, error) {
	return s.stations.Get(ctx, id)
}

// UpdateStation applies a partial update and broadcasts the result.
func (s *CatalogService) UpdateStation(ctx context.Context, actor authz.Actor, id string, in StationInput) (*models.Station, error) {
	if err := authorize(actor, authz.ActionManageCatalog); err != nil {
		return nil, err
	}
	station, err := s.stations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyStation(station, in)
	if err := validateStation(station); err != nil {
		return nil, err
	}
	if err := s.stations.Update(ctx, station); err != nil {
		return nil, err
	}

	s.logger.Info("station updated", zap.String("station_id", id), zap.String("user_id", actor.UserID))
	s.broadcaster.PublishStationUpdate(station)
	return station, nil
}

// DeleteStation removes a station together with its sensors, readings and
// alerts.
func (s *CatalogService) DeleteStation(ctx context.Context, actor authz.Actor, id string) error {
	if err := authorize(actor, authz.ActionManageCatalog); err != nil {
		return err
	}
	if err := s.stations.Delete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Flush()
	}
	s.logger.Info("station deleted", zap.String("station_id", id), zap.String("user_id", actor.UserID))
	return nil
}

// CreateSensor validates and stores a sensor.
func (s *CatalogService) CreateSensor(ctx context.Context, actor authz.Actor, in SensorInput) (*models.Sensor, error) {
	if err := authorize(actor, authz.ActionManageCatalog); err != nil {
		return nil, err
	}
	if in.StationID == nil || in.Name == nil || in.Type == nil || in.Unit == nil {
		return nil, invalid("stationId, name, type and unit are required")
	}

	sensor := &models.Sensor{ID: s.newID(), IsActive: true}
	applySensor(sensor, in)
	if err := validateSensor(sensor); err != nil {
		return nil, err
	}
	if err := s.sensors.Create(ctx, sensor); err != nil {
		return nil, err
	}

	s.logger.Info("sensor created",
		zap.String("sensor_id", sensor.ID),
		zap.String("station_id", sensor.StationID),
		zap.String("user_id", actor.UserID),
	)
	return s.sensors.Get(ctx, sensor.ID)
}

// ListSensors returns every sensor, or the active sensors of one station
// when stationID is set.
func (s *CatalogService) ListSensors(ctx context.Context, stationID string) ([]models.Sensor, error) {
	if stationID != "" {
		return s.sensors.ListByStation(ctx, stationID)
	}
	return s.sensors.List(ctx)
}

// GetSensor returns one sensor with its station.
func (s *CatalogService) GetSensor(ctx context.Context, id string) (*models.Sensor, error) {
	return s.sensors.Get(ctx, id)
}

// UpdateSensor applies a partial update.
func (s *CatalogService) UpdateSensor(ctx context.Context, actor authz.Actor, id string, in SensorInput) (*models.Sensor, error) {
	if err := authorize(actor, authz.ActionManageCatalog); err != nil {
		return nil, err
	}
	sensor, err := s.sensors.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applySensor(sensor, in)
	if err := validateSensor(sensor); err != nil {
		return nil, err
	}
	if err := s.sensors.Update(ctx, sensor); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(id)
	}

	s.logger.Info("sensor updated", zap.String("sensor_id", id), zap.String("user_id", actor.UserID))
	return s.sensors.Get(ctx, id)
}

// DeleteSensor removes a sensor together with its readings and alerts.
func (s *CatalogService) DeleteSensor(ctx context.Context, actor authz.Actor, id string) error {
	if err := authorize(actor, authz.ActionManageCatalog); err != nil {
		return err
	}
	if err := s.sensors.Delete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(id)
	}
	s.logger.Info("sensor deleted", zap.String("sensor_id", id), zap.String("user_id", actor.UserID))
	return nil
}

func authorize(actor authz.Actor, action authz.Action) error {
	if actor.UserID == "" {
		return ErrUnauthorized
	}
	if !actor.Can(action) {
		return fmt.Errorf("%w: %s requires %s", ErrForbidden, actor.Role, action)
	}
	return nil
}

func applyStation(st *models.Station, in StationInput) {
	if in.Name != nil {
		st.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		st.Description = in.Description
	}
	if in.Latitude != nil {
		st.Latitude = *in.Latitude
	}
	if in.Longitude != nil {
		st.Longitude = *in.Longitude
	}
	if in.IsActive != nil {
		st.IsActive = *in.IsActive
	}
}

func validateStation(st *models.Station) error {
	switch {
	case st.Name == "":
		return invalid("name is required")
	case st.Latitude < -90 || st.Latitude > 90:
		return invalid("latitude must be within [-90, 90]")
	case st.Longitude < -180 || st.Longitude > 180:
		return invalid("longitude must be within [-180, 180]")
	}
	return nil
}

func applySensor(s *models.Sensor, in SensorInput) {
	if in.StationID != nil {
		s.StationID = strings.TrimSpace(*in.StationID)
	}
	if in.Name != nil {
		s.Name = strings.TrimSpace(*in.Name)
	}
	if in.Type != nil {
		s.Type = *in.Type
	}
	if in.Unit != nil {
		s.Unit = strings.TrimSpace(*in.Unit)
	}
	if in.MinValue != nil {
		s.MinValue = in.MinValue
	}
	if in.MaxValue != nil {
		s.MaxValue = in.MaxValue
	}
	if in.AlertThreshold != nil {
		s.AlertThreshold = in.AlertThreshold
	}
	if in.IsActive != nil {
		s.IsActive = *in.IsActive
	}
}

func validateSensor(s *models.Sensor) error {
	switch {
	case s.StationID == "":
		return invalid("stationId is required")
	case s.Name == "":
		return invalid("name is required")
	case !s.Type.Valid():
		return invalid("unknown sensor type %q", s.Type)
	case s.Unit == "":
		return invalid("unit is required")
	case s.MinValue != nil && s.MaxValue != nil && *s.MinValue >= *s.MaxValue:
		return invalid("minValue must be lower than maxValue")
	}
	return nil
}
