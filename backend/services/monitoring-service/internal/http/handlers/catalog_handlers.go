package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"envmonitor/backend/services/monitoring-service/internal/authz"
	"envmonitor/backend/services/monitoring-service/internal/models"
	"envmonitor/backend/services/monitoring-service/internal/service"
)

// CatalogService is the station/sensor surface used by the handlers.
type CatalogService interface {
	CreateStation(ctx context.Context, actor authz.Actor, in service.StationInput) (*models.Station, error)
	ListStations(ctx context.Context) ([]models.Station, error)
	GetStation(ctx context.Context, id string) (*models.Station, error)
	UpdateStation(ctx context.Context, actor authz.Actor, id string, in service.StationInput) (*models.Station, error)
	DeleteStation(ctx context.Context, actor authz.Actor, id string) error

	CreateSensor(ctx context.Context, actor authz.Actor, in service.SensorInput) (*models.Sensor, error)
	ListSensors(ctx context.Context, stationID string) ([]models.Sensor, error)
	GetSensor(ctx context.Context, id string) (*models.Sensor, error)
	UpdateSensor(ctx context.Context, actor authz.Actor, id string, in service.SensorInput) (*models.Sensor, error)
	DeleteSensor(ctx context.Context, actor authz.Actor, id string) error
}

// CatalogHandlers groups the /stations and /sensors endpoints.
type CatalogHandlers struct {
	svc    CatalogService
	logger *zap.Logger
}

// NewCatalogHandlers returns handler.
func NewCatalogHandlers(svc CatalogService, logger *zap.Logger) *CatalogHandlers {
	return &CatalogHandlers{svc: svc, logger: logger}
}

// CreateStation handles POST /stations.
func (h *CatalogHandlers) CreateStation(w http.ResponseWriter, r *http.Request) {
	var in service.StationInput
	if !decodeJSON(w, r, &in) {
		return
	}
	station, err := h.svc.CreateStation(r.Context(), actorFrom(r), in)
	h.write(w, http.StatusCreated, station, err)
}

// ListStations handles GET /stations.
func (h *CatalogHandlers) ListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.svc.ListStations(r.Context())
	h.write(w, http.StatusOK, stations, err)
}

// GetStation handles GET /stations/{id}.
func (h *CatalogHandlers) GetStation(w http.ResponseWriter, r *http.Request) {
	station, err := h.svc.GetStation(r.Context(), chi.URLParam(r, "id"))
	h.write(w, http.StatusOK, station, err)
}

// UpdateStation handles PATCH /stations/{id}.
func (h *CatalogHandlers) UpdateStation(w http.ResponseWriter, r *http.Request) {
	var in service.StationInput
	if !decodeJSON(w, r, &in) {
		return
	}
	station, err := h.svc.UpdateStation(r.Context(), actorFrom(r), chi.URLParam(r, "id"), in)
	h.write(w, http.StatusOK, station, err)
}

// DeleteStation handles DELETE /stations/{id}.
func (h *CatalogHandlers) DeleteStation(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteStation(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	h.write(w, http.StatusNoContent, nil, err)
}

// CreateSensor handles POST /sensors.
func (h *CatalogHandlers) CreateSensor(w http.ResponseWriter, r *http.Request) {
	var in service.SensorInput
	if !decodeJSON(w, r, &in) {
		return
	}
	sensor, err := h.svc.CreateSensor(r.Context(), actorFrom(r), in)
	h.write(w, http.StatusCreated, sensor, err)
}

// ListSensors handles GET /sensors?stationId=.
func (h *CatalogHandlers) ListSensors(w http.ResponseWriter, r *http.Request) {
	sensors, err := h.svc.ListSensors(r.Context(), r.URL.Query().Get("stationId"))
	h.write(w, http.StatusOK, sensors, err)
}

// GetSensor handles GET /sensors/{id}.
func (h *CatalogHandlers) GetSensor(w http.ResponseWriter, r *http.Request) {
	sensor, err := h.svc.GetSensor(r.Context(), chi.URLParam(r, "id"))
	h.write(w, http.StatusOK, sensor, err)
}

// UpdateSensor handles PATCH /sensors/{id}.
func (h *CatalogHandlers) UpdateSensor(w http.ResponseWriter, r *http.Request) {
	var in service.SensorInput
	if !decodeJSON(w, r, &in) {
		return
	}
	sensor, err := h.svc.UpdateSensor(r.Context(), actorFrom(r), chi.URLParam(r, "id"), in)
	h.write(w, http.StatusOK, sensor, err)
}

// DeleteSensor handles DELETE /sensors/{id}.
func (h *CatalogHandlers) DeleteSensor(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteSensor(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	h.write(w, http.StatusNoContent, nil, err)
}

func (h *CatalogHandlers) write(w http.ResponseWriter, status int, payload interface{}, err error) {
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, status, payload)
}
