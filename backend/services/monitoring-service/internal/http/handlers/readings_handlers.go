package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"envmonitor/backend/services/monitoring-service/internal/models"
	"envmonitor/backend/services/monitoring-service/internal/service"
)

// ReadingsService is the reading surface used by the handlers.
type ReadingsService interface {
	Ingest(ctx context.Context, in service.ReadingInput) (*models.Reading, error)
	Latest(ctx context.Context) ([]models.Reading, error)
	List(ctx context.Context) ([]models.Reading, error)
	ByStation(ctx context.Context, stationID string, limit int) ([]models.Reading, error)
	BySensor(ctx context.Context, sensorID string, limit int) ([]models.Reading, error)
	Statistics(ctx context.Context, sensorID string, from, to time.Time) (*models.ReadingStatistics, error)
}

// ReadingsHandlers groups the /readings endpoints.
type ReadingsHandlers struct {
	svc    ReadingsService
	logger *zap.Logger
}

// NewReadingsHandlers builds ReadingsHandlers.
func NewReadingsHandlers(svc ReadingsService, logger *zap.Logger) *ReadingsHandlers {
	return &ReadingsHandlers{svc: svc, logger: logger}
}

// Ingest handles POST /readings.
func (h *ReadingsHandlers) Ingest(w http.ResponseWriter, r *http.Request) {
	var in service.ReadingInput
	if !decodeJSON(w, r, &in) {
		return
	}
	reading, err := h.svc.Ingest(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reading)
}

// List handles GET /readings.
func (h *ReadingsHandlers) List(w http.ResponseWriter, r *http.Request) {
	h.respond(w)(h.svc.List(r.Context()))
}

// Latest handles GET /readings/latest.
func (h *ReadingsHandlers) Latest(w http.ResponseWriter, r *http.Request) {
	h.respond(w)(h.svc.Latest(r.Context()))
}

// ByStation handles GET /readings/station/{id}.
func (h *ReadingsHandlers) ByStation(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	h.respond(w)(h.svc.ByStation(r.Context(), chi.URLParam(r, "id"), limit))
}

// BySensor handles GET /readings/sensor/{id}.
func (h *ReadingsHandlers) BySensor(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	h.respond(w)(h.svc.BySensor(r.Context(), chi.URLParam(r, "id"), limit))
}

// Statistics handles GET /readings/statistics/{sensorId}.
func (h *ReadingsHandlers) Statistics(w http.ResponseWriter, r *http.Request) {
	from, err := parseTime(r.URL.Query().Get("startDate"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	to, err := parseTime(r.URL.Query().Get("endDate"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	stats, err := h.svc.Statistics(r.Context(), chi.URLParam(r, "sensorId"), from, to)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *ReadingsHandlers) respond(w http.ResponseWriter) func([]models.Reading, error) {
	return func(readings []models.Reading, err error) {
		if err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, readings)
	}
}
