package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"envmonitor/backend/services/monitoring-service/internal/authz"
	"envmonitor/backend/services/monitoring-service/internal/models"
)

// AlertsService is the alert surface used by the handlers.
type AlertsService interface {
	List(ctx context.Context, status string) ([]models.Alert, error)
	Get(ctx context.Context, id string) (*models.Alert, error)
	CountActive(ctx context.Context) (int64, error)
	Resolve(ctx context.Context, id string, actor authz.Actor) (*models.Alert, error)
	Dismiss(ctx context.Context, id string, actor authz.Actor) (*models.Alert, error)
}

// AlertsHandlers groups the /alerts endpoints.
type AlertsHandlers struct {
	svc    AlertsService
	logger *zap.Logger
}

// NewAlertsHandlers returns handler.
func NewAlertsHandlers(svc AlertsService, logger *zap.Logger) *AlertsHandlers {
	return &AlertsHandlers{svc: svc, logger: logger}
}

// List handles GET /alerts?status=.
func (h *AlertsHandlers) List(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.svc.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// Count handles GET /alerts/count.
func (h *AlertsHandlers) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.CountActive(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// Get handles GET /alerts/{id}.
func (h *AlertsHandlers) Get(w http.ResponseWriter, r *http.Request) {
	alert, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// Resolve handles PATCH /alerts/{id}/resolve.
func (h *AlertsHandlers) Resolve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Resolve)
}

// Dismiss handles PATCH /alerts/{id}/dismiss.
func (h *AlertsHandlers) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Dismiss)
}

func (h *AlertsHandlers) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, string, authz.Actor) (*models.Alert, error)) {
	alert, err := apply(r.Context(), chi.URLParam(r, "id"), actorFrom(r))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}
