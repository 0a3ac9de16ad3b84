package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"envmonitor/backend/services/monitoring-service/internal/http/middleware"
)

// Routes aggregates handlers for HTTP server.
type Routes struct {
	Health  http.HandlerFunc
	Metrics http.Handler
	Live    http.HandlerFunc

	Login    http.HandlerFunc
	Register http.HandlerFunc

	IngestReading     http.HandlerFunc
	ListReadings      http.HandlerFunc
	LatestReadings    http.HandlerFunc
	ReadingsByStation http.HandlerFunc
	ReadingsBySensor  http.HandlerFunc
	ReadingStatistics http.HandlerFunc

	ListAlerts   http.HandlerFunc
	CountAlerts  http.HandlerFunc
	GetAlert     http.HandlerFunc
	ResolveAlert http.HandlerFunc
	DismissAlert http.HandlerFunc

	ListStations  http.HandlerFunc
	CreateStation http.HandlerFunc
	GetStation    http.HandlerFunc
	UpdateStation http.HandlerFunc
	DeleteStation http.HandlerFunc

	ListSensors  http.HandlerFunc
	CreateSensor http.HandlerFunc
	GetSensor    http.HandlerFunc
	UpdateSensor http.HandlerFunc
	DeleteSensor http.HandlerFunc
}

// Guards are the per-group middlewares.
type Guards struct {
	// Bearer authenticates operators.
	Bearer func(http.Handler) http.Handler
	// StationKey protects reading ingest.
	StationKey func(http.Handler) http.Handler
}

// NewRouter wires all HTTP routes. Nil handlers are not mounted.
func NewRouter(routes Routes, guards Guards, logger *zap.Logger) http.Handler {
	if guards.Bearer == nil {
		guards.Bearer = passthrough
	}
	if guards.StationKey == nil {
		guards.StationKey = passthrough
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	mount(r, http.MethodGet, "/health", routes.Health)
	if routes.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", routes.Metrics)
	}
	mount(r, http.MethodGet, "/ws", routes.Live)
	mount(r, http.MethodPost, "/auth/login", routes.Login)

	r.Group(func(r chi.Router) {
		r.Use(guards.StationKey)
		mount(r, http.MethodPost, "/readings", routes.IngestReading)
	})

	r.Group(func(r chi.Router) {
		r.Use(guards.Bearer)

		mount(r, http.MethodPost, "/auth/register", routes.Register)

		mount(r, http.MethodGet, "/readings", routes.ListReadings)
		mount(r, http.MethodGet, "/readings/latest", routes.LatestReadings)
		mount(r, http.MethodGet, "/readings/station/{id}", routes.ReadingsByStation)
		mount(r, http.MethodGet, "/readings/sensor/{id}", routes.ReadingsBySensor)
		mount(r, http.MethodGet, "/readings/statistics/{sensorId}", routes.ReadingStatistics)

		mount(r, http.MethodGet, "/alerts", routes.ListAlerts)
		mount(r, http.MethodGet, "/alerts/count", routes.CountAlerts)
		mount(r, http.MethodGet, "/alerts/{id}", routes.GetAlert)
		mount(r, http.MethodPatch, "/alerts/{id}/resolve", routes.ResolveAlert)
		mount(r, http.MethodPatch, "/alerts/{id}/dismiss", routes.DismissAlert)

		mount(r, http.MethodGet, "/stations", routes.ListStations)
		mount(r, http.MethodPost, "/stations", routes.CreateStation)
		mount(r, http.MethodGet, "/stations/{id}", routes.GetStation)
		mount(r, http.MethodPatch, "/stations/{id}", routes.UpdateStation)
		mount(r, http.MethodDelete, "/stations/{id}", routes.DeleteStation)

		mount(r, http.MethodGet, "/sensors", routes.ListSensors)
		mount(r, http.MethodPost, "/sensors", routes.CreateSensor)
		mount(r, http.MethodGet, "/sensors/{id}", routes.GetSensor)
		mount(r, http.MethodPatch, "/sensors/{id}", routes.UpdateSensor)
		mount(r, http.MethodDelete, "/sensors/{id}", routes.DeleteSensor)
	})

	return r
}

func mount(r chi.Router, method, pattern string, h http.HandlerFunc) {
	if h != nil {
		r.Method(method, pattern, h)
	}
}

func passthrough(next http.Handler) http.Handler {
	return next
}
