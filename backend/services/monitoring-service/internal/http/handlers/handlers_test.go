package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"envmonitor/backend/services/monitoring-service/internal/authz"
	"envmonitor/backend/services/monitoring-service/internal/models"
	"envmonitor/backend/services/monitoring-service/internal/repository"
	"envmonitor/backend/services/monitoring-service/internal/service"
)

type stubReadings struct {
	ingested []service.ReadingInput
	err      error
	from, to time.Time
	limit    int
}

func (s *stubReadings) Ingest(_ context.Context, in service.ReadingInput) (*models.Reading, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.ingested = append(s.ingested, in)
	return &models.Reading{ID: "r1", SensorID: in.SensorID, StationID: in.StationID, Value: *in.Value}, nil
}

func (s *stubReadings) Latest(context.Context) ([]models.Reading, error) {
	return []models.Reading{{ID: "latest"}}, nil
}

func (s *stubReadings) List(context.Context) ([]models.Reading, error) {
	return []models.Reading{}, nil
}

func (s *stubReadings) ByStation(_ context.Context, _ string, limit int) ([]models.Reading, error) {
	s.limit = limit
	return []models.Reading{}, nil
}

func (s *stubReadings) BySensor(_ context.Context, _ string, limit int) ([]models.Reading, error) {
	s.limit = limit
	return []models.Reading{}, nil
}

func (s *stubReadings) Statistics(_ context.Context, sensorID string, from, to time.Time) (*models.ReadingStatistics, error) {
	s.from, s.to = from, to
	return &models.ReadingStatistics{SensorID: sensorID, Count: 3}, nil
}

type stubAlerts struct {
	err error
}

func (s *stubAlerts) List(_ context.Context, status string) ([]models.Alert, error) {
	if status == "bogus" {
		return nil, fmt.Errorf("%w: unknown alert status", service.ErrValidation)
	}
	return []models.Alert{{ID: "a1", Status: models.AlertActive}}, nil
}

func (s *stubAlerts) Get(_ context.Context, id string) (*models.Alert, error) {
	if id != "a1" {
		return nil, repository.ErrAlertNotFound
	}
	return &models.Alert{ID: id}, nil
}

func (s *stubAlerts) CountActive(context.Context) (int64, error) { return 4, nil }

func (s *stubAlerts) Resolve(_ context.Context, id string, actor authz.Actor) (*models.Alert, error) {
	if s.err != nil {
		return nil, s.err
	}
	if !actor.Can(authz.ActionResolveAlert) {
		return nil, service.ErrForbidden
	}
	return &models.Alert{ID: id, Status: models.AlertResolved, UserID: &actor.UserID}, nil
}

func (s *stubAlerts) Dismiss(_ context.Context, id string, actor authz.Actor) (*models.Alert, error) {
	return &models.Alert{ID: id, Status: models.AlertDismissed}, s.err
}

type stubAuth struct{}

func (stubAuth) Login(_ context.Context, email, password string) (string, *models.User, error) {
	if password != "admin123" {
		return "", nil, service.ErrInvalidCredentials
	}
	return "jwt", &models.User{ID: "u1", Email: email, Role: models.RoleAdmin, PasswordHash: "secret-hash"}, nil
}

func (stubAuth) Register(_ context.Context, actor authz.Actor, in service.NewUser) (*models.User, error) {
	if !actor.Can(authz.ActionManageUsers) {
		return nil, service.ErrForbidden
	}
	return &models.User{ID: "u2", Email: in.Email, Role: in.Role}, nil
}

func withActor(actor authz.Actor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(authz.WithActor(r.Context(), actor)))
		})
	}
}

func newTestRouter(readings *stubReadings, alerts *stubAlerts, actor authz.Actor) http.Handler {
	logger := zap.NewNop()
	rh := NewReadingsHandlers(readings, logger)
	ah := NewAlertsHandlers(alerts, logger)

	r := chi.NewRouter()
	r.Use(withActor(actor))
	r.Post("/readings", rh.Ingest)
	r.Get("/readings/latest", rh.Latest)
	r.Get("/readings/station/{id}", rh.ByStation)
	r.Get("/readings/statistics/{sensorId}", rh.Statistics)
	r.Get("/alerts", ah.List)
	r.Get("/alerts/count", ah.Count)
	r.Get("/alerts/{id}", ah.Get)
	r.Patch("/alerts/{id}/resolve", ah.Resolve)
	r.Post("/auth/login", NewLoginHandler(stubAuth{}, logger))
	r.Post("/auth/register", NewRegisterHandler(stubAuth{}, logger))
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

var technician = authz.Actor{UserID: "u-tech", Role: models.RoleTechnician}

func TestIngestReadingHandler(t *testing.T) {
	readings := &stubReadings{}
	h := newTestRouter(readings, &stubAlerts{}, authz.Actor{})

	rec := do(t, h, http.MethodPost, "/readings", `{"stationId":"station-1","sensorId":"s1","value":7.2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var reading models.Reading
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reading))
	assert.Equal(t, 7.2, reading.Value)

	rec = do(t, h, http.MethodPost, "/readings", `{"stationId":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	readings.err = fmt.Errorf("%w: value is required", service.ErrValidation)
	rec = do(t, h, http.MethodPost, "/readings", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorBody(t, rec), "value is required")

	readings.err = repository.ErrSensorNotFound
	rec = do(t, h, http.MethodPost, "/readings", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	readings.err = errors.New("pq: connection refused")
	rec = do(t, h, http.MethodPost, "/readings", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", errorBody(t, rec))
}

func TestReadingQueryParams(t *testing.T) {
	readings := &stubReadings{}
	h := newTestRouter(readings, &stubAlerts{}, technician)

	rec := do(t, h, http.MethodGet, "/readings/station/station-1?limit=5", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, readings.limit)

	rec = do(t, h, http.MethodGet, "/readings/station/station-1?limit=-2", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/readings/statistics/s1?startDate=2024-01-01&endDate=2024-01-31T23:59:59Z", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), readings.from)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), readings.to)

	rec = do(t, h, http.MethodGet, "/readings/statistics/s1?startDate=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/readings/latest", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "latest")
}

func TestAlertHandlers(t *testing.T) {
	alerts := &stubAlerts{}
	h := newTestRouter(&stubReadings{}, alerts, technician)

	rec := do(t, h, http.MethodGet, "/alerts/count", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":4}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/alerts?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/alerts/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPatch, "/alerts/a1/resolve", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var alert models.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alert))
	assert.Equal(t, models.AlertResolved, alert.Status)
	require.NotNil(t, alert.UserID)
	assert.Equal(t, "u-tech", *alert.UserID)

	alerts.err = fmt.Errorf("%w: alert a1 is already DISMISSED", service.ErrConflict)
	rec = do(t, h, http.MethodPatch, "/alerts/a1/resolve", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestResolveAllowedForEverySignedInRole(t *testing.T) {
	for _, role := range []models.Role{models.RoleAdmin, models.RoleManager, models.RoleResearcher, models.RoleTechnician} {
		h := newTestRouter(&stubReadings{}, &stubAlerts{}, authz.Actor{UserID: "u-" + string(role), Role: role})
		rec := do(t, h, http.MethodPatch, "/alerts/a1/resolve", "")
		assert.Equal(t, http.StatusOK, rec.Code, role)
	}

	h := newTestRouter(&stubReadings{}, &stubAlerts{}, authz.Actor{UserID: "u-g", Role: "GUEST"})
	rec := do(t, h, http.MethodPatch, "/alerts/a1/resolve", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginHandler(t *testing.T) {
	h := newTestRouter(&stubReadings{}, &stubAlerts{}, authz.Actor{})

	rec := do(t, h, http.MethodPost, "/auth/login", `{"email":"admin@example.org","password":"admin123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "jwt", body["access_token"])
	assert.Equal(t, "Bearer", body["token_type"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "u1", user["id"])
	assert.NotContains(t, rec.Body.String(), "secret-hash")

	rec = do(t, h, http.MethodPost, "/auth/login", `{"email":"admin@example.org","password":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/auth/login", `{"email":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterHandler(t *testing.T) {
	body := `{"email":"t@example.org","password":"secret1","name":"T","role":"TECHNICIAN"}`

	h := newTestRouter(&stubReadings{}, &stubAlerts{}, authz.Actor{UserID: "a", Role: models.RoleAdmin})
	rec := do(t, h, http.MethodPost, "/auth/register", body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	h = newTestRouter(&stubReadings{}, &stubAlerts{}, technician)
	rec = do(t, h, http.MethodPost, "/auth/register", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
