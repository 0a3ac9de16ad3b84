package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"envmonitor/backend/services/monitoring-service/internal/authz"
	"envmonitor/backend/services/monitoring-service/internal/models"
	"envmonitor/backend/services/monitoring-service/internal/service"
)

type stubValidator map[string]*service.Claims

func (s stubValidator) ValidateToken(token string) (*service.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("bad token")
}

func actorEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := authz.ActorFrom(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(actor.UserID + ":" + string(actor.Role)))
	})
}

func TestAuthMiddleware(t *testing.T) {
	h := AuthMiddleware(stubValidator{"good": {UserID: "u1", Role: models.RoleManager}})(actorEcho())

	cases := []struct {
		header string
		status int
		body   string
	}{
		{header: "", status: http.StatusUnauthorized},
		{header: "Basic abc", status: http.StatusUnauthorized},
		{header: "Bearer nope", status: http.StatusUnauthorized},
		{header: "bearer good", status: http.StatusOK, body: "u1:MANAGER"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/alerts", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, tc.header)
		if tc.body != "" {
			assert.Equal(t, tc.body, rec.Body.String())
		}
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) })

	open := APIKeyMiddleware(nil)(ok)
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/readings", nil))
	assert.Equal(t, http.StatusCreated, rec.Code, "no keys configured")

	guarded := APIKeyMiddleware([]string{"k1", " "})(ok)
	for key, status := range map[string]int{"": http.StatusUnauthorized, "k2": http.StatusUnauthorized, "k1": http.StatusCreated} {
		req := httptest.NewRequest(http.MethodPost, "/readings", nil)
		if key != "" {
			req.Header.Set(APIKeyHeader, key)
		}
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		assert.Equal(t, status, rec.Code, key)
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	h := RequestLogger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
}
