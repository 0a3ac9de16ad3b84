package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"envmonitor/backend/services/station-gateway/internal/mqtt"
)

func TestReadingsClientForward(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/readings", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get(APIKeyHeader))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewReadingsClient(srv.URL+"/", "secret", 0, zap.NewNop())
	err := client.Forward(context.Background(), mqtt.Reading{StationID: "station-1", SensorID: "ph-1", Value: 9})
	require.NoError(t, err)

	assert.Equal(t, "station-1", got["stationId"])
	assert.Equal(t, "ph-1", got["sensorId"])
	assert.Equal(t, 9.0, got["value"])
	assert.NotContains(t, got, "timestamp")
}

func TestReadingsClientRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"sensor not found"}`))
	}))
	defer srv.Close()

	client := NewReadingsClient(srv.URL, "", 0, zap.NewNop())
	err := client.Forward(context.Background(), mqtt.Reading{StationID: "s", SensorID: "x", Value: 1})
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "sensor not found")
}

func TestReadingsClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewReadingsClient(url, "", 0, zap.NewNop())
	err := client.Forward(context.Background(), mqtt.Reading{StationID: "s", SensorID: "x", Value: 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
}
