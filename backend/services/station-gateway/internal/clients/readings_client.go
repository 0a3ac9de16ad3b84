package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"envmonitor/backend/services/station-gateway/internal/metrics"
	"envmonitor/backend/services/station-gateway/internal/mqtt"
)

// APIKeyHeader carries the shared station key.
const APIKeyHeader = "X-API-Key"

// ErrRejected is returned for non-2xx answers from the monitoring service.
var ErrRejected = errors.New("reading rejected")

// ReadingsClient posts station readings to the monitoring service.
type ReadingsClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewReadingsClient returns client wrapper.
func NewReadingsClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *ReadingsClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ReadingsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Forward sends one reading to POST /readings. Failures are counted and
// returned; nothing is retried.
func (c *ReadingsClient) Forward(ctx context.Context, reading mqtt.Reading) error {
	start := time.Now()
	err := c.post(ctx, reading)
	metrics.ForwardDuration.Observe(time.Since(start).Seconds())

	result := "ok"
	switch {
	case errors.Is(err, ErrRejected):
		result = "rejected"
	case err != nil:
		result = "error"
	}
	metrics.ReadingsForwarded.WithLabelValues(result).Inc()
	return err
}

func (c *ReadingsClient) post(ctx context.Context, reading mqtt.Reading) error {
	data, err := json.Marshal(reading)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/readings", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post reading: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Debug("reading forwarded",
		zap.String("station_id", reading.StationID),
		zap.String("sensor_id", reading.SensorID),
	)
	return nil
}
