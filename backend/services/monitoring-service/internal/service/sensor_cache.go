package service

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"envmonitor/backend/services/monitoring-service/internal/metrics"
	"envmonitor/backend/services/monitoring-service/internal/models"
)

// SensorSource loads sensors by id.
type SensorSource interface {
	Get(ctx context.Context, id string) (*models.Sensor, error)
}

// SensorCache keeps recently used sensors in memory for the ingest path.
// Entries are copies; callers may modify what they get back.
type SensorCache struct {
	source SensorSource
	items  *cache.Cache
}

// NewSensorCache caches sensors from source for ttl. A non-positive ttl
// disables caching.
func NewSensorCache(source SensorSource, ttl time.Duration) *SensorCache {
	c := &SensorCache{source: source}
	if ttl > 0 {
		c.items = cache.New(ttl, 2*ttl)
	}
	return c
}

// Get returns the sensor from cache or source.
func (c *SensorCache) Get(ctx context.Context, id string) (*models.Sensor, error) {
	if c.items != nil {
		if v, ok := c.items.Get(id); ok {
			metrics.SensorCacheLookups.WithLabelValues("hit").Inc()
			sensor := v.(models.Sensor)
			return &sensor, nil
		}
	}
	metrics.SensorCacheLookups.WithLabelValues("miss").Inc()

	sensor, err := c.source.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.items != nil {
		c.items.SetDefault(id, *sensor)
	}
	return sensor, nil
}

// Invalidate drops one sensor.
func (c *SensorCache) Invalidate(id string) {
	if c.items != nil {
		c.items.Delete(id)
	}
}

// Flush drops every entry.
func (c *SensorCache) Flush() {
	if c.items != nil {
		c.items.Flush()
	}
}
