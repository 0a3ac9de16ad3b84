package live

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"envmonitor/backend/services/monitoring-service/internal/metrics"
	"envmonitor/backend/services/monitoring-service/internal/models"
)

// Broadcaster pushes entities to live viewers. Implementations never block
// on network I/O and never report delivery failures to the caller.
type Broadcaster interface {
	PublishReading(reading *models.Reading)
	PublishAlert(alert *models.Alert)
	PublishStationUpdate(station *models.Station)
}

// Options tune viewer connections.
type Options struct {
	SendBuffer   int
	PingInterval time.Duration
	WriteTimeout time.Duration
	ReadLimit    int64
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 4096
	}
	return o
}

// Hub is the registry of viewer connections keyed by topic.
type Hub struct {
	mu     sync.RWMutex
	conns  map[*Connection]struct{}
	topics map[Topic]map[*Connection]struct{}
	closed bool
	logger *zap.Logger
}

// NewHub creates an empty registry.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		conns: make(map[*Connection]struct{}),
		topics: map[Topic]map[*Connection]struct{}{
			TopicReadings: {},
			TopicAlerts:   {},
		},
		logger: logger,
	}
}

// Add registers a connection. It returns false once the hub is closed.
func (h *Hub) Add(c *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[c] = struct{}{}
	metrics.LiveConnections.Inc()
	return true
}

// Remove drops a connection and all its subscriptions.
func (h *Hub) Remove(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	for _, subs := range h.topics {
		delete(subs, c)
	}
	metrics.LiveConnections.Dec()
}

// Subscribe adds c to topic.
func (h *Hub) Subscribe(c *Connection, topic Topic) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[topic]
	if !ok {
		return
	}
	if _, ok := h.conns[c]; !ok {
		return
	}
	subs[c] = struct{}{}
	h.logger.Debug("live subscription", zap.String("connection_id", c.ID()), zap.String("topic", string(topic)))
}

// Unsubscribe removes c from topic.
func (h *Hub) Unsubscribe(c *Connection, topic Topic) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.topics[topic]; ok {
		delete(subs, c)
	}
}

// Count returns the number of connected viewers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Subscribers returns the number of viewers subscribed to topic.
func (h *Hub) Subscribers(topic Topic) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// PublishReading sends new-reading to readings subscribers.
func (h *Hub) PublishReading(reading *models.Reading) {
	h.publish(TopicReadings, EventNewReading, reading)
}

// PublishAlert sends new-alert to alerts subscribers.
func (h *Hub) PublishAlert(alert *models.Alert) {
	h.publish(TopicAlerts, EventNewAlert, alert)
}

// PublishStationUpdate sends station-update to every connection.
func (h *Hub) PublishStationUpdate(station *models.Station) {
	h.publish(topicAll, EventStationUpdate, station)
}

func (h *Hub) publish(topic Topic, event string, v interface{}) {
	env, err := newEnvelope(topic, event, v)
	if err != nil {
		h.logger.Error("failed to encode live event", zap.String("event", event), zap.Error(err))
		return
	}
	h.Deliver(env)
}

// Deliver writes env to the local connections it addresses and returns how
// many accepted it.
func (h *Hub) Deliver(env Envelope) int {
	frame, err := env.frame()
	if err != nil {
		h.logger.Error("failed to encode live frame", zap.String("event", env.Event), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	targets := h.conns
	if env.Topic != topicAll {
		targets = h.topics[env.Topic]
	}
	recipients := make([]*Connection, 0, len(targets))
	for c := range targets {
		recipients = append(recipients, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range recipients {
		if c.Send(env.Event, frame) {
			delivered++
		}
	}
	return delivered
}

// Close disconnects every viewer and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*Connection, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	h.logger.Info("live hub closed", zap.Int("connections", len(conns)))
}
