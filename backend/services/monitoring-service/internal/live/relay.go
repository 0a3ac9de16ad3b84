package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"envmonitor/backend/services/monitoring-service/internal/metrics"
	"envmonitor/backend/services/monitoring-service/internal/models"
)

// DefaultRelayChannel is the Redis pub/sub channel shared by all instances.
const DefaultRelayChannel = "envmonitor:live"

// RedisRelay fans live events out to every service instance through Redis
// pub/sub. Each instance delivers what it receives into its local hub. When
// Redis is unavailable events are delivered locally only.
type RedisRelay struct {
	client         *redis.Client
	hub            *Hub
	channel        string
	logger         *zap.Logger
	queue          chan Envelope
	publishTimeout time.Duration
	running        atomic.Bool
}

// NewRedisRelay wraps hub with a Redis relay on channel.
func NewRedisRelay(client *redis.Client, hub *Hub, channel string, logger *zap.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{
		client:         client,
		hub:            hub,
		channel:        channel,
		logger:         logger.With(zap.String("relay_channel", channel)),
		queue:          make(chan Envelope, 256),
		publishTimeout: 2 * time.Second,
	}
}

// PublishReading relays new-reading.
func (r *RedisRelay) PublishReading(reading *models.Reading) {
	r.enqueue(TopicReadings, EventNewReading, reading)
}

// PublishAlert relays new-alert.
func (r *RedisRelay) PublishAlert(alert *models.Alert) {
	r.enqueue(TopicAlerts, EventNewAlert, alert)
}

// PublishStationUpdate relays station-update.
func (r *RedisRelay) PublishStationUpdate(station *models.Station) {
	r.enqueue(topicAll, EventStationUpdate, station)
}

func (r *RedisRelay) enqueue(topic Topic, event string, v interface{}) {
	env, err := newEnvelope(topic, event, v)
	if err != nil {
		r.logger.Error("failed to encode live event", zap.String("event", event), zap.Error(err))
		return
	}
	if !r.running.Load() {
		r.hub.Deliver(env)
		return
	}
	// Order holds while events go through the queue. Once it is full an
	// event is delivered locally at once, so it can reach viewers ahead of
	// earlier events still queued, e.g. a new-alert before its new-reading.
	select {
	case r.queue <- env:
	default:
		r.fallback(env, fmt.Errorf("relay queue full"))
	}
}

// Run subscribes to the relay channel and drains the publish queue until ctx
// is cancelled. A failed subscription leaves the relay in local-only mode
// and is returned.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("live relay subscribe: %w", err)
	}

	r.running.Store(true)
	defer r.running.Store(false)
	r.logger.Info("live relay started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ch := pubsub.Channel()
		for {
			select {
			case <-gctx.Done():
				return nil
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					r.logger.Warn("discarding malformed relay message", zap.Error(err))
					continue
				}
				r.hub.Deliver(env)
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				// stop queueing before draining so nothing lands behind the drain
				r.running.Store(false)
				r.drain()
				return nil
			case env := <-r.queue:
				r.publish(gctx, env)
			}
		}
	})
	return g.Wait()
}

func (r *RedisRelay) publish(ctx context.Context, env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		r.logger.Error("failed to encode relay envelope", zap.Error(err))
		return
	}
	pctx, cancel := context.WithTimeout(ctx, r.publishTimeout)
	defer cancel()
	if err := r.client.Publish(pctx, r.channel, payload).Err(); err != nil {
		r.fallback(env, err)
	}
}

// drain delivers whatever is still queued to local viewers.
func (r *RedisRelay) drain() {
	for {
		select {
		case env := <-r.queue:
			r.hub.Deliver(env)
		default:
			return
		}
	}
}

func (r *RedisRelay) fallback(env Envelope, err error) {
	metrics.LiveRelayErrors.Inc()
	r.logger.Warn("live relay publish failed, delivering locally", zap.String("event", env.Event), zap.Error(err))
	r.hub.Deliver(env)
}
