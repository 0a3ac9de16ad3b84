package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"envmonitor/backend/services/station-gateway/internal/metrics"
)

// Forwarder delivers a decoded reading downstream.
type Forwarder interface {
	Forward(ctx context.Context, reading Reading) error
}

// Options configure the broker connection.
type Options struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	TopicPrefix    string
	QoS            byte
	ConnectTimeout time.Duration
	ForwardTimeout time.Duration
}

// Subscriber listens on the station reading topics and hands every valid
// message to a Forwarder.
type Subscriber struct {
	opts      Options
	forwarder Forwarder
	logger    *zap.Logger
	newClient func(*paho.ClientOptions) paho.Client
	connected atomic.Bool
}

// NewSubscriber builds a Subscriber.
func NewSubscriber(opts Options, forwarder Forwarder, logger *zap.Logger) *Subscriber {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 30 * time.Second
	}
	if opts.ForwardTimeout <= 0 {
		opts.ForwardTimeout = 5 * time.Second
	}
	if opts.QoS > 2 {
		opts.QoS = 1
	}
	return &Subscriber{
		opts:      opts,
		forwarder: forwarder,
		logger:    logger,
		newClient: paho.NewClient,
	}
}

// Run connects and forwards messages until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	if s.opts.Broker == "" {
		return errors.New("mqtt: broker is required")
	}

	topic := SubscriptionTopic(s.opts.TopicPrefix)
	handler := func(_ paho.Client, msg paho.Message) {
		s.handle(ctx, msg.Topic(), msg.Payload())
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(s.opts.Broker)
	opts.SetClientID(s.opts.ClientID)
	opts.SetUsername(s.opts.Username)
	opts.SetPassword(s.opts.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(func(c paho.Client) {
		s.setConnected(true)
		// Clean sessions drop subscriptions, so subscribe on every connect.
		token := c.Subscribe(topic, s.opts.QoS, handler)
		if !token.WaitTimeout(s.opts.ConnectTimeout) {
			s.logger.Error("mqtt subscribe timed out", zap.String("topic", topic))
			return
		}
		if err := token.Error(); err != nil {
			s.logger.Error("mqtt subscribe failed", zap.String("topic", topic), zap.Error(err))
			return
		}
		s.logger.Info("mqtt subscribed", zap.String("broker", s.opts.Broker), zap.String("topic", topic))
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		s.setConnected(false)
		s.logger.Warn("mqtt connection lost", zap.String("broker", s.opts.Broker), zap.Error(err))
	})

	client := s.newClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(s.opts.ConnectTimeout) {
		client.Disconnect(0)
		return fmt.Errorf("mqtt: connect to %s: timeout", s.opts.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: connect to %s: %w", s.opts.Broker, err)
	}

	<-ctx.Done()
	client.Disconnect(250)
	s.setConnected(false)
	s.logger.Info("mqtt subscriber stopped")
	return nil
}

// Connected reports whether the broker connection is up.
func (s *Subscriber) Connected() bool {
	return s.connected.Load()
}

func (s *Subscriber) setConnected(up bool) {
	s.connected.Store(up)
	if up {
		metrics.BrokerConnected.Set(1)
	} else {
		metrics.BrokerConnected.Set(0)
	}
}

func (s *Subscriber) handle(ctx context.Context, topic string, raw []byte) {
	reading, err := Decode(s.opts.TopicPrefix, topic, raw)
	if err != nil {
		metrics.MessagesReceived.WithLabelValues("invalid").Inc()
		s.logger.Warn("discarding mqtt message", zap.String("topic", topic), zap.Error(err))
		return
	}
	metrics.MessagesReceived.WithLabelValues("ok").Inc()

	fctx, cancel := context.WithTimeout(ctx, s.opts.ForwardTimeout)
	defer cancel()
	if err := s.forwarder.Forward(fctx, reading); err != nil {
		s.logger.Warn("reading not forwarded",
			zap.String("station_id", reading.StationID),
			zap.String("sensor_id", reading.SensorID),
			zap.Error(err),
		)
	}
}
