package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"envmonitor/backend/services/station-gateway/internal/clients"
	appconfig "envmonitor/backend/services/station-gateway/internal/config"
	"envmonitor/backend/services/station-gateway/internal/http"
	"envmonitor/backend/services/station-gateway/internal/mqtt"
)

const shutdownTimeout = 10 * time.Second

// App wires the MQTT subscriber to the monitoring service client.
type App struct {
	subscriber *mqtt.Subscriber
	server     *http.Server
	logger     *zap.Logger
}

// New builds application graph.
func New(cfg *appconfig.Config, logger *zap.Logger) *App {
	client := clients.NewReadingsClient(cfg.Monitoring.BaseURL, cfg.Monitoring.APIKey, cfg.Monitoring.Timeout, logger)

	clientID := cfg.MQTT.ClientID
	if clientID == "" {
		clientID = "station-gateway-" + uuid.NewString()[:8]
	}
	subscriber := mqtt.NewSubscriber(mqtt.Options{
		Broker:         cfg.MQTT.Broker,
		ClientID:       clientID,
		Username:       cfg.MQTT.Username,
		Password:       cfg.MQTT.Password,
		TopicPrefix:    cfg.MQTT.TopicPrefix,
		QoS:            byte(cfg.MQTT.QoS),
		ConnectTimeout: cfg.MQTT.ConnectTimeout,
		ForwardTimeout: cfg.Monitoring.Timeout,
	}, client, logger.Named("mqtt"))

	return &App{
		subscriber: subscriber,
		server: &http.Server{
			Addr:              cfg.HTTPAddress(),
			Handler:           httpserver.NewRouter(subscriber),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Run forwards readings and serves /health and /metrics until ctx is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.subscriber.Run(gctx)
	})
	g.Go(func() error {
		a.logger.Info("gateway http server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
