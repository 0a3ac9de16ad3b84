package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	libredis "envmonitor/backend/libs/redis"
	"envmonitor/backend/services/monitoring-service/internal/alerting"
	appconfig "envmonitor/backend/services/monitoring-service/internal/config"
	"envmonitor/backend/services/monitoring-service/internal/db"
	"envmonitor/backend/services/monitoring-service/internal/http"
	"envmonitor/backend/services/monitoring-service/internal/http/handlers"
	"envmonitor/backend/services/monitoring-service/internal/http/middleware"
	"envmonitor/backend/services/monitoring-service/internal/live"
	"envmonitor/backend/services/monitoring-service/internal/password"
	"envmonitor/backend/services/monitoring-service/internal/repository"
	"envmonitor/backend/services/monitoring-service/internal/service"
)

// App wires dependencies for the monitoring service.
type App struct {
	server *httpserver.Server
	db     *sql.DB
	redis  *goredis.Client
	hub    *live.Hub
	relay  *live.RedisRelay
	logger *zap.Logger
}

// New builds application graph.
func New(ctx context.Context, cfg *appconfig.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sqlDB, err := db.NewPostgres(cfg.Database.DSN, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	a := &App{db: sqlDB, logger: logger}

	if cfg.Database.AutoMigrate {
		if err := Migrate(ctx, sqlDB, logger); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.hub = live.NewHub(logger.Named("live"))
	var broadcaster live.Broadcaster = a.hub
	if cfg.Redis.Addr != "" {
		client, err := libredis.NewClient(ctx, libredis.Options{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			ClientName: "monitoring-service",
		})
		if err != nil {
			// Single-instance delivery still works without the relay.
			logger.Warn("redis unavailable, live events stay local", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			a.redis = client
			a.relay = live.NewRedisRelay(client, a.hub, cfg.Redis.Channel, logger.Named("relay"))
			broadcaster = a.relay
		}
	}

	stationRepo := repository.NewStationRepository(sqlDB)
	sensorRepo := repository.NewSensorRepository(sqlDB)
	readingRepo := repository.NewReadingRepository(sqlDB)
	alertRepo := repository.NewAlertRepository(sqlDB)
	userRepo := repository.NewUserRepository(sqlDB)

	sensorCache := service.NewSensorCache(sensorRepo, cfg.Ingest.SensorCacheTTL)
	evaluator := alerting.NewEvaluator(alertRepo, logger.Named("alerting"))

	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	authSvc := service.NewAuthService(userRepo, password.NewBcryptHasher(0), tokenSvc, logger)
	ingestSvc := service.NewIngestService(readingRepo, sensorCache, evaluator, broadcaster, logger)
	alertsSvc := service.NewAlertsService(alertRepo, logger)
	catalogSvc := service.NewCatalogService(stationRepo, sensorRepo, sensorCache, broadcaster, logger)

	liveServer := live.NewServer(a.hub, live.Options{
		SendBuffer:   cfg.Live.SendBuffer,
		PingInterval: cfg.Live.PingInterval,
		WriteTimeout: cfg.Live.WriteTimeout,
	}, cfg.HTTP.CORSOrigins, logger.Named("live"))

	readings := handlers.NewReadingsHandlers(ingestSvc, logger)
	alerts := handlers.NewAlertsHandlers(alertsSvc, logger)
	catalog := handlers.NewCatalogHandlers(catalogSvc, logger)

	routes := httpserver.Routes{
		Health:  handlers.NewHealthHandler(sqlDB),
		Metrics: promhttp.Handler(),
		Live:    liveServer.HandleWS,

		Login:    handlers.NewLoginHandler(authSvc, logger),
		Register: handlers.NewRegisterHandler(authSvc, logger),

		IngestReading:     readings.Ingest,
		ListReadings:      readings.List,
		LatestReadings:    readings.Latest,
		ReadingsByStation: readings.ByStation,
		ReadingsBySensor:  readings.BySensor,
		ReadingStatistics: readings.Statistics,

		ListAlerts:   alerts.List,
		CountAlerts:  alerts.Count,
		GetAlert:     alerts.Get,
		ResolveAlert: alerts.Resolve,
		DismissAlert: alerts.Dismiss,

		ListStations:  catalog.ListStations,
		CreateStation: catalog.CreateStation,
		GetStation:    catalog.GetStation,
		UpdateStation: catalog.UpdateStation,
		DeleteStation: catalog.DeleteStation,

		ListSensors:  catalog.ListSensors,
		CreateSensor: catalog.CreateSensor,
		GetSensor:    catalog.GetSensor,
		UpdateSensor: catalog.UpdateSensor,
		DeleteSensor: catalog.DeleteSensor,
	}
	guards := httpserver.Guards{
		Bearer:     middleware.AuthMiddleware(tokenSvc),
		StationKey: middleware.APIKeyMiddleware(cfg.Ingest.APIKeys),
	}

	router := httpserver.NewRouter(routes, guards, logger)
	a.server = httpserver.NewServer(cfg.HTTPAddress(), router, httpserver.Options{
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}, logger)
	a.server.RegisterOnShutdown(a.hub.Close)

	return a, nil
}

// Run starts serving HTTP traffic until context cancellation. The live relay
// runs alongside; its failure only degrades delivery to this instance.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Run(gctx)
	})
	if a.relay != nil {
		g.Go(func() error {
			if err := a.relay.Run(gctx); err != nil {
				a.logger.Error("live relay stopped", zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

// Close releases acquired resources.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}

// Migrate applies pending schema migrations.
func Migrate(ctx context.Context, sqlDB *sql.DB, logger *zap.Logger) error {
	migrator, err := db.NewMigrator(sqlDB, logger)
	if err != nil {
		return err
	}
	if err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
