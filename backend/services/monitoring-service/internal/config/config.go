package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "envmonitor/backend/libs/config"
)

// Config represents service configuration loaded from YAML/env.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Live     LiveConfig     `yaml:"live"`
}

type HTTPConfig struct {
	Port         string        `yaml:"port" env:"MONITORING_HTTP_PORT"`
	ReadTimeout  time.Duration `yaml:"readTimeout" env:"MONITORING_HTTP_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"writeTimeout" env:"MONITORING_HTTP_WRITE_TIMEOUT"`
	// CORSOrigins restricts WebSocket origins; empty allows all.
	CORSOrigins []string `yaml:"corsOrigins" env:"MONITORING_CORS_ORIGINS"`
}

type DatabaseConfig struct {
	DSN          string `yaml:"dsn" env:"MONITORING_POSTGRES_DSN"`
	MaxOpenConns int    `yaml:"maxOpenConns" env:"MONITORING_POSTGRES_MAX_OPEN_CONNS"`
	AutoMigrate  bool   `yaml:"autoMigrate" env:"MONITORING_AUTO_MIGRATE"`
}

// RedisConfig enables the cross-instance live relay when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"MONITORING_REDIS_ADDR"`
	Password string `yaml:"password" env:"MONITORING_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"MONITORING_REDIS_DB"`
	Channel  string `yaml:"channel" env:"MONITORING_REDIS_CHANNEL"`
}

type JWTConfig struct {
	Secret    string        `yaml:"secret" env:"MONITORING_JWT_SECRET"`
	ExpiresIn time.Duration `yaml:"expiresIn" env:"MONITORING_JWT_EXPIRES_IN"`
}

type IngestConfig struct {
	// APIKeys are the shared station keys; empty disables the check.
	APIKeys        []string      `yaml:"apiKeys" env:"MONITORING_INGEST_API_KEYS"`
	SensorCacheTTL time.Duration `yaml:"sensorCacheTTL" env:"MONITORING_SENSOR_CACHE_TTL"`
}

type LiveConfig struct {
	PingInterval time.Duration `yaml:"pingInterval" env:"MONITORING_LIVE_PING_INTERVAL"`
	WriteTimeout time.Duration `yaml:"writeTimeout" env:"MONITORING_LIVE_WRITE_TIMEOUT"`
	SendBuffer   int           `yaml:"sendBuffer" env:"MONITORING_LIVE_SEND_BUFFER"`
}

func defaults() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:         "3001",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{MaxOpenConns: 25},
		Redis:    RedisConfig{Channel: "envmonitor:live"},
		JWT:      JWTConfig{ExpiresIn: 24 * time.Hour},
		Ingest:   IngestConfig{SensorCacheTTL: 30 * time.Second},
		Live: LiveConfig{
			PingInterval: 30 * time.Second,
			WriteTimeout: 10 * time.Second,
			SendBuffer:   64,
		},
	}
}

// Load reads configuration using the shared config loader. Only the
// database DSN is mandatory here; Validate checks what serving needs.
func Load() (*Config, error) {
	cfg := defaults()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if cfg.Database.DSN == "" {
		return nil, errors.New("config: database DSN is required")
	}
	if cfg.JWT.ExpiresIn <= 0 {
		cfg.JWT.ExpiresIn = 24 * time.Hour
	}
	if cfg.Live.SendBuffer <= 0 {
		cfg.Live.SendBuffer = 64
	}
	return cfg, nil
}

// Validate checks settings required to serve traffic.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("config: jwt secret is required")
	}
	return nil
}

// HTTPAddress ensures we always return host:port formatted string.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "3001"
	}
	if strings.Contains(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
