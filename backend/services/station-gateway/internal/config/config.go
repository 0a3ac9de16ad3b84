package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "envmonitor/backend/libs/config"
)

// Config represents gateway configuration loaded from YAML/env.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"GATEWAY_HTTP_PORT"`
	} `yaml:"http"`
	MQTT struct {
		Broker         string        `yaml:"broker" env:"GATEWAY_MQTT_BROKER"`
		ClientID       string        `yaml:"clientId" env:"GATEWAY_MQTT_CLIENT_ID"`
		Username       string        `yaml:"username" env:"GATEWAY_MQTT_USERNAME"`
		Password       string        `yaml:"password" env:"GATEWAY_MQTT_PASSWORD"`
		TopicPrefix    string        `yaml:"topicPrefix" env:"GATEWAY_MQTT_TOPIC_PREFIX"`
		QoS            int           `yaml:"qos" env:"GATEWAY_MQTT_QOS"`
		ConnectTimeout time.Duration `yaml:"connectTimeout" env:"GATEWAY_MQTT_CONNECT_TIMEOUT"`
	} `yaml:"mqtt"`
	Monitoring struct {
		BaseURL string        `yaml:"baseURL" env:"GATEWAY_MONITORING_URL"`
		APIKey  string        `yaml:"apiKey" env:"GATEWAY_MONITORING_API_KEY"`
		Timeout time.Duration `yaml:"timeout" env:"GATEWAY_MONITORING_TIMEOUT"`
	} `yaml:"monitoring"`
}

// Load reads configuration using the shared config loader.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "3002"
	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.TopicPrefix = "stations"
	cfg.MQTT.QoS = 1
	cfg.MQTT.ConnectTimeout = 30 * time.Second
	cfg.Monitoring.BaseURL = "http://localhost:3001"
	cfg.Monitoring.Timeout = 5 * time.Second

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.MQTT.Broker) == "" {
		return nil, errors.New("config: mqtt broker is required")
	}
	if strings.TrimSpace(cfg.Monitoring.BaseURL) == "" {
		return nil, errors.New("config: monitoring base URL is required")
	}
	if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
		return nil, fmt.Errorf("config: mqtt qos must be 0, 1 or 2, got %d", cfg.MQTT.QoS)
	}
	return cfg, nil
}

// HTTPAddress ensures we always return host:port formatted string.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "3002"
	}
	if strings.Contains(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
