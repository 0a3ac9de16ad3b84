package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	libconfig "envmonitor/backend/libs/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(libconfig.PathEnv, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":3002", cfg.HTTPAddress())
	assert.Equal(t, "stations", cfg.MQTT.TopicPrefix)
	assert.Equal(t, 1, cfg.MQTT.QoS)
	assert.Equal(t, 5*time.Second, cfg.Monitoring.Timeout)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(libconfig.PathEnv, "")
	t.Setenv("GATEWAY_MQTT_BROKER", "tcp://mosquitto:1883")
	t.Setenv("GATEWAY_MQTT_QOS", "0")
	t.Setenv("GATEWAY_MONITORING_API_KEY", "k1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tcp://mosquitto:1883", cfg.MQTT.Broker)
	assert.Equal(t, 0, cfg.MQTT.QoS)
	assert.Equal(t, "k1", cfg.Monitoring.APIKey)
}

func TestLoadRejectsBadQoS(t *testing.T) {
	t.Setenv(libconfig.PathEnv, "")
	t.Setenv("GATEWAY_MQTT_QOS", "3")
	_, err := Load()
	assert.Error(t, err)
}
