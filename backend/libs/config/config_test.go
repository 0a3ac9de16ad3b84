package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	HTTP struct {
		Port string `yaml:"port"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn" env:"SAMPLE_DSN"`
	} `yaml:"database"`
	Keys    []string      `yaml:"keys" env:"SAMPLE_KEYS"`
	TTL     time.Duration `yaml:"ttl" env:"SAMPLE_TTL"`
	Debug   bool          `yaml:"debug" env:"SAMPLE_DEBUG"`
	Ignored string        `env:"-"`
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "http:\n  port: \"9000\"\ndatabase:\n  dsn: postgres://file\nkeys: [a, b]\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv(PathEnv, path)
	t.Setenv("SAMPLE_DSN", "postgres://env")
	t.Setenv("SAMPLE_TTL", "45s")
	t.Setenv("SAMPLE_DEBUG", "true")
	t.Setenv("IGNORED", "nope")

	var cfg sample
	require.NoError(t, LoadConfig(&cfg))

	assert.Equal(t, "9000", cfg.HTTP.Port)
	assert.Equal(t, "postgres://env", cfg.Database.DSN)
	assert.Equal(t, []string{"a", "b"}, cfg.Keys)
	assert.Equal(t, 45*time.Second, cfg.TTL)
	assert.True(t, cfg.Debug)
	assert.Empty(t, cfg.Ignored)
}

func TestLoadConfigDerivedKeysAndSlices(t *testing.T) {
	t.Setenv(PathEnv, "")
	t.Setenv("HTTP_PORT", "8088")
	t.Setenv("SAMPLE_KEYS", " k1 , ,k2")

	var cfg sample
	require.NoError(t, LoadConfig(&cfg))

	assert.Equal(t, "8088", cfg.HTTP.Port)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Keys)
}

func TestLoadConfigRejectsBadInput(t *testing.T) {
	assert.Error(t, LoadConfig(nil))

	var notStruct int
	assert.Error(t, LoadConfig(&notStruct))

	t.Setenv(PathEnv, "")
	t.Setenv("SAMPLE_DEBUG", "maybe")
	var cfg sample
	assert.Error(t, LoadConfig(&cfg))
}
