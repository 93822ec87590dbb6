package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, "environments.pettingzoo_adapter.Environment/connect_four_v3", cfg.Trial.Environment)
	assert.Equal(t, 30*time.Second, cfg.Trial.TurnTime())
	assert.Equal(t, 2*time.Second, cfg.NATS.ReconnectWait())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
trial:
  turn_time_sec: 15
log:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Trial.TurnTime())
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("NATS_URL", "nats://bus:4222")
	t.Setenv("TRIAL_TURN_TIME_SEC", "5")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "nats://bus:4222", cfg.NATS.URL)
	assert.Equal(t, 5*time.Second, cfg.Trial.TurnTime())
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadInvalidEnvIntFallsBack(t *testing.T) {
	t.Setenv("TRIAL_TURN_TIME_SEC", "soon")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Trial.TurnTime())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
