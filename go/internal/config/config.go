package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration. Values come from defaults,
// then an optional YAML file, then environment variables.
type Config struct {
	Server ServerConfig `yaml:"server"`
	NATS   NATSConfig   `yaml:"nats"`
	Trial  TrialConfig  `yaml:"trial"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type NATSConfig struct {
	URL              string `yaml:"url"`
	MaxReconnects    int    `yaml:"max_reconnects"`
	ReconnectWaitSec int    `yaml:"reconnect_wait_sec"`
}

type TrialConfig struct {
	// Environment names the implementation trials run against and the
	// registry key used to match a control set.
	Environment string `yaml:"environment"`
	TurnTimeSec int    `yaml:"turn_time_sec"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: "8080"},
		NATS: NATSConfig{
			URL:              "nats://localhost:4222",
			MaxReconnects:    -1,
			ReconnectWaitSec: 2,
		},
		Trial: TrialConfig{
			Environment: "environments.pettingzoo_adapter.Environment/connect_four_v3",
			TurnTimeSec: 30,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if path
// is non-empty), and environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.NATS.URL = getEnv("NATS_URL", cfg.NATS.URL)
	cfg.Trial.Environment = getEnv("TRIAL_ENVIRONMENT", cfg.Trial.Environment)
	cfg.Trial.TurnTimeSec = getEnvAsInt("TRIAL_TURN_TIME_SEC", cfg.Trial.TurnTimeSec)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	return cfg, nil
}

// TurnTime returns the per-turn countdown as a duration.
func (c TrialConfig) TurnTime() time.Duration {
	return time.Duration(c.TurnTimeSec) * time.Second
}

// ReconnectWait returns the NATS reconnect wait as a duration.
func (c NATSConfig) ReconnectWait() time.Duration {
	return time.Duration(c.ReconnectWaitSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
