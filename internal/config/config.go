package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the top-level configuration for gridwatch.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Rollup    RollupConfig    `koanf:"rollup"`
	MQTT      MQTTConfig      `koanf:"mqtt"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // "debug" or "release"
}

// PoolConfig sizes one database connection pool.
type PoolConfig struct {
	MaxOpenConns int `koanf:"max_open_conns"`
	MaxIdleConns int `koanf:"max_idle_conns"`
}

// DatabaseConfig holds the database connection settings. The pipeline and the
// read API each get their own pool over the same DSN, so a heavy rollup
// cannot starve read queries of connections.
type DatabaseConfig struct {
	DSN          string     `koanf:"dsn"`
	PipelinePool PoolConfig `koanf:"pipeline_pool"`
	ReadPool     PoolConfig `koanf:"read_pool"`
}

// RollupConfig holds settings for the daily rollup pipeline.
type RollupConfig struct {
	Enabled         bool   `koanf:"enabled"`
	Schedule        string `koanf:"schedule"` // five-field cron expression
	RunOnStart      bool   `koanf:"run_on_start"`
	Timezone        string `koanf:"timezone"`
	StageTimeoutSec int    `koanf:"stage_timeout_sec"`
}

// StageTimeout returns the per-stage execution bound.
func (c RollupConfig) StageTimeout() time.Duration {
	return time.Duration(c.StageTimeoutSec) * time.Second
}

// MQTTConfig holds the meter reset notification settings.
type MQTTConfig struct {
	Enabled   bool   `koanf:"enabled"`
	BrokerURL string `koanf:"broker_url"`
	ClientID  string `koanf:"client_id"`
	Topic     string `koanf:"topic"`
	Payload   string `koanf:"payload"`
}

// RateLimitConfig holds the fixed-window limiter settings for the read API.
type RateLimitConfig struct {
	Enabled   bool `koanf:"enabled"`
	Limit     int  `koanf:"limit"`
	WindowSec int  `koanf:"window_sec"`
}

// Window returns the limiter window duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSec) * time.Second
}

// Load loads the configuration from the given file path and environment
// variables. GRIDWATCH_DATABASE__DSN=... overrides database.dsn.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"server.port": 8080,
		"server.host": "0.0.0.0",
		"server.mode": "release",

		"database.dsn":                          "postgres://localhost/gridwatch?sslmode=disable",
		"database.pipeline_pool.max_open_conns": 5,
		"database.pipeline_pool.max_idle_conns": 2,
		"database.read_pool.max_open_conns":     20,
		"database.read_pool.max_idle_conns":     10,

		"rollup.enabled":           true,
		"rollup.schedule":          "0 0 * * *",
		"rollup.run_on_start":      true,
		"rollup.timezone":          "",
		"rollup.stage_timeout_sec": 120,

		"mqtt.enabled":    false,
		"mqtt.broker_url": "tcp://localhost:1883",
		"mqtt.client_id":  "gridwatch-notifier",
		"mqtt.topic":      "pzem/energy/reset",
		"mqtt.payload":    "RESET",

		"ratelimit.enabled":    true,
		"ratelimit.limit":      120,
		"ratelimit.window_sec": 60,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// 2. Load from file
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// 3. Load from Environment Variables
	if err := k.Load(env.Provider("GRIDWATCH_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "GRIDWATCH_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations that would only fail later at runtime.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.Database.PipelinePool.MaxOpenConns <= 0 || c.Database.ReadPool.MaxOpenConns <= 0 {
		return fmt.Errorf("pool max_open_conns must be positive")
	}
	if c.Rollup.Enabled {
		if _, err := cron.ParseStandard(c.Rollup.Schedule); err != nil {
			return fmt.Errorf("invalid rollup schedule %q: %w", c.Rollup.Schedule, err)
		}
		if c.Rollup.Timezone != "" {
			if _, err := time.LoadLocation(c.Rollup.Timezone); err != nil {
				return fmt.Errorf("invalid rollup timezone %q: %w", c.Rollup.Timezone, err)
			}
		}
		if c.Rollup.StageTimeoutSec <= 0 {
			return fmt.Errorf("rollup stage_timeout_sec must be positive")
		}
	}
	if c.MQTT.Enabled && c.MQTT.BrokerURL == "" {
		return fmt.Errorf("mqtt broker_url is required when mqtt is enabled")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Limit <= 0 {
			return fmt.Errorf("ratelimit limit must be positive")
		}
		if c.RateLimit.WindowSec <= 0 {
			return fmt.Errorf("ratelimit window_sec must be positive")
		}
	}
	return nil
}
