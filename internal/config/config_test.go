package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "release", cfg.Server.Mode)
	require.Equal(t, "0 0 * * *", cfg.Rollup.Schedule)
	require.True(t, cfg.Rollup.Enabled)
	require.True(t, cfg.Rollup.RunOnStart)
	require.Equal(t, "pzem/energy/reset", cfg.MQTT.Topic)
	require.Equal(t, "RESET", cfg.MQTT.Payload)
	require.Equal(t, 20, cfg.Database.ReadPool.MaxOpenConns)
	require.Equal(t, 5, cfg.Database.PipelinePool.MaxOpenConns)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gridwatch.yaml")
	content := `
server:
  port: 9090
rollup:
  schedule: "30 1 * * *"
  timezone: "Asia/Taipei"
ratelimit:
  limit: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "30 1 * * *", cfg.Rollup.Schedule)
	require.Equal(t, "Asia/Taipei", cfg.Rollup.Timezone)
	require.Equal(t, 10, cfg.RateLimit.Limit)

	// Untouched keys keep their defaults.
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("GRIDWATCH_SERVER__PORT", "7070")
	t.Setenv("GRIDWATCH_DATABASE__DSN", "postgres://db.internal/gridwatch")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "postgres://db.internal/gridwatch", cfg.Database.DSN)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/gridwatch.yaml")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
		{"zero pool", func(c *Config) { c.Database.ReadPool.MaxOpenConns = 0 }},
		{"bad schedule", func(c *Config) { c.Rollup.Schedule = "every day" }},
		{"bad timezone", func(c *Config) { c.Rollup.Timezone = "Mars/Olympus" }},
		{"zero stage timeout", func(c *Config) { c.Rollup.StageTimeoutSec = 0 }},
		{"mqtt without broker", func(c *Config) { c.MQTT.Enabled = true; c.MQTT.BrokerURL = "" }},
		{"zero ratelimit", func(c *Config) { c.RateLimit.Limit = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_ScheduleIgnoredWhenRollupDisabled(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Rollup.Enabled = false
	cfg.Rollup.Schedule = "garbage"
	require.NoError(t, cfg.Validate())
}
