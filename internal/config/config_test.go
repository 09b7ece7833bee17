package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 400.0, cfg.World.SpawnX)
	assert.Equal(t, 300.0, cfg.World.SpawnY)
	assert.Equal(t, "multi", cfg.Session.Policy)
	assert.Equal(t, time.Duration(0), cfg.Persist.CheckpointInterval)
	assert.Equal(t, "tileworld.presence", cfg.Feed.SubjectPrefix)
	assert.Equal(t, "tileworld", cfg.Storage.Redis.KeyPrefix)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tileworld.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
storage:
  type: redis
  redis:
    url: redis://cache:6379/1
  cache:
    enabled: true
session:
  policy: single
persist:
  checkpoint_interval: 30s
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, StorageRedis, cfg.Storage.Type)
	assert.Equal(t, "redis://cache:6379/1", cfg.Storage.Redis.URL)
	assert.True(t, cfg.Storage.Cache.Enabled)
	assert.Equal(t, "single", cfg.Session.Policy)
	assert.Equal(t, 30*time.Second, cfg.Persist.CheckpointInterval)
	// untouched keys keep their defaults
	assert.Equal(t, 10, cfg.Storage.Redis.PoolSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tileworld.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600))

	t.Setenv("TILEWORLD_SERVER_PORT", "7070")
	t.Setenv("TILEWORLD_AUTH_JWT_SECRET", "from-env")
	t.Setenv("TILEWORLD_WS_PING_PERIOD", "5s")
	t.Setenv("TILEWORLD_WS_PONG_WAIT", "10s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 5*time.Second, cfg.WS.PingPeriod)
	assert.Equal(t, 10*time.Second, cfg.WS.PongWait)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"bad storage", func(c *Config) { c.Storage.Type = "sqlite" }, "storage.type"},
		{"bad policy", func(c *Config) { c.Session.Policy = "some" }, "session.policy"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"empty secret", func(c *Config) { c.Auth.JWTSecret = "" }, "auth.jwt_secret"},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }, "auth.token_ttl"},
		{"ping after pong", func(c *Config) { c.WS.PingPeriod = c.WS.PongWait }, "ws.ping_period"},
		{"negative checkpoint", func(c *Config) { c.Persist.CheckpointInterval = -time.Second }, "persist.checkpoint_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
