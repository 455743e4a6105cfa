package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "dispatch", cfg.Database.DBName)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.False(t, cfg.NewRelic.Enabled)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "trip-events", cfg.Kafka.Topic)
	assert.Equal(t, 1024, cfg.Realtime.QueueSize)
	assert.Equal(t, 4, cfg.Realtime.Workers)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_READ_TIMEOUT", "3s")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "trips")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("NEW_RELIC_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("PLATFORM_MAINTENANCE_DEFAULT", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "trips", cfg.Database.DBName)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.True(t, cfg.NewRelic.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Platform.MaintenanceDefault)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  port: \"7070\"\nlog:\n  level: debug\nrealtime:\n  workers: 8\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, 8, cfg.Realtime.Workers)
	assert.Equal(t, "warn", cfg.Log.Level, "environment wins over the file")
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	require.Error(t, err)
}
