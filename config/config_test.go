package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
grpc:
  address: ":50060"
http:
  address: ":8090"
kafka:
  brokers: ["localhost:9092"]
storage:
  driver: memory
`

func TestParse(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := Parse([]byte(minimal))
		require.NoError(t, err)

		assert.Equal(t, StorageMemory, cfg.Storage.Driver)
		assert.Equal(t, 30*time.Second, cfg.GRPC.Timeout)
		assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
		assert.Equal(t, "feedback-emails", cfg.Kafka.EmailTopic)
		assert.Equal(t, "feedback-remind", cfg.Kafka.RemindTopic)
		assert.Equal(t, "feedback-resend-published", cfg.Kafka.ResendTopic)
		assert.Equal(t, "feedback-unpublished", cfg.Kafka.UnpublishedTopic)
		assert.Equal(t, 24*time.Hour, cfg.Reminders.ClosingWindow)
		assert.Equal(t, time.Hour, cfg.Reminders.ClosedWindow)
		assert.Equal(t, 100, cfg.Cascade.BatchSize)
		assert.Equal(t, 5*time.Minute, cfg.Redis.RosterTTL)
		assert.Equal(t, "info", cfg.Log.Level)
	})

	t.Run("Durations", func(t *testing.T) {
		cfg, err := Parse([]byte(minimal + `
reminders:
  interval: 90s
  closing_window: 12h
`))
		require.NoError(t, err)
		assert.Equal(t, 90*time.Second, cfg.Reminders.Interval)
		assert.Equal(t, 12*time.Hour, cfg.Reminders.ClosingWindow)
	})

	t.Run("EnvOverride", func(t *testing.T) {
		t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
		t.Setenv("REDIS_DB", "3")
		t.Setenv("REMINDER_INTERVAL", "1m")
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := Parse([]byte(minimal))
		require.NoError(t, err)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 3, cfg.Redis.DB)
		assert.Equal(t, time.Minute, cfg.Reminders.Interval)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("PostgresNeedsDB", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", StoragePostgres)
		_, err := Parse([]byte(minimal))
		assert.ErrorContains(t, err, "database configuration is incomplete")
	})

	t.Run("UnknownDriver", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "sqlite")
		_, err := Parse([]byte(minimal))
		assert.ErrorContains(t, err, "unknown storage driver")
	})

	t.Run("MissingBrokers", func(t *testing.T) {
		_, err := Parse([]byte(`
grpc:
  address: ":50060"
http:
  address: ":8090"
storage:
  driver: memory
`))
		assert.ErrorContains(t, err, "Kafka broker")
	})

	t.Run("BadYAML", func(t *testing.T) {
		_, err := Parse([]byte("grpc: ["))
		assert.ErrorContains(t, err, "failed to unmarshal config")
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":50060", cfg.GRPC.Address)

	t.Run("MissingFile", func(t *testing.T) {
		t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := Load()
		assert.ErrorContains(t, err, "failed to read config file")
	})
}
