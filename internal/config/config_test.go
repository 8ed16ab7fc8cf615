package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "data/fishlens.db", cfg.Store.DSN)
	assert.Equal(t, 30*time.Second, cfg.Store.Timeout)
	assert.Equal(t, 200, cfg.Fetch.BatchSize)
	assert.Equal(t, 1, cfg.Fetch.Concurrency)
	assert.Equal(t, 10, cfg.Tank.Census)
	assert.Equal(t, 1000, cfg.Tank.WeightSamples)
	assert.Equal(t, time.UTC, cfg.Tank.Location())
	assert.False(t, cfg.Notify.Kafka.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: postgrest
  url: https://example.supabase.co
  apiKey: anon
fetch:
  batchSize: 50
  concurrency: 4
tank:
  census: 12
  timezone: Australia/Melbourne
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverPostgREST, cfg.Store.Driver)
	assert.Equal(t, "https://example.supabase.co", cfg.Store.URL)
	assert.Equal(t, 50, cfg.Fetch.BatchSize)
	assert.Equal(t, 4, cfg.Fetch.Concurrency)
	assert.Equal(t, 12, cfg.Tank.Census)
	assert.Equal(t, "Australia/Melbourne", cfg.Tank.Location().String())
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("FISHLENS_TANK_CENSUS", "25")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Tank.Census)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrConfigFileMissing)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }, ErrUnknownStoreDriver},
		{"empty dsn", func(c *Config) { c.Store.DSN = "" }, ErrEmptyStoreDSN},
		{"postgrest without url", func(c *Config) { c.Store.Driver = DriverPostgREST }, ErrEmptyStoreURL},
		{"zero batch size", func(c *Config) { c.Fetch.BatchSize = 0 }, ErrInvalidBatchSize},
		{"zero concurrency", func(c *Config) { c.Fetch.Concurrency = 0 }, ErrInvalidConcurrency},
		{"zero census", func(c *Config) { c.Tank.Census = 0 }, ErrInvalidTankCensus},
		{"bad timezone", func(c *Config) { c.Tank.Timezone = "Mars/Olympus" }, ErrInvalidTimezone},
		{"zero samples", func(c *Config) { c.Tank.WeightSamples = 0 }, ErrInvalidWeightSamples},
		{"kafka without brokers", func(c *Config) { c.Notify.Kafka.Enabled = true }, ErrEmptyKafkaBrokers},
		{"kafka without topic", func(c *Config) {
			c.Notify.Kafka.Enabled = true
			c.Notify.Kafka.Brokers = []string{"localhost:9092"}
			c.Notify.Kafka.Topic = ""
		}, ErrEmptyKafkaTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), tt.wantErr)
		})
	}

	assert.NoError(t, Validate(Default()))
}
