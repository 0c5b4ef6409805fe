package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.StorageBackend)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 3, cfg.ReserveRetries)
	assert.Equal(t, int64(5<<20), cfg.ICalMaxBytes)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.False(t, cfg.KafkaEnabled())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "SQLite")
	t.Setenv("DATABASE_DSN", "file:staysync.db")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RESERVE_RETRIES", "5")
	t.Setenv("ICAL_FETCH_TIMEOUT", "3s")
	t.Setenv("S3_USE_SSL", "yes")
	t.Setenv("S3_ENDPOINT", "minio:9000")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.StorageBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5, cfg.ReserveRetries)
	assert.Equal(t, 3*time.Second, cfg.ICalFetchTimeout)
	assert.True(t, cfg.S3UseSSL)
	assert.True(t, cfg.S3Enabled())
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"mongo without uri":    {"STORAGE_BACKEND": "mongo", "MONGO_URI": ""},
		"postgres without dsn": {"STORAGE_BACKEND": "postgres", "DATABASE_DSN": ""},
		"unknown backend":      {"STORAGE_BACKEND": "redis"},
		"bad duration":         {"IDEMP_TTL": "soon"},
		"bad retries":          {"RESERVE_RETRIES": "many"},
		"zero retries":         {"RESERVE_RETRIES": "0"},
		"bad bool":             {"S3_USE_SSL": "maybe"},
		"bad backoff":          {"RETRY_BACKOFF": "1s,later"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
