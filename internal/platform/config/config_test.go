package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"UNIMATCH_ADDR", "ENVIRONMENT", "MIN_CONTRIBUTING_SUBJECTS", "MAX_PAGE_SIZE",
		"CATALOG_FILE", "DATABASE_URL", "CATALOG_POLL_INTERVAL", "REDIS_URL", "KAFKA_BROKERS",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CATALOG_FILE", "catalog/catalog.yaml")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 6, cfg.MinContributingSubjects)
	assert.Equal(t, 100, cfg.MaxPageSize)
	assert.Equal(t, 30*time.Second, cfg.Catalog.PollInterval)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.True(t, cfg.IsDevelopment())
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("UNIMATCH_ADDR", ":9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("MIN_CONTRIBUTING_SUBJECTS", "7")
	t.Setenv("DATABASE_URL", "postgres://localhost/unimatch")
	t.Setenv("CATALOG_POLL_INTERVAL", "5s")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("KAFKA_BROKERS", " broker-1:9092, ,broker-2:9092 ")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 7, cfg.MinContributingSubjects)
	assert.Equal(t, 5*time.Second, cfg.Catalog.PollInterval)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "unimatch.catalog.resolved", cfg.Kafka.Topic)
}

func TestFromEnvReportsEveryProblem(t *testing.T) {
	clearEnv(t)
	t.Setenv("MIN_CONTRIBUTING_SUBJECTS", "six")
	t.Setenv("CATALOG_POLL_INTERVAL", "soon")
	t.Setenv("MAX_PAGE_SIZE", "0")

	_, err := FromEnv()
	require.Error(t, err)
	for _, key := range []string{"MIN_CONTRIBUTING_SUBJECTS", "CATALOG_POLL_INTERVAL", "MAX_PAGE_SIZE", "CATALOG_FILE"} {
		assert.Contains(t, err.Error(), key)
	}
}
