package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"SERVER_PORT", "STORE_BACKEND", "SQLITE_PATH", "CHUNK_SIZE", "INGEST_WORKERS", "SELLER_POLICY", "KAFKA_BROKERS", "MONGO_ENABLED", "CACHE_TTL"} {
		t.Setenv(k, "")
	}

	s := Load()
	assert.Equal(t, "8070", s.Port)
	assert.Equal(t, "sqlite", s.StoreBackend)
	assert.Equal(t, "data/sales.db", s.SQLitePath)
	assert.Equal(t, 500, s.ChunkSize)
	assert.Equal(t, 1, s.Workers)
	assert.Equal(t, "reject", s.SellerPolicy)
	assert.Empty(t, s.KafkaBrokers)
	assert.False(t, s.MongoEnabled)
	assert.Equal(t, 5*time.Minute, s.CacheTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("CHUNK_SIZE", "250")
	t.Setenv("INGEST_WORKERS", "4")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("MONGO_ENABLED", "true")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("PG_URL", "postgres://u:p@db:5432/sales")

	s := Load()
	assert.Equal(t, "postgres", s.StoreBackend)
	assert.Equal(t, 250, s.ChunkSize)
	assert.Equal(t, 4, s.Workers)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, s.KafkaBrokers)
	assert.True(t, s.MongoEnabled)
	assert.Equal(t, 30*time.Second, s.CacheTTL)
	assert.Equal(t, "postgres://u:p@db:5432/sales", s.Postgres.URL)
}

func TestCheckConnections_ReportsMissing(t *testing.T) {
	c := &Config{Settings: Settings{StoreBackend: "postgres", MongoEnabled: true, S3Enabled: true}}
	err := c.CheckConnections(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres not initialized")
	assert.Contains(t, err.Error(), "mongo not initialized")
	assert.Contains(t, err.Error(), "s3 not initialized")
}

func TestCheckConnections_NothingConfigured(t *testing.T) {
	c := &Config{Settings: Settings{StoreBackend: "memory"}}
	assert.NoError(t, c.CheckConnections(context.Background()))
}
