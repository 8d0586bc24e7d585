//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales_import/internal/adapters/cache"
	"sales_import/internal/testutil/containers"
)

func TestRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	r := containers.NewRedis(t)
	c := cache.NewRedis(r.Client, time.Minute)

	_, ok, err := c.Get(ctx, "store:L001")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "store:L001", []byte(`{"id":"L001"}`)))
	v, ok, err := c.Get(ctx, "store:L001")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"L001"}`, string(v))

	ttl, err := r.Client.TTL(ctx, "sales_import:store:L001").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Delete(ctx, "store:L001", "store:L002"))
	_, ok, err = c.Get(ctx, "store:L001")
	require.NoError(t, err)
	assert.False(t, ok)
}
