package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/pkg/config"
)

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: 6380, RedisDB: 2, RedisPassword: "s"})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "s", opts.Password)

	opts, err = buildRedisOptions(config.CacheConfig{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:pw@redis.local:6390/3"})
	require.NoError(t, err)
	assert.Equal(t, "redis.local:6390", opts.Addr)
	assert.Equal(t, 3, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "http://no-es-redis"})
	assert.Error(t, err)
}

func TestNewItemCache_DeshabilitadaEsNoop(t *testing.T) {
	c, err := NewItemCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	it, ok, err := c.Get(context.Background(), "SKU-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, it)
	assert.NoError(t, c.Invalidate(context.Background(), "SKU-1"))
	assert.Equal(t, "ledger:item:SKU-1", itemKey("SKU-1"))
}

func TestReplacesCached(t *testing.T) {
	cached := []byte(`{"id":"SKU-1","quantity_on_hand":"20","version":5}`)

	assert.False(t, replacesCached(cached, 4), "una lectura vieja no pisa la proyección confirmada")
	assert.True(t, replacesCached(cached, 5))
	assert.True(t, replacesCached(cached, 6))
	assert.True(t, replacesCached([]byte("no-json"), 1))
}
