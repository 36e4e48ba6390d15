package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoCache(t *testing.T) {
	cache, err := NewCache(Config{Type: "gocache", Local: LocalConfig{
		DefaultExpiration: 5 * time.Minute,
		CleanupInterval:   10 * time.Minute,
	}})
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "verify:POL001", `{"valid":true}`, time.Minute))
		v, ok := cache.Get(ctx, "verify:POL001")
		assert.True(t, ok)
		assert.Equal(t, `{"valid":true}`, v)
	})

	t.Run("Add only once", func(t *testing.T) {
		first, err := cache.Add(ctx, "idem:k1", "pending", time.Minute)
		require.NoError(t, err)
		second, err := cache.Add(ctx, "idem:k1", "pending", time.Minute)
		require.NoError(t, err)
		assert.True(t, first)
		assert.False(t, second)
	})

	t.Run("Expiry", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "short", 1, 20*time.Millisecond))
		time.Sleep(40 * time.Millisecond)
		_, ok := cache.Get(ctx, "short")
		assert.False(t, ok)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "gone", 1, time.Minute))
		require.NoError(t, cache.Delete(ctx, "gone"))
		_, ok := cache.Get(ctx, "gone")
		assert.False(t, ok)
	})
}

func TestUnsupportedType(t *testing.T) {
	_, err := NewCache(Config{Type: "memcached"})
	assert.Error(t, err)
}
