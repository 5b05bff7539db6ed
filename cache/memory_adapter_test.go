package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAdapterSetGet(t *testing.T) {
	c := NewMemoryAdapter()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))

	val, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryAdapterMissingKey(t *testing.T) {
	c := NewMemoryAdapter()

	_, err := c.Get(context.Background(), "missing")
	assert.Error(t, err)

	exists, err := c.Exists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryAdapterTTLExpires(t *testing.T) {
	c := NewMemoryAdapter()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	assert.Error(t, err)
}

func TestMemoryAdapterDelete(t *testing.T) {
	c := NewMemoryAdapter()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	assert.Error(t, err)
}

func TestMemoryAdapterGetOrSet(t *testing.T) {
	c := NewMemoryAdapter()
	ctx := context.Background()

	calls := 0
	fn := func() (any, error) {
		calls++
		return "computed", nil
	}

	val, err := c.GetOrSet(ctx, "k", 0, fn)
	require.NoError(t, err)
	assert.Equal(t, "computed", val)

	val, err = c.GetOrSet(ctx, "k", 0, fn)
	require.NoError(t, err)
	assert.Equal(t, "computed", val)
	assert.Equal(t, 1, calls)
}

func TestMemoryAdapterFlush(t *testing.T) {
	c := NewMemoryAdapter()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", 1, 0))
	require.NoError(t, c.Set(ctx, "b", 2, 0))
	require.NoError(t, c.Flush(ctx))

	exists, err := c.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, exists)
}
