package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClient_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)
	defer c.Close()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)
	defer c.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "short", []byte("a"), time.Second))
	require.NoError(t, c.Set(ctx, "forever", []byte("b"), 0))

	now = now.Add(2 * time.Second)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
	got, err := c.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), got)
}

func TestMemoryClient_EvictsClosestToExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(2)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "soon", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "later", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "new", []byte("3"), time.Hour))

	assert.Equal(t, 2, c.Len())
	_, err := c.Get(ctx, "soon")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// overwriting an existing key never evicts
	require.NoError(t, c.Set(ctx, "new", []byte("4"), time.Hour))
	assert.Equal(t, 2, c.Len())
}

func TestMemoryClient_CopiesValue(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(1)
	defer c.Close()

	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, 0))
	buf[0] = 'x'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("a", "b"), Key("a", "b"))
	assert.NotEqual(t, Key("a", "b"), Key("b", "a"))
	assert.Len(t, Key("anything"), 64)
}

func TestMemoryClient_CloseIdempotent(t *testing.T) {
	c := NewMemoryClient(1)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
