package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAdapter_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryAdapter(8, time.Hour)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 60))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	exists, _ := c.Exists(ctx, "k")
	assert.True(t, exists)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.True(t, errors.Is(err, ErrCacheMiss))
}

func TestMemoryAdapter_PerKeyExpiration(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newMemoryAdapter(8, time.Hour, func() time.Time { return now })

	require.NoError(t, c.Set(ctx, "short", []byte("1"), 10))
	require.NoError(t, c.Set(ctx, "long", []byte("2"), 0))

	now = now.Add(11 * time.Second)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "long")
	assert.NoError(t, err)
}

func TestMemoryAdapter_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryAdapter(2, time.Hour)

	_ = c.Set(ctx, "a", []byte("a"), 0)
	_ = c.Set(ctx, "b", []byte("b"), 0)
	_, _ = c.Get(ctx, "a")
	_ = c.Set(ctx, "c", []byte("c"), 0)

	_, err := c.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestMemoryAdapter_CopiesValue(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryAdapter(2, time.Hour)
	buf := []byte("abc")
	_ = c.Set(ctx, "k", buf, 0)
	buf[0] = 'x'

	got, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(got))
}
