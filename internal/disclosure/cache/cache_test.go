package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dim/internal/disclosure/models"
	"dim/internal/sentinel"
	"dim/pkg/testutil"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	holder := testutil.AddressN(1)
	other := testutil.AddressN(2)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	_, err := c.Get(ctx, holder, "bank.example")
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	proof := &models.Proof{DataHash: "0xabc", Data: map[string]any{"account": holder.String()}}
	require.NoError(t, c.Set(ctx, holder, "bank.example", proof, time.Minute))
	require.NoError(t, c.Set(ctx, holder, "shop.example", proof, time.Minute))
	require.NoError(t, c.Set(ctx, other, "bank.example", proof, time.Minute))

	t.Run("returns copies", func(t *testing.T) {
		got, err := c.Get(ctx, holder, "bank.example")
		require.NoError(t, err)
		got.Data["account"] = "mutated"
		again, err := c.Get(ctx, holder, "bank.example")
		require.NoError(t, err)
		assert.Equal(t, holder.String(), again.Data["account"])
	})

	t.Run("invalidate drops one scope", func(t *testing.T) {
		c.Invalidate(ctx, holder, "bank.example")
		_, err := c.Get(ctx, holder, "bank.example")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		_, err = c.Get(ctx, holder, "shop.example")
		assert.NoError(t, err)
	})

	t.Run("invalidate holder keeps other holders", func(t *testing.T) {
		c.InvalidateHolder(ctx, holder)
		_, err := c.Get(ctx, holder, "shop.example")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		_, err = c.Get(ctx, other, "bank.example")
		assert.NoError(t, err)
	})

	t.Run("expires", func(t *testing.T) {
		now = now.Add(time.Minute)
		_, err := c.Get(ctx, other, "bank.example")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("zero ttl is not cached", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, holder, "zero.example", proof, 0))
		_, err := c.Get(ctx, holder, "zero.example")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
