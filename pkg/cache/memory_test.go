package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	unlock, ok, err := l.TryLock(ctx, "sweep:payout", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "sweep:payout", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	unlock()
	_, ok, _ = l.TryLock(ctx, "sweep:payout", time.Minute)
	assert.True(t, ok)
}

func TestMemoryDeduper(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	d := NewMemoryDeduper()
	d.clock = func() time.Time { return now }
	ctx := context.Background()

	first, _ := d.Mark(ctx, "reminder:b1:24h", time.Hour)
	second, _ := d.Mark(ctx, "reminder:b1:24h", time.Hour)
	assert.True(t, first)
	assert.False(t, second)

	now = now.Add(2 * time.Hour)
	third, _ := d.Mark(ctx, "reminder:b1:24h", time.Hour)
	assert.True(t, third, "expired keys can be marked again")
}
