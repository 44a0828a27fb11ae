package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	s.SetNow(func() time.Time { return now })

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Second))

	entry, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, []byte("v"), entry.Payload)
	assert.Equal(t, now, entry.StoredAt)

	// Past the TTL the key is treated as absent.
	now = now.Add(1100 * time.Millisecond)
	entry, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "k", []byte("old"), time.Minute))
	require.NoError(t, s.Set(ctx, "k", []byte("new"), time.Minute))

	entry, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, []byte("new"), entry.Payload)
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	s.SetNow(func() time.Time { return now })

	require.NoError(t, s.Set(ctx, "short", []byte("a"), time.Second))
	require.NoError(t, s.Set(ctx, "long", []byte("b"), time.Hour))

	now = now.Add(2 * time.Second)

	removed, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Len())

	entry, err := s.Get(ctx, "long")
	require.NoError(t, err)
	assert.NotNil(t, entry)
}
