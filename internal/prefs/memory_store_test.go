package prefs

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_TTL(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewMemoryStore(WithClock(clock))
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, s.Set(ctx, "b", "2", 0))

	v, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)

	clock.Advance(2 * time.Minute)
	_, ok, _ = s.Get(ctx, "a")
	require.False(t, ok)
	_, ok, _ = s.Get(ctx, "b")
	require.True(t, ok)

	require.NoError(t, RememberEmail(ctx, s, "x@y.z"))
	got, err := RememberedEmail(ctx, s)
	require.NoError(t, err)
	require.Equal(t, "x@y.z", got)
}
