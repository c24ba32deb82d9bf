package cache

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTiered(t *testing.T) (*Tiered, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	tiered := NewTiered(NewRedis(client), NewLocal(64), slog.New(slog.DiscardHandler))
	return tiered, mr
}

func TestTieredSetWritesBothTiers(t *testing.T) {
	tc, _ := setupTiered(t)
	ctx := context.Background()

	require.NoError(t, tc.Set(ctx, "k", []byte("v"), time.Minute))

	data, err := tc.remote.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)

	data, err = tc.local.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)
}

func TestTieredRemoteMissIsAuthoritative(t *testing.T) {
	tc, _ := setupTiered(t)
	ctx := context.Background()

	// Local holds an entry the shared tier no longer has.
	require.NoError(t, tc.local.Set(ctx, "k", []byte("stale"), time.Minute))

	_, err := tc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestTieredFallsBackWhenRemoteDown(t *testing.T) {
	tc, mr := setupTiered(t)
	ctx := context.Background()

	require.NoError(t, tc.Set(ctx, "k", []byte("v"), time.Minute))
	mr.Close()

	data, err := tc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)
}

func TestTieredSetSurvivesRemoteDown(t *testing.T) {
	tc, mr := setupTiered(t)
	mr.Close()
	ctx := context.Background()

	require.NoError(t, tc.Set(ctx, "k", []byte("v"), time.Minute))

	data, err := tc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)
}

func TestTieredDeletePatternClearsBoth(t *testing.T) {
	tc, _ := setupTiered(t)
	ctx := context.Background()

	require.NoError(t, tc.Set(ctx, Key(KindSearch, "a"), []byte("1"), time.Minute))
	require.NoError(t, tc.DeletePattern(ctx, KindPattern(KindSearch)))

	_, err := tc.local.Get(ctx, Key(KindSearch, "a"))
	assert.ErrorIs(t, err, ErrMiss)
	_, err = tc.remote.Get(ctx, Key(KindSearch, "a"))
	assert.ErrorIs(t, err, ErrMiss)
}

func TestTieredFlushLocalKeepsRemote(t *testing.T) {
	tc, _ := setupTiered(t)
	ctx := context.Background()

	require.NoError(t, tc.Set(ctx, "k", []byte("v"), time.Minute))
	tc.FlushLocal(ctx)

	_, err := tc.local.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	data, err := tc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)
}
