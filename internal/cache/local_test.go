package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSetGet(t *testing.T) {
	l := NewLocal(10)
	ctx := context.Background()

	require.NoError(t, l.Set(ctx, "catalog:search:abc", []byte(`{"items":[]}`), time.Minute))

	data, err := l.Get(ctx, "catalog:search:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"items":[]}`), data)
}

func TestLocalMiss(t *testing.T) {
	l := NewLocal(10)
	_, err := l.Get(context.Background(), "catalog:search:nope")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestLocalExpiry(t *testing.T) {
	l := NewLocal(10)
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, l.Set(ctx, "k", []byte("v"), time.Minute))

	now = now.Add(2 * time.Minute)
	_, err := l.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Zero(t, l.Len())
}

func TestLocalEvictsOldestInserted(t *testing.T) {
	l := NewLocal(2)
	ctx := context.Background()

	require.NoError(t, l.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, l.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, l.Set(ctx, "c", []byte("3"), time.Minute))

	_, err := l.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = l.Get(ctx, "b")
	assert.NoError(t, err)
	_, err = l.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestLocalGetReturnsCopy(t *testing.T) {
	l := NewLocal(10)
	ctx := context.Background()

	require.NoError(t, l.Set(ctx, "k", []byte("abc"), time.Minute))
	data, err := l.Get(ctx, "k")
	require.NoError(t, err)
	data[0] = 'x'

	again, err := l.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestLocalDeletePatternPrefix(t *testing.T) {
	l := NewLocal(10)
	ctx := context.Background()

	require.NoError(t, l.Set(ctx, Key(KindSearch, "aaa"), []byte("1"), time.Minute))
	require.NoError(t, l.Set(ctx, Key(KindSearch, "bbb"), []byte("2"), time.Minute))
	require.NoError(t, l.Set(ctx, Key(KindDetail, "ccc"), []byte("3"), time.Minute))

	require.NoError(t, l.DeletePattern(ctx, KindPattern(KindSearch)))

	_, err := l.Get(ctx, Key(KindSearch, "aaa"))
	assert.ErrorIs(t, err, ErrMiss)
	_, err = l.Get(ctx, Key(KindDetail, "ccc"))
	assert.NoError(t, err)
}

func TestLocalFlush(t *testing.T) {
	l := NewLocal(10)
	ctx := context.Background()

	require.NoError(t, l.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, l.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, l.Flush(ctx))
	assert.Zero(t, l.Len())
}

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "catalog:search:deadbeef", Key(KindSearch, "deadbeef"))
	assert.Equal(t, "catalog:facets:*", KindPattern(KindFacets))
	assert.Equal(t, "catalog:*", AllPattern())
}

func TestTTLsFor(t *testing.T) {
	ttls := TTLs{List: time.Minute, Search: 2 * time.Minute, Facets: 3 * time.Minute, Detail: 4 * time.Minute}
	assert.Equal(t, time.Minute, ttls.For(KindList))
	assert.Equal(t, 4*time.Minute, ttls.For(KindDetail))
	assert.Equal(t, 2*time.Minute, ttls.For(Kind("unknown")))
}
