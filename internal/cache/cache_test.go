package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string
	Value uint64
}

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func newEntryCache(client *redis.Client) *Cache[entry] {
	return New(Options[entry]{
		Client:  client,
		Encoder: MsgpackEncoder[entry](),
		Decoder: MsgpackDecoder[entry](),
		Prefix:  "test",
	})
}

func TestCache_SetGet(t *testing.T) {
	client, mr := setupRedis(t)
	c := newEntryCache(client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", entry{Name: "alpha", Value: 1}, time.Minute))
	assert.True(t, mr.Exists("test:a"))

	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, entry{Name: "alpha", Value: 1}, got)

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCache_GetExExtendsTTL(t *testing.T) {
	client, mr := setupRedis(t)
	c := newEntryCache(client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", entry{Name: "alpha"}, time.Second))
	_, err := c.GetEx(ctx, "a", time.Hour)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	_, err = c.Get(ctx, "a")
	assert.NoError(t, err)

	mr.FastForward(2 * time.Hour)
	_, err = c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCache_DecodeFailure(t *testing.T) {
	client, mr := setupRedis(t)
	c := newEntryCache(client)

	require.NoError(t, mr.Set("test:bad", "\xc1"))

	_, err := c.Get(context.Background(), "bad")
	assert.True(t, errors.Is(err, ErrDecodeFailed), "got %v", err)
}

func TestCache_MSetMGetDelete(t *testing.T) {
	client, _ := setupRedis(t)
	c := newEntryCache(client)
	ctx := context.Background()

	require.NoError(t, c.MSet(ctx, map[string]entry{
		"a": {Name: "alpha", Value: 1},
		"b": {Name: "beta", Value: 2},
	}, 0))

	values, err := c.MGet(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Len(t, values, 2)
	assert.Equal(t, uint64(2), values["b"].Value)

	require.NoError(t, c.Delete(ctx, "a"))
	values, err = c.MGet(ctx, "a", "b")
	require.NoError(t, err)
	assert.Len(t, values, 1)

	empty, err := c.MGet(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
