package session

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStoreFromClient(client)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)

	tok, raw, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
	assert.Empty(t, raw)

	require.NoError(t, store.Save(ctx, "t1", []byte(`{"id":"7"}`)))
	tok, raw, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t1", tok)
	assert.JSONEq(t, `{"id":"7"}`, string(raw))

	require.NoError(t, store.Clear(ctx))
	tok, raw, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
	assert.Empty(t, raw)
}

func TestRedisStoreBacksManager(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)
	require.NoError(t, store.Save(ctx, "t1", []byte(`{"id":"7","role":"admin"}`)))

	m := NewManager(store, nil)
	assert.Equal(t, StateAuthenticated, m.State())
	require.NotNil(t, m.Identity())
	assert.Equal(t, RoleAdmin, m.Identity().Role)
}
