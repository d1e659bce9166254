package lockstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a Redis client backed by miniredis so the tests
// don't need a real Redis server.
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	return NewRedisStore(client), mr
}

func testRecord(owner string, ttl time.Duration) LockRecord {
	now := time.Now()
	return LockRecord{
		Owner:      owner,
		ShowtimeID: "show-1",
		LockedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}
}

func TestRedisStore_AcquireConflict(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	ok, current, err := store.Acquire(ctx, "seat_lock:show-1:A1", testRecord("user-1", time.Minute), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, current)

	ok, current, err = store.Acquire(ctx, "seat_lock:show-1:A1", testRecord("user-2", time.Minute), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NotNil(t, current)
	assert.Equal(t, "user-1", current.Owner)
}

func TestRedisStore_ReleaseOnlyByOwner(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	_, _, err := store.Acquire(ctx, "seat_lock:show-1:A1", testRecord("user-1", time.Minute), time.Minute)
	require.NoError(t, err)

	released, err := store.Release(ctx, "seat_lock:show-1:A1", "user-2")
	require.NoError(t, err)
	assert.False(t, released, "non-owner must not release the lock")

	released, err = store.Release(ctx, "seat_lock:show-1:A1", "user-1")
	require.NoError(t, err)
	assert.True(t, released)

	rec, err := store.Get(ctx, "seat_lock:show-1:A1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	// Releasing an already-unlocked seat is a no-op.
	released, err = store.Release(ctx, "seat_lock:show-1:A1", "user-1")
	require.NoError(t, err)
	assert.False(t, released)
}

func TestRedisStore_ExtendRefreshesTTL(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	_, _, err := store.Acquire(ctx, "seat_lock:show-1:A1", testRecord("user-1", time.Minute), time.Minute)
	require.NoError(t, err)

	extended, err := store.Extend(ctx, "seat_lock:show-1:A1", "user-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, extended, "non-owner must not extend the lock")

	mr.FastForward(45 * time.Second)

	extended, err = store.Extend(ctx, "seat_lock:show-1:A1", "user-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, extended)

	// After the extension the original deadline no longer applies.
	mr.FastForward(30 * time.Second)
	rec, err := store.Get(ctx, "seat_lock:show-1:A1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "user-1", rec.Owner)
}

func TestRedisStore_TTLExpiryFreesSeat(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	_, _, err := store.Acquire(ctx, "seat_lock:show-1:A1", testRecord("user-1", time.Minute), time.Minute)
	require.NoError(t, err)

	mr.FastForward(61 * time.Second)

	rec, err := store.Get(ctx, "seat_lock:show-1:A1")
	require.NoError(t, err)
	assert.Nil(t, rec, "lock should expire via native TTL")

	ok, _, err := store.Acquire(ctx, "seat_lock:show-1:A1", testRecord("user-2", time.Minute), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "seat should be lockable by anyone after expiry")
}

func TestRedisStore_KeysScansByPattern(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	for _, key := range []string{"seat_lock:show-1:A1", "seat_lock:show-1:A2", "seat_lock:show-2:B1"} {
		_, _, err := store.Acquire(ctx, key, testRecord("user-1", time.Minute), time.Minute)
		require.NoError(t, err)
	}

	keys, err := store.Keys(ctx, "seat_lock:show-1:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"seat_lock:show-1:A1", "seat_lock:show-1:A2"}, keys)

	keys, err = store.Keys(ctx, "seat_lock:*")
	require.NoError(t, err)
	assert.Len(t, keys, 3)
}
