package lockstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore is the primary lock store. Locks are JSON-encoded records set
// with SETNX and redis-native TTLs.
type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client}
}

func (r *RedisStore) Acquire(ctx context.Context, key string, rec LockRecord, ttl time.Duration) (bool, *LockRecord, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return false, nil, err
	}

	ok, err := r.Client.SetNX(ctx, key, payload, ttl).Result()
	if err != nil {
		return false, nil, err
	}
	if ok {
		return true, nil, nil
	}

	// Lost the race; report who holds the seat. The holder may expire
	// between the SETNX and this read, in which case current is nil and
	// the caller simply retries.
	current, err := r.Get(ctx, key)
	if err != nil {
		return false, nil, err
	}
	return false, current, nil
}

func (r *RedisStore) Release(ctx context.Context, key, owner string) (bool, error) {
	current, err := r.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if current == nil {
		return false, nil // already unlocked
	}
	if current.Owner != owner {
		return false, nil
	}
	if err := r.Client.Del(ctx, key).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisStore) Extend(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	current, err := r.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if current == nil || current.Owner != owner {
		return false, nil
	}

	current.ExpiresAt = time.Now().Add(ttl)
	payload, err := json.Marshal(current)
	if err != nil {
		return false, err
	}
	if err := r.Client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) (*LockRecord, error) {
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec LockRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := r.Client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

func (r *RedisStore) HealthCheck(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
