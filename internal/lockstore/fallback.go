package lockstore

import (
	"context"
	"strings"
	"sync"
	"time"
)

// FallbackCache is a process-local substitute lock store used only while the
// primary store is unreachable. It gives no cross-process guarantee: two
// instances running on their own fallback can both hand out the same seat.
type FallbackCache struct {
	mu      sync.Mutex
	entries map[string]LockRecord
}

func NewFallbackCache() *FallbackCache {
	return &FallbackCache{entries: make(map[string]LockRecord)}
}

// get returns the live entry for key, evicting it if expired. Caller must
// hold the mutex.
func (f *FallbackCache) get(key string, now time.Time) (LockRecord, bool) {
	rec, ok := f.entries[key]
	if !ok {
		return LockRecord{}, false
	}
	if !rec.ExpiresAt.After(now) {
		delete(f.entries, key)
		return LockRecord{}, false
	}
	return rec, true
}

func (f *FallbackCache) Acquire(_ context.Context, key string, rec LockRecord, ttl time.Duration) (bool, *LockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	if current, ok := f.get(key, now); ok {
		holder := current
		return false, &holder, nil
	}
	rec.ExpiresAt = now.Add(ttl)
	f.entries[key] = rec
	return true, nil, nil
}

func (f *FallbackCache) Release(_ context.Context, key, owner string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.get(key, time.Now())
	if !ok || rec.Owner != owner {
		return false, nil
	}
	delete(f.entries, key)
	return true, nil
}

func (f *FallbackCache) Extend(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	rec, ok := f.get(key, now)
	if !ok || rec.Owner != owner {
		return false, nil
	}
	rec.ExpiresAt = now.Add(ttl)
	f.entries[key] = rec
	return true, nil
}

func (f *FallbackCache) Get(_ context.Context, key string) (*LockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.get(key, time.Now())
	if !ok {
		return nil, nil
	}
	holder := rec
	return &holder, nil
}

func (f *FallbackCache) Keys(_ context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	var keys []string
	for key := range f.entries {
		if _, ok := f.get(key, now); !ok {
			continue
		}
		if matchPattern(pattern, key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (f *FallbackCache) HealthCheck(_ context.Context) error {
	return nil
}

// matchPattern supports the prefix globs the seat lock manager uses
// ("seat_lock:*", "seat_lock:<showtime>:*") plus exact keys.
func matchPattern(pattern, key string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(key, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == key
}
