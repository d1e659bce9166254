package lockstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errConnRefused = errors.New("dial tcp: connection refused")

// flakyStore delegates to an in-memory store and can be switched into a
// failing state to simulate a primary outage.
type flakyStore struct {
	mu           sync.Mutex
	down         bool
	acquireCalls int
	healthCalls  int
	inner        Store
}

func newFlakyStore() *flakyStore {
	return &flakyStore{inner: NewFallbackCache()}
}

func (s *flakyStore) setDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

func (s *flakyStore) isDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.down
}

func (s *flakyStore) Acquire(ctx context.Context, key string, rec LockRecord, ttl time.Duration) (bool, *LockRecord, error) {
	s.mu.Lock()
	s.acquireCalls++
	s.mu.Unlock()
	if s.isDown() {
		return false, nil, errConnRefused
	}
	return s.inner.Acquire(ctx, key, rec, ttl)
}

func (s *flakyStore) Release(ctx context.Context, key, owner string) (bool, error) {
	if s.isDown() {
		return false, errConnRefused
	}
	return s.inner.Release(ctx, key, owner)
}

func (s *flakyStore) Extend(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if s.isDown() {
		return false, errConnRefused
	}
	return s.inner.Extend(ctx, key, owner, ttl)
}

func (s *flakyStore) Get(ctx context.Context, key string) (*LockRecord, error) {
	if s.isDown() {
		return nil, errConnRefused
	}
	return s.inner.Get(ctx, key)
}

func (s *flakyStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	if s.isDown() {
		return nil, errConnRefused
	}
	return s.inner.Keys(ctx, pattern)
}

func (s *flakyStore) HealthCheck(ctx context.Context) error {
	s.mu.Lock()
	s.healthCalls++
	s.mu.Unlock()
	if s.isDown() {
		return errConnRefused
	}
	return nil
}

// brokenStore fails every call unconditionally.
type brokenStore struct{}

func (brokenStore) Acquire(context.Context, string, LockRecord, time.Duration) (bool, *LockRecord, error) {
	return false, nil, errConnRefused
}
func (brokenStore) Release(context.Context, string, string) (bool, error) {
	return false, errConnRefused
}
func (brokenStore) Extend(context.Context, string, string, time.Duration) (bool, error) {
	return false, errConnRefused
}
func (brokenStore) Get(context.Context, string) (*LockRecord, error) { return nil, errConnRefused }
func (brokenStore) Keys(context.Context, string) ([]string, error)   { return nil, errConnRefused }
func (brokenStore) HealthCheck(context.Context) error                { return errConnRefused }

func newTestResilient(primary, fallback Store) *Resilient {
	return NewResilient(primary, fallback, nil, 3, time.Millisecond)
}

func TestResilient_HealthyPrimaryNoDegradation(t *testing.T) {
	primary := newFlakyStore()
	r := newTestResilient(primary, NewFallbackCache())
	ctx := context.Background()

	ok, _, err := r.Acquire(ctx, "seat_lock:show-1:A1", testRecord("user-1", time.Minute), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, r.Degraded())
	assert.Empty(t, r.Warning())
	assert.Equal(t, 1, primary.acquireCalls, "no retries needed when the primary answers")
}

func TestResilient_FailsOverToFallbackAfterRetries(t *testing.T) {
	primary := newFlakyStore()
	primary.setDown(true)
	r := newTestResilient(primary, NewFallbackCache())
	ctx := context.Background()

	ok, _, err := r.Acquire(ctx, "seat_lock:show-1:A1", testRecord("user-1", time.Minute), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "fallback cache should serve the lock")
	assert.True(t, r.Degraded())
	assert.Equal(t, DegradedWarning, r.Warning())
	assert.Equal(t, 3, primary.acquireCalls, "primary retried up to the bound before failover")

	// While degraded (and inside the probe interval) calls skip the
	// primary entirely.
	ok, _, err = r.Acquire(ctx, "seat_lock:show-1:A2", testRecord("user-1", time.Minute), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, primary.acquireCalls)

	// The fallback still resolves conflicts.
	ok, current, err := r.Acquire(ctx, "seat_lock:show-1:A1", testRecord("user-2", time.Minute), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NotNil(t, current)
	assert.Equal(t, "user-1", current.Owner)
}

func TestResilient_BothStoresDown(t *testing.T) {
	primary := newFlakyStore()
	primary.setDown(true)
	r := newTestResilient(primary, brokenStore{})
	ctx := context.Background()

	_, _, err := r.Acquire(ctx, "seat_lock:show-1:A1", testRecord("user-1", time.Minute), time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDependencyUnavailable)
}

func TestResilient_RecoversWhenPrimaryReturns(t *testing.T) {
	primary := newFlakyStore()
	primary.setDown(true)
	r := newTestResilient(primary, NewFallbackCache())
	r.probeInterval = 0 // probe on every call
	ctx := context.Background()

	_, _, err := r.Acquire(ctx, "seat_lock:show-1:A1", testRecord("user-1", time.Minute), time.Minute)
	require.NoError(t, err)
	require.True(t, r.Degraded())

	primary.setDown(false)

	ok, _, err := r.Acquire(ctx, "seat_lock:show-1:A2", testRecord("user-1", time.Minute), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, r.Degraded(), "degraded mode clears once the primary answers a probe")
	assert.Greater(t, primary.healthCalls, 0)
}
