package lockstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ms-booking/internal/logger"
)

const (
	defaultMaxAttempts   = 3
	defaultBackoff       = 100 * time.Millisecond
	defaultProbeInterval = 5 * time.Second
)

// DegradedWarning is attached to every response served from the fallback
// cache so callers can surface the reduced guarantee.
const DegradedWarning = "primary lock store unreachable; seat locks are held in a process-local fallback cache and are not enforced across instances"

// Resilient fronts the primary lock store with a bounded retry policy and
// fails over to the process-local fallback cache when the primary is
// unreachable. While degraded it periodically probes the primary and swings
// back once it answers.
type Resilient struct {
	primary       Store
	fallback      Store
	logger        *logger.Logger
	maxAttempts   int
	backoff       time.Duration
	probeInterval time.Duration

	mu        sync.Mutex
	degraded  bool
	lastProbe time.Time
}

func NewResilient(primary, fallback Store, log *logger.Logger, maxAttempts int, backoff time.Duration) *Resilient {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	return &Resilient{
		primary:       primary,
		fallback:      fallback,
		logger:        log,
		maxAttempts:   maxAttempts,
		backoff:       backoff,
		probeInterval: defaultProbeInterval,
	}
}

// Degraded reports whether calls are currently served by the fallback cache.
func (r *Resilient) Degraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.degraded
}

// Warning returns the human-readable degradation notice, or "" when healthy.
func (r *Resilient) Warning() string {
	if r.Degraded() {
		return DegradedWarning
	}
	return ""
}

func (r *Resilient) Acquire(ctx context.Context, key string, rec LockRecord, ttl time.Duration) (bool, *LockRecord, error) {
	var ok bool
	var current *LockRecord
	err := r.run(ctx, "acquire "+key, func(s Store) error {
		var e error
		ok, current, e = s.Acquire(ctx, key, rec, ttl)
		return e
	})
	return ok, current, err
}

func (r *Resilient) Release(ctx context.Context, key, owner string) (bool, error) {
	var released bool
	err := r.run(ctx, "release "+key, func(s Store) error {
		var e error
		released, e = s.Release(ctx, key, owner)
		return e
	})
	return released, err
}

func (r *Resilient) Extend(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	var extended bool
	err := r.run(ctx, "extend "+key, func(s Store) error {
		var e error
		extended, e = s.Extend(ctx, key, owner, ttl)
		return e
	})
	return extended, err
}

func (r *Resilient) Get(ctx context.Context, key string) (*LockRecord, error) {
	var rec *LockRecord
	err := r.run(ctx, "get "+key, func(s Store) error {
		var e error
		rec, e = s.Get(ctx, key)
		return e
	})
	return rec, err
}

func (r *Resilient) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	err := r.run(ctx, "keys "+pattern, func(s Store) error {
		var e error
		keys, e = s.Keys(ctx, pattern)
		return e
	})
	return keys, err
}

func (r *Resilient) HealthCheck(ctx context.Context) error {
	if err := r.primary.HealthCheck(ctx); err == nil {
		r.clearDegraded()
		return nil
	}
	return r.fallback.HealthCheck(ctx)
}

// run executes fn against the primary store with retry/backoff, failing over
// to the fallback cache once the primary is classified unreachable.
func (r *Resilient) run(ctx context.Context, op string, fn func(Store) error) error {
	if r.primaryUsable(ctx) {
		var lastErr error
		for attempt := 0; attempt < r.maxAttempts; attempt++ {
			if attempt > 0 {
				if err := r.sleep(ctx, r.backoff<<(attempt-1)); err != nil {
					return err
				}
			}
			lastErr = fn(r.primary)
			if lastErr == nil {
				return nil
			}
			r.warn(fmt.Sprintf("primary store failed (%s, attempt %d/%d): %v", op, attempt+1, r.maxAttempts, lastErr))
		}
		r.markDegraded(op, lastErr)
	}

	if err := fn(r.fallback); err != nil {
		r.warn(fmt.Sprintf("fallback cache failed (%s): %v", op, err))
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	return nil
}

// primaryUsable decides whether this call should go to the primary store.
// While degraded it lets one call per probe interval try the primary again.
func (r *Resilient) primaryUsable(ctx context.Context) bool {
	r.mu.Lock()
	if !r.degraded {
		r.mu.Unlock()
		return true
	}
	if time.Since(r.lastProbe) < r.probeInterval {
		r.mu.Unlock()
		return false
	}
	r.lastProbe = time.Now()
	r.mu.Unlock()

	if err := r.primary.HealthCheck(ctx); err != nil {
		return false
	}
	r.clearDegraded()
	return true
}

func (r *Resilient) markDegraded(op string, cause error) {
	r.mu.Lock()
	already := r.degraded
	r.degraded = true
	r.lastProbe = time.Now()
	r.mu.Unlock()

	if !already {
		r.warn(fmt.Sprintf("primary lock store marked unreachable after %s: %v - switching to fallback cache", op, cause))
	}
}

func (r *Resilient) clearDegraded() {
	r.mu.Lock()
	was := r.degraded
	r.degraded = false
	r.mu.Unlock()

	if was && r.logger != nil {
		r.logger.Info("LOCKSTORE", "primary lock store recovered, leaving degraded mode")
	}
}

func (r *Resilient) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Resilient) warn(message string) {
	if r.logger != nil {
		r.logger.Warn("LOCKSTORE", message)
	}
}
