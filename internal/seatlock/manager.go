package seatlock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ms-booking/internal/lockstore"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

const keyPrefix = "seat_lock:"

// LockStore is the resilient adapter surface the manager needs. Conflict
// resolution is written against this interface so it can be tested without
// simulating network failures.
type LockStore interface {
	Acquire(ctx context.Context, key string, rec lockstore.LockRecord, ttl time.Duration) (bool, *lockstore.LockRecord, error)
	Release(ctx context.Context, key, owner string) (bool, error)
	Extend(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (*lockstore.LockRecord, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
	Degraded() bool
	Warning() string
}

// Manager owns all writes to seat locks. The TTL is fixed for every lock and
// injected from configuration; expiry itself is enforced by the store.
type Manager struct {
	store  LockStore
	ttl    time.Duration
	logger *logger.Logger
}

func NewManager(store LockStore, ttl time.Duration, log *logger.Logger) *Manager {
	return &Manager{store: store, ttl: ttl, logger: log}
}

func lockKey(showtimeID, seatLabel string) string {
	return keyPrefix + showtimeID + ":" + seatLabel
}

func seatFromKey(key string) (showtimeID, seatLabel string, ok bool) {
	parts := strings.SplitN(strings.TrimPrefix(key, keyPrefix), ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// LockSeats locks every requested seat for ownerID or none of them. Seats
// already held by the same owner are refreshed instead of re-acquired. When
// any seat is held by another owner the call fails with the full conflict
// list and every lock newly taken during this call is released again.
func (m *Manager) LockSeats(ctx context.Context, showtimeID, ownerID string, seats []string) (*models.LockSeatsResult, error) {
	now := time.Now()
	expiresAt := now.Add(m.ttl)

	var newlyLocked []string
	var locked []string
	var conflicts []string

	rollback := func() {
		for _, seat := range newlyLocked {
			if _, err := m.store.Release(ctx, lockKey(showtimeID, seat), ownerID); err != nil {
				m.warn(fmt.Sprintf("rollback release failed for %s/%s: %v", showtimeID, seat, err))
			}
		}
	}

	for _, seat := range seats {
		key := lockKey(showtimeID, seat)

		current, err := m.store.Get(ctx, key)
		if err != nil {
			rollback()
			return nil, err
		}

		if current != nil {
			if current.Owner != ownerID {
				conflicts = append(conflicts, seat)
				continue
			}
			// Same owner asking again: refresh the TTL.
			if _, err := m.store.Extend(ctx, key, ownerID, m.ttl); err != nil {
				rollback()
				return nil, err
			}
			locked = append(locked, seat)
			continue
		}

		rec := lockstore.LockRecord{
			Owner:      ownerID,
			ShowtimeID: showtimeID,
			LockedAt:   now,
			ExpiresAt:  expiresAt,
		}
		ok, holder, err := m.store.Acquire(ctx, key, rec, m.ttl)
		if err != nil {
			rollback()
			return nil, err
		}
		if !ok {
			if holder != nil && holder.Owner == ownerID {
				locked = append(locked, seat)
				continue
			}
			conflicts = append(conflicts, seat)
			continue
		}
		newlyLocked = append(newlyLocked, seat)
		locked = append(locked, seat)
	}

	if len(conflicts) > 0 {
		rollback()
		m.logLock("CONFLICT", showtimeID, fmt.Sprintf("owner %s lost seats: %s", ownerID, strings.Join(conflicts, ", ")))
		return &models.LockSeatsResult{
			Success:   false,
			Conflicts: conflicts,
			Degraded:  m.store.Degraded(),
			Warning:   m.store.Warning(),
		}, nil
	}

	m.logLock("ACQUIRED", showtimeID, fmt.Sprintf("owner %s locked %d seat(s)", ownerID, len(locked)))
	return &models.LockSeatsResult{
		Success:     true,
		LockedSeats: locked,
		ExpiresAt:   expiresAt,
		Degraded:    m.store.Degraded(),
		Warning:     m.store.Warning(),
	}, nil
}

// UnlockSeats releases only the locks held by ownerID. Seats locked by
// someone else (or not locked at all) are reported back as skipped, and the
// result is unsuccessful when the caller owned none of the requested seats.
func (m *Manager) UnlockSeats(ctx context.Context, showtimeID, ownerID string, seats []string) (*models.UnlockSeatsResult, error) {
	var unlocked []string
	var skipped []string

	for _, seat := range seats {
		released, err := m.store.Release(ctx, lockKey(showtimeID, seat), ownerID)
		if err != nil {
			return nil, err
		}
		if released {
			unlocked = append(unlocked, seat)
		} else {
			skipped = append(skipped, seat)
		}
	}

	m.logLock("RELEASED", showtimeID, fmt.Sprintf("owner %s released %d of %d seat(s)", ownerID, len(unlocked), len(seats)))
	return &models.UnlockSeatsResult{
		Success:  len(unlocked) > 0,
		Unlocked: unlocked,
		Skipped:  skipped,
		Degraded: m.store.Degraded(),
		Warning:  m.store.Warning(),
	}, nil
}

// ExtendLock refreshes the TTL on every requested seat the caller owns. It
// reports per-seat outcomes and never fails as a whole: store errors simply
// land the seat in FailedSeats.
func (m *Manager) ExtendLock(ctx context.Context, showtimeID, ownerID string, seats []string) *models.ExtendLockResult {
	result := &models.ExtendLockResult{
		ExtendedSeats: []string{},
		FailedSeats:   []string{},
	}

	for _, seat := range seats {
		ok, err := m.store.Extend(ctx, lockKey(showtimeID, seat), ownerID, m.ttl)
		if err != nil {
			m.warn(fmt.Sprintf("extend failed for %s/%s: %v", showtimeID, seat, err))
			ok = false
		}
		if ok {
			result.ExtendedSeats = append(result.ExtendedSeats, seat)
		} else {
			result.FailedSeats = append(result.FailedSeats, seat)
		}
	}

	if len(result.ExtendedSeats) > 0 {
		result.ExpiresAt = time.Now().Add(m.ttl)
	}
	result.Degraded = m.store.Degraded()
	result.Warning = m.store.Warning()
	return result
}

// GetSeatStatus lists all active locks for a showtime.
func (m *Manager) GetSeatStatus(ctx context.Context, showtimeID string) ([]models.SeatLock, error) {
	keys, err := m.store.Keys(ctx, keyPrefix+showtimeID+":*")
	if err != nil {
		return nil, err
	}

	locks := make([]models.SeatLock, 0, len(keys))
	for _, key := range keys {
		rec, err := m.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue // expired between the scan and the read
		}
		_, seat, ok := seatFromKey(key)
		if !ok {
			continue
		}
		locks = append(locks, models.SeatLock{
			ShowtimeID: showtimeID,
			SeatLabel:  seat,
			OwnerID:    rec.Owner,
			LockedAt:   rec.LockedAt,
			ExpiresAt:  rec.ExpiresAt,
		})
	}
	return locks, nil
}

// GetLockStatistics aggregates active lock counts per showtime and per user.
func (m *Manager) GetLockStatistics(ctx context.Context) (*models.LockStatistics, error) {
	keys, err := m.store.Keys(ctx, keyPrefix+"*")
	if err != nil {
		return nil, err
	}

	stats := &models.LockStatistics{
		LocksPerShowtime: make(map[string]int),
		LocksPerUser:     make(map[string]int),
	}
	for _, key := range keys {
		rec, err := m.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		showtimeID, _, ok := seatFromKey(key)
		if !ok {
			continue
		}
		stats.TotalActiveLocks++
		stats.LocksPerShowtime[showtimeID]++
		stats.LocksPerUser[rec.Owner]++
	}
	return stats, nil
}

// TTL exposes the configured lock duration for API responses.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func (m *Manager) warn(message string) {
	if m.logger != nil {
		m.logger.Warn("LOCK", message)
	}
}

func (m *Manager) logLock(action, showtimeID, message string) {
	if m.logger != nil {
		m.logger.LogLock(action, showtimeID, message)
	}
}
