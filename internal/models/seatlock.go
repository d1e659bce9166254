package models

import "time"

// SeatLock is one active exclusive claim on a seat for a showtime.
type SeatLock struct {
	ShowtimeID string    `json:"showtime_id"`
	SeatLabel  string    `json:"seat_label"`
	OwnerID    string    `json:"owner_id"`
	LockedAt   time.Time `json:"locked_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func (s SeatLock) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

type LockSeatsResult struct {
	Success     bool      `json:"success"`
	LockedSeats []string  `json:"locked_seats,omitempty"`
	Conflicts   []string  `json:"conflicts,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
	Degraded    bool      `json:"degraded,omitempty"`
	Warning     string    `json:"warning,omitempty"`
}

type UnlockSeatsResult struct {
	Success  bool     `json:"success"`
	Unlocked []string `json:"unlocked,omitempty"`
	Skipped  []string `json:"skipped,omitempty"`
	Degraded bool     `json:"degraded,omitempty"`
	Warning  string   `json:"warning,omitempty"`
}

type ExtendLockResult struct {
	ExtendedSeats []string  `json:"extended_seats"`
	FailedSeats   []string  `json:"failed_seats"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"`
	Degraded      bool      `json:"degraded,omitempty"`
	Warning       string    `json:"warning,omitempty"`
}

// LockStatistics aggregates active lock counts for operational dashboards.
// It is not part of the booking hot path.
type LockStatistics struct {
	TotalActiveLocks int            `json:"total_active_locks"`
	LocksPerShowtime map[string]int `json:"locks_per_showtime"`
	LocksPerUser     map[string]int `json:"locks_per_user"`
}
