package models

import (
	"fmt"
	"strings"
)

// NotFoundError reports a booking or showtime that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// AlreadyInStateError rejects a transition on a booking that is already in a
// terminal state. Reason is user-facing ("already cancelled",
// "has already been used").
type AlreadyInStateError struct {
	BookingCode string
	State       string
	Reason      string
}

func (e *AlreadyInStateError) Error() string {
	return fmt.Sprintf("booking %s cannot be cancelled: %s", e.BookingCode, e.Reason)
}

// SeatUnavailableError aborts an atomic commit when a seat left the
// available pool between locking and reservation.
type SeatUnavailableError struct {
	Seats []string
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("seats no longer available: %s", strings.Join(e.Seats, ", "))
}
