package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	SeatStatusAvailable = "available"
	SeatStatusReserved  = "reserved"
)

type Showtime struct {
	bun.BaseModel `bun:"table:showtimes"`

	ID              string    `bun:"id,pk" json:"id"`
	MovieTitle      string    `bun:"movie_title,notnull" json:"movie_title"`
	Hall            string    `bun:"hall" json:"hall"`
	StartsAt        time.Time `bun:"starts_at,notnull" json:"starts_at"`
	BookingDeadline time.Time `bun:"booking_deadline,notnull" json:"booking_deadline"`
	IsActive        bool      `bun:"is_active,notnull" json:"is_active"`
}

// ShowtimeSeat is one seat label in a showtime's seat map. A seat is either
// available or reserved, never both.
type ShowtimeSeat struct {
	bun.BaseModel `bun:"table:showtime_seats"`

	ID         int64  `bun:"id,pk,autoincrement" json:"-"`
	ShowtimeID string `bun:"showtime_id,notnull" json:"showtime_id"`
	SeatLabel  string `bun:"seat_label,notnull" json:"seat_label"`
	SeatType   string `bun:"seat_type,notnull" json:"seat_type"`
	Status     string `bun:"status,notnull" json:"status"`
}

// ShowtimePrice is the price for one seat type of one showtime.
type ShowtimePrice struct {
	bun.BaseModel `bun:"table:showtime_prices"`

	ID         int64   `bun:"id,pk,autoincrement" json:"-"`
	ShowtimeID string  `bun:"showtime_id,notnull" json:"showtime_id"`
	SeatType   string  `bun:"seat_type,notnull" json:"seat_type"`
	Price      float64 `bun:"price,notnull" json:"price"`
}

// SeatTypeAvailability is the per-tier view of a showtime's seat map.
type SeatTypeAvailability struct {
	SeatType  string   `json:"seat_type"`
	Price     float64  `json:"price"`
	Available []string `json:"available"`
	Reserved  []string `json:"reserved"`
}

// SeatStatusView combines live locks with the seat map for one showtime.
type SeatStatusView struct {
	ShowtimeID   string                 `json:"showtime_id"`
	Locks        []SeatLock             `json:"locks"`
	Availability []SeatTypeAvailability `json:"availability"`
	Degraded     bool                   `json:"degraded,omitempty"`
	Warning      string                 `json:"warning,omitempty"`
}
