package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusUsed      = "used"

	PaymentStatusPaid   = "paid"
	PaymentStatusFailed = "failed"
)

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	BookingCode   string    `bun:"booking_code,pk" json:"booking_code"`
	UserID        string    `bun:"user_id,notnull" json:"user_id"`
	ShowtimeID    string    `bun:"showtime_id,notnull" json:"showtime_id"`
	TotalAmount   float64   `bun:"total_amount,notnull" json:"total_amount"`
	PaymentStatus string    `bun:"payment_status,notnull" json:"payment_status"`
	BookingStatus string    `bun:"booking_status,notnull" json:"booking_status"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`

	Seats []BookedSeat `bun:"rel:has-many,join:booking_code=booking_code" json:"seats"`
}

// BookedSeat is one seat line on a booking, priced at booking time.
type BookedSeat struct {
	bun.BaseModel `bun:"table:booking_seats"`

	ID          int64   `bun:"id,pk,autoincrement" json:"-"`
	BookingCode string  `bun:"booking_code,notnull" json:"-"`
	SeatLabel   string  `bun:"seat_label,notnull" json:"seat_label"`
	SeatType    string  `bun:"seat_type,notnull" json:"seat_type"`
	UnitPrice   float64 `bun:"unit_price,notnull" json:"unit_price"`
}

// CancelEligibility reports whether a booking may still be cancelled and,
// when not, which terminal state blocks it.
type CancelEligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

type SeatRequest struct {
	Seat string `json:"seat"`
	Type string `json:"type"`
}

type BookingRequest struct {
	ShowtimeID    string        `json:"showtime_id"`
	UserID        string        `json:"user_id"`
	Seats         []SeatRequest `json:"seats"`
	PaymentMethod string        `json:"payment_method"`
}

type PaymentResult struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
}
