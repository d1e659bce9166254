package db

import (
	"context"
	"database/sql"
	"errors"

	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- SHOWTIMES (catalog provider reads) ----------------

// GetShowtime returns nil without error when the showtime does not exist.
func (d *DB) GetShowtime(ctx context.Context, id string) (*models.Showtime, error) {
	var showtime models.Showtime
	err := d.Bun.NewSelect().
		Model(&showtime).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &showtime, nil
}

// GetSeatPrices returns the per-seat-type price table for a showtime.
func (d *DB) GetSeatPrices(ctx context.Context, showtimeID string) (map[string]float64, error) {
	var prices []models.ShowtimePrice
	err := d.Bun.NewSelect().
		Model(&prices).
		Where("showtime_id = ?", showtimeID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	table := make(map[string]float64, len(prices))
	for _, p := range prices {
		table[p.SeatType] = p.Price
	}
	return table, nil
}

// GetSeatMap returns the available/reserved partition per seat type.
func (d *DB) GetSeatMap(ctx context.Context, showtimeID string) ([]models.SeatTypeAvailability, error) {
	var seats []models.ShowtimeSeat
	err := d.Bun.NewSelect().
		Model(&seats).
		Where("showtime_id = ?", showtimeID).
		Order("seat_label").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	prices, err := d.GetSeatPrices(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	byType := make(map[string]*models.SeatTypeAvailability)
	var order []string
	for _, seat := range seats {
		pool, ok := byType[seat.SeatType]
		if !ok {
			pool = &models.SeatTypeAvailability{
				SeatType:  seat.SeatType,
				Price:     prices[seat.SeatType],
				Available: []string{},
				Reserved:  []string{},
			}
			byType[seat.SeatType] = pool
			order = append(order, seat.SeatType)
		}
		if seat.Status == models.SeatStatusReserved {
			pool.Reserved = append(pool.Reserved, seat.SeatLabel)
		} else {
			pool.Available = append(pool.Available, seat.SeatLabel)
		}
	}

	result := make([]models.SeatTypeAvailability, 0, len(order))
	for _, seatType := range order {
		result = append(result, *byType[seatType])
	}
	return result, nil
}

// ---------------- ATOMIC COMMIT / ROLLBACK ----------------

// ReserveSeatsAndCreateBooking moves every booked seat from available to
// reserved and inserts the booking with its seat lines, all inside one
// transaction. If any seat is no longer available the whole transaction
// rolls back and a SeatUnavailableError names the seats that were lost.
func (d *DB) ReserveSeatsAndCreateBooking(ctx context.Context, booking *models.Booking) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var unavailable []string
		for _, seat := range booking.Seats {
			res, err := tx.NewUpdate().
				Model((*models.ShowtimeSeat)(nil)).
				Set("status = ?", models.SeatStatusReserved).
				Where("showtime_id = ?", booking.ShowtimeID).
				Where("seat_label = ?", seat.SeatLabel).
				Where("status = ?", models.SeatStatusAvailable).
				Exec(ctx)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected != 1 {
				unavailable = append(unavailable, seat.SeatLabel)
			}
		}
		if len(unavailable) > 0 {
			return &models.SeatUnavailableError{Seats: unavailable}
		}

		if _, err := tx.NewInsert().Model(booking).Exec(ctx); err != nil {
			return err
		}
		for i := range booking.Seats {
			booking.Seats[i].BookingCode = booking.BookingCode
		}
		if _, err := tx.NewInsert().Model(&booking.Seats).Exec(ctx); err != nil {
			return err
		}
		return nil
	})
}

// CancelBooking flips a confirmed booking to cancelled and returns its seats
// to the available pool as one transaction. Eligibility is checked inside
// the transaction so a concurrent cancel cannot double-release seats.
func (d *DB) CancelBooking(ctx context.Context, bookingCode string) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(&booking).
			Relation("Seats").
			Where("booking_code = ?", bookingCode).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return &models.NotFoundError{Resource: "booking", ID: bookingCode}
		}
		if err != nil {
			return err
		}

		switch booking.BookingStatus {
		case models.BookingStatusCancelled:
			return &models.AlreadyInStateError{
				BookingCode: bookingCode,
				State:       models.BookingStatusCancelled,
				Reason:      "booking is already cancelled",
			}
		case models.BookingStatusUsed:
			return &models.AlreadyInStateError{
				BookingCode: bookingCode,
				State:       models.BookingStatusUsed,
				Reason:      "booking has already been used",
			}
		}

		booking.BookingStatus = models.BookingStatusCancelled
		if _, err := tx.NewUpdate().
			Model(&booking).
			Column("booking_status").
			Where("booking_code = ?", bookingCode).
			Exec(ctx); err != nil {
			return err
		}

		for _, seat := range booking.Seats {
			if _, err := tx.NewUpdate().
				Model((*models.ShowtimeSeat)(nil)).
				Set("status = ?", models.SeatStatusAvailable).
				Where("showtime_id = ?", booking.ShowtimeID).
				Where("seat_label = ?", seat.SeatLabel).
				Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// ---------------- BOOKINGS ----------------

func (d *DB) GetBookingByCode(ctx context.Context, bookingCode string) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.NewSelect().
		Model(&booking).
		Relation("Seats").
		Where("booking_code = ?", bookingCode).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Resource: "booking", ID: bookingCode}
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (d *DB) BookingCodeExists(ctx context.Context, bookingCode string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Booking)(nil)).
		Where("booking_code = ?", bookingCode).
		Exists(ctx)
}

func (d *DB) GetBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Relation("Seats").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}
