package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-booking/internal/lockstore"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

const maxCodeAttempts = 5

type DBLayer interface {
	GetShowtime(ctx context.Context, id string) (*models.Showtime, error)
	GetSeatPrices(ctx context.Context, showtimeID string) (map[string]float64, error)
	GetSeatMap(ctx context.Context, showtimeID string) ([]models.SeatTypeAvailability, error)
	ReserveSeatsAndCreateBooking(ctx context.Context, booking *models.Booking) error
	CancelBooking(ctx context.Context, bookingCode string) (*models.Booking, error)
	GetBookingByCode(ctx context.Context, bookingCode string) (*models.Booking, error)
	BookingCodeExists(ctx context.Context, bookingCode string) (bool, error)
}

type LockManager interface {
	LockSeats(ctx context.Context, showtimeID, ownerID string, seats []string) (*models.LockSeatsResult, error)
	UnlockSeats(ctx context.Context, showtimeID, ownerID string, seats []string) (*models.UnlockSeatsResult, error)
}

// PaymentProcessor is the external payment collaborator.
type PaymentProcessor interface {
	Charge(ctx context.Context, bookingCode string, amount float64, method string) (*models.PaymentResult, error)
}

// EventPublisher feeds the notification/ticketing collaborator. Publishing
// is best-effort and never fails a booking.
type EventPublisher interface {
	PublishBookingConfirmed(booking models.Booking) error
	PublishBookingCancelled(booking models.Booking) error
}

// Service coordinates showtime validation, seat locking, pricing, the
// atomic commit and compensating rollback. It is the only writer of the
// showtime seat map and booking records.
type Service struct {
	DB       DBLayer
	Locks    LockManager
	Payments PaymentProcessor
	Events   EventPublisher
	logger   *logger.Logger
}

func NewService(db DBLayer, locks LockManager, payments PaymentProcessor, events EventPublisher, log *logger.Logger) *Service {
	return &Service{DB: db, Locks: locks, Payments: payments, Events: events, logger: log}
}

// CreateAtomicBooking either fully commits a booking (seat-map mutation,
// unique booking code, booking row) or leaves no observable state behind.
// Any failure after lock acquisition releases the locks before returning.
func (s *Service) CreateAtomicBooking(ctx context.Context, userID, showtimeID string, seats []models.SeatRequest, paymentMethod string) (*models.Booking, error) {
	if len(seats) == 0 {
		return nil, newError(CodeGeneralError, "no seats requested")
	}

	// Step 1: validate the showtime.
	showtime, err := s.DB.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, &Error{Code: CodeGeneralError, Message: "failed to load showtime", Err: err}
	}
	now := time.Now()
	switch {
	case showtime == nil:
		return nil, newError(CodeShowtimeError, fmt.Sprintf("showtime %s not found", showtimeID))
	case !showtime.IsActive:
		return nil, newError(CodeShowtimeError, fmt.Sprintf("showtime %s is not active", showtimeID))
	case !showtime.StartsAt.After(now):
		return nil, newError(CodeShowtimeError, fmt.Sprintf("showtime %s has already started", showtimeID))
	case now.After(showtime.BookingDeadline):
		return nil, newError(CodeDeadlineError, fmt.Sprintf("booking deadline for showtime %s has passed", showtimeID))
	}

	// Step 2: acquire seat locks. Conflicts and lock-store outages both
	// stop here with no side effects.
	seatLabels := make([]string, len(seats))
	for i, seat := range seats {
		seatLabels[i] = seat.Seat
	}
	lockRes, err := s.Locks.LockSeats(ctx, showtimeID, userID, seatLabels)
	if err != nil {
		if errors.Is(err, lockstore.ErrDependencyUnavailable) {
			return nil, &Error{Code: CodeSeatError, Message: "seat locking is unavailable, please retry", Err: err}
		}
		return nil, &Error{Code: CodeSeatError, Message: "failed to lock seats", Err: err}
	}
	if !lockRes.Success {
		return nil, &Error{
			Code:      CodeSeatError,
			Message:   "seats already locked by another user",
			Conflicts: lockRes.Conflicts,
			Degraded:  lockRes.Degraded,
		}
	}

	// Step 3: price the seats from the showtime's price table.
	prices, err := s.DB.GetSeatPrices(ctx, showtimeID)
	if err != nil {
		s.releaseLocks(ctx, showtimeID, userID, seatLabels)
		return nil, &Error{Code: CodeGeneralError, Message: "failed to load price table", Err: err}
	}
	var totalAmount float64
	bookedSeats := make([]models.BookedSeat, len(seats))
	for i, seat := range seats {
		price, ok := prices[seat.Type]
		if !ok {
			s.releaseLocks(ctx, showtimeID, userID, seatLabels)
			return nil, newError(CodeShowtimeError, fmt.Sprintf("no price configured for seat type %q", seat.Type))
		}
		totalAmount += price
		bookedSeats[i] = models.BookedSeat{
			SeatLabel: seat.Seat,
			SeatType:  seat.Type,
			UnitPrice: price,
		}
	}

	bookingCode, err := s.generateBookingCode(ctx)
	if err != nil {
		s.releaseLocks(ctx, showtimeID, userID, seatLabels)
		return nil, &Error{Code: CodeGeneralError, Message: "failed to generate booking code", Err: err}
	}

	// Invoke the payment collaborator before committing so a declined
	// payment never reserves seats.
	payment, err := s.Payments.Charge(ctx, bookingCode, totalAmount, paymentMethod)
	if err != nil {
		s.releaseLocks(ctx, showtimeID, userID, seatLabels)
		return nil, &Error{Code: CodePaymentError, Message: "payment failed", Err: err}
	}
	if payment.Status != models.PaymentStatusPaid {
		s.releaseLocks(ctx, showtimeID, userID, seatLabels)
		return nil, newError(CodePaymentError, fmt.Sprintf("payment was not accepted (status %s)", payment.Status))
	}

	// Step 4: atomic commit. Seat-map move + booking row succeed or fail
	// together inside one transaction.
	booking := &models.Booking{
		BookingCode:   bookingCode,
		UserID:        userID,
		ShowtimeID:    showtimeID,
		TotalAmount:   totalAmount,
		PaymentStatus: payment.Status,
		BookingStatus: models.BookingStatusConfirmed,
		CreatedAt:     now,
		Seats:         bookedSeats,
	}
	if err := s.DB.ReserveSeatsAndCreateBooking(ctx, booking); err != nil {
		s.releaseLocks(ctx, showtimeID, userID, seatLabels)
		var unavailable *models.SeatUnavailableError
		if errors.As(err, &unavailable) {
			return nil, &Error{
				Code:      CodeSeatError,
				Message:   "seats already reserved",
				Conflicts: unavailable.Seats,
				Err:       err,
			}
		}
		s.warn(fmt.Sprintf("commit failed after payment %s was taken for %s: %v", payment.TransactionID, bookingCode, err))
		return nil, &Error{Code: CodeGeneralError, Message: "failed to commit booking", Err: err}
	}

	// Locks are superseded by the confirmed booking; release them early
	// rather than waiting for TTL expiry.
	s.releaseLocks(ctx, showtimeID, userID, seatLabels)

	if s.Events != nil {
		if err := s.Events.PublishBookingConfirmed(*booking); err != nil {
			s.warn(fmt.Sprintf("failed to publish booking.confirmed for %s: %v", bookingCode, err))
		}
	}

	s.logBooking("CREATED", bookingCode, fmt.Sprintf("user %s, showtime %s, %d seat(s), total %.0f", userID, showtimeID, len(bookedSeats), totalAmount))
	return booking, nil
}

// CancelBookingAtomically transitions a booking to cancelled and returns its
// seats to the available pool in one transaction.
func (s *Service) CancelBookingAtomically(ctx context.Context, bookingCode string) (*models.Booking, error) {
	booking, err := s.DB.CancelBooking(ctx, bookingCode)
	if err != nil {
		return nil, err
	}

	if s.Events != nil {
		if err := s.Events.PublishBookingCancelled(*booking); err != nil {
			s.warn(fmt.Sprintf("failed to publish booking.cancelled for %s: %v", bookingCode, err))
		}
	}

	s.logBooking("CANCELLED", bookingCode, fmt.Sprintf("%d seat(s) returned to pool", len(booking.Seats)))
	return booking, nil
}

// CheckCancelEligibility reports whether a booking may still be cancelled
// without mutating anything.
func (s *Service) CheckCancelEligibility(ctx context.Context, bookingCode string) (*models.CancelEligibility, error) {
	booking, err := s.DB.GetBookingByCode(ctx, bookingCode)
	if err != nil {
		return nil, err
	}
	switch booking.BookingStatus {
	case models.BookingStatusCancelled:
		return &models.CancelEligibility{Eligible: false, Reason: "booking is already cancelled"}, nil
	case models.BookingStatusUsed:
		return &models.CancelEligibility{Eligible: false, Reason: "booking has already been used"}, nil
	}
	return &models.CancelEligibility{Eligible: true}, nil
}

func (s *Service) GetBooking(ctx context.Context, bookingCode string) (*models.Booking, error) {
	return s.DB.GetBookingByCode(ctx, bookingCode)
}

func (s *Service) GetSeatMap(ctx context.Context, showtimeID string) ([]models.SeatTypeAvailability, error) {
	return s.DB.GetSeatMap(ctx, showtimeID)
}

// generateBookingCode draws codes until one is free. Codes carry enough
// entropy that more than one retry is already unusual.
func (s *Service) generateBookingCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := utils.GenerateBookingCode()
		exists, err := s.DB.BookingCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
		s.warn(fmt.Sprintf("booking code collision on %s, regenerating", code))
	}
	return "", fmt.Errorf("could not generate a unique booking code in %d attempts", maxCodeAttempts)
}

// releaseLocks is the compensation step: best-effort, logged, never blocks
// the error path it runs on.
func (s *Service) releaseLocks(ctx context.Context, showtimeID, userID string, seats []string) {
	if _, err := s.Locks.UnlockSeats(ctx, showtimeID, userID, seats); err != nil {
		s.warn(fmt.Sprintf("compensating unlock failed for showtime %s seats %s: %v", showtimeID, strings.Join(seats, ", "), err))
	}
}

func (s *Service) warn(message string) {
	if s.logger != nil {
		s.logger.Warn("BOOKING", message)
	}
}

func (s *Service) logBooking(action, bookingCode, message string) {
	if s.logger != nil {
		s.logger.LogBooking(action, bookingCode, message)
	}
}
