package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-booking/internal/booking"
	"ms-booking/internal/lockstore"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/seatlock"
	"ms-booking/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	BookingService *booking.Service
	LockManager    *seatlock.Manager
	Logger         *logger.Logger
}

func NewHandler(bookingService *booking.Service, lockManager *seatlock.Manager, log *logger.Logger) *Handler {
	return &Handler{
		BookingService: bookingService,
		LockManager:    lockManager,
		Logger:         log,
	}
}

type lockRequest struct {
	UserID string               `json:"user_id"`
	Seats  []models.SeatRequest `json:"seats"`
}

type seatsRequest struct {
	UserID string   `json:"user_id"`
	Seats  []string `json:"seats"`
}

// LockSeats handles POST /api/v1/showtimes/{showtimeId}/seats/lock.
func (h *Handler) LockSeats(w http.ResponseWriter, r *http.Request) {
	showtimeID := chi.URLParam(r, "showtimeId")

	var req lockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if req.UserID == "" || len(req.Seats) == 0 {
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Validation failed", "user_id and seats are required"))
		return
	}

	seats := make([]string, len(req.Seats))
	for i, seat := range req.Seats {
		seats[i] = seat.Seat
	}

	result, err := h.LockManager.LockSeats(r.Context(), showtimeID, req.UserID, seats)
	if err != nil {
		h.writeLockStoreError(w, "LockSeats", err)
		return
	}
	if !result.Success {
		h.writeJSON(w, http.StatusConflict, utils.ErrorResponseWithDetails(
			"Some seats are already locked", "seat conflict", result))
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Seats locked", result))
}

// UnlockSeats handles DELETE /api/v1/showtimes/{showtimeId}/seats/unlock.
func (h *Handler) UnlockSeats(w http.ResponseWriter, r *http.Request) {
	showtimeID := chi.URLParam(r, "showtimeId")

	var req seatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	result, err := h.LockManager.UnlockSeats(r.Context(), showtimeID, req.UserID, req.Seats)
	if err != nil {
		h.writeLockStoreError(w, "UnlockSeats", err)
		return
	}
	if !result.Success {
		h.writeJSON(w, http.StatusForbidden, utils.ErrorResponseWithDetails(
			"None of the requested seats are locked by this user", "not lock owner", result))
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Seats unlocked", result))
}

// ExtendLock handles PUT /api/v1/showtimes/{showtimeId}/seats/extend-lock.
func (h *Handler) ExtendLock(w http.ResponseWriter, r *http.Request) {
	showtimeID := chi.URLParam(r, "showtimeId")

	var req seatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	result := h.LockManager.ExtendLock(r.Context(), showtimeID, req.UserID, req.Seats)
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Lock extension processed", result))
}

// SeatStatus handles GET /api/v1/showtimes/{showtimeId}/seat-status.
func (h *Handler) SeatStatus(w http.ResponseWriter, r *http.Request) {
	showtimeID := chi.URLParam(r, "showtimeId")

	locks, err := h.LockManager.GetSeatStatus(r.Context(), showtimeID)
	if err != nil {
		h.writeLockStoreError(w, "SeatStatus", err)
		return
	}
	availability, err := h.BookingService.GetSeatMap(r.Context(), showtimeID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("SeatStatus: failed to load seat map: %v", err))
		h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to load seat map", err.Error()))
		return
	}

	view := models.SeatStatusView{
		ShowtimeID:   showtimeID,
		Locks:        locks,
		Availability: availability,
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Seat status", view))
}

// LockStatistics handles GET /api/v1/admin/lock-statistics.
func (h *Handler) LockStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.LockManager.GetLockStatistics(r.Context())
	if err != nil {
		h.writeLockStoreError(w, "LockStatistics", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Lock statistics", stats))
}

// CreateBooking handles POST /api/v1/bookings.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if req.UserID == "" || req.ShowtimeID == "" || len(req.Seats) == 0 {
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Validation failed", "user_id, showtime_id and seats are required"))
		return
	}

	result, err := h.BookingService.CreateAtomicBooking(r.Context(), req.UserID, req.ShowtimeID, req.Seats, req.PaymentMethod)
	if err != nil {
		h.writeBookingError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, utils.SuccessResponse("Booking confirmed", result))
}

// GetBooking handles GET /api/v1/bookings/{bookingCode}.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingCode := chi.URLParam(r, "bookingCode")

	result, err := h.BookingService.GetBooking(r.Context(), bookingCode)
	if err != nil {
		var notFound *models.NotFoundError
		if errors.As(err, &notFound) {
			h.writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Booking not found", err.Error()))
			return
		}
		h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to load booking", err.Error()))
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Booking", result))
}

// CancelBooking handles PUT /api/v1/bookings/{bookingCode}/cancel.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingCode := chi.URLParam(r, "bookingCode")

	result, err := h.BookingService.CancelBookingAtomically(r.Context(), bookingCode)
	if err != nil {
		var notFound *models.NotFoundError
		if errors.As(err, &notFound) {
			h.writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Booking not found", err.Error()))
			return
		}
		var ineligible *models.AlreadyInStateError
		if errors.As(err, &ineligible) {
			h.writeJSON(w, http.StatusUnprocessableEntity, utils.ErrorResponseWithDetails(
				"Booking cannot be cancelled", ineligible.Reason,
				models.CancelEligibility{Eligible: false, Reason: ineligible.Reason}))
			return
		}
		h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to cancel booking", err.Error()))
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Booking cancelled", result))
}

func (h *Handler) writeBookingError(w http.ResponseWriter, err error) {
	var bookingErr *booking.Error
	if !errors.As(err, &bookingErr) {
		h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Booking failed", err.Error()))
		return
	}

	status := http.StatusInternalServerError
	switch bookingErr.Code {
	case booking.CodeSeatError:
		status = http.StatusConflict
		if errors.Is(bookingErr.Err, lockstore.ErrDependencyUnavailable) {
			status = http.StatusServiceUnavailable
		}
	case booking.CodePaymentError:
		status = http.StatusPaymentRequired
	case booking.CodeShowtimeError, booking.CodeDeadlineError:
		status = http.StatusBadRequest
	}

	h.writeJSON(w, status, utils.ErrorResponseWithDetails(bookingErr.Message, string(bookingErr.Code), bookingErr))
}

func (h *Handler) writeLockStoreError(w http.ResponseWriter, op string, err error) {
	h.Logger.Error("API", fmt.Sprintf("%s: lock store error: %v", op, err))
	if errors.Is(err, lockstore.ErrDependencyUnavailable) {
		h.writeJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Seat locking is unavailable", err.Error()))
		return
	}
	h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Lock operation failed", err.Error()))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.Logger.Error("API", fmt.Sprintf("failed to encode response: %v", err))
	}
}
