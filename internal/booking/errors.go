package booking

import "strings"

// ErrorCode classifies a booking failure. Codes are assigned at the exact
// point of failure, never inferred from error text.
type ErrorCode string

const (
	CodeSeatError     ErrorCode = "SEAT_ERROR"
	CodePaymentError  ErrorCode = "PAYMENT_ERROR"
	CodeShowtimeError ErrorCode = "SHOWTIME_ERROR"
	CodeDeadlineError ErrorCode = "DEADLINE_ERROR"
	CodeGeneralError  ErrorCode = "GENERAL_ERROR"
)

// Error is the structured failure returned by the orchestrator. For seat
// conflicts it enumerates exactly the contested seat labels.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Conflicts []string  `json:"conflicts,omitempty"`
	Degraded  bool      `json:"degraded,omitempty"`
	Err       error     `json:"-"`
}

func (e *Error) Error() string {
	if len(e.Conflicts) > 0 {
		return e.Message + ": " + strings.Join(e.Conflicts, ", ")
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}
