package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds. Every error a service returns to a caller matches one of
// these with errors.Is, or is an unexpected infrastructure failure.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("invalid state")
	ErrValidation      = errors.New("validation failed")
	ErrExternalService = errors.New("external service failure")
)

var (
	ErrEventNotFound        = Errorf(ErrNotFound, "Event not found")
	ErrBookingNotFound      = Errorf(ErrNotFound, "Booking not found")
	ErrNotificationNotFound = Errorf(ErrNotFound, "Notification not found")

	ErrNotEnoughTickets    = Errorf(ErrInvalidState, "Not enough tickets available")
	ErrEventNotBookable    = Errorf(ErrInvalidState, "Event is not available for booking")
	ErrAlreadyPaid         = Errorf(ErrInvalidState, "Booking already paid")
	ErrAlreadyCancelled    = Errorf(ErrInvalidState, "Booking is already cancelled")
	ErrBookingCancelled    = Errorf(ErrInvalidState, "Booking was cancelled, the payment has been refunded")
	ErrSoldOut             = Errorf(ErrInvalidState, "Event sold out before the payment completed, the payment has been refunded")
	ErrPaymentNotCompleted = Errorf(ErrInvalidState, "Payment not completed")
	ErrAmountMismatch      = Errorf(ErrInvalidState, "Payment amount does not match the booking")
	ErrConcurrentUpdate    = Errorf(ErrInvalidState, "Booking changed concurrently, please retry")
	ErrTicketsBooked       = Errorf(ErrInvalidState, "Total tickets cannot drop below tickets already sold")

	ErrIntentMismatch = Errorf(ErrValidation, "Payment intent does not belong to this booking")
)

type kindError struct {
	kind  error
	msg   string
	cause error
}

func (e *kindError) Error() string {
	return e.msg
}

func (e *kindError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// Errorf builds an error of the given kind whose message is safe to show
// to API clients.
func Errorf(kind error, format string, args ...interface{}) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// external marks a collaborator failure. The cause stays reachable so the
// HTTP layer can tell a timeout from a rejection.
func external(msg string, cause error) error {
	return &kindError{kind: ErrExternalService, msg: msg, cause: cause}
}

// ValidationError lists the offending fields and the rule each one broke.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+e.Fields[name])
	}
	return "Invalid input: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
