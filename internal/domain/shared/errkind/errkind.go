// Package errkind tags domain errors with a stable kind so that callers can
// turn any failure into a structured (kind, message) result.
package errkind

import "errors"

type Kind string

const (
	Unknown                Kind = "UNKNOWN"
	InvalidInput           Kind = "INVALID_INPUT"
	InvalidRange           Kind = "INVALID_RANGE"
	PastStartDate          Kind = "PAST_START_DATE"
	Unavailable            Kind = "UNAVAILABLE"
	Conflict               Kind = "CONFLICT"
	SelfBooking            Kind = "SELF_BOOKING"
	AlreadyPaid            Kind = "ALREADY_PAID"
	NotPayable             Kind = "NOT_PAYABLE"
	ReviewNotEligible      Kind = "REVIEW_NOT_ELIGIBLE"
	ExternalServiceFailure Kind = "EXTERNAL_SERVICE_FAILURE"
	InvalidPrice           Kind = "INVALID_PRICE"
	InvalidState           Kind = "INVALID_STATE"
	NotFound               Kind = "NOT_FOUND"
	Forbidden              Kind = "FORBIDDEN"
)

// Error is a kind-tagged error. Two *Error values are equal under errors.Is
// only when they are the same value; use KindOf to compare kinds.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap tags cause with kind. The message defaults to cause.Error().
func Wrap(kind Kind, message string, cause error) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil && e.cause.Error() != e.Message {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return Unknown
}

// MessageOf returns the message of the first *Error in err's chain, or err.Error().
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Message
	}
	return err.Error()
}
