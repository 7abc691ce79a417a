package services

import (
	"errors"

	"go.uber.org/zap"
)

// Kind classifies a service failure so callers can decide how to react.
type Kind string

const (
	KindInvalidRequest    Kind = "INVALID_REQUEST"
	KindSoldOut           Kind = "SOLD_OUT"
	KindForbidden         Kind = "FORBIDDEN"
	KindAlreadyUsed       Kind = "ALREADY_USED"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindRecipientNotFound Kind = "RECIPIENT_NOT_FOUND"
	KindNotFound          Kind = "NOT_FOUND"
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindConflict          Kind = "CONFLICT"
	KindStoreUnavailable  Kind = "STORE_UNAVAILABLE"
)

// Error is returned by every service operation. Message is safe to show
// to end users; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrSoldOut)
// works regardless of the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidRequest    = &Error{Kind: KindInvalidRequest, Message: "Invalid request"}
	ErrSoldOut           = &Error{Kind: KindSoldOut, Message: "This event is sold out"}
	ErrForbidden         = &Error{Kind: KindForbidden, Message: "You do not have permission to perform this action"}
	ErrAlreadyUsed       = &Error{Kind: KindAlreadyUsed, Message: "This ticket has already been used"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "This ticket can no longer be changed"}
	ErrRecipientNotFound = &Error{Kind: KindRecipientNotFound, Message: "Recipient user not found"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "Not found"}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized, Message: "You must be logged in"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "This record was changed by another request, please retry"}
	ErrStoreUnavailable  = &Error{Kind: KindStoreUnavailable, Message: "The ticket store is unavailable, please try again"}
)

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func invalid(message string) *Error {
	return newError(KindInvalidRequest, message)
}

func forbidden(message string) *Error {
	return newError(KindForbidden, message)
}

func notFound(message string) *Error {
	return newError(KindNotFound, message)
}

// storeFailure logs the persistence cause and hides it behind
// STORE_UNAVAILABLE. Errors that already carry a Kind pass through.
func storeFailure(log *zap.Logger, op string, err error) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	log.Error("store operation failed", zap.String("op", op), zap.Error(err))
	return &Error{Kind: KindStoreUnavailable, Message: ErrStoreUnavailable.Message, Err: err}
}

// KindOf returns the kind of err, or STORE_UNAVAILABLE for foreign errors.
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindStoreUnavailable
}
