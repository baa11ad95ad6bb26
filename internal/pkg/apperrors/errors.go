// Package apperrors defines the error taxonomy shared by the checkout core and
// the HTTP layer.
package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure
type Kind string

const (
	KindInvalidCartLine    Kind = "invalid_cart_line"
	KindUnroutableShipping Kind = "unroutable_shipping"
	KindPersistence        Kind = "persistence_failure"
	KindTimeout            Kind = "timeout"
	KindNotFound           Kind = "not_found"
	KindValidation         Kind = "validation"
	KindUnauthorized       Kind = "unauthorized"
	KindInternal           Kind = "internal"
)

// Error is a classified application error
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same request may succeed later without the
// buyer changing anything.
func (e *Error) Retryable() bool {
	return Retryable(e.Kind)
}

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a cause
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Retryable reports whether failures of this kind are transient.
// UnroutableShipping is only retryable after the buyer changes destination,
// and InvalidCartLine only after the cart is corrected.
func Retryable(kind Kind) bool {
	switch kind {
	case KindTimeout, KindPersistence:
		return true
	default:
		return false
	}
}

// KindOf returns the kind of the first *Error in err's chain. Context
// cancellation and deadlines are reported as KindTimeout.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if IsContextError(err) {
		return KindTimeout
	}
	return KindInternal
}

// Is reports whether err is classified as kind
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsContextError reports whether err came from a cancelled or expired context
func IsContextError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// FromContext converts context errors into KindTimeout errors and leaves
// everything else untouched.
func FromContext(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	if IsContextError(err) {
		return Wrap(KindTimeout, message, err)
	}
	return err
}

// HTTPStatus maps a kind to the response status code
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidCartLine, KindUnroutableShipping:
		return http.StatusUnprocessableEntity
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindPersistence:
		return http.StatusServiceUnavailable
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is what buyers see for a failure of the given kind
func PublicMessage(kind Kind) string {
	switch kind {
	case KindInvalidCartLine:
		return "This item is no longer available"
	case KindUnroutableShipping:
		return "Shipping not available to this destination"
	case KindTimeout:
		return "The request timed out, please try again"
	case KindPersistence:
		return "Could not save your order, please try again"
	case KindNotFound:
		return "Resource not found"
	case KindValidation:
		return "Invalid request data"
	case KindUnauthorized:
		return "Authentication required"
	default:
		return "Internal server error"
	}
}
