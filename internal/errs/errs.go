// Package errs defines the shared error taxonomy. Every caller-facing error
// carries a kind, a retriability hint, and a user-safe message; technical
// detail stays in the wrapped cause and the logs.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation policy decisions.
type Kind string

const (
	KindNotFound            Kind = "NOT_FOUND"
	KindValidation          Kind = "VALIDATION"
	KindPricing             Kind = "PRICING"
	KindCacheUnavailable    Kind = "CACHE_UNAVAILABLE"
	KindProviderUnavailable Kind = "PROVIDER_UNAVAILABLE"
	KindConflict            Kind = "CONFLICT"
	KindUnauthorized        Kind = "UNAUTHORIZED"
	KindQueueFull           Kind = "QUEUE_FULL"
	KindTimeout             Kind = "TIMEOUT"
	KindInternal            Kind = "INTERNAL"
)

// Error is the caller-facing error type.
type Error struct {
	Kind        Kind
	Retriable   bool
	UserMessage string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.UserMessage)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an error of the given kind wrapping a cause.
func E(kind Kind, userMessage string, cause error) *Error {
	return &Error{
		Kind:        kind,
		Retriable:   retriable(kind),
		UserMessage: userMessage,
		Err:         cause,
	}
}

// Ef builds an error of the given kind from a format string. The formatted
// message doubles as the cause.
func Ef(kind Kind, userMessage, format string, args ...interface{}) *Error {
	return E(kind, userMessage, fmt.Errorf(format, args...))
}

func retriable(kind Kind) bool {
	switch kind {
	case KindCacheUnavailable, KindProviderUnavailable, KindConflict, KindTimeout:
		return true
	}
	return false
}

// KindOf extracts the kind from an error chain, defaulting to INTERNAL.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// NotFound builds a NOT_FOUND error for an entity.
func NotFound(entity, id string) *Error {
	return Ef(KindNotFound, entity+" not found", "%s %q not found", entity, id)
}

// Validation builds a VALIDATION error from a cause.
func Validation(cause error) *Error {
	return E(KindValidation, "invalid request", cause)
}
