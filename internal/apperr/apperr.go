// Package apperr implements the error taxonomy from spec.md §7. Every
// handler and worker returns errors of this shape so the external
// surface can map them to a stable HTTP status and body, and so
// workers can decide retry vs. dead-letter without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind is the coarse error category from spec.md §7.
type Kind string

const (
	KindValidation           Kind = "validation"
	KindUnauthenticated      Kind = "unauthenticated"
	KindForbidden            Kind = "forbidden"
	KindNotFound             Kind = "not_found"
	KindConflict             Kind = "conflict"
	KindRateLimited          Kind = "rate_limited"
	KindExternalFailure      Kind = "external_failure"
	KindTransientStoreFailure Kind = "transient_store_failure"
	KindFatal                Kind = "fatal"
)

// Error is the typed error every domain function returns.
type Error struct {
	Kind       Kind
	Message    string
	Details    map[string]any
	RetryAfter time.Duration // only meaningful for KindRateLimited
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// As extracts an *Error from err, following the chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the Kind of err, defaulting to KindFatal for errors
// that were never classified (a programming omission worth treating
// as the worst case rather than silently returning 200).
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindFatal
}

func newErr(k Kind, msg string, cause error) *Error {
	return &Error{Kind: k, Message: msg, cause: cause}
}

func Validation(msg string, details map[string]any) *Error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

func Unauthenticated(msg string) *Error { return newErr(KindUnauthenticated, msg, nil) }

func Forbidden(msg string) *Error { return newErr(KindForbidden, msg, nil) }

// NotFound is used both for genuinely missing resources and for
// "exists but not yours" (spec.md §7: prevents ID enumeration across
// tenants — never return Forbidden for cross-tenant reads).
func NotFound(msg string) *Error { return newErr(KindNotFound, msg, nil) }

func Conflict(msg string) *Error { return newErr(KindConflict, msg, nil) }

func RateLimited(msg string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimited, Message: msg, RetryAfter: retryAfter}
}

func ExternalFailure(msg string, cause error) *Error {
	return newErr(KindExternalFailure, msg, cause)
}

func TransientStoreFailure(msg string, cause error) *Error {
	return newErr(KindTransientStoreFailure, msg, cause)
}

func Fatal(msg string, cause error) *Error { return newErr(KindFatal, msg, cause) }

// HTTPStatus maps a Kind to the status code spec.md §6/§7 mandates.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindExternalFailure:
		return http.StatusBadGateway
	case KindTransientStoreFailure, KindFatal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a background worker should retry a job
// that failed with this error, per spec.md §7's propagation policy.
// Transient store failures, external failures and rate limiting are
// retried per the job's own retry policy; every other kind, including
// ValidationError and Forbidden, is a poison-pill condition.
func Retryable(k Kind) bool {
	switch k {
	case KindTransientStoreFailure, KindExternalFailure, KindRateLimited:
		return true
	default:
		return false
	}
}
