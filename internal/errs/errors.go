// Package errs provides the unified error type used across all of DatBridge.
//
// Every subsystem (config, pool, driver adapters, export) wraps its native
// errors into *errs.Error before returning them to callers. Callers use the
// Is* predicates to handle errors without importing driver-specific packages.
//
// Usage:
//
//	// In an adapter, wrap native errors:
//	return errs.Wrap(errs.ErrKindQuery, "query failed", pgErr)
//
//	// In the orchestrator, check error kind:
//	if errs.IsPoolExhausted(err) {
//	    retryLater(q)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing backend-specific codes.
// All adapters (Postgres, MySQL, …) map their native errors to one of these
// kinds, giving callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown       ErrKind = iota
	ErrKindConfig                // bad or out-of-bounds raw setting, fatal at construction
	ErrKindPoolExhausted         // acquire timed out waiting for a free connection
	ErrKindConnection            // cannot reach or authenticate to the data source
	ErrKindQuery                 // SQL execution error from the native layer
	ErrKindCancelled             // query was cancelled by the caller
	ErrKindNotFound              // no rows, object, or schema matched
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindConfig:
		return "config"
	case ErrKindPoolExhausted:
		return "pool_exhausted"
	case ErrKindConnection:
		return "connection_failed"
	case ErrKindQuery:
		return "query_failed"
	case ErrKindCancelled:
		return "cancelled"
	case ErrKindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all DatBridge subsystems.
// Adapters produce it; callers inspect it via the Is* predicates below.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original native error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsConfig reports whether err is a configuration resolution failure.
func IsConfig(err error) bool {
	return kindOf(err) == ErrKindConfig
}

// IsPoolExhausted reports whether err means the acquire timeout elapsed
// with every pooled connection still checked out. Retryable by the caller.
func IsPoolExhausted(err error) bool {
	return kindOf(err) == ErrKindPoolExhausted
}

// IsConnection reports whether err is a connectivity or auth failure.
func IsConnection(err error) bool {
	return kindOf(err) == ErrKindConnection
}

// IsQuery reports whether err is a native SQL execution error.
func IsQuery(err error) bool {
	return kindOf(err) == ErrKindQuery
}

// IsCancelled reports whether err means the caller cancelled the query.
// Cancellation is a terminal state distinct from failure and is never
// retried automatically.
func IsCancelled(err error) bool {
	return kindOf(err) == ErrKindCancelled
}

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return kindOf(err) == ErrKindNotFound
}

// kindOf extracts the ErrKind from any error in the chain.
func kindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
