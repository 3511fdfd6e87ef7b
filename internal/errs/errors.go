// Package errs provides the unified error type used across all of mdbread.
//
// Every subsystem (catalog, mdbtools, database, filestore, server, …) wraps
// its native errors into *errs.Error before returning them to callers.
// Callers use the Is* predicates to handle errors without importing
// backend-specific packages.
//
// Usage:
//
//	// In an adapter, wrap native errors:
//	return errs.Wrap(errs.ErrKindToolFailed, "mdb-export exited with status 1", exitErr)
//
//	// In a handler, check the error kind:
//	if errs.IsUnknownTable(err) {
//	    http.Error(w, "no such table", http.StatusNotFound)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
// All backends (mdbtools, Postgres, MySQL, MinIO, …) map their native errors
// to one of these kinds, giving callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no rows, no object, no bucket
	ErrKindConnectionFailed         // cannot reach the backend
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindQueryFailed              // SQL or storage operation error
	ErrKindInvalidInput             // bad arguments from the caller
	ErrKindPermissionDenied         // access denied / auth failure
	ErrKindToolFailed               // external tool missing, not startable or exited non-zero
	ErrKindDecodeFailed             // tool output is not valid UTF-8 text
	ErrKindDiscoveryFailed          // table listing failed while opening a catalog
	ErrKindFetchFailed              // schema / csv / sql dump failed
	ErrKindUnknownTable             // table is not part of the discovered set
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindToolFailed:
		return "tool_failed"
	case ErrKindDecodeFailed:
		return "decode_failed"
	case ErrKindDiscoveryFailed:
		return "discovery_failed"
	case ErrKindFetchFailed:
		return "fetch_failed"
	case ErrKindUnknownTable:
		return "unknown_table"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all mdbread subsystems.
// Adapters produce it; callers inspect it via the Is* predicates below.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original backend-level error, preserved for logging
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

// IsNotFound reports whether err represents a "not found" result
// (no rows, missing object, unknown bucket, …).
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a backend operation failure
// (SQL execution error, storage I/O error, …).
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsToolFailed reports whether err is an external tool failure.
func IsToolFailed(err error) bool {
	return KindOf(err) == ErrKindToolFailed
}

// IsDecodeFailed reports whether tool output could not be decoded as text.
func IsDecodeFailed(err error) bool {
	return KindOf(err) == ErrKindDecodeFailed
}

// IsDiscoveryFailed reports whether err came from listing the tables of a
// database file.
func IsDiscoveryFailed(err error) bool {
	return KindOf(err) == ErrKindDiscoveryFailed
}

// IsFetchFailed reports whether err came from a schema or table dump.
func IsFetchFailed(err error) bool {
	return KindOf(err) == ErrKindFetchFailed
}

// IsUnknownTable reports whether err names a table the catalog does not have.
func IsUnknownTable(err error) bool {
	return KindOf(err) == ErrKindUnknownTable
}

// HasKind reports whether any *Error in the chain of err carries kind.
// Unlike the Is* predicates it looks past the outermost error, so a timeout
// wrapped inside a fetch failure is still visible.
func HasKind(err error, kind ErrKind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// KindOf extracts the ErrKind of the outermost *Error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
