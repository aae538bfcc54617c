// Package errors provides the error type used across carbon: a single
// wrapping struct keyed by a closed ErrorCode enum, rather than one Go type
// per failure. Archive open, iterator, and ingest paths all return *CarbonError
// so callers can switch on Code without type assertions.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the kind of failure, grouped the way the taxonomy is
// grouped: structural, input, access, I/O, allocation.
type ErrorCode string

const (
	// Structural errors abort the entire archive open or traversal.
	CodeCorruptedHeader  ErrorCode = "CORRUPTED_HEADER"
	CodeMarkerMismatch   ErrorCode = "MARKER_MISMATCH"
	CodeNoSuchType       ErrorCode = "NO_SUCH_TYPE"
	CodeInternalInvariant ErrorCode = "INTERNAL_INVARIANT"

	// Input errors are fatal to the ingest; partial CIM is discarded.
	CodeNoType                     ErrorCode = "NO_TYPE"
	CodeMixedArrayTypes             ErrorCode = "MIXED_ARRAY_TYPES"
	CodeMixedArrayOrArrayOfArrays   ErrorCode = "MIXED_ARRAY_OR_ARRAY_OF_ARRAYS"
	CodeJSONTypeUnsupportedAtRoot   ErrorCode = "JSON_TYPE_UNSUPPORTED_AT_ROOT"
	CodeNoJSONToken                 ErrorCode = "NO_JSON_TOKEN"

	// Access errors are returned from the failing accessor or iterator
	// call; iterators keep no error field of their own.
	CodeOutOfBounds             ErrorCode = "OUT_OF_BOUNDS"
	CodeTypeMismatch            ErrorCode = "TYPE_MISMATCH"
	CodeIteratorNotInObjectMode ErrorCode = "ITERATOR_NOT_IN_OBJECT_MODE"
	CodeValueIteratorOpenFailed ErrorCode = "VALUE_ITERATOR_OPEN_FAILED"

	// I/O errors originate from the memory-file cursor.
	CodeMemfileOpenFailed ErrorCode = "MEMFILE_OPEN_FAILED"
	CodeMemfileSeekFailed ErrorCode = "MEMFILE_SEEK_FAILED"
	CodeMemfileSkipFailed ErrorCode = "MEMFILE_SKIP_FAILED"

	// Allocation errors.
	CodeAllocFailed ErrorCode = "ALLOC_FAILED"
)

// Sentinel errors for out-of-bounds, type-mismatch and not-in-object-mode
// failures. No function in this module returns or wraps them; failures
// come back as *CarbonError and are matched with Is(err, code).
var (
	ErrOutOfBounds   = errors.New("out of bounds")
	ErrTypeMismatch  = errors.New("type mismatch")
	ErrNotObjectMode = errors.New("iterator not in object mode")
)

// CarbonError is the one error type used across the archive, iterator, and
// visitor packages. Code identifies the failure kind; Message carries
// context (offset, key name, expected type); Err is the wrapped cause, if
// any (an underlying os/mmap error, for instance).
type CarbonError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *CarbonError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CarbonError) Unwrap() error {
	return e.Err
}

// New creates a CarbonError with no wrapped cause.
func New(code ErrorCode, message string) *CarbonError {
	return &CarbonError{Code: code, Message: message}
}

// Wrap creates a CarbonError around an existing error, preserving it for
// errors.Unwrap/errors.Is.
func Wrap(err error, code ErrorCode, message string) *CarbonError {
	if err == nil {
		return nil
	}
	return &CarbonError{Code: code, Message: message, Err: err}
}

// Is reports whether err is a *CarbonError carrying the given code.
func Is(err error, code ErrorCode) bool {
	var ce *CarbonError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// Code extracts the ErrorCode from err, or CodeInternalInvariant if err is
// not a *CarbonError.
func Code(err error) ErrorCode {
	var ce *CarbonError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeInternalInvariant
}
