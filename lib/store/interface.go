package store

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Well-Known Keys
// --------------------------------------------------------------------------

// The pipeline persists exactly three documents. The keys are part of the
// persisted layout and must not change between releases.
const (
	// KeyDataA is the client submitted primary dataset.
	KeyDataA = "data_a"
	// KeyDataB is the externally fetched secondary dataset.
	KeyDataB = "data_b"
	// KeyDataC is the derived dataset (shallow merge of A and B).
	KeyDataC = "data_c"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the generic interface for interacting with the key–value store.
// Values are opaque JSON text blobs; the store never interprets them.
// All write operations return only an error (nil on success), while read
// operations return the requested data along with an error (nil on success).
type IStore interface {
	// Put inserts or updates a key–value pair (upsert semantics, last write
	// wins). The write is all-or-nothing: on error the previous value for
	// the key remains intact.
	Put(key string, value []byte) (err error)
	// Get returns the value for a key. The boolean return value indicates
	// whether a value for the key was found - a missing key is not an error.
	Get(key string) (value []byte, loaded bool, err error)
	// Close releases the resources held by the store.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message. Every persistence failure surfaces as an Error with
// code RetCInternalError; callers treat it as a non-recoverable storage
// failure (it is never absorbed by retry logic).
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCInternalError:
		errorCode = "InternalError"
	case RetCInvalidOperation:
		errorCode = "InvalidOperation"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("StoreError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new store Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// NewErrorf creates a new store Error with the given code and a formatted message.
func NewErrorf(code RetCode, format string, args ...interface{}) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                   // 1: Operation failed due to an internal persistence error.
	RetCInvalidOperation                // 2: Invalid operation (e.g. empty key).
)
