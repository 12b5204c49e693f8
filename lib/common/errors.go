package common

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the error type returned by the object mapping layer itself.
// Errors reported by the backend are never wrapped in an Error; they are
// returned to the caller as they were received.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
	Data []byte  // Offending payload (only set for RetCDeserialization)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code == RetCDeserialization && e.Data != nil {
		return fmt.Sprintf("TrolError (code %s): %s (data %q)", e.Code, e.Msg, e.Data)
	}
	return fmt.Sprintf("TrolError (code %s): %s", e.Code, e.Msg)
}

// Is reports whether target is an *Error carrying the same code.
// This makes the package level sentinels usable with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Errorf creates a new Error with the given code and a formatted message.
func Errorf(code RetCode, format string, args ...interface{}) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// NewDeserializationError creates an error carrying the bytes that could not be decoded.
func NewDeserializationError(data []byte, cause error) *Error {
	msg := "failed to deserialize model reference"
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return &Error{
		Code: RetCDeserialization,
		Msg:  msg,
		Data: cp,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess         RetCode = iota // 0: Operation executed successfully.
	RetCConfiguration                  // 1: Static declaration mistake (missing name, key or connection).
	RetCUnsupportedType                // 2: No serializer or deserializer registered for a type.
	RetCPrecondition                   // 3: Misuse, e.g. reading a key before the identifier is set.
	RetCDeserialization                // 4: A stored model reference could not be decoded.
	RetCOutOfRange                     // 5: Index outside of a list.
	RetCNotFound                       // 6: Requested field or member does not exist.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCConfiguration:
		return "Configuration"
	case RetCUnsupportedType:
		return "UnsupportedType"
	case RetCPrecondition:
		return "Precondition"
	case RetCDeserialization:
		return "Deserialization"
	case RetCOutOfRange:
		return "OutOfRange"
	case RetCNotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Sentinels (match any Error with the same code through errors.Is)
// --------------------------------------------------------------------------

var (
	ErrConfiguration   = NewError(RetCConfiguration, "configuration error")
	ErrUnsupportedType = NewError(RetCUnsupportedType, "unsupported type")
	ErrPrecondition    = NewError(RetCPrecondition, "precondition failed")
	ErrDeserialization = NewError(RetCDeserialization, "deserialization failed")
	ErrOutOfRange      = NewError(RetCOutOfRange, "index out of range")
	ErrNotFound        = NewError(RetCNotFound, "not found")
)
