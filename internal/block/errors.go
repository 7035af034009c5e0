package block

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes a failed request.
type ErrorCode string

const (
	// ErrCodeMalformedEnvelope: missing envelope or header, empty name, or
	// unrecognised block type.
	ErrCodeMalformedEnvelope ErrorCode = "MALFORMED_ENVELOPE"

	// ErrCodeIntegrityMismatch: computed checksum differs from the supplied one.
	ErrCodeIntegrityMismatch ErrorCode = "INTEGRITY_MISMATCH"

	// ErrCodeHashingUnavailable: the checksum could not be computed.
	ErrCodeHashingUnavailable ErrorCode = "HASHING_UNAVAILABLE"

	// ErrCodeNotFound: no record has the requested name.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Error is a request-local failure with a category code.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Name is the block name involved, if known.
	Name string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Name != "" {
		msg = fmt.Sprintf("%s (name=%s)", msg, e.Name)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewMalformedError creates an Error for a structurally invalid envelope.
func NewMalformedError(name, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeMalformedEnvelope,
		Message: fmt.Sprintf(format, args...),
		Name:    name,
	}
}

// NewIntegrityError creates an Error for a checksum mismatch.
func NewIntegrityError(name, supplied, computed string) *Error {
	return &Error{
		Code:    ErrCodeIntegrityMismatch,
		Message: fmt.Sprintf("checksum %q does not match computed %q", supplied, computed),
		Name:    name,
	}
}

// NewHashingError creates an Error for a checksum that could not be computed.
func NewHashingError(name string, err error) *Error {
	return &Error{
		Code:    ErrCodeHashingUnavailable,
		Message: "checksum could not be computed",
		Name:    name,
		Err:     err,
	}
}

// NewNotFoundError creates an Error for a name with no stored record.
func NewNotFoundError(name string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: "no block with this name",
		Name:    name,
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// IsRejection reports whether err means the envelope was refused on its
// own merits (shape or integrity) rather than because of an infrastructure
// failure.
func IsRejection(err error) bool {
	switch CodeOf(err) {
	case ErrCodeMalformedEnvelope, ErrCodeIntegrityMismatch, ErrCodeHashingUnavailable:
		return true
	}
	return false
}

// IsMalformed reports whether err is a malformed envelope error.
func IsMalformed(err error) bool {
	return CodeOf(err) == ErrCodeMalformedEnvelope
}

// IsIntegrityMismatch reports whether err is a checksum mismatch.
func IsIntegrityMismatch(err error) bool {
	return CodeOf(err) == ErrCodeIntegrityMismatch
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}
