// Package apperr defines the closed error taxonomy surfaced by every
// service in this module.
//
// Every exported service method that can fail returns either nil or an
// *Error whose Code is one of the constants below. Callers should use
// errors.Is against the sentinel Code values (wrapped with fmt.Errorf
// or returned directly) rather than string-matching messages.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable, closed taxonomy of failure categories. New services
// must map their failures onto an existing Code rather than inventing
// a new one.
type Code string

const (
	DoesNotExist        Code = "does_not_exist"
	AlreadyExists       Code = "already_exists"
	InvalidFile         Code = "invalid_file"
	UnsupportedFileType Code = "unsupported_file_type"
	InvalidEmbeddingModel Code = "invalid_embedding_model"
	InvalidProvider     Code = "invalid_provider"
	InvalidParameter    Code = "invalid_parameter"
	OperationUnsupported Code = "operation_unsupported"
	Validation          Code = "validation"
	Chunks              Code = "chunks"
	ChunkerConfig       Code = "chunker_config"
	ChunkerUtf8         Code = "chunker_utf8"
	ParseConfig         Code = "parse_config"
	Parse               Code = "parse"
	Batch               Code = "batch"
	Unauthorized        Code = "unauthorized"
	Provider            Code = "provider"
)

// Error is the wrapped error type returned by every service call.
// It carries the taxonomy Code plus a human-readable message and an
// optional underlying cause, which is tracked for logging but never
// exposed verbatim to callers that only check the Code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Code, so that
// errors.Is(err, apperr.New(apperr.DoesNotExist, "")) style checks work
// without comparing messages.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New builds an *Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error with the given code, message and an underlying
// cause preserved for logging via errors.Unwrap.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf extracts the Code from err if it is (or wraps) an *Error,
// returning ok=false otherwise.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// Sentinel returns a comparable error value for a bare code, suitable
// for errors.Is(err, apperr.Sentinel(apperr.DoesNotExist)).
func Sentinel(code Code) error { return &Error{Code: code} }
