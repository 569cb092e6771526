// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import "errors"

// ErrorCode classifies lifecycle failures for the API boundary.
type ErrorCode int

const (
	ErrCodeNone ErrorCode = iota
	ErrCodeNotFound
	ErrCodeConflict
	ErrCodeValidation
	ErrCodeAccessDenied
	ErrCodeServiceUnavailable
	ErrCodeInternal
)

// String returns the stable machine-readable code.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeNotFound:
		return "NotFound"
	case ErrCodeConflict:
		return "Conflict"
	case ErrCodeValidation:
		return "Validation"
	case ErrCodeAccessDenied:
		return "AccessDenied"
	case ErrCodeServiceUnavailable:
		return "ServiceUnavailable"
	case ErrCodeInternal:
		return "Internal"
	}
	return "None"
}

// Error is a lifecycle failure carrying a classification code.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func notFound(message string) *Error {
	return newError(ErrCodeNotFound, message, nil)
}

func conflict(message string) *Error {
	return newError(ErrCodeConflict, message, nil)
}

func validation(message string) *Error {
	return newError(ErrCodeValidation, message, nil)
}

func accessDenied(reason string) *Error {
	return newError(ErrCodeAccessDenied, reason, nil)
}

func internal(message string, err error) *Error {
	return newError(ErrCodeInternal, message, err)
}

// CodeOf extracts the classification from err, ErrCodeInternal for
// anything unclassified.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}
