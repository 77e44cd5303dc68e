// Package exitcode defines the process exit codes of airlock. Most follow
// sysexits.h so scripts can tell environment problems from target
// failures and transient ones.
package exitcode

import (
	"errors"
	"fmt"
)

const (
	Success = 0

	ErrGeneral = 1
	ErrUsage   = 2

	// Environment (sysexits.h)
	ErrUnavailable = 69 // a required tool or file is missing
	ErrTempFail    = 75 // try again later, e.g. the target is busy
	ErrNoPerm      = 77 // not running as root

	// Target outcomes
	ErrTargetNotFound      = 79
	ErrNotInAnyDictionary  = 80
	ErrIncorrectCredential = 81
	ErrSubprocess          = 82

	ErrInterrupted = 130
)

// Error carries the exit code a failure should end the process with.
type Error struct {
	Code    int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to cause.
func Wrap(code int, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Code extracts the exit code from err, looking through wrapping. Errors
// without one map to ErrGeneral.
func Code(err error) int {
	if err == nil {
		return Success
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ErrGeneral
}

// Is checks if an error has a specific exit code.
func Is(err error, code int) bool {
	return Code(err) == code
}

// TargetNotFound is returned when a scan did not see the requested network.
func TargetNotFound(name string) *Error {
	return Newf(ErrTargetNotFound, "target %s not found during scan, make sure it is within reach", name)
}

// Unavailable reports missing tools.
func Unavailable(what string) *Error {
	return Newf(ErrUnavailable, "required tools not found: %s", what)
}
