package main

import (
	"context"
	"errors"

	"Airlock/internal/attack"
	"Airlock/internal/exitcode"
	"Airlock/internal/machine"
	"Airlock/internal/procman"
	"Airlock/internal/target"
)

// exitCode tells environment problems, target failures and transient
// problems apart for scripts driving airlock.
func exitCode(err error) int {
	if err == nil {
		return exitcode.Success
	}
	var coded *exitcode.Error
	var spawn *procman.SpawnError
	var term *machine.UnexpectedTerminationError
	switch {
	case errors.As(err, &coded):
		return coded.Code
	case errors.Is(err, context.Canceled):
		return exitcode.ErrInterrupted
	case errors.As(err, &spawn):
		return exitcode.ErrUnavailable
	case errors.Is(err, attack.ErrNotInAnyDictionary):
		return exitcode.ErrNotInAnyDictionary
	case errors.Is(err, attack.ErrIncorrectCredential):
		return exitcode.ErrIncorrectCredential
	case errors.As(err, &term), errors.Is(err, attack.ErrNotCracked), errors.Is(err, attack.ErrCaptureInterrupted):
		return exitcode.ErrSubprocess
	case errors.Is(err, target.ErrLocked):
		return exitcode.ErrTempFail
	case errors.Is(err, attack.ErrUnsupportedEncryption):
		return exitcode.ErrUsage
	}
	return exitcode.ErrGeneral
}
