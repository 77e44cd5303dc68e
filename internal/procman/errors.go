package procman

import (
	"errors"
	"fmt"
)

// ErrCleaned is returned by every operation on a process whose resources were released.
var ErrCleaned = errors.New("operation not permitted on cleaned process")

// SpawnError reports that an external tool could not be started at all.
type SpawnError struct {
	Command string
	// Missing is set when the executable could not be located.
	Missing bool
	Err     error
}

func (e *SpawnError) Error() string {
	if e.Missing {
		return fmt.Sprintf("spawn %s: executable not found: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("spawn %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }
