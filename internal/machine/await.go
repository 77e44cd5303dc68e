package machine

import (
	"context"
	"time"
)

// Runner is a machine whose process is expected to finish on its own.
type Runner interface {
	Update() error
	Terminated() bool
	Stop() (int, error)
}

// Await updates m every poll until its process exits. On cancellation the
// process is stopped and ctx.Err() returned.
func Await(ctx context.Context, m Runner, poll time.Duration) error {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		if err := m.Update(); err != nil {
			return err
		}
		if m.Terminated() {
			return nil
		}
		select {
		case <-ctx.Done():
			_, _ = m.Stop()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
