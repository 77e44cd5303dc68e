// Package machinetest provides a scripted stand-in for a running tool.
package machinetest

import (
	"sync"

	"Airlock/internal/procman"
)

// Source replays queued lines to a machine. Lines pushed between two Update
// calls become visible on the next Update, like a real process. An exit is
// visible at once, while lines pushed before it still wait for Update.
type Source struct {
	mu        sync.Mutex
	dir       string
	queuedOut []string
	queuedErr []string
	out       []string
	err       []string
	code      int
	exited    bool
	cleaned   bool

	StopCalls    int
	CleanupCalls int
}

// New returns a source whose scratch directory is dir.
func New(dir string) *Source {
	return &Source{dir: dir}
}

// PushOut queues stdout lines.
func (s *Source) PushOut(lines ...string) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queuedOut = append(s.queuedOut, lines...)
	return s
}

// PushErr queues stderr lines.
func (s *Source) PushErr(lines ...string) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queuedErr = append(s.queuedErr, lines...)
	return s
}

// Terminate makes the process exit with code now. Queued lines are still
// delivered by the next Update.
func (s *Source) Terminate(code int) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exited {
		s.code, s.exited = code, true
	}
	return s
}

func (s *Source) Update() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleaned {
		return procman.ErrCleaned
	}
	s.out = append(s.out, s.queuedOut...)
	s.err = append(s.err, s.queuedErr...)
	s.queuedOut, s.queuedErr = nil, nil
	return nil
}

func (s *Source) Stdout() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.out
	s.out = nil
	return lines
}

func (s *Source) Stderr() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.err
	s.err = nil
	return lines
}

func (s *Source) Exit() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code, s.exited
}

func (s *Source) Stop() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleaned {
		return 0, procman.ErrCleaned
	}
	s.StopCalls++
	if !s.exited {
		s.code, s.exited = -1, true
	}
	return s.code, nil
}

func (s *Source) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleaned {
		return procman.ErrCleaned
	}
	s.CleanupCalls++
	s.cleaned = true
	return nil
}

func (s *Source) Dir() string { return s.dir }

// Cleaned reports whether Cleanup ran.
func (s *Source) Cleaned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleaned
}
