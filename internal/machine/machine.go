// Package machine turns the text output of a supervised tool into state,
// flags and counters using ordered (state, pattern) rule tables.
package machine

import (
	"errors"
	"fmt"
	"maps"

	"Airlock/pkg/logger"
)

// State is a tool specific state enum.
type State interface {
	~int
	String() string
}

// Source is the process side a machine reads from. *procman.Process
// implements it.
type Source interface {
	Update() error
	Stdout() []string
	Stderr() []string
	Exit() (int, bool)
	Stop() (int, error)
	Cleanup() error
	Dir() string
}

// UnexpectedTerminationError is returned when a tool exits before reaching a
// success state and without an adverse flag explaining why.
type UnexpectedTerminationError struct {
	Tool     string
	ExitCode int
	State    string
}

func (e *UnexpectedTerminationError) Error() string {
	return fmt.Sprintf("%s terminated unexpectedly in state %s with exit code %d", e.Tool, e.State, e.ExitCode)
}

// Outcome says which ends of a run are not a surprise.
type Outcome[S State] struct {
	// SuccessStates count as success once visited.
	SuccessStates []S
	// SuccessFlags count as success once set.
	SuccessFlags []string
	// Adverse flags explain a termination the orchestrator should handle.
	Adverse []string
}

// Base holds everything machines share. Tools embed it and fill Out, Err and
// Outcome before the first Update.
type Base[S State] struct {
	Tool    string
	Out     *Table[S]
	Err     *Table[S]
	Outcome Outcome[S]

	src        Source
	state      S
	terminated S
	path       []S
	flags      map[string]bool
	stats      map[string]int
	anomalies  []string
	stopped    bool
}

// NewBase starts a machine in the start state. terminated is the state
// entered when the process exits.
func NewBase[S State](tool string, src Source, start, terminated S) Base[S] {
	return Base[S]{
		Tool:       tool,
		src:        src,
		state:      start,
		terminated: terminated,
		path:       []S{start},
		flags:      make(map[string]bool),
		stats:      make(map[string]int),
	}
}

// Update ingests output produced since the last call. stdout lines are
// handled before stderr lines, each in arrival order. Errors from rule side
// effects do not stop the remaining lines from being processed.
func (b *Base[S]) Update() error {
	// Exit is sampled before draining: output written before an observed
	// exit is then always consumed before the machine terminates.
	code, exited := b.src.Exit()
	if err := b.src.Update(); err != nil {
		return err
	}
	var errs []error
	for _, line := range b.src.Stdout() {
		if err := b.feed(b.Out, "stdout", line); err != nil {
			errs = append(errs, err)
		}
	}
	for _, line := range b.src.Stderr() {
		if err := b.feed(b.Err, "stderr", line); err != nil {
			errs = append(errs, err)
		}
	}
	if exited && b.state != b.terminated {
		last := b.state
		b.moveTo(b.terminated)
		if !b.stopped && !b.succeeded() && !b.explained() {
			errs = append(errs, &UnexpectedTerminationError{Tool: b.Tool, ExitCode: code, State: last.String()})
		}
	}
	return joinErrors(errs)
}

func (b *Base[S]) feed(t *Table[S], stream, line string) error {
	if t != nil && t.Normalize != nil {
		if line = t.Normalize(line); line == "" {
			return nil
		}
	}
	rule, m, ok := t.lookup(b.state, line)
	if !ok {
		switch {
		case t.noise(line):
			logger.DebugIfEnabled("[%s] %s noise: %s", b.Tool, stream, line)
		case t == nil && stream == "stderr", t != nil && t.Unknown == Warn:
			b.anomaly(stream, line)
		default:
			logger.DebugIfEnabled("[%s] %s ignored in %s: %s", b.Tool, stream, b.state, line)
		}
		return nil
	}
	if rule.move && rule.to != b.state {
		b.moveTo(rule.to)
	}
	if rule.do != nil {
		if err := rule.do(m); err != nil {
			return fmt.Errorf("%s %s: %w", b.Tool, rule.name, err)
		}
	}
	return nil
}

// Enter moves to s for tools whose progress is observed outside their
// output, such as files they write.
func (b *Base[S]) Enter(s S) {
	if s != b.state {
		b.moveTo(s)
	}
}

func (b *Base[S]) moveTo(s S) {
	logger.DebugIfEnabled("[%s] %s -> %s", b.Tool, b.state, s)
	b.state = s
	b.path = append(b.path, s)
}

func (b *Base[S]) anomaly(stream, line string) {
	b.anomalies = append(b.anomalies, line)
	logger.Warnf("[%s] unexpected %s output in state %s: %q", b.Tool, stream, b.state, line)
}

func (b *Base[S]) succeeded() bool {
	for _, want := range b.Outcome.SuccessStates {
		for _, s := range b.path {
			if s == want {
				return true
			}
		}
	}
	for _, f := range b.Outcome.SuccessFlags {
		if b.flags[f] {
			return true
		}
	}
	return false
}

func (b *Base[S]) explained() bool {
	for _, f := range b.Outcome.Adverse {
		if b.flags[f] {
			return true
		}
	}
	return false
}

// Stop terminates the process and consumes whatever it printed on the way
// out. A stop requested here never counts as an unexpected termination.
func (b *Base[S]) Stop() (int, error) {
	b.stopped = true
	code, err := b.src.Stop()
	if err != nil {
		return code, err
	}
	return code, b.Update()
}

// Cleanup releases the process resources.
func (b *Base[S]) Cleanup() error {
	return b.src.Cleanup()
}

func (b *Base[S]) Name() string { return b.Tool }

// Dir is the scratch directory of the wrapped process.
func (b *Base[S]) Dir() string { return b.src.Dir() }

func (b *Base[S]) State() S { return b.state }

// Path lists every state visited, in order, starting with the initial one.
func (b *Base[S]) Path() []S { return append([]S(nil), b.path...) }

// Terminated reports whether the process exit has been observed.
func (b *Base[S]) Terminated() bool { return b.state == b.terminated }

func (b *Base[S]) Flag(name string) bool { return b.flags[name] }

func (b *Base[S]) SetFlag(name string) { b.flags[name] = true }

func (b *Base[S]) Flags() map[string]bool { return maps.Clone(b.flags) }

func (b *Base[S]) Stat(name string) int { return b.stats[name] }

func (b *Base[S]) SetStat(name string, v int) { b.stats[name] = v }

func (b *Base[S]) Stats() map[string]int { return maps.Clone(b.stats) }

// Anomalies are the lines reported as unexpected so far.
func (b *Base[S]) Anomalies() []string { return append([]string(nil), b.anomalies...) }

// Allowed reports whether from -> to is a transition the tables declare.
// Every live state may move to the terminated state.
func (b *Base[S]) Allowed(from, to S) bool {
	if to == b.terminated {
		return true
	}
	return b.Out.allows(from, to) || b.Err.allows(from, to)
}

func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Join(errs...)
	}
}
