package machine

import (
	"regexp"
	"strings"
)

// Matcher returns the submatches of line, with the whole line first, or nil
// when the line does not match.
type Matcher func(line string) []string

// Regexp matches with a compiled expression. It panics on a bad expression,
// so tables are built from literals only.
func Regexp(expr string) Matcher {
	re := regexp.MustCompile(expr)
	return re.FindStringSubmatch
}

func Contains(substr string) Matcher {
	return func(line string) []string {
		if strings.Contains(line, substr) {
			return []string{line}
		}
		return nil
	}
}

func Prefix(prefix string) Matcher {
	return func(line string) []string {
		if strings.HasPrefix(line, prefix) {
			return []string{line}
		}
		return nil
	}
}

func Exact(want string) Matcher {
	return func(line string) []string {
		if line == want {
			return []string{line}
		}
		return nil
	}
}

// Any matches every line. Used last in a table to capture section bodies.
func Any() Matcher {
	return func(line string) []string { return []string{line} }
}

// Rule is one row of a transition table.
type Rule[S State] struct {
	name  string
	from  []S
	match Matcher
	to    S
	move  bool
	do    func(m []string) error
}

// On starts a rule that fires for lines matching m while the machine is in
// one of the from states, or in any live state when from is empty.
func On[S State](name string, m Matcher, from ...S) Rule[S] {
	return Rule[S]{name: name, from: from, match: m}
}

// Goto makes the rule transition to s.
func (r Rule[S]) Goto(s S) Rule[S] {
	r.to = s
	r.move = true
	return r
}

// Then attaches a side effect run after any transition. The argument holds
// the submatches.
func (r Rule[S]) Then(fn func(m []string) error) Rule[S] {
	r.do = fn
	return r
}

func (r Rule[S]) appliesIn(s S) bool {
	if len(r.from) == 0 {
		return true
	}
	for _, f := range r.from {
		if f == s {
			return true
		}
	}
	return false
}

// Policy decides what happens to a line no rule or noise entry recognises.
type Policy int

const (
	// Ignore logs unknown lines at debug level. For tools whose output is
	// mostly free-form chatter.
	Ignore Policy = iota
	// Warn reports unknown lines as protocol anomalies.
	Warn
)

// Table is an ordered rule list for one output stream. The first matching
// rule wins.
type Table[S State] struct {
	Rules   []Rule[S]
	Noise   []Matcher
	Unknown Policy
	// Normalize rewrites each line before matching, for tools that decorate
	// their output. Lines normalized to nothing are dropped.
	Normalize func(line string) string
}

func (t *Table[S]) lookup(current S, line string) (Rule[S], []string, bool) {
	if t == nil {
		return Rule[S]{}, nil, false
	}
	for _, r := range t.Rules {
		if !r.appliesIn(current) {
			continue
		}
		if m := r.match(line); m != nil {
			return r, m, true
		}
	}
	return Rule[S]{}, nil, false
}

func (t *Table[S]) noise(line string) bool {
	if t == nil {
		return false
	}
	for _, n := range t.Noise {
		if n(line) != nil {
			return true
		}
	}
	return false
}

func (t *Table[S]) allows(from, to S) bool {
	if t == nil {
		return false
	}
	for _, r := range t.Rules {
		if r.move && r.to == to && r.appliesIn(from) {
			return true
		}
	}
	return false
}
