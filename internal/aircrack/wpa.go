package aircrack

import (
	"fmt"
	"os"

	"Airlock/internal/machine"
	"Airlock/internal/procman"
	"Airlock/internal/target"
	"Airlock/pkg/logger"
)

// StartWPA runs a dictionary attack on the handshake of t, feeding the
// dictionary file to aircrack-ng on stdin.
func StartWPA(bin string, t *target.Target, dictionary string, opts procman.Options) (*Cracker, error) {
	handshake, ok := t.Path(target.Handshake)
	if !ok {
		return nil, fmt.Errorf("handshake of %s: %w", t, target.ErrArtifactMissing)
	}
	dict, err := os.Open(dictionary)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	// The child holds its own descriptor once started.
	defer dict.Close()

	args := []string{"-a", "2", "--bssid", t.BSSID, "-q", "-w", "-", "-l", "psk.ascii", handshake}
	opts.Stdin = dict
	if opts.Name == "" {
		opts.Name = "aircrack-wpa"
	}
	p, err := procman.Start(bin, args, opts)
	if err != nil {
		return nil, err
	}
	c := NewWPA(p, t)
	c.Enter(Cracking)
	logger.DebugIfEnabled("[%s] trying dictionary %s", c.Name(), dictionary)
	return c, nil
}

// NewWPA wraps a running dictionary attack that stores its passphrase
// into t. The line reporting an exhausted dictionary makes Update return
// ErrCandidateNotInDictionary.
func NewWPA(src machine.Source, t *target.Target) *Cracker {
	c := newCracker("aircrack-ng wpa", src, t, "psk.ascii")
	c.Out = &machine.Table[CrackState]{
		Rules: []machine.Rule[CrackState]{
			machine.On("key", keyFound, CrackStarted, Cracking).
				Goto(Cracking).
				Then(func(m []string) error { return c.found(m[1]) }),
			machine.On("exhausted", machine.Contains("Passphrase not in dictionary"), CrackStarted, Cracking).
				Goto(Cracking).
				Then(func([]string) error {
					c.SetFlag(FlagNotInDictionary)
					return ErrCandidateNotInDictionary
				}),
		},
		Noise: []machine.Matcher{
			machine.Prefix("Opening "),
			machine.Prefix("Reading packets"),
			machine.Contains("potential targets"),
			machine.Contains("Quitting aircrack-ng"),
		},
		Unknown: machine.Ignore,
	}
	c.Outcome = machine.Outcome[CrackState]{
		SuccessFlags: []string{FlagKeyFound},
		Adverse:      []string{FlagNotInDictionary},
	}
	return c
}
