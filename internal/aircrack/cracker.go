// Package aircrack recovers keys from captures with aircrack-ng.
package aircrack

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"Airlock/internal/files"
	"Airlock/internal/machine"
	"Airlock/internal/target"
	"Airlock/pkg/logger"
)

// ErrCandidateNotInDictionary means the dictionary was exhausted without a
// match. Another dictionary may still hold the passphrase.
var ErrCandidateNotInDictionary = errors.New("passphrase not in dictionary")

type CrackState int

const (
	CrackStarted CrackState = iota
	Cracking
	CrackTerminated
)

func (s CrackState) String() string {
	switch s {
	case CrackStarted:
		return "STARTED"
	case Cracking:
		return "CRACKING"
	case CrackTerminated:
		return "TERMINATED"
	}
	return "UNKNOWN"
}

const (
	FlagKeyFound        = "key_found"
	FlagNextAttempt     = "next_attempt"
	FlagNotInDictionary = "not_in_dictionary"
)

var keyFound = machine.Regexp(`KEY FOUND! \[ (.+) \]`)

// Cracker follows one aircrack-ng run. With -q aircrack-ng only flushes
// its output on exit, so most lines arrive together with the exit.
type Cracker struct {
	machine.Base[CrackState]

	target  *target.Target
	keyFile string
	key     string
}

func newCracker(tool string, src machine.Source, t *target.Target, keyFile string) *Cracker {
	return &Cracker{
		Base:    machine.NewBase[CrackState](tool, src, CrackStarted, CrackTerminated),
		target:  t,
		keyFile: keyFile,
	}
}

// found stores the key aircrack-ng wrote with -l in the key slot of the
// target. When the file is missing it is written from the printed key.
func (c *Cracker) found(printed string) error {
	c.SetFlag(FlagKeyFound)
	c.key = printed
	src := filepath.Join(c.Dir(), c.keyFile)
	if !files.Exists(src) {
		logger.Warnf("[%s] %s missing, writing the printed key", c.Name(), c.keyFile)
		if err := os.WriteFile(src, []byte(c.material(printed)+"\n"), 0600); err != nil {
			return fmt.Errorf("write %s: %w", c.keyFile, err)
		}
	}
	if c.target == nil {
		return nil
	}
	return c.target.Save(target.Key, src)
}

// material converts a printed key to the form aircrack-ng writes with -l.
func (c *Cracker) material(printed string) string {
	if strings.HasSuffix(c.keyFile, ".hex") {
		return strings.ReplaceAll(printed, ":", "")
	}
	return printed
}

// Key is the key printed by aircrack-ng, empty until found.
func (c *Cracker) Key() string { return c.key }

// Found reports whether a key was recovered in this run.
func (c *Cracker) Found() bool { return c.Flag(FlagKeyFound) }
