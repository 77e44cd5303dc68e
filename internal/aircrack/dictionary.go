package aircrack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"Airlock/internal/files"
	"Airlock/internal/machine"
	"Airlock/internal/procman"
	"Airlock/pkg/logger"
)

// upcESSID matches the default network names of UPC routers, whose
// passphrases upc_keys derives from the ESSID.
var upcESSID = regexp.MustCompile(`^UPC\d{7}$`)

// Personalizable reports whether a dictionary can be derived from essid.
func Personalizable(essid string) bool {
	return upcESSID.MatchString(essid)
}

type KeygenState int

const (
	KeygenStarted KeygenState = iota
	Generating
	KeygenTerminated
)

func (s KeygenState) String() string {
	switch s {
	case KeygenStarted:
		return "STARTED"
	case Generating:
		return "GENERATING"
	case KeygenTerminated:
		return "TERMINATED"
	}
	return "UNKNOWN"
}

// Keygen collects the candidate passphrases upc_keys prints.
type Keygen struct {
	machine.Base[KeygenState]

	candidates []string
}

func NewKeygen(src machine.Source) *Keygen {
	k := &Keygen{Base: machine.NewBase[KeygenState]("upc_keys", src, KeygenStarted, KeygenTerminated)}
	k.Out = &machine.Table[KeygenState]{
		Rules: []machine.Rule[KeygenState]{
			machine.On[KeygenState]("phrase", machine.Regexp(`^\s*-> WPA2 phrase for \S* = '(.*)'$`)).
				Goto(Generating).
				Then(func(m []string) error {
					k.candidates = append(k.candidates, m[1])
					return nil
				}),
		},
		Unknown: machine.Ignore,
	}
	k.Outcome = machine.Outcome[KeygenState]{SuccessStates: []KeygenState{Generating}}
	return k
}

func (k *Keygen) Candidates() []string { return append([]string(nil), k.candidates...) }

// PersonalizedDictionary writes the candidates upc_keys derives from essid
// into dir and returns the file. It returns "" when essid is not a UPC
// default name.
func PersonalizedDictionary(ctx context.Context, bin, essid, dir string, poll time.Duration) (string, error) {
	if !Personalizable(essid) {
		return "", nil
	}
	p, err := procman.Start(bin, []string{essid, "24"}, procman.Options{Name: "upc_keys"})
	if err != nil {
		return "", err
	}
	k := NewKeygen(p)
	defer func() {
		if err := k.Cleanup(); err != nil {
			logger.Warnf("[upc_keys] cleanup: %v", err)
		}
	}()
	if err := machine.Await(ctx, k, poll); err != nil {
		return "", err
	}

	path := filepath.Join(dir, "personalized.lst")
	if err := files.WriteFile(path, k.Candidates()); err != nil {
		return "", fmt.Errorf("write personalized dictionary: %w", err)
	}
	logger.Infof("Personalized dictionary for %s holds %d candidates", essid, len(k.candidates))
	return path, nil
}

// SingleCandidate writes a dictionary holding only candidate, used to
// check a passphrase obtained some other way.
func SingleCandidate(dir, candidate string) (string, error) {
	f, err := os.CreateTemp(dir, "candidate-*.lst")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(candidate + "\n"); err != nil {
		_ = f.Close()
		return "", err
	}
	return f.Name(), f.Close()
}
