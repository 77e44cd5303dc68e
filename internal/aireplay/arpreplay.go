package aireplay

import (
	"path/filepath"
	"strconv"

	"Airlock/internal/machine"
	"Airlock/internal/procman"
	"Airlock/internal/target"
	"Airlock/internal/wireless"
	"Airlock/pkg/logger"
)

type ReplayState int

const (
	ReplayStarted ReplayState = iota
	ReplayWaitingForBeacon
	WaitingForTriggerPacket
	Replaying
	ReplayTerminated
)

func (s ReplayState) String() string {
	switch s {
	case ReplayStarted:
		return "STARTED"
	case ReplayWaitingForBeacon:
		return "WAITING_FOR_BEACON"
	case WaitingForTriggerPacket:
		return "WAITING_FOR_TRIGGER_PACKET"
	case Replaying:
		return "REPLAYING"
	case ReplayTerminated:
		return "TERMINATED"
	}
	return "UNKNOWN"
}

const progressExpr = `^Read (\d+) packets \(got (\d+) ARP requests and (\d+) ACKs\), sent (\d+) packets\.\.\.\((\d+) pps\)$`

// ArpReplay re-injects a captured ARP request so the access point answers
// with fresh IVs.
type ArpReplay struct {
	machine.Base[ReplayState]

	target  *target.Target
	capture string
}

// StartArpReplay runs aireplay-ng --arpreplay against t, seeded from the ARP
// capture slot of t when present.
func StartArpReplay(bin string, iface *wireless.Interface, t *target.Target, opts procman.Options) (*ArpReplay, error) {
	args := []string{
		"--arpreplay",
		"-b", t.BSSID,
		"-h", iface.HardwareAddr(),
	}
	if arp, ok := t.Path(target.ARPCapture); ok {
		args = append(args, "-r", arp)
	}
	args = append(args, iface.Name)
	if opts.Name == "" {
		opts.Name = "arpreplay"
	}
	p, err := procman.Start(bin, args, opts)
	if err != nil {
		return nil, err
	}
	return NewArpReplay(p, t), nil
}

// NewArpReplay wraps a running replay. Requests it saves are persisted to t.
func NewArpReplay(src machine.Source, t *target.Target) *ArpReplay {
	r := &ArpReplay{
		Base:   machine.NewBase[ReplayState]("aireplay-ng --arpreplay", src, ReplayStarted, ReplayTerminated),
		target: t,
	}
	for _, stat := range []string{"read", "ARPs", "ACKs", "sent", "pps"} {
		r.SetStat(stat, 0)
	}
	r.Out = &machine.Table[ReplayState]{
		Rules: []machine.Rule[ReplayState]{
			machine.On("beacon", machine.Contains("Waiting for beacon frame"), ReplayStarted, ReplayWaitingForBeacon).
				Goto(ReplayWaitingForBeacon),
			machine.On[ReplayState]("saving", machine.Regexp(`^Saving ARP requests in (replay_arp.+\.cap)$`)).
				Then(func(m []string) error {
					r.capture = filepath.Join(r.Dir(), m[1])
					return nil
				}),
			machine.On[ReplayState]("deauth", machine.Contains("Notice: got a deauth/disassoc packet. Is the source MAC associated ?")).
				Then(func([]string) error {
					r.SetFlag(FlagDeauthenticated)
					return nil
				}),
			machine.On("idle", machine.Regexp(`^Read (\d+) packets \(got 0 ARP requests and (\d+) ACKs\), sent (\d+) packets\.\.\.\((\d+) pps\)$`),
				ReplayStarted, ReplayWaitingForBeacon, WaitingForTriggerPacket).
				Goto(WaitingForTriggerPacket).
				Then(func(m []string) error {
					r.record(m[1], "0", m[2], m[3], m[4])
					return nil
				}),
			machine.On("replaying", machine.Regexp(`^Read (\d+) packets \(got (\d*[1-9]\d*) ARP requests and (\d*[1-9]\d*) ACKs\), sent (\d*[1-9]\d*) packets\.\.\.\((\d+) pps\)$`),
				ReplayStarted, ReplayWaitingForBeacon, WaitingForTriggerPacket, Replaying).
				Goto(Replaying).
				Then(func(m []string) error {
					r.record(m[1:]...)
					return r.persist()
				}),
			machine.On[ReplayState]("progress", machine.Regexp(progressExpr)).
				Then(func(m []string) error {
					r.record(m[1:]...)
					return nil
				}),
		},
		Noise: []machine.Matcher{
			machine.Prefix("You should also start airodump-ng"),
			machine.Contains("Sending Authentication Request"),
		},
		Unknown: machine.Ignore,
	}
	r.Outcome = machine.Outcome[ReplayState]{
		SuccessStates: []ReplayState{Replaying},
		Adverse:       []string{FlagDeauthenticated},
	}
	return r
}

func (r *ArpReplay) record(v ...string) {
	for i, stat := range []string{"read", "ARPs", "ACKs", "sent", "pps"} {
		n, _ := strconv.Atoi(v[i])
		r.SetStat(stat, n)
	}
}

// persist stores the ARP requests of the first successful replay, unless
// the target already holds some.
func (r *ArpReplay) persist() error {
	if r.target == nil || r.capture == "" || r.target.Has(target.ARPCapture) {
		return nil
	}
	if err := r.target.Save(target.ARPCapture, r.capture); err != nil {
		return err
	}
	logger.DebugIfEnabled("[arpreplay] ARP requests of %s persisted", r.target.BSSID)
	return nil
}

// CapturePath is where this run saves ARP requests, once announced.
func (r *ArpReplay) CapturePath() (string, bool) {
	return r.capture, r.capture != ""
}
