// Package capture supervises packet capture tools and reads what they saved.
package capture

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"Airlock/internal/machine"
	"Airlock/internal/procman"
)

type CaptureState int

const (
	Started CaptureState = iota
	AwaitingData
	Active
	Stopping
	Terminated
)

func (s CaptureState) String() string {
	switch s {
	case Started:
		return "STARTED"
	case AwaitingData:
		return "AWAITING_DATA"
	case Active:
		return "ACTIVE"
	case Stopping:
		return "STOPPING"
	case Terminated:
		return "TERMINATED"
	}
	return "UNKNOWN"
}

// FlagNetworkDisconnected is set when the capture interface disappears.
const FlagNetworkDisconnected = "network_disconnected"

// Capture follows dumpcap, which reports everything on stderr.
type Capture struct {
	machine.Base[CaptureState]

	iface string
	file  string
}

// StartCapture runs dumpcap on iface writing to output. An empty output
// keeps the capture inside the scratch directory.
func StartCapture(bin, iface, output string, opts procman.Options) (*Capture, error) {
	if output == "" {
		output = "capture.pcapng"
	}
	if opts.Name == "" {
		opts.Name = "dumpcap"
	}
	p, err := procman.Start(bin, []string{"-i", iface, "-w", output}, opts)
	if err != nil {
		return nil, err
	}
	return NewCapture(p), nil
}

// NewCapture wraps an already running dumpcap.
func NewCapture(src machine.Source) *Capture {
	c := &Capture{Base: machine.NewBase[CaptureState]("dumpcap", src, Started, Terminated)}
	c.Out = &machine.Table[CaptureState]{Unknown: machine.Warn}
	c.Err = &machine.Table[CaptureState]{
		Rules: []machine.Rule[CaptureState]{
			machine.On("banner", machine.Regexp(`^Capturing on '(.+)'$`), Started).
				Goto(AwaitingData).
				Then(func(m []string) error {
					c.iface = m[1]
					return nil
				}),
			machine.On("file", machine.Regexp(`^File: (\S+)$`), Started, AwaitingData).
				Goto(AwaitingData).
				Then(func(m []string) error {
					c.file = m[1]
					return nil
				}),
			machine.On("progress", machine.Regexp(`^Packets: (\d+) `), AwaitingData, Active).
				Goto(Active).
				Then(c.count("packets")),
			machine.On("summary", machine.Regexp(`^Packets captured: (\d+)`), AwaitingData, Active).
				Goto(Stopping).
				Then(c.count("packets")),
			machine.On("totals", machine.Regexp(`^Packets received/dropped on interface '\S+': (\d+)/(\d+)`), Stopping).
				Then(func(m []string) error {
					received, _ := strconv.Atoi(m[1])
					dropped, _ := strconv.Atoi(m[2])
					c.SetStat("received", received)
					c.SetStat("dropped", dropped)
					return nil
				}),
			machine.On[CaptureState]("disconnected", machine.Contains("is no longer running; the capture has stopped")).
				Then(func([]string) error {
					c.SetFlag(FlagNetworkDisconnected)
					return nil
				}),
		},
		Unknown: machine.Warn,
	}
	c.Outcome = machine.Outcome[CaptureState]{
		SuccessStates: []CaptureState{Stopping},
		Adverse:       []string{FlagNetworkDisconnected},
	}
	return c
}

func (c *Capture) count(stat string) func(m []string) error {
	return func(m []string) error {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return err
		}
		c.SetStat(stat, n)
		return nil
	}
}

// Interface named by the capture banner.
func (c *Capture) Interface() string { return c.iface }

// File returns the capture file once dumpcap announced it.
func (c *Capture) File() (string, bool) {
	if c.file == "" {
		return "", false
	}
	if filepath.IsAbs(c.file) {
		return c.file, true
	}
	return filepath.Join(c.Dir(), c.file), true
}

// Ready reports whether the capture already holds what check looks for,
// counting only traffic of bssid.
func (c *Capture) Ready(bssid string, check Check) (bool, error) {
	path, ok := c.File()
	if !ok {
		return false, nil
	}
	summary, err := Inspect(path, bssid)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return check(summary), nil
}
