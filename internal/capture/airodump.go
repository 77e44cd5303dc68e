package capture

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"Airlock/internal/machine"
	"Airlock/internal/procman"
	"Airlock/pkg/logger"
	"Airlock/pkg/models"
)

type AirodumpState int

const (
	AirodumpStarted AirodumpState = iota
	AirodumpActive
	AirodumpTerminated
)

func (s AirodumpState) String() string {
	switch s {
	case AirodumpStarted:
		return "STARTED"
	case AirodumpActive:
		return "ACTIVE"
	case AirodumpTerminated:
		return "TERMINATED"
	}
	return "UNKNOWN"
}

const outputPrefix = "capture"

// Airodump follows airodump-ng through the files it writes, not its screen
// output. With a BSSID filter it is the capturer of a campaign, without one
// it is a scanner.
type Airodump struct {
	machine.Base[AirodumpState]

	bssid string
	aps   []models.AccessPoint
}

// StartAirodump listens on iface. A non-nil filter locks the capture to one
// access point and its channel.
func StartAirodump(bin, iface string, filter *models.AccessPoint, opts procman.Options) (*Airodump, error) {
	args := []string{
		"--write", outputPrefix,
		"--output-format", "pcap,csv",
		"--write-interval", "1",
	}
	bssid := ""
	if filter != nil {
		bssid = filter.BSSID
		args = append(args, "--bssid", filter.BSSID, "--channel", strconv.Itoa(filter.Channel))
	}
	args = append(args, iface)
	if opts.Name == "" {
		opts.Name = "airodump-ng"
	}
	p, err := procman.Start(bin, args, opts)
	if err != nil {
		return nil, err
	}
	return NewAirodump(p, bssid), nil
}

// NewAirodump wraps an airodump-ng process writing into the scratch dir of src.
func NewAirodump(src machine.Source, bssid string) *Airodump {
	a := &Airodump{
		Base:  machine.NewBase[AirodumpState]("airodump-ng", src, AirodumpStarted, AirodumpTerminated),
		bssid: bssid,
	}
	// The live screen is redrawn constantly and carries nothing the CSV lacks.
	a.Out = &machine.Table[AirodumpState]{Unknown: machine.Ignore}
	a.Err = &machine.Table[AirodumpState]{Unknown: machine.Ignore}
	return a
}

// Update ingests output and re-reads the latest CSV snapshot.
func (a *Airodump) Update() error {
	if err := a.Base.Update(); err != nil {
		return err
	}
	path, ok := a.latest("csv")
	if !ok {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	aps, err := ParseAirodumpCSV(f)
	if err != nil {
		logger.DebugIfEnabled("[airodump-ng] partial snapshot %s: %v", path, err)
		return nil
	}
	a.aps = aps
	if a.State() == AirodumpStarted {
		a.Enter(AirodumpActive)
	}
	if ap, found := a.Target(); found {
		a.SetStat("ivs", ap.IVs)
		a.SetStat("stations", len(ap.Stations))
	}
	return nil
}

func (a *Airodump) latest(ext string) (string, bool) {
	matches, _ := filepath.Glob(filepath.Join(a.Dir(), outputPrefix+"-*."+ext))
	if len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	return matches[len(matches)-1], true
}

// AccessPoints is the last snapshot, strongest signal first.
func (a *Airodump) AccessPoints() []models.AccessPoint {
	aps := append([]models.AccessPoint(nil), a.aps...)
	sort.SliceStable(aps, func(i, j int) bool { return aps[i].Power > aps[j].Power })
	return aps
}

// Target is the filtered access point as last seen.
func (a *Airodump) Target() (models.AccessPoint, bool) {
	for _, ap := range a.aps {
		if strings.EqualFold(ap.BSSID, a.bssid) {
			return ap, true
		}
	}
	return models.AccessPoint{}, false
}

// Stations associated with the filtered access point. Until the snapshot
// lists any, the clients seen in the capture file stand in.
func (a *Airodump) Stations() []string {
	if ap, ok := a.Target(); ok && len(ap.Stations) > 0 {
		return ap.StationMACs()
	}
	path, ok := a.CapturePath()
	if a.bssid == "" || !ok {
		return nil
	}
	summary, err := Inspect(path, a.bssid)
	if err != nil {
		logger.DebugIfEnabled("[airodump-ng] stations from %s: %v", path, err)
		return nil
	}
	stations := summary.Stations()
	for i, mac := range stations {
		stations[i] = strings.ToUpper(mac)
	}
	return stations
}

// IVs is the IV count airodump-ng reports for the filtered access point.
func (a *Airodump) IVs() int {
	ap, _ := a.Target()
	return ap.IVs
}

// CapturePath is the pcap file being written.
func (a *Airodump) CapturePath() (string, bool) {
	return a.latest("cap")
}

// KeystreamPath is set once a shared key authentication was observed and
// its PRGA saved.
func (a *Airodump) KeystreamPath() (string, bool) {
	matches, _ := filepath.Glob(filepath.Join(a.Dir(), "*.xor"))
	if len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	return matches[len(matches)-1], true
}

// Ready inspects the capture file for the filtered access point.
func (a *Airodump) Ready(check Check) (bool, error) {
	path, ok := a.CapturePath()
	if !ok {
		return false, nil
	}
	summary, err := Inspect(path, a.bssid)
	if err != nil {
		return false, err
	}
	return check(summary), nil
}

// Scan runs an unfiltered airodump-ng for duration and returns what it saw.
func Scan(ctx context.Context, bin, iface string, duration, poll time.Duration, opts procman.Options) ([]models.AccessPoint, error) {
	a, err := StartAirodump(bin, iface, nil, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := a.Cleanup(); err != nil {
			logger.Warnf("[airodump-ng] cleanup: %v", err)
		}
	}()
	return collect(ctx, a, duration, poll)
}

func collect(ctx context.Context, a *Airodump, duration, poll time.Duration) ([]models.AccessPoint, error) {
	deadline := time.NewTimer(duration)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		if err := a.Update(); err != nil {
			return nil, err
		}
		select {
		case <-ctx.Done():
			_, _ = a.Stop()
			return nil, ctx.Err()
		case <-deadline.C:
			if _, err := a.Stop(); err != nil {
				return nil, err
			}
			if err := a.Update(); err != nil {
				return nil, err
			}
			return a.AccessPoints(), nil
		case <-ticker.C:
		}
	}
}
