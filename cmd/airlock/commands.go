package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"Airlock/internal/attack"
	"Airlock/internal/capture"
	"Airlock/internal/exitcode"
	"Airlock/internal/procman"
	"Airlock/internal/target"
	"Airlock/internal/wireless"
	"Airlock/pkg/logger"
	"Airlock/pkg/models"
	"Airlock/pkg/validators"
)

// TargetFlags select an access point from a scan.
type TargetFlags struct {
	ESSID string `arg:"" optional:"" help:"ESSID of the network to attack"`
	BSSID string `name:"bssid" help:"BSSID of the network, when the ESSID is ambiguous or hidden"`
}

func (f TargetFlags) matches(ap models.AccessPoint) bool {
	if f.BSSID != "" {
		return strings.EqualFold(ap.BSSID, f.BSSID)
	}
	return ap.ESSID == f.ESSID
}

func (f TargetFlags) String() string {
	if f.BSSID != "" {
		return f.BSSID
	}
	return fmt.Sprintf("%q", f.ESSID)
}

func (f TargetFlags) Validate() error {
	if f.ESSID == "" && f.BSSID == "" {
		return errors.New("either an ESSID or --bssid is required")
	}
	return nil
}

// MonitorFlags control how the interface is put into monitor mode.
type MonitorFlags struct {
	Interface    string `arg:"" help:"Wireless interface to attack with"`
	MonitorReady bool   `name:"monitor-ready" help:"The interface already is in monitor mode"`
}

type ScanCmd struct {
	MonitorFlags
	Duration time.Duration `name:"duration" help:"How long to listen (default: timing.scan-duration)"`
}

func (c *ScanCmd) Run(app *App) error {
	return app.withMonitor(c.MonitorFlags, func(mon *wireless.Interface) error {
		if err := app.requireTools(mon, attack.Airodump); err != nil {
			return err
		}
		duration := c.Duration
		if duration == 0 {
			duration = app.cfg.Timing.ScanDuration
		}
		logger.Infof("[*] Scanning for %s", duration)
		aps, err := capture.Scan(app.ctx, app.cfg.Binary(attack.Airodump), mon.Name, duration, app.cfg.Timing.PollInterval, app.procOptions())
		if err != nil {
			return err
		}
		solved := make(map[string]bool)
		if known, err := app.store.Known(); err == nil {
			for _, t := range known {
				solved[strings.ToUpper(t.BSSID)] = t.IsCracked()
			}
		}
		return printAccessPoints(os.Stdout, aps, solved)
	})
}

type UnlockCmd struct {
	MonitorFlags
	TargetFlags
	Force    bool `name:"force" help:"Attack again even if the key is already known"`
	Phishing bool `name:"phishing" help:"Impersonate the network when no dictionary holds the passphrase"`
}

func (c *UnlockCmd) Run(app *App) error {
	return app.withMonitor(c.MonitorFlags, func(mon *wireless.Interface) error {
		if err := app.requireTools(mon, attack.Airodump, attack.Aireplay, attack.Aircrack); err != nil {
			return err
		}
		t, err := app.findTarget(mon, c.TargetFlags)
		if err != nil {
			return err
		}
		kit := attack.NewToolkit(app.cfg, mon)
		atk := attack.NewAttacker(kit, app.cfg)
		logger.Infof("[*] Unlocking %s", t)
		err = atk.Unlock(app.ctx, t, c.Force)
		if errors.Is(err, attack.ErrNotInAnyDictionary) && c.Phishing {
			logger.Infof("[*] Passphrase not in any dictionary, impersonating %s", t)
			if err := app.requireTools(mon, attack.Wifiphisher); err != nil {
				return err
			}
			return atk.Phish(app.ctx, t, os.Stdout)
		}
		return err
	})
}

type PhishCmd struct {
	MonitorFlags
	TargetFlags
}

func (c *PhishCmd) Run(app *App) error {
	return app.withMonitor(c.MonitorFlags, func(mon *wireless.Interface) error {
		if err := app.requireTools(mon, attack.Airodump, attack.Aircrack, attack.Wifiphisher); err != nil {
			return err
		}
		t, err := app.findTarget(mon, c.TargetFlags)
		if err != nil {
			return err
		}
		return attack.NewAttacker(attack.NewToolkit(app.cfg, mon), app.cfg).Phish(app.ctx, t, os.Stdout)
	})
}

type SpoofCmd struct {
	Interface   string `arg:"" help:"Interface connected to the network"`
	Gateway     string `name:"gateway" help:"Gateway to impersonate (default: from the routing table)"`
	CaptureFile string `name:"capture-file" type:"path" help:"Save the redirected traffic (default: capture.output)"`
}

func (c *SpoofCmd) Run(app *App) error {
	iface, err := wireless.Lookup(c.Interface)
	if err != nil {
		return exitcode.Wrap(exitcode.ErrUsage, "interface", err)
	}
	gateway, err := c.gateway(iface)
	if err != nil {
		return err
	}
	output := c.CaptureFile
	if output == "" {
		output = app.cfg.Capture.Output
	}
	tools := []string{attack.MITMf}
	if output != "" {
		tools = append(tools, attack.Dumpcap)
	}
	if err := app.requireTools(iface, tools...); err != nil {
		return err
	}

	logger.Infof("[*] Impersonating gateway %s on %s until interrupted", gateway, iface)
	err = attack.NewAttacker(attack.NewToolkit(app.cfg, iface), app.cfg).Spoof(app.ctx, gateway, output, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *SpoofCmd) gateway(iface *wireless.Interface) (net.IP, error) {
	if c.Gateway != "" {
		ip := net.ParseIP(c.Gateway)
		if ip == nil {
			return nil, exitcode.Newf(exitcode.ErrUsage, "not an IP address: %q", c.Gateway)
		}
		return ip, nil
	}
	ip, err := wireless.DefaultGateway(wireless.RouteTable, iface.Name)
	if err != nil {
		return nil, exitcode.Wrap(exitcode.ErrUsage, "no --gateway given", err)
	}
	return ip, nil
}

type CaptureCmd struct {
	Interface string `arg:"" help:"Interface to capture on"`
	Output    string `arg:"" type:"path" help:"Capture file to write"`
	Handshake string `help:"Stop once a handshake of this BSSID is captured" placeholder:"BSSID"`
}

func (c *CaptureCmd) Validate() error {
	if c.Handshake == "" {
		return nil
	}
	return validators.ValidateMAC(c.Handshake)
}

func (c *CaptureCmd) Run(app *App) error {
	iface, err := wireless.Lookup(c.Interface)
	if err != nil {
		return exitcode.Wrap(exitcode.ErrUsage, "interface", err)
	}
	if err := app.requireTools(iface, attack.Dumpcap); err != nil {
		return err
	}
	err = attack.NewAttacker(attack.NewToolkit(app.cfg, iface), app.cfg).Record(app.ctx, c.Output, c.Handshake)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type MonitorCmd struct {
	Interface string `arg:"" help:"Wireless interface"`
	Stop      bool   `name:"stop" help:"Remove the monitor interface instead"`
}

func (c *MonitorCmd) Run(app *App) error {
	iface, err := wireless.Lookup(c.Interface)
	if err != nil {
		return exitcode.Wrap(exitcode.ErrUsage, "interface", err)
	}
	if err := app.requireTools(iface, attack.Airmon); err != nil {
		return err
	}
	bin := app.cfg.Binary(attack.Airmon)
	if c.Stop {
		iface.Monitor = true
		return iface.DisableMonitor(app.ctx, bin, app.cfg.Timing.PollInterval)
	}
	mon, err := iface.EnableMonitor(app.ctx, bin, app.cfg.Timing.PollInterval)
	if err != nil {
		return err
	}
	fmt.Println(mon.Name)
	return nil
}

func (app *App) procOptions() procman.Options {
	return procman.Options{StopGrace: app.cfg.Timing.StopGrace}
}

func (app *App) requireTools(iface *wireless.Interface, names ...string) error {
	if missing := attack.NewToolkit(app.cfg, iface).Missing(names...); len(missing) > 0 {
		return exitcode.Unavailable(strings.Join(missing, ", "))
	}
	return nil
}

// withMonitor runs fn on the monitor interface of f.Interface and takes
// the interface out of monitor mode afterwards.
func (app *App) withMonitor(f MonitorFlags, fn func(mon *wireless.Interface) error) error {
	iface, err := wireless.Lookup(f.Interface)
	if err != nil {
		return exitcode.Wrap(exitcode.ErrUsage, "interface", err)
	}
	if f.MonitorReady {
		return fn(iface)
	}
	if err := app.requireTools(iface, attack.Airmon); err != nil {
		return err
	}
	bin := app.cfg.Binary(attack.Airmon)
	mon, err := iface.EnableMonitor(app.ctx, bin, app.cfg.Timing.PollInterval)
	if err != nil {
		return err
	}
	defer func() {
		// app.ctx may already be cancelled here.
		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Timing.ToolTimeout)
		defer cancel()
		if err := mon.DisableMonitor(ctx, bin, app.cfg.Timing.PollInterval); err != nil {
			logger.Warnf("Restore %s: %v", iface.Name, err)
		}
	}()
	return fn(mon)
}

// findTarget scans for the network f selects and binds it to its directory.
func (app *App) findTarget(mon *wireless.Interface, f TargetFlags) (*target.Target, error) {
	logger.Infof("[*] Scanning for %s", f)
	aps, err := capture.Scan(app.ctx, app.cfg.Binary(attack.Airodump), mon.Name, app.cfg.Timing.ScanDuration, app.cfg.Timing.PollInterval, app.procOptions())
	if err != nil {
		return nil, err
	}
	for _, ap := range aps {
		if !f.matches(ap) {
			continue
		}
		t, err := app.store.Target(ap)
		if err != nil {
			return nil, err
		}
		logger.Infof("[+] Target %s found on channel %d", t, t.Channel)
		logger.Infof("[*] Attack data stored at %s", t.Dir())
		return t, nil
	}
	return nil, exitcode.TargetNotFound(f.String())
}

func printAccessPoints(w io.Writer, aps []models.AccessPoint, solved map[string]bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BSSID\tCH\tENC\tPWR\tIVs\tSTATIONS\tKEY\tESSID")
	for _, ap := range aps {
		key := ""
		if solved[strings.ToUpper(ap.BSSID)] {
			key = "known"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%d\t%s\t%s\n",
			ap.BSSID, ap.Channel, ap.Encryption, ap.Power, ap.IVs, len(ap.Stations), key, ap.ESSID)
	}
	return tw.Flush()
}
