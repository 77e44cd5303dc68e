// Package attack sequences the tool machines into campaigns that end with
// a recovered key, and dispatches targets to the right campaign.
package attack

import (
	"context"
	"fmt"
	"time"

	"Airlock/internal/target"
	"Airlock/pkg/helpers"
	"Airlock/pkg/logger"
	"Airlock/pkg/models"

	"github.com/google/uuid"
)

var campaignIDs = helpers.IDGenerator()

// Attacker runs campaigns with the tools of one Launcher. A campaign owns
// every machine it starts and releases them on return, whatever the outcome.
type Attacker struct {
	ID    uuid.UUID
	tools Launcher
	cfg   models.Config
}

func NewAttacker(tools Launcher, cfg models.Config) *Attacker {
	return &Attacker{ID: campaignIDs.Generate(), tools: tools, cfg: cfg}
}

func (a *Attacker) poll() time.Duration { return a.cfg.Timing.PollInterval }

// newGroup names a campaign group after the attacker and the target.
func (a *Attacker) newGroup(kind string, t *target.Target) *Group {
	return NewGroup(fmt.Sprintf("%s %s %s", a.ID.String()[:8], kind, t.BSSID))
}

// Unlock recovers the key of t with the campaign its encryption calls for.
// A solved target is left alone unless force is set, in which case its key
// is discarded first. Open networks need nothing.
func (a *Attacker) Unlock(ctx context.Context, t *target.Target, force bool) error {
	switch t.Encryption {
	case models.Open:
		logger.Infof("[*] %s is open, nothing to unlock", t)
		return nil
	case models.WEP, models.WPA, models.WPA2:
	default:
		return fmt.Errorf("%s uses %q: %w", t, t.Encryption, ErrUnsupportedEncryption)
	}

	if t.IsCracked() && !force {
		logger.Infof("[*] %s is already solved, skipping", t)
		return nil
	}

	unlock, err := t.Lock()
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(); err != nil {
			logger.Warnf("Unlock %s: %v", t.Dir(), err)
		}
	}()

	if force && t.IsCracked() {
		if err := t.Delete(target.Key); err != nil {
			return fmt.Errorf("discard key of %s: %w", t, err)
		}
		logger.Infof("[*] Discarded the key of %s", t)
	}

	if t.Encryption == models.WEP {
		err = a.WEP(ctx, t)
	} else {
		err = a.WPA2(ctx, t)
	}
	if err != nil {
		return err
	}
	key, err := t.Key()
	if err != nil {
		return err
	}
	logger.Infof("[+] Key of %s: %s", t, key)
	return nil
}

// wait sleeps for d unless ctx ends first.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
