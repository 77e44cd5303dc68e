package target

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"Airlock/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wepAP() models.AccessPoint {
	return models.AccessPoint{
		BSSID:      "00:11:22:33:44:55",
		ESSID:      "Lab WEP",
		Channel:    6,
		Encryption: models.WEP,
	}
}

func newTarget(t *testing.T, ap models.AccessPoint) *Target {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	tgt, err := store.Target(ap)
	require.NoError(t, err)
	return tgt
}

func TestIsCrackedFollowsKeyFile(t *testing.T) {
	tgt := newTarget(t, wepAP())
	assert.False(t, tgt.IsCracked())

	keyPath, present := tgt.Path(Key)
	require.False(t, present)
	require.NoError(t, os.WriteFile(keyPath, []byte("abcdef0123\n"), 0600))
	assert.True(t, tgt.IsCracked())

	require.NoError(t, os.Remove(keyPath))
	assert.False(t, tgt.IsCracked())
}

func TestKeySlotDependsOnEncryption(t *testing.T) {
	wep := newTarget(t, wepAP())
	wpaAP := wepAP()
	wpaAP.ESSID, wpaAP.Encryption = "Lab WPA", models.WPA2
	wpa := newTarget(t, wpaAP)

	wepKey, _ := wep.Path(Key)
	wpaKey, _ := wpa.Path(Key)

	assert.Equal(t, "key.hex", filepath.Base(wepKey))
	assert.Equal(t, "key.txt", filepath.Base(wpaKey))
}

func TestSaveMovesFile(t *testing.T) {
	tgt := newTarget(t, wepAP())
	src := filepath.Join(t.TempDir(), "replay_arp-0101-120000.cap")
	require.NoError(t, os.WriteFile(src, []byte("arp"), 0600))

	require.NoError(t, tgt.Save(ARPCapture, src))

	path, present := tgt.Path(ARPCapture)
	assert.True(t, present)
	assert.NoFileExists(t, src)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "arp", string(data))
}

func TestSaveRequiresExistingFile(t *testing.T) {
	tgt := newTarget(t, wepAP())

	err := tgt.Save(Keystream, filepath.Join(t.TempDir(), "missing.xor"))

	assert.True(t, errors.Is(err, ErrArtifactMissing))
	assert.False(t, tgt.Has(Keystream))
}

func TestDeleteAbsentArtifact(t *testing.T) {
	tgt := newTarget(t, wepAP())

	assert.NoError(t, tgt.Delete(Handshake))
}

func TestKeyIsTrimmed(t *testing.T) {
	tgt := newTarget(t, wepAP())
	keyPath, _ := tgt.Path(Key)
	require.NoError(t, os.WriteFile(keyPath, []byte("ABCDEF0123\n"), 0600))

	key, err := tgt.Key()

	require.NoError(t, err)
	assert.Equal(t, "ABCDEF0123", key)
}

func TestLockIsExclusive(t *testing.T) {
	tgt := newTarget(t, wepAP())

	unlock, err := tgt.Lock()
	require.NoError(t, err)

	other := &Target{AccessPoint: tgt.AccessPoint, dir: tgt.Dir()}
	_, err = other.Lock()
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, unlock())
	unlockAgain, err := other.Lock()
	require.NoError(t, err)
	require.NoError(t, unlockAgain())
}

func TestStoreKnownRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	_, err = store.Target(wepAP())
	require.NoError(t, err)

	known, err := store.Known()

	require.NoError(t, err)
	require.Len(t, known, 1)
	assert.Equal(t, "Lab WEP", known[0].ESSID)
	assert.Equal(t, filepath.Join(store.Root(), "networks", "lab_wep"), known[0].Dir())
}

func TestStoreRejectsInvalidAccessPoint(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ap := wepAP()
	ap.BSSID = "not-a-mac"

	_, err = store.Target(ap)

	assert.Error(t, err)
}
