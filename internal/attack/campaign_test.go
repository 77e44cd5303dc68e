package attack

import (
	"context"
	"testing"

	"Airlock/internal/machine/machinetest"
	"Airlock/internal/target"
	"Airlock/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnlockOpenNetwork(t *testing.T) {
	f := newFakeTools(t)

	require.NoError(t, NewAttacker(f, testConfig()).Unlock(context.Background(), newTarget(t, models.Open, "Cafe"), false))

	assert.Empty(t, f.sources)
}

func TestUnlockUnsupported(t *testing.T) {
	f := newFakeTools(t)

	err := NewAttacker(f, testConfig()).Unlock(context.Background(), newTarget(t, "WPA3", "Modern"), false)

	assert.ErrorIs(t, err, ErrUnsupportedEncryption)
	assert.Empty(t, f.sources)
}

func TestUnlockSkipsSolvedTarget(t *testing.T) {
	tg := newTarget(t, models.WPA2, "Lab WPA")
	store(t, tg, target.Key, "old secret")
	f := newFakeTools(t)

	require.NoError(t, NewAttacker(f, testConfig()).Unlock(context.Background(), tg, false))

	assert.Empty(t, f.sources)
	key, err := tg.Key()
	require.NoError(t, err)
	assert.Equal(t, "old secret", key)
}

func TestUnlockForceDiscardsKey(t *testing.T) {
	tg := newTarget(t, models.WPA2, "Lab WPA")
	store(t, tg, target.Key, "old secret")
	store(t, tg, target.Handshake, "handshake")
	cfg := testConfig()
	cfg.WPA.Dictionaries = []string{wordlist(t, "new secret")}
	f := newFakeTools(t).on("aircrack-wpa", func(_ int, src *machinetest.Source) {
		src.PushOut("KEY FOUND! [ new secret ]").Terminate(0)
	})

	require.NoError(t, NewAttacker(f, cfg).Unlock(context.Background(), tg, true))

	key, err := tg.Key()
	require.NoError(t, err)
	assert.Equal(t, "new secret", key)
}

func TestUnlockDispatchesWEP(t *testing.T) {
	tg := newTarget(t, models.WEP, "Lab WEP")
	f := wepTools(t)

	require.NoError(t, NewAttacker(f, testConfig()).Unlock(context.Background(), tg, false))

	assert.True(t, tg.IsCracked())
	assert.Zero(t, f.launched("aircrack-wpa"))
	assert.Equal(t, 1, f.launched("aircrack-wep"))
}

func TestUnlockLockedTarget(t *testing.T) {
	tg := newTarget(t, models.WPA2, "Lab WPA")
	release, err := tg.Lock()
	require.NoError(t, err)
	defer release()
	f := newFakeTools(t)

	err = NewAttacker(f, testConfig()).Unlock(context.Background(), tg, false)

	assert.ErrorIs(t, err, target.ErrLocked)
	assert.Empty(t, f.sources)
}

func TestUnlockForceKeepsKeyOfLockedTarget(t *testing.T) {
	tg := newTarget(t, models.WPA2, "Lab WPA")
	store(t, tg, target.Key, "old secret")
	release, err := tg.Lock()
	require.NoError(t, err)
	defer release()
	f := newFakeTools(t)

	err = NewAttacker(f, testConfig()).Unlock(context.Background(), tg, true)

	assert.ErrorIs(t, err, target.ErrLocked)
	assert.Empty(t, f.sources)
	key, err := tg.Key()
	require.NoError(t, err)
	assert.Equal(t, "old secret", key)
}
