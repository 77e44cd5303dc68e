package attack

import (
	"bytes"
	"context"
	"testing"

	"Airlock/internal/machine/machinetest"
	"Airlock/internal/target"
	"Airlock/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func phishing(password string) script {
	return func(_ int, src *machinetest.Source) {
		src.PushOut(
			"[*] Starting Wifiphisher 1.1GIT at 2024-05-01 10:00",
			"[*] Monitor mode: wlan1 - 00:c0:ca:12:34:56",
			"HTTP requests: ",
			"[*] POST request from 10.0.0.23 with wfphshr-wpa-password="+password,
		)
	}
}

func TestVerifyKey(t *testing.T) {
	tg := newTarget(t, models.WPA2, "Lab WPA")
	store(t, tg, target.Handshake, "handshake")
	f := newFakeTools(t).on("aircrack-wpa", func(_ int, src *machinetest.Source) {
		src.PushOut("KEY FOUND! [ correct horse ]").Terminate(0)
	})

	ok, err := NewAttacker(f, testConfig()).VerifyKey(context.Background(), tg, "correct horse")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, tg.IsCracked())
	f.requireAllCleaned()
}

func TestVerifyKeyWrong(t *testing.T) {
	tg := newTarget(t, models.WPA2, "Lab WPA")
	store(t, tg, target.Handshake, "handshake")
	f := newFakeTools(t).on("aircrack-wpa", notInDictionary)

	ok, err := NewAttacker(f, testConfig()).VerifyKey(context.Background(), tg, "hunter2")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, tg.IsCracked())
}

func TestVerifyKeyNeedsHandshake(t *testing.T) {
	tg := newTarget(t, models.WPA2, "Lab WPA")

	_, err := NewAttacker(newFakeTools(t), testConfig()).VerifyKey(context.Background(), tg, "hunter2")

	assert.ErrorIs(t, err, target.ErrArtifactMissing)
}

func TestPhishVerifiedPassword(t *testing.T) {
	tg := newTarget(t, models.WPA2, "Lab WPA")
	store(t, tg, target.Handshake, "handshake")
	var display bytes.Buffer
	f := newFakeTools(t).
		on(Wifiphisher, phishing("correct horse")).
		on("aircrack-wpa", func(_ int, src *machinetest.Source) {
			src.PushOut("KEY FOUND! [ correct horse ]").Terminate(0)
		})

	require.NoError(t, NewAttacker(f, testConfig()).Phish(context.Background(), tg, &display))

	key, err := tg.Key()
	require.NoError(t, err)
	assert.Equal(t, "correct horse", key)
	assert.Contains(t, display.String(), "Monitor mode: wlan1")
	f.requireAllCleaned()
}

func TestPhishIncorrectPassword(t *testing.T) {
	tg := newTarget(t, models.WPA2, "Lab WPA")
	store(t, tg, target.Handshake, "handshake")
	f := newFakeTools(t).
		on(Wifiphisher, phishing("letmein")).
		on("aircrack-wpa", notInDictionary)

	err := NewAttacker(f, testConfig()).Phish(context.Background(), tg, nil)

	assert.ErrorIs(t, err, ErrIncorrectCredential)
	assert.False(t, tg.IsCracked())
	f.requireAllCleaned()
}

func TestPhishEndsWithoutPassword(t *testing.T) {
	tg := newTarget(t, models.WPA, "Lab WPA")
	store(t, tg, target.Handshake, "handshake")
	f := newFakeTools(t).on(Wifiphisher, func(_ int, src *machinetest.Source) {
		src.PushOut("[*] Monitor mode: wlan1 - 00:c0:ca:12:34:56", "[!] Closing").Terminate(0)
	})

	err := NewAttacker(f, testConfig()).Phish(context.Background(), tg, nil)

	assert.ErrorIs(t, err, ErrNotCracked)
	assert.Zero(t, f.launched("aircrack-wpa"))
	f.requireAllCleaned()
}

func TestPhishRejectsWEP(t *testing.T) {
	err := NewAttacker(newFakeTools(t), testConfig()).Phish(context.Background(), newTarget(t, models.WEP, "Lab WEP"), nil)

	assert.ErrorIs(t, err, ErrUnsupportedEncryption)
}
