package attack

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"Airlock/internal/capture/capturetest"
	"Airlock/internal/machine"
	"Airlock/internal/machine/machinetest"
	"Airlock/internal/procman"
	"Airlock/internal/target"
	"Airlock/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const replayLine = "Read 150 packets (got 12 ARP requests and 12 ACKs), sent 12 packets...(500 pps)"

// wepTools scripts a network that only talks to us once a keystream of its
// shared key authentication is known.
func wepTools(t *testing.T) *fakeTools {
	f := newFakeTools(t)
	f.on(Airodump, func(_ int, src *machinetest.Source) {
		writeIn(t, src, "capture-01.csv", snapshot)
		capturetest.WritePcap(t, filepath.Join(src.Dir(), "capture-01.cap"), capturetest.WEPTraffic(apMAC, stationMAC, 120)...)
	})
	f.on("fakeauth", func(n int, src *machinetest.Source) {
		if n == 0 {
			src.PushOut("Waiting for beacon frame (BSSID: 00:11:22:33:44:55) on channel 6",
				"Sending Authentication Request (Open System)",
				"Switching to shared key authentication")
			return
		}
		src.PushOut("Sending Authentication Request (Shared Key) [ACK]",
			"Association successful :-) (AID: 1)")
	})
	f.on("arpreplay", func(_ int, src *machinetest.Source) {
		writeIn(t, src, "replay_arp-0501-100000.cap", "arp")
		src.PushOut("Saving ARP requests in replay_arp-0501-100000.cap",
			"Read 20 packets (got 0 ARP requests and 0 ACKs), sent 0 packets...(0 pps)",
			replayLine)
	})
	f.on("aircrack-wep", func(_ int, src *machinetest.Source) {
		src.PushOut("KEY FOUND! [ AB:CD:EF:01:23 ]", "\tDecrypted correctly: 100%").Terminate(0)
	})
	f.onDeauth = func(int) {
		writeIn(t, f.sources[Airodump][0], "capture-01-00-11-22-33-44-55.xor", "prga")
	}
	return f
}

func TestWEPCampaign(t *testing.T) {
	tg := newTarget(t, models.WEP, "Lab WEP")
	f := wepTools(t)
	a := NewAttacker(f, testConfig())

	require.NoError(t, a.WEP(context.Background(), tg))

	key, err := tg.Key()
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF0123", key)
	assert.True(t, tg.Has(target.Keystream))
	assert.True(t, tg.Has(target.ARPCapture))

	assert.Equal(t, 2, f.launched("fakeauth"))
	assert.Equal(t, 1, f.launched("arpreplay"))
	require.Len(t, f.deauths, 1)
	assert.Equal(t, deauthCall{BSSID: apMAC, Stations: []string{stationMAC}, Count: 3}, f.deauths[0])
	f.requireAllCleaned()
}

func TestWEPCampaignWaitsForIVsInCapture(t *testing.T) {
	tg := newTarget(t, models.WEP, "Lab WEP")
	f := wepTools(t)
	// airodump-ng claims thousands of IVs but the file holds only a few
	f.on(Airodump, func(_ int, src *machinetest.Source) {
		writeIn(t, src, "capture-01.csv", snapshot)
		capturetest.WritePcap(t, filepath.Join(src.Dir(), "capture-01.cap"), capturetest.WEPTraffic(apMAC, stationMAC, 10)...)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := NewAttacker(f, testConfig()).WEP(ctx, tg)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, f.launched("arpreplay"))
	assert.Zero(t, f.launched("aircrack-wep"))
	assert.False(t, tg.IsCracked())
	f.requireAllCleaned()
}

func TestWEPCampaignRestartsAfterDeauthentication(t *testing.T) {
	tg := newTarget(t, models.WEP, "Lab WEP")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFakeTools(t)
	f.on("fakeauth", func(n int, src *machinetest.Source) {
		src.PushOut("Association successful :-) (AID: 1)")
		if n == 0 {
			src.PushOut("Got a deauthentication packet!")
		}
	})
	// Nothing is captured, so the campaign waits for IVs until cancelled.
	f.on("arpreplay", func(int, *machinetest.Source) { cancel() })

	err := NewAttacker(f, testConfig()).WEP(ctx, tg)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, f.launched("fakeauth"))
	assert.False(t, tg.IsCracked())
	f.requireAllCleaned()
}

func TestWEPCampaignRestartsDroppedReplay(t *testing.T) {
	tg := newTarget(t, models.WEP, "Lab WEP")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFakeTools(t)
	f.on("fakeauth", func(_ int, src *machinetest.Source) {
		src.PushOut("Association successful :-) (AID: 1)")
	})
	f.on("arpreplay", func(n int, src *machinetest.Source) {
		if n == 0 {
			src.PushOut("Notice: got a deauth/disassoc packet. Is the source MAC associated ?")
			return
		}
		cancel()
	})

	err := NewAttacker(f, testConfig()).WEP(ctx, tg)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.launched("fakeauth"))
	assert.Equal(t, 2, f.launched("arpreplay"))
	f.requireAllCleaned()
}

func TestWEPCampaignUnexpectedTermination(t *testing.T) {
	tg := newTarget(t, models.WEP, "Lab WEP")
	f := newFakeTools(t)
	f.on("fakeauth", func(_ int, src *machinetest.Source) {
		src.PushOut("Waiting for beacon frame (BSSID: 00:11:22:33:44:55) on channel 6").Terminate(1)
	})

	err := NewAttacker(f, testConfig()).WEP(context.Background(), tg)

	var term *machine.UnexpectedTerminationError
	require.True(t, errors.As(err, &term))
	assert.Equal(t, 1, term.ExitCode)
	assert.Equal(t, 1, f.launched("fakeauth"))
	f.requireAllCleaned()
}

func TestWEPCampaignSpawnFailure(t *testing.T) {
	tg := newTarget(t, models.WEP, "Lab WEP")
	f := newFakeTools(t)
	f.fail["fakeauth"] = &procman.SpawnError{Command: "aireplay-ng", Missing: true, Err: errors.New("not found")}

	err := NewAttacker(f, testConfig()).WEP(context.Background(), tg)

	var spawn *procman.SpawnError
	require.True(t, errors.As(err, &spawn))
	assert.True(t, spawn.Missing)
	assert.Equal(t, 1, f.launched(Airodump))
	f.requireAllCleaned()
}
