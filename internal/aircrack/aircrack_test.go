package aircrack

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Airlock/internal/machine"
	"Airlock/internal/machine/machinetest"
	"Airlock/internal/procman"
	"Airlock/internal/target"
	"Airlock/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTarget(t *testing.T, enc models.Encryption, essid string) *target.Target {
	t.Helper()
	tg, err := target.New(models.AccessPoint{
		BSSID:      "00:11:22:33:44:55",
		ESSID:      essid,
		Channel:    6,
		Encryption: enc,
	}, t.TempDir())
	require.NoError(t, err)
	return tg
}

func TestWEPKeyFound(t *testing.T) {
	tg := newTarget(t, models.WEP, "Lab WEP")
	src := machinetest.New(t.TempDir())
	c := NewWEP(src, tg)

	src.PushOut(
		"Failed. Next try with 5000 IVs.",
		"KEY FOUND! [ AB:CD:EF:01:23 ]",
		"\tDecrypted correctly: 100%",
	).Terminate(0)
	require.NoError(t, c.Update())

	assert.Equal(t, CrackTerminated, c.State())
	assert.True(t, c.Found())
	assert.True(t, c.Flag(FlagNextAttempt))
	assert.Equal(t, "AB:CD:EF:01:23", c.Key())
	assert.True(t, tg.IsCracked())
	key, err := tg.Key()
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF0123", key)
	assert.Equal(t, []CrackState{CrackStarted, Cracking, CrackTerminated}, c.Path())
}

func TestWEPKeyFileWrittenByTool(t *testing.T) {
	dir := t.TempDir()
	tg := newTarget(t, models.WEP, "Lab WEP")
	src := machinetest.New(dir)
	c := NewWEP(src, tg)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "psk.hex"), []byte("0102030405"), 0600))

	src.PushOut("KEY FOUND! [ 01:02:03:04:05 ] (ASCII: hello )").Terminate(0)
	require.NoError(t, c.Update())

	key, err := tg.Key()
	require.NoError(t, err)
	assert.Equal(t, "0102030405", key)
	assert.NoFileExists(t, filepath.Join(dir, "psk.hex"))
}

func TestWEPRetriesCount(t *testing.T) {
	src := machinetest.New(t.TempDir())
	c := NewWEP(src, newTarget(t, models.WEP, "Lab WEP"))

	src.PushOut("Failed. Next try with 5000 IVs.", "Failed. Next try with 10000 IVs.")
	require.NoError(t, c.Update())

	assert.Equal(t, 2, c.Stat("attempts"))
	assert.Equal(t, 10000, c.Stat("next_ivs"))
	assert.False(t, c.Found())
}

func TestWEPExitWithoutKeyIsUnexpected(t *testing.T) {
	src := machinetest.New(t.TempDir())
	c := NewWEP(src, newTarget(t, models.WEP, "Lab WEP"))

	src.PushOut("Failed. Next try with 5000 IVs.").Terminate(1)
	err := c.Update()

	var term *machine.UnexpectedTerminationError
	require.True(t, errors.As(err, &term))
	assert.Equal(t, 1, term.ExitCode)
}

func TestWPAKeyFound(t *testing.T) {
	tg := newTarget(t, models.WPA2, "Lab WPA")
	src := machinetest.New(t.TempDir())
	c := NewWPA(src, tg)

	src.PushOut("KEY FOUND! [ correct horse battery ]").Terminate(0)
	require.NoError(t, c.Update())

	key, err := tg.Key()
	require.NoError(t, err)
	assert.Equal(t, "correct horse battery", key)
	p, _ := tg.Path(target.Key)
	assert.Equal(t, "key.txt", filepath.Base(p))
}

func TestWPANotInDictionary(t *testing.T) {
	tg := newTarget(t, models.WPA2, "Lab WPA")
	src := machinetest.New(t.TempDir())
	c := NewWPA(src, tg)

	src.PushOut("Passphrase not in dictionary")
	err := c.Update()
	require.ErrorIs(t, err, ErrCandidateNotInDictionary)
	assert.True(t, c.Flag(FlagNotInDictionary))

	src.PushOut("Quitting aircrack-ng...").Terminate(0)
	require.NoError(t, c.Update())

	_, err = c.Stop()
	require.NoError(t, err)
	require.NoError(t, c.Cleanup())
	assert.True(t, src.Cleaned())
	assert.False(t, tg.IsCracked())
}

func TestStartWPANeedsHandshake(t *testing.T) {
	tg := newTarget(t, models.WPA2, "Lab WPA")

	_, err := StartWPA("aircrack-ng", tg, "/dev/null", procmanOptions())

	assert.ErrorIs(t, err, target.ErrArtifactMissing)
}

func TestKeygenCollectsCandidates(t *testing.T) {
	src := machinetest.New(t.TempDir())
	k := NewKeygen(src)

	src.PushOut(
		" ================================================================",
		"  upc_keys // WPA2 passphrase recovery tool for UPC%07d devices ",
		"  -> WPA2 phrase for 'SAPP99030003' = 'KTWXTPBZ'",
		"  -> WPA2 phrase for 'SAPP99221119' = 'LXYHEHMJ'",
	).Terminate(0)
	require.NoError(t, k.Update())

	assert.Equal(t, []string{"KTWXTPBZ", "LXYHEHMJ"}, k.Candidates())
}

func TestPersonalizable(t *testing.T) {
	assert.True(t, Personalizable("UPC1234567"))
	assert.False(t, Personalizable("UPC123456"))
	assert.False(t, Personalizable("Home UPC1234567"))
}

func TestPersonalizedDictionarySkipsOtherNetworks(t *testing.T) {
	path, err := PersonalizedDictionary(context.Background(), "upc_keys", "Lab WPA", t.TempDir(), time.Millisecond)

	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestPersonalizedDictionary(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "upc_keys")
	script := "#!/bin/sh\necho \"  -> WPA2 phrase for 'SAPP99030003' = 'KTWXTPBZ'\"\necho \"  -> WPA2 phrase for 'SAPP99221119' = 'LXYHEHMJ'\"\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0700))
	dir := t.TempDir()

	path, err := PersonalizedDictionary(context.Background(), bin, "UPC1234567", dir, 5*time.Millisecond)

	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "KTWXTPBZ\nLXYHEHMJ\n", string(data))
}

func TestSingleCandidate(t *testing.T) {
	path, err := SingleCandidate(t.TempDir(), "hunter22")

	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hunter22\n", string(data))
}

func procmanOptions() procman.Options { return procman.Options{StopGrace: 10 * time.Millisecond} }

// untilExit updates c in a tight loop until the process exit is observed and
// returns every error Update reported on the way.
func untilExit(t *testing.T, c *Cracker) []error {
	t.Helper()
	var errs []error
	deadline := time.Now().Add(5 * time.Second)
	for !c.Terminated() {
		require.True(t, time.Now().Before(deadline), "cracker never terminated")
		if err := c.Update(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func TestWEPKeyPrintedAtExitIsNotLost(t *testing.T) {
	for i := 0; i < 50; i++ {
		tg := newTarget(t, models.WEP, "Lab WEP")
		p, err := procman.Start("sh", []string{"-c", `sleep 0.02; echo 'KEY FOUND! [ AB:CD:EF:01:23 ]'; exit 0`}, procmanOptions())
		require.NoError(t, err)
		c := NewWEP(p, tg)

		errs := untilExit(t, c)

		require.Empty(t, errs, "run %d", i)
		require.True(t, c.Found(), "run %d", i)
		require.True(t, tg.IsCracked(), "run %d", i)
		require.NoError(t, c.Cleanup())
	}
}

func TestWPAExhaustionPrintedAtExitIsNotLost(t *testing.T) {
	for i := 0; i < 50; i++ {
		tg := newTarget(t, models.WPA2, "Lab WPA")
		p, err := procman.Start("sh", []string{"-c", `sleep 0.02; echo 'Passphrase not in dictionary'; exit 1`}, procmanOptions())
		require.NoError(t, err)
		c := NewWPA(p, tg)

		errs := untilExit(t, c)

		require.Len(t, errs, 1, "run %d", i)
		require.ErrorIs(t, errs[0], ErrCandidateNotInDictionary, "run %d", i)
		var term *machine.UnexpectedTerminationError
		require.False(t, errors.As(errs[0], &term), "run %d", i)
		require.NoError(t, c.Cleanup())
	}
}
