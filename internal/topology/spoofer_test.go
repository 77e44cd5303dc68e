package topology

import (
	"bytes"
	"errors"
	"testing"

	"Airlock/internal/machine"
	"Airlock/internal/machine/machinetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpooferDisplaysTraffic(t *testing.T) {
	var display bytes.Buffer
	src := machinetest.New(t.TempDir())
	s := NewSpoofer(src, &display)

	src.PushOut(
		"[*] MITMf v0.9.8 - 'The Dark Side'",
		"|_ Spoofing v0.6",
		"|  |_ ARP spoofing enabled",
		"|_ SMB server online",
		"2024-05-01 10:00:00 192.168.1.23 [type:Firefox-45 os:Linux] example.com",
	)
	src.PushErr(" * Running on http://127.0.0.1:9999/ (Press CTRL+C to quit)")
	require.NoError(t, s.Update())

	assert.Equal(t, Spoofing, s.State())
	assert.Equal(t, "MITMf 1> 2024-05-01 10:00:00 192.168.1.23 [type:Firefox-45 os:Linux] example.com\n", display.String())
	assert.Equal(t, 1, s.Shown())
	assert.Empty(t, s.Anomalies())
}

func TestSpooferStderrIsAnomaly(t *testing.T) {
	src := machinetest.New(t.TempDir())
	s := NewSpoofer(src, nil)

	src.PushErr("Traceback (most recent call last):")
	require.NoError(t, s.Update())

	assert.Equal(t, []string{"Traceback (most recent call last):"}, s.Anomalies())
}

func TestSpooferDiesBeforeSpoofing(t *testing.T) {
	src := machinetest.New(t.TempDir())
	s := NewSpoofer(src, nil)

	src.PushOut("[*] MITMf v0.9.8 - 'The Dark Side'").Terminate(1)
	err := s.Update()

	var term *machine.UnexpectedTerminationError
	require.True(t, errors.As(err, &term))
	assert.Equal(t, "STARTED", term.State)
}

func TestSpooferStopAfterSpoofing(t *testing.T) {
	src := machinetest.New(t.TempDir())
	s := NewSpoofer(src, nil)
	src.PushOut("|_ SMB server online")
	require.NoError(t, s.Update())

	_, err := s.Stop()

	require.NoError(t, err)
	assert.Equal(t, []SpoofState{SpoofStarted, Spoofing, SpoofTerminated}, s.Path())
}
