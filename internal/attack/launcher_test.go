package attack

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Airlock/internal/aircrack"
	"Airlock/internal/aireplay"
	"Airlock/internal/capture"
	"Airlock/internal/impersonation"
	"Airlock/internal/machine/machinetest"
	"Airlock/internal/target"
	"Airlock/internal/topology"
	"Airlock/pkg/models"

	"github.com/stretchr/testify/require"
)

const (
	apMAC      = "00:11:22:33:44:55"
	stationMAC = "66:77:88:99:AA:BB"
)

const snapshot = "\r\n" +
	"BSSID, First time seen, Last time seen, channel, Speed, Privacy, Cipher, Authentication, Power, # beacons, # IV, LAN IP, ID-length, ESSID, Key\r\n" +
	"00:11:22:33:44:55, 2024-05-01 10:00:00, 2024-05-01 10:01:00,  6,  54, WEP , WEP, SKA, -40,      120,     5310,   0.  0.  0.  0,   7, Lab WEP, \r\n" +
	"\r\n" +
	"Station MAC, First time seen, Last time seen, Power, # packets, BSSID, Probed ESSIDs\r\n" +
	"66:77:88:99:AA:BB, 2024-05-01 10:00:05, 2024-05-01 10:01:00, -50,      300, 00:11:22:33:44:55, Lab WEP\r\n"

// script prepares the n-th launch of a tool.
type script func(n int, src *machinetest.Source)

type deauthCall struct {
	BSSID    string
	Stations []string
	Count    int
}

// fakeTools launches machines over scripted sources instead of processes.
type fakeTools struct {
	t       *testing.T
	scripts map[string]script
	fail    map[string]error
	sources map[string][]*machinetest.Source

	deauths      []deauthCall
	onDeauth     func(n int)
	dictionaries []string
	keygen       func(essid, dir string) (string, error)
	displays     []io.Writer
}

func newFakeTools(t *testing.T) *fakeTools {
	return &fakeTools{
		t:       t,
		scripts: make(map[string]script),
		fail:    make(map[string]error),
		sources: make(map[string][]*machinetest.Source),
	}
}

func (f *fakeTools) on(tool string, s script) *fakeTools {
	f.scripts[tool] = s
	return f
}

func (f *fakeTools) source(tool string) (*machinetest.Source, error) {
	if err := f.fail[tool]; err != nil {
		return nil, err
	}
	src := machinetest.New(f.t.TempDir())
	n := len(f.sources[tool])
	f.sources[tool] = append(f.sources[tool], src)
	if s := f.scripts[tool]; s != nil {
		s(n, src)
	}
	return src, nil
}

// launched counts the runs of tool.
func (f *fakeTools) launched(tool string) int { return len(f.sources[tool]) }

// requireAllCleaned fails unless every launched source was cleaned.
func (f *fakeTools) requireAllCleaned() {
	f.t.Helper()
	for tool, srcs := range f.sources {
		for i, src := range srcs {
			require.True(f.t, src.Cleaned(), "%s run %d not cleaned", tool, i)
		}
	}
}

func (f *fakeTools) Airodump(filter *models.AccessPoint) (*capture.Airodump, error) {
	src, err := f.source(Airodump)
	if err != nil {
		return nil, err
	}
	bssid := ""
	if filter != nil {
		bssid = filter.BSSID
	}
	return capture.NewAirodump(src, bssid), nil
}

func (f *fakeTools) Dumpcap(output string) (*capture.Capture, error) {
	src, err := f.source(Dumpcap)
	if err != nil {
		return nil, err
	}
	return capture.NewCapture(src), nil
}

func (f *fakeTools) FakeAuth(t *target.Target) (*aireplay.FakeAuth, error) {
	src, err := f.source("fakeauth")
	if err != nil {
		return nil, err
	}
	return aireplay.NewFakeAuth(src, t.Has(target.Keystream)), nil
}

func (f *fakeTools) ArpReplay(t *target.Target) (*aireplay.ArpReplay, error) {
	src, err := f.source("arpreplay")
	if err != nil {
		return nil, err
	}
	return aireplay.NewArpReplay(src, t), nil
}

func (f *fakeTools) WEPCracker(_ string, t *target.Target) (*aircrack.Cracker, error) {
	src, err := f.source("aircrack-wep")
	if err != nil {
		return nil, err
	}
	return aircrack.NewWEP(src, t), nil
}

func (f *fakeTools) WPACracker(t *target.Target, dictionary string) (*aircrack.Cracker, error) {
	f.dictionaries = append(f.dictionaries, dictionary)
	src, err := f.source("aircrack-wpa")
	if err != nil {
		return nil, err
	}
	return aircrack.NewWPA(src, t), nil
}

func (f *fakeTools) Spoofer(_ net.IP, display io.Writer) (*topology.Spoofer, error) {
	src, err := f.source(MITMf)
	if err != nil {
		return nil, err
	}
	return topology.NewSpoofer(src, display), nil
}

func (f *fakeTools) Phisher(_ models.AccessPoint, display io.Writer) (*impersonation.Phisher, error) {
	f.displays = append(f.displays, display)
	src, err := f.source(Wifiphisher)
	if err != nil {
		return nil, err
	}
	return impersonation.NewPhisher(src, display), nil
}

func (f *fakeTools) Deauth(ctx context.Context, bssid string, stations []string, count int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.deauths = append(f.deauths, deauthCall{BSSID: bssid, Stations: stations, Count: count})
	if f.onDeauth != nil {
		f.onDeauth(len(f.deauths) - 1)
	}
	return nil
}

func (f *fakeTools) Keygen(_ context.Context, essid, dir string) (string, error) {
	if f.keygen == nil {
		return "", nil
	}
	return f.keygen(essid, dir)
}

func testConfig() models.Config {
	cfg := models.DefaultConfig()
	cfg.Timing.PollInterval = time.Millisecond
	cfg.Timing.AuthBackoff = time.Millisecond
	cfg.Timing.AuthBackoffMax = 4 * time.Millisecond
	cfg.WEP.MinIVs = 100
	cfg.WPA.Dictionaries = nil
	cfg.WPA.Personalized = false
	return cfg
}

func newTarget(t *testing.T, enc models.Encryption, essid string) *target.Target {
	t.Helper()
	tg, err := target.New(models.AccessPoint{
		BSSID:      apMAC,
		ESSID:      essid,
		Channel:    6,
		Encryption: enc,
	}, t.TempDir())
	require.NoError(t, err)
	return tg
}

// store puts content into slot a of tg.
func store(t *testing.T, tg *target.Target, a target.Artifact, content string) {
	t.Helper()
	src := filepath.Join(t.TempDir(), "artifact")
	require.NoError(t, os.WriteFile(src, []byte(content), 0600))
	require.NoError(t, tg.Save(a, src))
}

// wordlist writes a dictionary file and returns its path.
func wordlist(t *testing.T, words ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.lst")
	content := ""
	for _, w := range words {
		content += w + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// writeIn creates name inside the scratch dir of src.
func writeIn(t *testing.T, src *machinetest.Source, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(src.Dir(), name), []byte(content), 0600))
}
