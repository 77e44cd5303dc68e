package wireless

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"Airlock/internal/machine/machinetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const routes = `Iface	Destination	Gateway 	Flags	RefCnt	Use	Metric	Mask		MTU	Window	IRTT
eth0	0000A8C0	00000000	0001	0	0	100	00FFFFFF	0	0	0
wlan0	00000000	0101A8C0	0003	0	0	600	00000000	0	0	0
wlan0	0001A8C0	00000000	0001	0	0	600	00FFFFFF	0	0	0
`

func writeRoutes(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "route")
	require.NoError(t, os.WriteFile(path, []byte(routes), 0600))
	return path
}

func TestDefaultGateway(t *testing.T) {
	path := writeRoutes(t)

	gw, err := DefaultGateway(path, "wlan0")
	require.NoError(t, err)
	assert.Equal(t, net.IPv4(192, 168, 1, 1).To4(), gw)

	gw, err = DefaultGateway(path, "")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.1", gw.String())

	_, err = DefaultGateway(path, "eth0")
	assert.ErrorIs(t, err, ErrNoGateway)
}

func TestLookupRejectsBadNames(t *testing.T) {
	for _, name := range []string{"", "wlan0; rm -rf /", "averyveryverylongname0"} {
		_, err := Lookup(name)
		assert.Error(t, err, name)
	}
}

func TestLookupLoopback(t *testing.T) {
	ifaces, err := net.Interfaces()
	require.NoError(t, err)
	for _, ni := range ifaces {
		if ni.Flags&net.FlagLoopback == 0 {
			continue
		}
		iface, err := Lookup(ni.Name)
		require.NoError(t, err)
		assert.Equal(t, ni.Name, iface.Name)
		assert.False(t, iface.Monitor)
		return
	}
	t.Skip("no loopback interface")
}

func TestAirmonReportsMonitorInterface(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{
			name: "mac80211 vif",
			line: "\t\t(mac80211 monitor mode vif enabled for [phy0]wlan0 on [phy0]wlan0mon)",
			want: "wlan0mon",
		},
		{
			name: "legacy",
			line: "\t\t(monitor mode enabled on mon0)",
			want: "mon0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := machinetest.New(t.TempDir())
			a := NewAirmon(src)

			src.PushOut(
				"PHY\tInterface\tDriver\t\tChipset",
				"phy0\twlan0\t\tath9k_htc\tAtheros Communications, Inc. AR9271 802.11n",
				tt.line,
				"\t\t(mac80211 station mode vif disabled for [phy0]wlan0)",
			).Terminate(0)

			require.NoError(t, a.Update())
			assert.Equal(t, tt.want, a.Monitor())
			assert.Equal(t, []AirmonState{AirmonStarted, AirmonListed, AirmonDone, AirmonTerminated}, a.Path())
		})
	}
}

func TestAirmonWithoutResultIsUnexpected(t *testing.T) {
	src := machinetest.New(t.TempDir())
	a := NewAirmon(src)

	src.PushOut("PHY\tInterface\tDriver\t\tChipset").Terminate(0)

	assert.Error(t, a.Update())
	assert.Empty(t, a.Monitor())
}

func TestHardwareAddrIsUpperCase(t *testing.T) {
	mac, err := net.ParseMAC("00:c0:ca:12:34:56")
	require.NoError(t, err)
	iface := &Interface{Name: "wlan0mon", MAC: mac}

	assert.Equal(t, "00:C0:CA:12:34:56", iface.HardwareAddr())
}
