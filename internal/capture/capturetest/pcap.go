// Package capturetest writes small 802.11 captures for tests.
package capturetest

import (
	"encoding/binary"
	"net"
	"os"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Frame control flags of a data frame.
const (
	ToDS      byte = 0x01
	FromDS    byte = 0x02
	Protected byte = 0x40
)

// Key information values of the four handshake messages.
const (
	M1 uint16 = 0x008a
	M2 uint16 = 0x010a
	M3 uint16 = 0x13ca
	M4 uint16 = 0x030a
)

func mustMAC(s string) []byte {
	mac, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return mac
}

// DataFrame builds a data frame with a zero FCS appended.
func DataFrame(flags byte, a1, a2, a3 string, body []byte) []byte {
	frame := []byte{0x08, flags, 0x00, 0x00}
	frame = append(frame, mustMAC(a1)...)
	frame = append(frame, mustMAC(a2)...)
	frame = append(frame, mustMAC(a3)...)
	frame = append(frame, 0x00, 0x00)
	frame = append(frame, body...)
	return append(frame, 0x00, 0x00, 0x00, 0x00)
}

// EAPOLKey is an LLC/SNAP encapsulated EAPOL-Key body carrying info.
func EAPOLKey(info uint16) []byte {
	body := []byte{0xaa, 0xaa, 0x03, 0x00, 0x00, 0x00, 0x88, 0x8e}
	key := make([]byte, 95)
	key[0] = 0x02
	binary.BigEndian.PutUint16(key[1:3], info)
	header := []byte{0x02, 0x03, 0x00, 0x00}
	binary.BigEndian.PutUint16(header[2:], uint16(len(key)))
	body = append(body, header...)
	return append(body, key...)
}

// FromAP is a handshake message sent by the access point to station.
func FromAP(bssid, station string, info uint16) []byte {
	return DataFrame(FromDS, station, bssid, bssid, EAPOLKey(info))
}

// FromStation is a handshake message sent by station to the access point.
func FromStation(bssid, station string, info uint16) []byte {
	return DataFrame(ToDS, bssid, station, bssid, EAPOLKey(info))
}

// Handshake holds messages 1 and 2 between bssid and station.
func Handshake(bssid, station string) [][]byte {
	return [][]byte{FromAP(bssid, station, M1), FromStation(bssid, station, M2)}
}

// WEPFrame is a protected frame from station to bssid using iv.
func WEPFrame(bssid, station string, iv [3]byte) []byte {
	body := append(iv[:], 0x00, 0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03, 0x04)
	return DataFrame(ToDS|Protected, bssid, station, "ff:ff:ff:ff:ff:ff", body)
}

// WEPTraffic is n protected frames from station to bssid, each with its
// own IV.
func WEPTraffic(bssid, station string, n int) [][]byte {
	frames := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		frames = append(frames, WEPFrame(bssid, station, [3]byte{byte(i >> 16), byte(i >> 8), byte(i)}))
	}
	return frames
}

// WritePcap stores frames at path as an 802.11 pcap.
func WritePcap(t testing.TB, path string, frames ...[]byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeIEEE802_11); err != nil {
		t.Fatalf("pcap header: %v", err)
	}
	for _, frame := range frames {
		ci := gopacket.CaptureInfo{Timestamp: time.Now(), CaptureLength: len(frame), Length: len(frame)}
		if err := w.WritePacket(ci, frame); err != nil {
			t.Fatalf("pcap packet: %v", err)
		}
	}
}
