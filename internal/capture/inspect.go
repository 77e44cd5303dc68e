package capture

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const pcapngMagic = 0x0A0D0D0A

// EAPOL key message bits, one per message of the 4-way handshake.
const (
	msg1 uint8 = 1 << iota
	msg2
	msg3
	msg4
)

// Summary is what a capture file holds for one access point.
type Summary struct {
	BSSID   string
	Packets int

	ivs      map[[3]byte]struct{}
	eapol    map[string]uint8
	stations map[string]struct{}
}

// UniqueIVs counts distinct WEP initialisation vectors seen.
func (s *Summary) UniqueIVs() int { return len(s.ivs) }

// Handshake reports whether some station has messages 1+2 or 2+3 of the
// 4-way handshake, which is all a dictionary attack needs.
func (s *Summary) Handshake() bool {
	for _, seen := range s.eapol {
		if seen&(msg1|msg2) == msg1|msg2 || seen&(msg2|msg3) == msg2|msg3 {
			return true
		}
	}
	return false
}

// Stations lists client MACs seen exchanging data with the access point.
func (s *Summary) Stations() []string {
	out := make([]string, 0, len(s.stations))
	for mac := range s.stations {
		out = append(out, mac)
	}
	sort.Strings(out)
	return out
}

// Check is a predicate over a capture summary.
type Check func(s *Summary) bool

// HasHandshake is satisfied by a usable WPA handshake.
func HasHandshake(s *Summary) bool { return s.Handshake() }

// MinIVs is satisfied once n unique IVs were captured.
func MinIVs(n int) Check {
	return func(s *Summary) bool { return s.UniqueIVs() >= n }
}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Inspect reads a pcap or pcapng file and summarises the traffic of bssid.
// An empty bssid keeps every frame. Files still being written are fine: a
// short header yields an empty summary and a truncated tail is ignored.
func Inspect(path, bssid string) (*Summary, error) {
	s := &Summary{
		BSSID:    strings.ToLower(bssid),
		ivs:      make(map[[3]byte]struct{}),
		eapol:    make(map[string]uint8),
		stations: make(map[string]struct{}),
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic, err := br.Peek(4)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		return nil, err
	}

	var r packetReader
	if binary.LittleEndian.Uint32(magic) == pcapngMagic {
		r, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		r, err = pcapgo.NewReader(br)
	}
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return s, nil
		}
		return nil, fmt.Errorf("open capture %s: %w", path, err)
	}

	decoder := r.LinkType()
	for {
		data, _, err := r.ReadPacketData()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return s, fmt.Errorf("read capture %s: %w", path, err)
		}
		s.observe(gopacket.NewPacket(data, decoder, gopacket.DecodeOptions{Lazy: true, NoCopy: true}))
	}
	return s, nil
}

func (s *Summary) observe(packet gopacket.Packet) {
	layer := packet.Layer(layers.LayerTypeDot11)
	if layer == nil {
		return
	}
	dot11, ok := layer.(*layers.Dot11)
	if !ok {
		return
	}
	bssid, station := parties(dot11)
	if bssid == nil || (s.BSSID != "" && bssid.String() != s.BSSID) {
		return
	}
	s.Packets++

	if dot11.Type.MainType() != layers.Dot11TypeData {
		return
	}
	if station != nil && !isGroup(station) {
		s.stations[station.String()] = struct{}{}
	}

	if dot11.Flags.WEP() {
		if payload := dot11.LayerPayload(); len(payload) >= 4 {
			var iv [3]byte
			copy(iv[:], payload[:3])
			s.ivs[iv] = struct{}{}
		}
		return
	}

	if keyLayer := packet.Layer(layers.LayerTypeEAPOLKey); keyLayer != nil && station != nil {
		if key, ok := keyLayer.(*layers.EAPOLKey); ok {
			s.eapol[station.String()] |= keyMessage(key)
		}
	}
}

// parties resolves which address is the access point and which the client,
// from the DS bits of the frame.
func parties(d *layers.Dot11) (bssid, station net.HardwareAddr) {
	toDS, fromDS := d.Flags.ToDS(), d.Flags.FromDS()
	switch {
	case toDS && !fromDS:
		return d.Address1, d.Address2
	case !toDS && fromDS:
		return d.Address2, d.Address1
	case !toDS && !fromDS:
		if len(d.Address2) > 0 && d.Address2.String() != d.Address3.String() {
			return d.Address3, d.Address2
		}
		return d.Address3, d.Address1
	}
	return nil, nil
}

func isGroup(mac net.HardwareAddr) bool {
	return len(mac) == 0 || mac[0]&0x01 == 0x01
}

func keyMessage(k *layers.EAPOLKey) uint8 {
	switch {
	case k.KeyACK && !k.KeyMIC:
		return msg1
	case k.KeyACK && k.KeyMIC && k.Install:
		return msg3
	case !k.KeyACK && k.KeyMIC && k.Secure:
		return msg4
	case !k.KeyACK && k.KeyMIC:
		return msg2
	}
	return 0
}
