package models

import (
	"strings"
)

// Encryption is the protection class an access point advertises.
type Encryption string

const (
	Open Encryption = "OPN"
	WEP  Encryption = "WEP"
	WPA  Encryption = "WPA"
	WPA2 Encryption = "WPA2"
)

// ParseEncryption reads the privacy column of a scan, e.g. "WPA2 WPA" or
// "WEP", and keeps the strongest class listed. Unknown values are returned
// as they are so callers can reject them.
func ParseEncryption(privacy string) Encryption {
	fields := strings.Fields(strings.ToUpper(privacy))
	best := Encryption("")
	rank := map[Encryption]int{Open: 1, WEP: 2, WPA: 3, WPA2: 4}
	for _, f := range fields {
		e := Encryption(f)
		if rank[e] > rank[best] {
			best = e
		}
	}
	if best == "" {
		return Encryption(strings.TrimSpace(privacy))
	}
	return best
}

// Station is a client seen talking to an access point.
type Station struct {
	MAC     string   `yaml:"mac" validate:"required,mac"`
	BSSID   string   `yaml:"bssid"`
	Power   int      `yaml:"power"`
	Packets int      `yaml:"packets"`
	Probed  []string `yaml:"probed,omitempty"`
}

// AccessPoint describes a network as reported by a scan.
type AccessPoint struct {
	BSSID          string     `yaml:"bssid" validate:"required,mac"`
	ESSID          string     `yaml:"essid"`
	Channel        int        `yaml:"channel" validate:"gte=1,lte=196"`
	Encryption     Encryption `yaml:"encryption" validate:"required"`
	Cipher         string     `yaml:"cipher,omitempty"`
	Authentication string     `yaml:"authentication,omitempty"`
	Power          int        `yaml:"power"`
	IVs            int        `yaml:"ivs"`
	Stations       []Station  `yaml:"-"`
}

// StationMACs lists the clients associated with the access point.
func (ap *AccessPoint) StationMACs() []string {
	macs := make([]string, 0, len(ap.Stations))
	for _, s := range ap.Stations {
		macs = append(macs, s.MAC)
	}
	return macs
}

func (ap *AccessPoint) String() string {
	if ap.ESSID == "" {
		return ap.BSSID
	}
	return ap.ESSID + " (" + ap.BSSID + ")"
}
