package capture

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"Airlock/pkg/models"
)

// ParseAirodumpCSV reads the two-section CSV snapshot airodump-ng rewrites
// every write interval: access points first, then stations.
func ParseAirodumpCSV(r io.Reader) ([]models.AccessPoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	const (
		none = iota
		accessPoints
		stations
	)
	section := none
	var order []string
	byBSSID := make(map[string]*models.AccessPoint)

	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		switch rec[0] {
		case "BSSID":
			section = accessPoints
			continue
		case "Station MAC":
			section = stations
			continue
		case "":
			continue
		}

		switch section {
		case accessPoints:
			if len(rec) < 14 {
				continue
			}
			ap := &models.AccessPoint{
				BSSID:          rec[0],
				Channel:        atoi(rec[3]),
				Encryption:     models.ParseEncryption(rec[5]),
				Cipher:         rec[6],
				Authentication: rec[7],
				Power:          atoi(rec[8]),
				IVs:            atoi(rec[10]),
				ESSID:          rec[13],
			}
			if _, seen := byBSSID[ap.BSSID]; !seen {
				order = append(order, ap.BSSID)
			}
			byBSSID[ap.BSSID] = ap
		case stations:
			if len(rec) < 6 {
				continue
			}
			ap, ok := byBSSID[rec[5]]
			if !ok {
				continue
			}
			st := models.Station{
				MAC:     rec[0],
				BSSID:   rec[5],
				Power:   atoi(rec[3]),
				Packets: atoi(rec[4]),
			}
			for _, probed := range rec[6:] {
				if probed != "" {
					st.Probed = append(st.Probed, probed)
				}
			}
			ap.Stations = append(ap.Stations, st)
		}
	}

	aps := make([]models.AccessPoint, 0, len(order))
	for _, bssid := range order {
		aps = append(aps, *byBSSID[bssid])
	}
	return aps, nil
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
