package wireless

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"

	"Airlock/internal/files"
)

// RouteTable is where Linux exposes the IPv4 routing table.
const RouteTable = "/proc/net/route"

var ErrNoGateway = errors.New("no default gateway")

// DefaultGateway reads the default IPv4 gateway of iface from a route table
// in /proc/net/route format. An empty iface accepts any interface.
func DefaultGateway(routeTable, iface string) (net.IP, error) {
	lines, err := files.FileLinesToSlice(routeTable)
	if err != nil {
		return nil, err
	}
	for i, line := range lines {
		if i == 0 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[1] != "00000000" {
			continue
		}
		if iface != "" && fields[0] != iface {
			continue
		}
		raw, err := hex.DecodeString(fields[2])
		if err != nil || len(raw) != 4 {
			return nil, fmt.Errorf("malformed gateway %q in %s", fields[2], routeTable)
		}
		// The kernel prints the address in host byte order.
		ip := make(net.IP, 4)
		binary.BigEndian.PutUint32(ip, binary.LittleEndian.Uint32(raw))
		return ip, nil
	}
	if iface != "" {
		return nil, fmt.Errorf("%s: %w", iface, ErrNoGateway)
	}
	return nil, ErrNoGateway
}
