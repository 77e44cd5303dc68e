package attack

import (
	"context"
	"fmt"
	"path/filepath"

	"Airlock/internal/capture"
	"Airlock/pkg/logger"
)

// Record saves the traffic seen by the interface to output until ctx ends.
// With a bssid it stops on its own once a handshake of that access point is
// in the file.
func (a *Attacker) Record(ctx context.Context, output, bssid string) error {
	output, err := filepath.Abs(output)
	if err != nil {
		return err
	}
	g := NewGroup(fmt.Sprintf("%s record %s", a.ID.String()[:8], filepath.Base(output)))
	defer closeGroup(g)

	dump, err := a.tools.Dumpcap(output)
	if err != nil {
		return err
	}
	g.Adopt(dump)
	if bssid != "" {
		logger.Infof("[*] Capturing into %s until a handshake of %s is seen", output, bssid)
	} else {
		logger.Infof("[*] Capturing into %s until interrupted", output)
	}

	for {
		if err := dump.Update(); err != nil {
			return err
		}
		if dump.Flag(capture.FlagNetworkDisconnected) {
			return fmt.Errorf("%s: %w", dump.Interface(), ErrCaptureInterrupted)
		}
		if dump.Terminated() {
			logger.Warnf("[!] dumpcap exited after %d packets", dump.Stat("packets"))
			return nil
		}
		if bssid != "" {
			ready, err := dump.Ready(bssid, capture.HasHandshake)
			if err != nil {
				return err
			}
			if ready {
				if _, err := dump.Stop(); err != nil {
					return err
				}
				logger.Infof("[+] Captured a handshake of %s after %d packets", bssid, dump.Stat("packets"))
				return nil
			}
		}
		if err := wait(ctx, a.poll()); err != nil {
			if _, stopErr := dump.Stop(); stopErr == nil {
				logger.Infof("[+] Captured %d packets (%d dropped)", dump.Stat("packets"), dump.Stat("dropped"))
			}
			return err
		}
	}
}
