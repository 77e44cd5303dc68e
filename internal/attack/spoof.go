package attack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"

	"Airlock/internal/capture"
	"Airlock/pkg/logger"
)

// ErrCaptureInterrupted is returned when the traffic capture of a spoofing
// session loses its interface.
var ErrCaptureInterrupted = errors.New("capture interface disconnected")

// Spoof poisons the ARP caches of the local network so its traffic flows
// through us, optionally saving it to captureFile. It runs until ctx ends.
func (a *Attacker) Spoof(ctx context.Context, gateway net.IP, captureFile string, display io.Writer) error {
	g := NewGroup(fmt.Sprintf("%s spoof %s", a.ID.String()[:8], gateway))
	defer closeGroup(g)

	spoofer, err := a.tools.Spoofer(gateway, display)
	if err != nil {
		return err
	}
	g.Adopt(spoofer)

	var dump *capture.Capture
	if captureFile != "" {
		output, err := filepath.Abs(captureFile)
		if err != nil {
			return err
		}
		if dump, err = a.tools.Dumpcap(output); err != nil {
			return err
		}
		g.Adopt(dump)
		logger.Infof("[*] Saving traffic to %s", output)
	}

	for {
		if err := spoofer.Update(); err != nil {
			return err
		}
		if spoofer.Terminated() {
			logger.Infof("[*] Spoofer exited")
			return nil
		}
		if dump != nil {
			if err := dump.Update(); err != nil {
				return err
			}
			if dump.Flag(capture.FlagNetworkDisconnected) {
				return fmt.Errorf("%s: %w", dump.Interface(), ErrCaptureInterrupted)
			}
		}
		if err := wait(ctx, a.poll()); err != nil {
			return err
		}
	}
}
