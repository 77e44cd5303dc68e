// Package wireless resolves the network interface every campaign runs on.
package wireless

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"Airlock/internal/machine"
	"Airlock/internal/procman"
	"Airlock/pkg/logger"
	"Airlock/pkg/validators"
)

// Interface is a validated network interface. Tools receive its name and
// MAC from here and nowhere else.
type Interface struct {
	Name string
	MAC  net.HardwareAddr
	// Monitor is set for interfaces put into monitor mode by airmon-ng.
	Monitor bool
	// Parent is the managed interface a monitor interface was created from.
	Parent string
}

// Lookup validates name and reads the interface from the kernel.
func Lookup(name string) (*Interface, error) {
	if err := validators.ValidateInterfaceName(name); err != nil {
		return nil, err
	}
	ni, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("interface %s: %w", name, err)
	}
	return &Interface{Name: ni.Name, MAC: ni.HardwareAddr}, nil
}

// HardwareAddr is the MAC in the colon separated form tools expect.
func (i *Interface) HardwareAddr() string {
	return strings.ToUpper(i.MAC.String())
}

func (i *Interface) String() string {
	if i.Monitor {
		return fmt.Sprintf("%s (%s, monitor of %s)", i.Name, i.MAC, i.Parent)
	}
	return fmt.Sprintf("%s (%s)", i.Name, i.MAC)
}

// EnableMonitor puts the interface into monitor mode and returns the monitor
// interface airmon-ng created, which may carry a different name.
func (i *Interface) EnableMonitor(ctx context.Context, bin string, poll time.Duration) (*Interface, error) {
	a, err := startAirmon(bin, "start", i.Name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := a.Cleanup(); err != nil {
			logger.Warnf("[airmon-ng] cleanup: %v", err)
		}
	}()
	if err := machine.Await(ctx, a, poll); err != nil {
		return nil, err
	}
	name := a.Monitor()
	if name == "" {
		return nil, fmt.Errorf("airmon-ng did not report a monitor interface for %s", i.Name)
	}
	mon, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	mon.Monitor = true
	mon.Parent = i.Name
	logger.Infof("Monitor mode enabled on %s", mon)
	return mon, nil
}

// DisableMonitor removes a monitor interface created by EnableMonitor.
func (i *Interface) DisableMonitor(ctx context.Context, bin string, poll time.Duration) error {
	if !i.Monitor {
		return nil
	}
	a, err := startAirmon(bin, "stop", i.Name)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Cleanup(); err != nil {
			logger.Warnf("[airmon-ng] cleanup: %v", err)
		}
	}()
	if err := machine.Await(ctx, a, poll); err != nil {
		return err
	}
	logger.Infof("Monitor mode disabled on %s", i.Name)
	return nil
}

func startAirmon(bin, verb, iface string) (*Airmon, error) {
	p, err := procman.Start(bin, []string{verb, iface}, procman.Options{Name: "airmon-ng"})
	if err != nil {
		return nil, err
	}
	return NewAirmon(p), nil
}
