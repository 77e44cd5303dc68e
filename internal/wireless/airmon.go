package wireless

import (
	"Airlock/internal/machine"
)

type AirmonState int

const (
	AirmonStarted AirmonState = iota
	AirmonListed
	AirmonDone
	AirmonTerminated
)

func (s AirmonState) String() string {
	switch s {
	case AirmonStarted:
		return "STARTED"
	case AirmonListed:
		return "LISTED"
	case AirmonDone:
		return "DONE"
	case AirmonTerminated:
		return "TERMINATED"
	}
	return "UNKNOWN"
}

// Airmon follows a single airmon-ng start or stop run.
type Airmon struct {
	machine.Base[AirmonState]

	monitor string
}

func NewAirmon(src machine.Source) *Airmon {
	a := &Airmon{Base: machine.NewBase[AirmonState]("airmon-ng", src, AirmonStarted, AirmonTerminated)}
	enabled := func(m []string) error {
		a.monitor = m[len(m)-1]
		return nil
	}
	a.Out = &machine.Table[AirmonState]{
		Rules: []machine.Rule[AirmonState]{
			machine.On("header", machine.Regexp(`^PHY\s+Interface\s+Driver`), AirmonStarted).Goto(AirmonListed),
			machine.On("vif", machine.Regexp(`monitor mode (?:vif )?(?:already )?enabled (?:for \[\w+\]\S+ )?on (?:\[\w+\])?([^)\s]+)\)?`), AirmonListed).
				Goto(AirmonDone).
				Then(enabled),
			machine.On("legacy", machine.Regexp(`^\s*\(monitor mode enabled on (\S+)\)$`), AirmonListed).
				Goto(AirmonDone).
				Then(enabled),
			machine.On("stopped", machine.Regexp(`monitor mode (?:vif )?disabled`), AirmonListed).Goto(AirmonDone),
			machine.On("removed", machine.Regexp(`\(removed\)$`), AirmonListed).Goto(AirmonDone),
		},
		// Process lists, driver tables and interfering process hints.
		Unknown: machine.Ignore,
	}
	a.Outcome = machine.Outcome[AirmonState]{SuccessStates: []AirmonState{AirmonDone}}
	return a
}

// Monitor is the monitor interface airmon-ng reported, if any.
func (a *Airmon) Monitor() string { return a.monitor }
