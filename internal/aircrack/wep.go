package aircrack

import (
	"strconv"

	"Airlock/internal/machine"
	"Airlock/internal/procman"
	"Airlock/internal/target"
	"Airlock/pkg/logger"
)

// StartWEP runs a PTW attack on capture, which may still be growing.
// aircrack-ng keeps retrying as IVs come in.
func StartWEP(bin, capture string, t *target.Target, opts procman.Options) (*Cracker, error) {
	args := []string{"-a", "1", "--bssid", t.BSSID, "-q", "-l", "psk.hex", capture}
	if opts.Name == "" {
		opts.Name = "aircrack-wep"
	}
	p, err := procman.Start(bin, args, opts)
	if err != nil {
		return nil, err
	}
	c := NewWEP(p, t)
	// Nothing is printed until exit, so a started cracker is cracking.
	c.Enter(Cracking)
	return c, nil
}

// NewWEP wraps a running WEP attack that stores its key into t.
func NewWEP(src machine.Source, t *target.Target) *Cracker {
	c := newCracker("aircrack-ng wep", src, t, "psk.hex")
	c.Out = &machine.Table[CrackState]{
		Rules: []machine.Rule[CrackState]{
			machine.On("retry", machine.Regexp(`Failed\. Next try with (\d+) IVs`), CrackStarted, Cracking).
				Goto(Cracking).
				Then(func(m []string) error {
					c.SetFlag(FlagNextAttempt)
					n, _ := strconv.Atoi(m[1])
					c.SetStat("next_ivs", n)
					c.SetStat("attempts", c.Stat("attempts")+1)
					return nil
				}),
			machine.On("key", keyFound, CrackStarted, Cracking).
				Goto(Cracking).
				Then(func(m []string) error { return c.found(m[1]) }),
			machine.On[CrackState]("decrypted", machine.Regexp(`Decrypted correctly: (\d+)%`)).
				Then(func(m []string) error {
					if m[1] != "100" {
						logger.Warnf("[%s] key may be wrong: decrypted correctly %s%%", c.Name(), m[1])
					}
					return nil
				}),
		},
		Noise: []machine.Matcher{
			machine.Prefix("Attack will be restarted"),
			machine.Prefix("Opening "),
			machine.Prefix("Reading packets"),
			machine.Contains("potential targets"),
		},
		Unknown: machine.Ignore,
	}
	c.Outcome = machine.Outcome[CrackState]{SuccessFlags: []string{FlagKeyFound}}
	return c
}
