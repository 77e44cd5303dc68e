package models

import "time"

// Timing holds every poll cadence and timeout used by campaigns.
type Timing struct {
	PollInterval   time.Duration `yaml:"poll-interval" validate:"gt=0"`
	StopGrace      time.Duration `yaml:"stop-grace" validate:"gt=0"`
	DeauthInterval time.Duration `yaml:"deauth-interval" validate:"gt=0"`
	AuthBackoff    time.Duration `yaml:"auth-backoff" validate:"gt=0"`
	AuthBackoffMax time.Duration `yaml:"auth-backoff-max" validate:"gtefield=AuthBackoff"`
	ScanDuration   time.Duration `yaml:"scan-duration" validate:"gt=0"`
	ToolTimeout    time.Duration `yaml:"tool-timeout" validate:"gt=0"`
}

type WEPConfig struct {
	// MinIVs is how many unique IVs to collect before the cracker is started.
	MinIVs      int `yaml:"min-ivs" validate:"gte=1"`
	DeauthCount int `yaml:"deauth-count" validate:"gte=1"`
}

type WPAConfig struct {
	// Dictionaries are tried in order after the personalized one.
	Dictionaries []string `yaml:"dictionaries" validate:"dive,required"`
	Personalized bool     `yaml:"personalized"`
	DeauthCount  int      `yaml:"deauth-count" validate:"gte=1"`
}

type CaptureConfig struct {
	// Output is where traffic is saved while spoofing. Empty disables it.
	Output string `yaml:"output"`
}

type Config struct {
	Timing  Timing            `yaml:"timing"`
	WEP     WEPConfig         `yaml:"wep"`
	WPA     WPAConfig         `yaml:"wpa"`
	Capture CaptureConfig     `yaml:"capture"`
	Tools   map[string]string `yaml:"tools"`
	DataDir string            `yaml:"data-dir"`
}

// DefaultConfig is used when no config file is given, and as the base a
// config file is merged over.
func DefaultConfig() Config {
	return Config{
		Timing: Timing{
			PollInterval:   2 * time.Second,
			StopGrace:      time.Second,
			DeauthInterval: 5 * time.Second,
			AuthBackoff:    5 * time.Second,
			AuthBackoffMax: time.Minute,
			ScanDuration:   10 * time.Second,
			ToolTimeout:    30 * time.Second,
		},
		WEP: WEPConfig{
			MinIVs:      100,
			DeauthCount: 3,
		},
		WPA: WPAConfig{
			Dictionaries: []string{"/usr/share/john/password.lst"},
			Personalized: true,
			DeauthCount:  3,
		},
		Tools:   map[string]string{},
		DataDir: "~/.airlock",
	}
}

// Binary resolves a tool name through the tools overrides.
func (c Config) Binary(name string) string {
	if path, ok := c.Tools[name]; ok && path != "" {
		return path
	}
	return name
}
