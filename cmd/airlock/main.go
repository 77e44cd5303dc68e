package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"Airlock/internal/exitcode"
	"Airlock/internal/files"
	"Airlock/internal/target"
	"Airlock/pkg/logger"
	"Airlock/pkg/models"
	"Airlock/pkg/serializers"

	"github.com/alecthomas/kong"
)

type Globals struct {
	Config      string `name:"config" help:"YAML config file" type:"existingfile"`
	LogFile     string `name:"log-file" help:"Also write the log to this file" type:"path"`
	Debug       bool   `name:"debug" help:"Log what every tool prints and how it is understood"`
	DataDir     string `name:"data-dir" help:"Directory holding everything learnt about targets (overrides the config)"`
	NonRootUser string `name:"non-root-user" help:"User who will own the data directory on exit" env:"SUDO_USER"`
}

type CLI struct {
	Globals

	Scan    ScanCmd    `cmd:"" help:"List the access points in reach"`
	Unlock  UnlockCmd  `cmd:"" help:"Recover the key of an access point"`
	Phish   PhishCmd   `cmd:"" help:"Impersonate an access point until a client hands over its passphrase"`
	Spoof   SpoofCmd   `cmd:"" help:"Route the traffic of the joined network through this host"`
	Capture CaptureCmd `cmd:"" help:"Save the traffic seen on an interface"`
	Monitor MonitorCmd `cmd:"" help:"Switch an interface into or out of monitor mode"`
}

// App is what every command runs with.
type App struct {
	ctx   context.Context
	cfg   models.Config
	store *target.Store
}

func main() {
	os.Exit(run())
}

func run() int {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("airlock"),
		kong.Description(description()),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
	)

	logger.DebugEnabled = cli.Debug
	if err := logger.SetOutput(cli.LogFile); err != nil {
		logger.Errorf("%v", err)
		return exitcode.ErrUsage
	}
	defer logger.Close()

	cfg, err := serializers.LoadConfigFromYAML(cli.Config)
	if err != nil {
		logger.Errorf("%v", err)
		return exitcode.ErrUsage
	}
	if cli.DataDir != "" {
		cfg.DataDir = cli.DataDir
	}

	if os.Geteuid() != 0 {
		logger.Errorf("airlock drives raw wireless tools and must run as root")
		return exitcode.ErrNoPerm
	}

	store, err := target.NewStore(cfg.DataDir)
	if err != nil {
		logger.Errorf("data directory: %v", err)
		return exitcode.ErrUnavailable
	}
	defer cleanupPermissions(cli.NonRootUser, store.Root())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	err = kctx.Run(&App{ctx: ctx, cfg: cfg, store: store})
	code := exitCode(err)
	switch {
	case code == exitcode.ErrInterrupted:
		logger.Infof("[*] Stopped.")
	case err != nil:
		logger.Errorf("%v", err)
	}
	return code
}

func description() string {
	return `
Automated attacks on WEP and WPA/WPA2 wireless networks

Examples:
  sudo airlock scan wlan0
  sudo airlock unlock wlan0 "Lab WPA" --phishing
  sudo airlock spoof wlan0 --capture-file traffic.pcapng
`
}

// setupSignalHandler cancels the running command on Ctrl+C or SIGTERM.
// Every tool it started is stopped and cleaned before airlock exits.
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Infof("[!] Received %s, stopping tools...", sig)
		cancel()
	}()
}

// cleanupPermissions hands the data directory back to the invoking user.
func cleanupPermissions(user, dataDir string) {
	if user == "" || user == "root" {
		return
	}
	if err := files.SetFileAndDirPermsRecursive(user, dataDir); err != nil {
		logger.Warnf("Error during cleanupPermissions(): %v", err)
	}
}
