// Command vaultlink is an interactive client for a vault executor.
//
// It connects over the local loopback transport by default, or over a
// peer-to-peer remote channel when remote mode is configured, and
// offers a REPL covering the full command vocabulary.
//
// Usage:
//
//	vaultlink [flags]
//
// Flags:
//
//	-config string     Configuration file path
//	-mode string       Channel mode: local, remote
//	-address string    Executor address (empty with -discover uses mDNS)
//	-signal-url string Signaling relay URL for remote mode
//	-vault string      Vault identifier for remote mode
//	-remote            Enable remote mode entitlement
//	-log-file string   Protocol trace file (.vlog)
//	-verbose           Debug-level logging
//
// Examples:
//
//	# Connect to the default loopback executor
//	vaultlink
//
//	# Remote mode through a relay
//	vaultlink -mode remote -remote -signal-url wss://relay.example.org/signal -vault my-vault
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/vaultlink-protocol/vaultlink-go/pkg/config"
	"github.com/vaultlink-protocol/vaultlink-go/pkg/log"
	"github.com/vaultlink-protocol/vaultlink-go/pkg/session"
)

type flags struct {
	configFile string
	mode       string
	address    string
	signalURL  string
	vaultID    string
	remote     bool
	discover   bool
	logFile    string
	verbose    bool
}

func parseFlags() *flags {
	f := &flags{}
	flag.StringVar(&f.configFile, "config", "", "Configuration file path")
	flag.StringVar(&f.mode, "mode", "", "Channel mode: local, remote")
	flag.StringVar(&f.address, "address", "", "Executor address (host:port)")
	flag.StringVar(&f.signalURL, "signal-url", "", "Signaling relay URL for remote mode")
	flag.StringVar(&f.vaultID, "vault", "", "Vault identifier for remote mode")
	flag.BoolVar(&f.remote, "remote", false, "Enable remote mode entitlement")
	flag.BoolVar(&f.discover, "discover", false, "Discover the executor via mDNS")
	flag.StringVar(&f.logFile, "log-file", "", "Protocol trace file (.vlog)")
	flag.BoolVar(&f.verbose, "verbose", false, "Debug-level logging")
	flag.Parse()
	return f
}

func buildConfig(f *flags) (*config.Config, error) {
	cfg := config.Default()
	if f.configFile != "" {
		loaded, err := config.Load(f.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if f.mode != "" {
		cfg.Mode = f.mode
	}
	if f.address != "" {
		cfg.Local.Address = f.address
	}
	if f.discover {
		cfg.Local.Address = ""
	}
	if f.signalURL != "" {
		cfg.Remote.SignalURL = f.signalURL
	}
	if f.vaultID != "" {
		cfg.Remote.VaultID = f.vaultID
	}
	if f.remote {
		cfg.RemoteEnabled = true
	}
	if f.logFile != "" {
		cfg.Log.File = f.logFile
	}
	if f.verbose {
		cfg.Log.Verbose = true
	}

	return cfg, cfg.Validate()
}

func main() {
	f := parseFlags()

	cfg, err := buildConfig(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Log.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Trace capture: slog at debug level, plus a .vlog file when
	// configured.
	traceLoggers := []log.Logger{log.NewSlogAdapter(logger)}
	if cfg.Log.File != "" {
		fl, err := log.NewFileLogger(cfg.Log.File)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open trace file: %v\n", err)
			os.Exit(1)
		}
		defer fl.Close()
		traceLoggers = append(traceLoggers, fl)
	}
	trace := log.NewMultiLogger(traceLoggers...)

	ctrl := session.NewController(cfg, session.NewChannelFactory(trace))

	client, err := newClient(ctrl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}

	if err := client.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
