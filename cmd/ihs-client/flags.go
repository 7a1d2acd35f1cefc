package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
)

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

// cliConfig holds user-supplied flag values prior to translation into
// session.Config/session.SessionInfo, so main.go can validate and map.
type cliConfig struct {
	hostAddr    string
	sessionKey  string
	steamID     uint64
	deviceID    uint64
	deviceName  string
	logLevel    string
	enableAudio bool
	enableHEVC  bool
	showVersion bool
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("ihs-client", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.hostAddr, "host", "", "host UDP address to stream from (e.g. 192.168.1.10:27037)")
	fs.StringVar(&cfg.sessionKey, "session-key", "", "hex-encoded session key from the streaming-request exchange")
	fs.Uint64Var(&cfg.steamID, "steam-id", 0, "authenticating Steam id")
	fs.Uint64Var(&cfg.deviceID, "device-id", 0, "stable client device id")
	fs.StringVar(&cfg.deviceName, "device-name", "go-ihs", "human-readable device name announced to the host")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.BoolVar(&cfg.enableAudio, "enable-audio", true, "accept the host's audio stream")
	fs.BoolVar(&cfg.enableHEVC, "enable-hevc", false, "prefer HEVC over H.264 when the host offers both")
	fs.BoolVar(&cfg.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.showVersion {
		return cfg, nil
	}

	if cfg.hostAddr == "" {
		return nil, errors.New("-host is required")
	}
	if cfg.sessionKey == "" {
		return nil, errors.New("-session-key is required")
	}
	if _, err := hex.DecodeString(cfg.sessionKey); err != nil {
		return nil, fmt.Errorf("invalid -session-key: %w", err)
	}

	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q", cfg.logLevel)
	}

	return cfg, nil
}
