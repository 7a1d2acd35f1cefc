package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alxayo/go-ihs/internal/ihs/data"
	"github.com/alxayo/go-ihs/internal/ihs/session"
	"github.com/alxayo/go-ihs/internal/logger"
	"github.com/alxayo/go-ihs/internal/metrics"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		// Parse errors were already printed by the flag package; the
		// validation errors parseFlags returns itself are printed here.
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Println(err)
		}
		os.Exit(2)
	}
	if cfg.showVersion {
		fmt.Println(version)
		return
	}

	logger.Init()
	if err := logger.SetLevel(cfg.logLevel); err != nil {
		fmt.Printf("Warning: invalid log level %q, using default\n", cfg.logLevel)
	}
	log := logger.Logger().With("component", "cli")

	sessionKey, _ := hex.DecodeString(cfg.sessionKey)

	var videoFrames, audioPackets atomic.Uint64
	connected := make(chan struct{})
	disconnected := make(chan struct{})

	cb := session.Callbacks{
		OnConnecting: func() { log.Info("connecting", "host", cfg.hostAddr) },
		OnConnected: func() {
			log.Info("connected")
			close(connected)
		},
		OnDisconnected: func() {
			log.Info("disconnected")
			close(disconnected)
		},
		Audio: data.AudioCallbacks{
			OnReceived: func(payload []byte, sub data.SubHeader, hasSubHeader bool) {
				audioPackets.Add(1)
			},
		},
		Video: data.VideoCallbacks{
			OnFrame: func(frame []byte, keyFrame bool) {
				videoFrames.Add(1)
			},
		},
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	s, err := session.New(
		session.Config{},
		session.ClientConfig{DeviceID: cfg.deviceID, Name: cfg.deviceName},
		session.SessionInfo{HostAddress: cfg.hostAddr, SessionKey: sessionKey, SteamID: cfg.steamID},
		session.SessionConfig{EnableAudio: cfg.enableAudio, EnableHEVC: cfg.enableHEVC},
		cb,
		m,
	)
	if err != nil {
		log.Error("failed to build session", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Connect(ctx); err != nil {
		log.Error("failed to connect", "error", err)
		os.Exit(1)
	}

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-connected:
			connected = nil // only log once
		case <-disconnected:
			shutdown(log, s)
			return
		case <-statsTicker.C:
			log.Info("stream stats", "video_frames", videoFrames.Load(), "audio_packets", audioPackets.Load())
		case <-ctx.Done():
			log.Info("shutdown signal received")
			if err := s.Disconnect(); err != nil {
				log.Error("disconnect error", "error", err)
			}
			select {
			case <-disconnected:
			case <-time.After(5 * time.Second):
				log.Warn("disconnect acknowledgment timed out, closing anyway")
			}
			shutdown(log, s)
			return
		}
	}
}

func shutdown(log *slog.Logger, s *session.Session) {
	if err := s.Close(); err != nil {
		log.Error("close error", "error", err)
		return
	}
	log.Info("session closed cleanly")
}
