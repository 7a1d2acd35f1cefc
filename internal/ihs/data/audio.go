package data

import (
	"log/slog"

	"github.com/alxayo/go-ihs/internal/ihs/channel"
	"github.com/alxayo/go-ihs/internal/ihs/wire"
	"github.com/alxayo/go-ihs/internal/ihs/window"
	"github.com/alxayo/go-ihs/internal/ihs/wiremsg"
	"github.com/alxayo/go-ihs/internal/metrics"
)

// audioWindowCapacity mirrors the original's data-channel default window
// size (ch_data.c's IHS_SessionPacketsWindowCreate(1024) call site for
// non-video data channels; audio has no override).
const audioWindowCapacity = 1024

// AudioCallbacks delivers decoded audio stream events to the owner.
// OnReceived is invoked once per DataPacket frame with the codec payload
// (after stripping the optional SubHeader), mirroring
// IHS_StreamAudioCallbacks.received's raw-bytes-only signature.
type AudioCallbacks struct {
	OnConfig   func(wiremsg.AudioConfig)
	OnReceived func(payload []byte, sub SubHeader, hasSubHeader bool)
	OnStop     func()
}

// AudioChannel is the data channel implementation for an audio stream
// negotiated via the control channel's StartAudioData message.
type AudioChannel struct {
	base   *channel.Base
	win    *window.Window
	config wiremsg.AudioConfig
	cb     AudioCallbacks
	logger *slog.Logger
}

// NewAudio constructs an AudioChannel for the config delivered by the
// control channel's StartAudioData message.
func NewAudio(base *channel.Base, config wiremsg.AudioConfig, cb AudioCallbacks, logger *slog.Logger, m *metrics.Collectors) *AudioChannel {
	return &AudioChannel{
		base:   base,
		win:    window.New(audioWindowCapacity, base.ChannelID(), "audio", m),
		config: config,
		cb:     cb,
		logger: logger,
	}
}

// Init satisfies channel.Channel and delivers the stream config, matching
// ch_data_audio.c's DataStart firing callbacks->start before any frame
// arrives.
func (c *AudioChannel) Init(channel.Config) error {
	if c.cb.OnConfig != nil {
		c.cb.OnConfig(c.config)
	}
	return nil
}

// Deinit satisfies channel.Channel.
func (c *AudioChannel) Deinit() {}

// Stopped satisfies channel.Stopper and fires the stop callback before
// the session tears down the channel, matching ch_data_audio.c's
// DataStop.
func (c *AudioChannel) Stopped() {
	if c.cb.OnStop != nil {
		c.cb.OnStop()
	}
}

// Received feeds a packet into the reassembly window; DiscardStale
// should be called by the owning worker loop before Received drains
// frames, per spec.md §4.7's "Discard(50ms) then drain Poll" cadence.
func (c *AudioChannel) Received(h wire.Header, body []byte) error {
	dropped, err := c.win.Add(h, body)
	if err != nil {
		return err
	}
	if dropped {
		return nil
	}
	return c.drain()
}

// DiscardStale evicts frame-head slots older than diff units relative to
// the window tail, then drains any frames that become ready as a result.
func (c *AudioChannel) DiscardStale(diff uint32) error {
	c.win.Discard(diff)
	return c.drain()
}

func (c *AudioChannel) drain() error {
	for _, f := range c.win.DrainReady() {
		payload, ok, err := splitFrame(f.Body)
		if err != nil {
			if c.logger != nil {
				c.logger.Warn("audio: dropping frame", "error", err)
			}
			continue
		}
		if !ok {
			continue
		}
		sub, rest, hasSub := parseSubHeader(payload)
		if c.cb.OnReceived != nil {
			c.cb.OnReceived(rest, sub, hasSub)
		}
	}
	return nil
}
