package session

import (
	"time"

	"github.com/alxayo/go-ihs/internal/ihs/wiremsg"
)

// ClientConfig identifies this client to a host, mirroring
// include/ihslib/client.h's IHS_ClientConfig: a stable device id, a
// 32-byte secret used by the authorization/streaming-request
// collaborators (out of scope here, per spec.md's non-goals), and a
// human-readable device name shown in the host's device list.
type ClientConfig struct {
	DeviceID uint64
	Secret   [32]byte
	Name     string
}

// SessionInfo is the per-connection information a successful
// authorization/streaming-request exchange hands to session creation,
// mirroring IHS_SessionInfo: the host's address, the negotiated session
// key, and the authenticating Steam id.
type SessionInfo struct {
	HostAddress string
	SessionKey  []byte
	SteamID     uint64
}

// SessionConfig carries the streaming feature toggles IHS_SessionConfig
// exposes to the caller.
type SessionConfig struct {
	EnableAudio  bool
	EnableHEVC   bool
	VideoModes   []wiremsg.VideoMode
	Capabilities wiremsg.ClientCapabilities
}

// Config carries the session package's own operational parameters: timer
// cadences and reassembly/queue sizing. Every field has a zero-value
// default filled in by applyDefaults, the teacher's server.Config pattern.
type Config struct {
	// MTU is the outbound fragmentation threshold used before the host's
	// ServerHandshake reports the negotiated value.
	MTU uint32
	// ProtocolVersion is sent in AuthenticationRequest.
	ProtocolVersion uint32
	// SendQueueCapacity bounds internal/ihs/sendqueue.Queue.
	SendQueueCapacity int
	// TickInterval is how often the shared timer goroutine flushes the
	// send queue and ticks the retransmission manager.
	TickInterval time.Duration
	// KeepAliveInterval is how often a KeepAlive control message is sent
	// once negotiation reaches Steady (spec.md §4.6: "fires every ~10s").
	KeepAliveInterval time.Duration
	// VideoDiscardStaleUnits is the window-units argument passed to both
	// the audio and the video channel's DiscardStale each tick (spec.md §4.7).
	VideoDiscardStaleUnits uint32
	// HIDPollInterval is defaulted but not read by the session:
	// internal/ihs/hid.Manager.Poll runs on every tick (TickInterval) once
	// a session is steady.
	HIDPollInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.MTU == 0 {
		c.MTU = 1500
	}
	if c.ProtocolVersion == 0 {
		c.ProtocolVersion = 1
	}
	if c.SendQueueCapacity == 0 {
		c.SendQueueCapacity = 256
	}
	if c.TickInterval == 0 {
		c.TickInterval = 20 * time.Millisecond
	}
	if c.KeepAliveInterval == 0 {
		c.KeepAliveInterval = 10 * time.Second
	}
	if c.VideoDiscardStaleUnits == 0 {
		c.VideoDiscardStaleUnits = 50
	}
	if c.HIDPollInterval == 0 {
		c.HIDPollInterval = 16 * time.Millisecond
	}
}
