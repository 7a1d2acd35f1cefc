// Package control implements the control channel state machine of
// spec.md §4.6: the handshake/authentication/negotiation sequence, the
// keep-alive timer, cursor delivery, outbound input, and the RemoteHID
// relay envelope — all riding on the channel framework and a private
// 128-slot reassembly window.
package control

import (
	"fmt"
	"log/slog"

	protoerr "github.com/alxayo/go-ihs/internal/errors"
	"github.com/alxayo/go-ihs/internal/ihs/channel"
	"github.com/alxayo/go-ihs/internal/ihs/cryptoframe"
	"github.com/alxayo/go-ihs/internal/ihs/wire"
	"github.com/alxayo/go-ihs/internal/ihs/window"
	"github.com/alxayo/go-ihs/internal/ihs/wiremsg"
	"github.com/alxayo/go-ihs/internal/metrics"
)

// windowCapacity is the control channel's reassembly window size
// (spec.md §4.6).
const windowCapacity = 128

// State enumerates the control channel's handshake/negotiation state
// machine (spec.md §4.6's happy-path diagram).
type State int

const (
	StateIdle State = iota
	StateClientHandshake
	StateServerHandshake
	StateAuthenticating
	StateNegotiating
	StateSteady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateClientHandshake:
		return "client_handshake"
	case StateServerHandshake:
		return "server_handshake"
	case StateAuthenticating:
		return "authenticating"
	case StateNegotiating:
		return "negotiating"
	case StateSteady:
		return "steady"
	default:
		return "unknown"
	}
}

// message type byte, the first byte of every control frame body.
type msgType uint8

const (
	msgClientHandshake msgType = iota
	msgServerHandshake
	msgAuthenticationRequest
	msgAuthenticationResponse
	msgNegotiationInit
	msgNegotiationSetConfig
	msgNegotiationComplete
	msgKeepAlive
	msgSetCursor
	msgSetCursorImage
	msgShowCursor
	msgHideCursor
	msgDeleteCursor
	msgGetCursorImage
	msgMouseMotion
	msgMouseMotionAbsolute
	msgMouseButton
	msgMouseWheel
	msgKeyEvent
	msgTouchDown
	msgTouchMotion
	msgTouchUp
	msgStartAudioData
	msgStopAudioData
	msgStartVideoData
	msgStopVideoData
	msgRemoteHID
	msgRequestKeyFrame
	msgFrameStats
)

// plaintextTypes are sent/received unencrypted; every other message type
// is wrapped per §4.3 (spec.md §4.6).
func (t msgType) isPlaintext() bool {
	switch t {
	case msgClientHandshake, msgServerHandshake, msgAuthenticationRequest, msgAuthenticationResponse:
		return true
	default:
		return false
	}
}

// Config carries the parameters the control channel needs to drive
// authentication and negotiation.
type Config struct {
	SessionKey      []byte
	SteamID         uint64
	ProtocolVersion uint32
	EnableHEVC      bool
	VideoModes      []wiremsg.VideoMode
	Capabilities    wiremsg.ClientCapabilities
}

// Callbacks are invoked as the control channel progresses through its
// state machine and steady-state traffic. All are optional.
type Callbacks struct {
	// OnMTU reports the MTU the host's ServerHandshake negotiated, so the
	// session can Reconfigure every channel's fragmentation threshold.
	OnMTU              func(mtu uint32)
	OnAuthenticated    func()
	OnAuthFailed       func(result wiremsg.AuthenticationResult)
	OnNegotiated       func(audio wiremsg.AudioCodec, video wiremsg.VideoCodec)
	CursorKnown        func(cursorID uint32) bool
	OnCursorImage      func(wiremsg.SetCursorImage)
	OnShowCursor       func()
	OnHideCursor       func()
	OnDeleteCursor     func(cursorID uint32)
	OnStartAudioData   func(wiremsg.AudioConfig)
	OnStopAudioData    func()
	OnStartVideoData   func(wiremsg.VideoConfig)
	OnStopVideoData    func()
	// Inbound RemoteHID traffic is wired separately via
	// Channel.SetHIDToRemoteHandler, not through Callbacks, since the
	// HID manager is constructed after the control channel.
}

// Channel is the control channel implementation.
type Channel struct {
	base    *channel.Base
	win     *window.Window
	cfg     Config
	cb      Callbacks
	logger  *slog.Logger
	metrics *metrics.Collectors

	state      State
	encryptSeq uint64
	decryptSeq uint64

	hidToRemoteHandler func(wiremsg.HIDMessageToRemote)
}

// New constructs a control Channel. base should be created with
// HasCRC=true; control traffic is reliable and always CRC-protected.
func New(base *channel.Base, cfg Config, cb Callbacks, logger *slog.Logger, m *metrics.Collectors) *Channel {
	return &Channel{
		base:    base,
		win:     window.New(windowCapacity, wire.ChannelControl, "control", m),
		cfg:     cfg,
		cb:      cb,
		logger:  logger,
		metrics: m,
		state:   StateIdle,
	}
}

// Init satisfies channel.Channel.
func (c *Channel) Init(channel.Config) error { return nil }

// Deinit satisfies channel.Channel.
func (c *Channel) Deinit() {}

// State returns the channel's current state machine position.
func (c *Channel) State() State { return c.state }

// BeginHandshake is invoked once discovery observes ConnectACK; it sends
// the plaintext ClientHandshake and advances the state machine.
func (c *Channel) BeginHandshake() {
	c.state = StateClientHandshake
	c.sendPlaintext(msgClientHandshake, (&wiremsg.ClientHandshake{}).Marshal())
}

// Received feeds an inbound packet into the control reassembly window
// and processes every frame it completes.
func (c *Channel) Received(h wire.Header, body []byte) error {
	dropped, err := c.win.Add(h, body)
	if err != nil {
		return err
	}
	if dropped {
		return nil
	}
	for _, frame := range c.win.DrainReady() {
		if err := c.handleFrame(frame.Body); err != nil {
			if c.logger != nil {
				c.logger.Warn("control: dropping frame", "error", err)
			}
		}
	}
	return nil
}

func (c *Channel) handleFrame(body []byte) error {
	if len(body) < 1 {
		return protoerr.NewMessageError("control.frame", fmt.Errorf("empty frame body"))
	}
	typ := msgType(body[0])
	payload := body[1:]

	if !typ.isPlaintext() {
		result, err := cryptoframe.Decrypt(c.cfg.SessionKey, c.decryptSeq, payload)
		if err != nil {
			// HMAC mismatch / old sequence: silently discarded per §4.3/§5.
			return nil
		}
		if result.SequenceJump && c.logger != nil {
			c.logger.Info("control: decrypt sequence jump", "new_expected", result.NewExpected)
		}
		if result.SequenceJump {
			c.decryptSeq = result.NewExpected
		} else {
			c.decryptSeq++
		}
		payload = result.Plaintext
	}

	switch typ {
	case msgServerHandshake:
		return c.onServerHandshake(payload)
	case msgAuthenticationResponse:
		return c.onAuthenticationResponse(payload)
	case msgNegotiationInit:
		return c.onNegotiationInit(payload)
	case msgNegotiationComplete:
		c.state = StateSteady
		return nil
	case msgKeepAlive:
		return nil
	case msgSetCursor:
		return c.onSetCursor(payload)
	case msgSetCursorImage:
		return c.onSetCursorImage(payload)
	case msgShowCursor:
		if c.cb.OnShowCursor != nil {
			c.cb.OnShowCursor()
		}
		return nil
	case msgHideCursor:
		if c.cb.OnHideCursor != nil {
			c.cb.OnHideCursor()
		}
		return nil
	case msgDeleteCursor:
		return c.onDeleteCursor(payload)
	case msgStartAudioData:
		return c.onStartAudioData(payload)
	case msgStopAudioData:
		if c.cb.OnStopAudioData != nil {
			c.cb.OnStopAudioData()
		}
		return nil
	case msgStartVideoData:
		return c.onStartVideoData(payload)
	case msgStopVideoData:
		if c.cb.OnStopVideoData != nil {
			c.cb.OnStopVideoData()
		}
		return nil
	case msgRemoteHID:
		return c.onRemoteHID(payload)
	default:
		if c.logger != nil {
			c.logger.Debug("control: ignoring unknown message type", "type", uint8(typ))
		}
		return nil
	}
}

func (c *Channel) sendPlaintext(typ msgType, payload []byte) {
	body := append([]byte{byte(typ)}, payload...)
	c.base.SendFrame(body, true)
}

func (c *Channel) sendEncrypted(typ msgType, payload []byte) error {
	ciphertext, err := cryptoframe.Encrypt(c.cfg.SessionKey, c.encryptSeq, payload)
	if err != nil {
		return protoerr.NewCryptoError("encrypt", err)
	}
	c.encryptSeq++
	body := append([]byte{byte(typ)}, ciphertext...)
	c.base.SendFrame(body, true)
	return nil
}
