package session

import (
	"github.com/alxayo/go-ihs/internal/ihs/data"
	"github.com/alxayo/go-ihs/internal/ihs/wiremsg"
)

// Callbacks aggregates every event a caller can observe over a session's
// lifetime, mirroring IHS_StreamSessionCallbacks plus the cursor, audio,
// and video callback groups the original client library exposes
// alongside it. Every field is optional.
type Callbacks struct {
	// OnInitialized fires once New has finished wiring every channel.
	OnInitialized func()
	// OnConnecting fires when Connect begins opening the UDP socket.
	OnConnecting func()
	// OnConnected fires once the client has answered the host's
	// NegotiationInit, before NegotiationComplete moves the control
	// channel to its steady state.
	OnConnected func()
	// OnDisconnected fires once the session has begun tearing down,
	// whether initiated locally or by the peer.
	OnDisconnected func()
	// OnFinalized fires once Close has released every resource.
	OnFinalized func()

	CursorKnown    func(cursorID uint32) bool
	OnCursorImage  func(wiremsg.SetCursorImage)
	OnShowCursor   func()
	OnHideCursor   func()
	OnDeleteCursor func(cursorID uint32)

	Audio data.AudioCallbacks
	Video data.VideoCallbacks
}
