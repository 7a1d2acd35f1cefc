// Package discovery implements the discovery channel (channel id 0)
// described in spec.md §4.5: connection-id adoption from ConnectACK,
// pre-session PingRequest/PingResponse, and Disconnect handling.
package discovery

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"log/slog"

	protoerr "github.com/alxayo/go-ihs/internal/errors"
	"github.com/alxayo/go-ihs/internal/ihs/channel"
	"github.com/alxayo/go-ihs/internal/ihs/wire"
	"github.com/alxayo/go-ihs/internal/ihs/wiremsg"
)

// Callbacks are invoked on the discovery channel's lifecycle events.
// Each is optional; a nil callback is simply not called.
type Callbacks struct {
	// OnConnectACK fires when the host's ConnectACK is observed, after
	// host_connection_id has been adopted. Used by the session to kick
	// off the control channel's handshake (spec.md §4.6).
	OnConnectACK func(hostConnectionID uint8)
	// OnDisconnect fires when a peer Disconnect packet arrives.
	OnDisconnect func()
}

// Channel is the discovery channel implementation.
type Channel struct {
	base      *channel.Base
	callbacks Callbacks
	logger    *slog.Logger

	hostConnectionID uint8
	adopted          bool
}

// New constructs a discovery Channel. base should be created with
// HasCRC=false; discovery traffic is unencrypted and uncommonly
// fragmented, and a missing ping reply is simply retried by the peer.
func New(base *channel.Base, cb Callbacks, logger *slog.Logger) *Channel {
	return &Channel{base: base, callbacks: cb, logger: logger}
}

// Init satisfies channel.Channel; discovery holds no per-config state.
func (c *Channel) Init(channel.Config) error { return nil }

// Deinit satisfies channel.Channel.
func (c *Channel) Deinit() {}

// HostConnectionID returns the connection id adopted from ConnectACK, or
// 0 with ok=false if none has arrived yet.
func (c *Channel) HostConnectionID() (uint8, bool) {
	return c.hostConnectionID, c.adopted
}

// Received handles the three inbound packet types spec.md §4.5 names.
func (c *Channel) Received(h wire.Header, body []byte) error {
	switch h.Type {
	case wire.ConnectACK:
		c.hostConnectionID = h.SrcConnectionID
		c.adopted = true
		if c.callbacks.OnConnectACK != nil {
			c.callbacks.OnConnectACK(h.SrcConnectionID)
		}
		return nil
	case wire.Unconnected:
		return c.handleUnconnected(h, body)
	case wire.Disconnect:
		if c.callbacks.OnDisconnect != nil {
			c.callbacks.OnDisconnect()
		}
		return nil
	default:
		return nil
	}
}

// discoveryMsgHeaderSize is the one-byte message-type discriminator plus
// the LE32 body-length prefix preceding every Unconnected payload.
const discoveryMsgHeaderSize = 1 + 4

func (c *Channel) handleUnconnected(h wire.Header, body []byte) error {
	if len(body) < discoveryMsgHeaderSize {
		return protoerr.NewWireError("discovery.unconnected", fmt.Errorf("short body: %d bytes", len(body)))
	}
	msgType := wiremsg.DiscoveryMessageType(body[0])
	length := binary.LittleEndian.Uint32(body[1:5])
	payload := body[discoveryMsgHeaderSize:]
	if uint32(len(payload)) < length {
		return protoerr.NewWireError("discovery.unconnected", fmt.Errorf("truncated payload: want %d, have %d", length, len(payload)))
	}
	payload = payload[:length]

	switch msgType {
	case wiremsg.DiscoveryPingRequest:
		var req wiremsg.PingRequest
		if err := req.Unmarshal(payload); err != nil {
			return err
		}
		return c.respondToPing(h, req)
	default:
		if c.logger != nil {
			c.logger.Debug("discovery: ignoring unknown message type", "msg_type", uint8(msgType))
		}
		return nil
	}
}

// respondToPing replies with a PingResponse, reporting how many bytes of
// the incoming request were actually received, then pads the outbound
// packet to the requested total size (spec.md §4.5, §8 ping scenario).
func (c *Channel) respondToPing(h wire.Header, req wiremsg.PingRequest) error {
	resp := wiremsg.PingResponse{
		Sequence:           req.Sequence,
		PacketSizeReceived: uint32(wire.HeaderSize + discoveryMsgHeaderSize + len(req.Marshal())),
	}
	respBytes := resp.Marshal()

	var msgBody []byte
	msgBody = append(msgBody, byte(wiremsg.DiscoveryPingResponse))
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(respBytes)))
	msgBody = append(msgBody, lenBuf[:]...)
	msgBody = append(msgBody, respBytes...)

	hdr := c.base.NewHeader(wire.Unconnected, 0)
	hdr.SrcConnectionID = h.DstConnectionID
	hdr.DstConnectionID = h.SrcConnectionID
	p := wire.NewWithBody(hdr, msgBody)
	if req.PacketSizeRequested > 0 {
		wire.PadTo(p, int(req.PacketSizeRequested))
	}
	c.base.SendPacket(p, false)
	return nil
}

// SendDisconnect enqueues a bare Disconnect packet with no body, as
// spec.md §4.5 describes for the outbound direction.
func (c *Channel) SendDisconnect() {
	c.base.SendBare(wire.Disconnect)
}

// connectMagic is the 4-byte CRC-32C of the ASCII string "Connect",
// the fixed body of the Connect handshake packet (spec.md §8).
var connectMagic = crc32.Checksum([]byte("Connect"), crc32.MakeTable(crc32.Castagnoli))

// SendConnect enqueues the session-opening Connect packet: has_crc=true,
// body is connectMagic. The host replies with ConnectACK, observed by
// Received, which adopts host_connection_id and fires OnConnectACK.
func (c *Channel) SendConnect() {
	var body [4]byte
	binary.LittleEndian.PutUint32(body[:], connectMagic)
	hdr := c.base.NewHeader(wire.Connect, 0)
	hdr.HasCRC = true
	p := wire.NewWithBody(hdr, body[:])
	c.base.SendPacket(p, true)
}
