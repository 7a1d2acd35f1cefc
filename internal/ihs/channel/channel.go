// Package channel implements the channel framework of spec.md §4.4: the
// shared contract every multiplexed sub-stream (discovery, control, audio,
// video) implements, and the fragmentation logic that turns an outbound
// frame body into one or more wire packets.
package channel

import (
	"log/slog"

	"github.com/alxayo/go-ihs/internal/ihs/wire"
	"github.com/alxayo/go-ihs/internal/metrics"
)

// Config carries the session-level parameters a channel needs to
// initialize: its own id, the negotiated MTU, and the current
// connection-id pair (src is this endpoint's id, dst is the peer's).
type Config struct {
	ChannelID       uint8
	MTU             uint32
	SrcConnectionID uint8
	DstConnectionID uint8
}

// Channel is implemented by every multiplexed sub-stream. Stopped is
// optional; implementations that don't need shutdown notification can
// embed NoopStopper.
type Channel interface {
	Init(cfg Config) error
	Deinit()
	Received(h wire.Header, body []byte) error
}

// Stopper is implemented by channels that want to be told the session is
// stopping, before Deinit.
type Stopper interface {
	Stopped()
}

// NoopStopper can be embedded by channels with nothing to do on Stopped.
type NoopStopper struct{}

func (NoopStopper) Stopped() {}

// Sender is the subset of the send queue a channel needs: enqueue a
// packet, optionally marked for inline retransmission.
type Sender interface {
	Append(p *wire.Packet, retransmit bool) bool
}

// headerOverhead is the fixed per-packet cost outside the body: the
// 13-byte header plus an optional 4-byte CRC-32C trailer.
const headerOverhead = wire.HeaderSize + wire.CRCSize

// Base is embedded by concrete channel implementations to get outbound
// frame fragmentation and a monotonically increasing packet-id counter
// for free (spec.md §4.4's "channel base" send path).
type Base struct {
	cfg      Config
	sender   Sender
	metrics  *metrics.Collectors
	logger   *slog.Logger
	nextID   uint16
	hasCRC   bool
}

// NewBase constructs a Base. hasCRC controls whether outbound packets
// carry a CRC-32C trailer (discovery/control traffic typically does; a
// channel may choose not to for raw, rate-sensitive media).
func NewBase(cfg Config, sender Sender, m *metrics.Collectors, logger *slog.Logger, hasCRC bool) *Base {
	return &Base{cfg: cfg, sender: sender, metrics: m, logger: logger, hasCRC: hasCRC}
}

// Reconfigure updates the connection-id pair and MTU, e.g. after a
// ConnectACK adopts the host's connection id.
func (b *Base) Reconfigure(cfg Config) { b.cfg = cfg }

func (b *Base) nextPacketID() uint16 {
	id := b.nextID
	b.nextID++
	return id
}

// SendFrame splits body into one or more packets and enqueues them on the
// sender, following spec.md §4.4: a body that fits in mtu-headerOverhead
// goes out as a single packet with fragment_id=0; otherwise the head
// packet carries fragment_id=total_fragments and type Reliable/
// Unreliable, and each continuation carries a distinct, consecutive
// packet_id and fragment_id starting at 0 with type ReliableFrag/
// UnreliableFrag (per spec.md §9's resolution of the fragmentation open
// question).
func (b *Base) SendFrame(body []byte, reliable bool) {
	maxBody := int(b.cfg.MTU) - headerOverhead
	if maxBody <= 0 {
		maxBody = 1
	}

	headType, fragType := wire.Unreliable, wire.UnreliableFrag
	if reliable {
		headType, fragType = wire.Reliable, wire.ReliableFrag
	}

	if len(body) <= maxBody {
		h := b.newHeader(headType, 0)
		b.enqueue(h, body, reliable)
		return
	}

	chunks := splitChunks(body, maxBody)
	head := b.newHeader(headType, int16(len(chunks)))
	b.enqueue(head, chunks[0], reliable)

	for i, chunk := range chunks[1:] {
		h := b.newHeader(fragType, int16(i))
		b.enqueue(h, chunk, reliable)
	}
}

func splitChunks(body []byte, maxBody int) [][]byte {
	var chunks [][]byte
	for len(body) > 0 {
		n := maxBody
		if n > len(body) {
			n = len(body)
		}
		chunks = append(chunks, body[:n])
		body = body[n:]
	}
	return chunks
}

func (b *Base) newHeader(typ wire.PacketType, fragmentID int16) wire.Header {
	return wire.Header{
		HasCRC:          b.hasCRC,
		Type:            typ,
		SrcConnectionID: b.cfg.SrcConnectionID,
		DstConnectionID: b.cfg.DstConnectionID,
		ChannelID:       b.cfg.ChannelID,
		FragmentID:      fragmentID,
		PacketID:        b.nextPacketID(),
	}
}

func (b *Base) enqueue(h wire.Header, body []byte, retransmit bool) {
	p := wire.NewWithBody(h, body)
	b.sender.Append(p, retransmit)
	if b.metrics != nil {
		b.metrics.PacketSent(h.Type.String())
	}
}

// SendBare enqueues a header-only packet with no body, e.g. a discovery
// Disconnect or a control ACK/NACK.
func (b *Base) SendBare(typ wire.PacketType) {
	h := b.newHeader(typ, 0)
	b.enqueue(h, nil, false)
}

// NewHeader builds a header for typ with the next packet id, for callers
// that need to construct a packet themselves (e.g. to pad it before
// sending, as the discovery channel's ping responder does).
func (b *Base) NewHeader(typ wire.PacketType, fragmentID int16) wire.Header {
	return b.newHeader(typ, fragmentID)
}

// SendPacket enqueues an already-built packet as-is, bypassing
// SendFrame's fragmentation. Used when the caller needs full control
// over the packet body, e.g. after padding it to a requested size.
func (b *Base) SendPacket(p *wire.Packet, retransmit bool) {
	b.sender.Append(p, retransmit)
	if b.metrics != nil {
		b.metrics.PacketSent(p.Header.Type.String())
	}
}

// Logger returns the channel's scoped logger.
func (b *Base) Logger() *slog.Logger { return b.logger }

// ChannelID returns the configured channel id.
func (b *Base) ChannelID() uint8 { return b.cfg.ChannelID }
