package wiremsg

import "google.golang.org/protobuf/encoding/protowire"

// DiscoveryMessageType is the one-byte discriminator preceding the LE32
// length-prefixed protobuf body inside an Unconnected packet (spec.md §4.5).
type DiscoveryMessageType uint8

const (
	DiscoveryPingRequest  DiscoveryMessageType = 1
	DiscoveryPingResponse DiscoveryMessageType = 2
)

// PingRequest asks the client to echo back a response padded to a
// requested total packet size (spec.md §8 concrete scenario).
type PingRequest struct {
	Sequence           uint32
	PacketSizeRequested uint32
}

const (
	fPingReqSequence protowire.Number = 1
	fPingReqSize     protowire.Number = 2
)

func (m *PingRequest) Marshal() []byte {
	var b []byte
	b = appendUint32(b, fPingReqSequence, m.Sequence)
	b = appendUint32(b, fPingReqSize, m.PacketSizeRequested)
	return b
}

func (m *PingRequest) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fPingReqSequence:
			v, n := protowire.ConsumeVarint(b)
			m.Sequence = uint32(v)
			return n, nil
		case fPingReqSize:
			v, n := protowire.ConsumeVarint(b)
			m.PacketSizeRequested = uint32(v)
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

// PingResponse echoes the sequence and reports how many bytes of the
// incoming request (header+body) were actually received.
type PingResponse struct {
	Sequence          uint32
	PacketSizeReceived uint32
}

const (
	fPingRespSequence protowire.Number = 1
	fPingRespReceived protowire.Number = 2
)

func (m *PingResponse) Marshal() []byte {
	var b []byte
	b = appendUint32(b, fPingRespSequence, m.Sequence)
	b = appendUint32(b, fPingRespReceived, m.PacketSizeReceived)
	return b
}

func (m *PingResponse) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fPingRespSequence:
			v, n := protowire.ConsumeVarint(b)
			m.Sequence = uint32(v)
			return n, nil
		case fPingRespReceived:
			v, n := protowire.ConsumeVarint(b)
			m.PacketSizeReceived = uint32(v)
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

// BroadcastHeader prefixes the pre-session discovery broadcast payload
// (spec.md §6); the broadcast client itself is an external collaborator,
// but its wire shape is declared here so SessionInfo handoff is concretely
// typed (SPEC_FULL.md §Supplemented-from-original_source item 2).
type BroadcastHeader struct {
	ClientID   uint64
	InstanceID uint32
	MsgType    uint32
}

const (
	fBcastClientID   protowire.Number = 1
	fBcastInstanceID protowire.Number = 2
	fBcastMsgType    protowire.Number = 3
)

func (m *BroadcastHeader) Marshal() []byte {
	var b []byte
	b = appendUint64(b, fBcastClientID, m.ClientID)
	b = appendUint32(b, fBcastInstanceID, m.InstanceID)
	b = appendUint32(b, fBcastMsgType, m.MsgType)
	return b
}

func (m *BroadcastHeader) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fBcastClientID:
			v, n := protowire.ConsumeVarint(b)
			m.ClientID = v
			return n, nil
		case fBcastInstanceID:
			v, n := protowire.ConsumeVarint(b)
			m.InstanceID = uint32(v)
			return n, nil
		case fBcastMsgType:
			v, n := protowire.ConsumeVarint(b)
			m.MsgType = uint32(v)
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}
