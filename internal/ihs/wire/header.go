package wire

import (
	"encoding/binary"

	protoerr "github.com/alxayo/go-ihs/internal/errors"
)

// Header is the fixed 13-byte little-endian packet header (spec.md §4.1).
//
//	offset size field
//	0      1    bit7=HasCRC, bits0-6=Type
//	1      1    RetransmitCount
//	2      1    SrcConnectionID
//	3      1    DstConnectionID
//	4      1    ChannelID
//	5      2    FragmentID (signed)
//	7      2    PacketID
//	9      4    SendTimestamp
type Header struct {
	HasCRC          bool
	Type            PacketType
	RetransmitCount uint8
	SrcConnectionID uint8
	DstConnectionID uint8
	ChannelID       uint8
	FragmentID      int16
	PacketID        uint16
	SendTimestamp   uint32
}

// parseHeader reads a Header from the first HeaderSize bytes of buf.
func parseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, protoerr.NewWireError("parse.header", errShortHeader)
	}
	b0 := buf[0]
	typ := PacketType(b0 & 0x7F)
	if !typ.Valid() {
		return Header{}, protoerr.NewWireError("parse.header", errUnknownType)
	}
	h := Header{
		HasCRC:          b0&0x80 != 0,
		Type:            typ,
		RetransmitCount: buf[1],
		SrcConnectionID: buf[2],
		DstConnectionID: buf[3],
		ChannelID:       buf[4],
		FragmentID:      int16(binary.LittleEndian.Uint16(buf[5:7])),
		PacketID:        binary.LittleEndian.Uint16(buf[7:9]),
		SendTimestamp:   binary.LittleEndian.Uint32(buf[9:13]),
	}
	return h, nil
}

// serializeInto writes the header into the first HeaderSize bytes of dst.
func (h Header) serializeInto(dst []byte) {
	b0 := uint8(h.Type) & 0x7F
	if h.HasCRC {
		b0 |= 0x80
	}
	dst[0] = b0
	dst[1] = h.RetransmitCount
	dst[2] = h.SrcConnectionID
	dst[3] = h.DstConnectionID
	dst[4] = h.ChannelID
	binary.LittleEndian.PutUint16(dst[5:7], uint16(h.FragmentID))
	binary.LittleEndian.PutUint16(dst[7:9], h.PacketID)
	binary.LittleEndian.PutUint32(dst[9:13], h.SendTimestamp)
}

// NowTimestamp converts a time split into seconds and nanoseconds into the
// 32-bit monotonic send_timestamp encoding: seconds*65536 + nanos*65536/1e9.
func NowTimestamp(seconds int64, nanos int64) uint32 {
	return uint32(seconds<<16) + uint32(nanos*65536/1_000_000_000)
}
