// Package data implements the audio and video data channels of
// spec.md §4.7: a shared reassembly window per channel, an optional
// 12-byte per-frame sub-header, and codec-specific delivery to user
// callbacks (audio passthrough, video NAL reassembly).
package data

import (
	"encoding/binary"
	"errors"

	protoerr "github.com/alxayo/go-ihs/internal/errors"
)

var errEmptyBody = errors.New("data: empty frame body")

// msgKind is the first byte of every reassembled data-channel frame.
// Only DataPacket carries payload; any other value is a reserved kind
// from a newer host and is silently ignored (ch_data.c's ReceivedFrame
// does the same).
type msgKind uint8

const msgKindDataPacket msgKind = 0

// subHeaderSize is the fixed size of the optional per-frame sub-header
// IHS_SessionChannelDataFrameHeaderParse reads.
const subHeaderSize = 12

// SubHeader carries the per-frame bookkeeping fields the host stamps on
// a data packet when the body is large enough to hold them: a frame id,
// the host's send timestamp, and round-trip input-latency markers.
type SubHeader struct {
	ID                 uint16
	Timestamp          uint32
	InputMark          uint16
	InputRecvTimestamp uint32
}

// splitFrame strips the leading msgKind byte from a reassembled data
// frame body. ok is false for any kind other than DataPacket, which the
// caller should treat as a silent no-op (ch_data.c's ReceivedFrame does
// the same for unrecognized kinds).
func splitFrame(body []byte) (payload []byte, ok bool, err error) {
	if len(body) < 1 {
		return nil, false, protoerr.NewMessageError("data.frame", errEmptyBody)
	}
	if msgKind(body[0]) != msgKindDataPacket {
		return nil, false, nil
	}
	return body[1:], true, nil
}

// parseSubHeader strips the optional 12-byte SubHeader from a DataPacket
// payload (post splitFrame). hasHeader mirrors the original's
// "bodyLen - bodyOffset > HEADER_SIZE" rule: a sub-header is only present
// when there's strictly more than subHeaderSize bytes left after it.
func parseSubHeader(payload []byte) (sub SubHeader, rest []byte, hasHeader bool) {
	if len(payload) <= subHeaderSize {
		return SubHeader{}, payload, false
	}
	sub = SubHeader{
		ID:                 binary.LittleEndian.Uint16(payload[0:2]),
		Timestamp:          binary.LittleEndian.Uint32(payload[2:6]),
		InputMark:          binary.LittleEndian.Uint16(payload[6:8]),
		InputRecvTimestamp: binary.LittleEndian.Uint32(payload[8:12]),
	}
	return sub, payload[subHeaderSize:], true
}
