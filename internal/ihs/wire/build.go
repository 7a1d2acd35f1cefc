package wire

import "github.com/alxayo/go-ihs/internal/ihs/buffer"

// New constructs an outbound packet with an empty body and a reserved
// 13-byte header prefix, ready for Append calls followed by Serialize.
func New(h Header, bodyCapacityHint int) *Packet {
	cap := HeaderSize + bodyCapacityHint
	if cap < HeaderSize {
		cap = HeaderSize
	}
	return &Packet{Header: h, Body: buffer.New(cap, HeaderSize)}
}

// NewWithBody constructs an outbound packet whose body is pre-filled with
// the given bytes.
func NewWithBody(h Header, body []byte) *Packet {
	p := New(h, len(body))
	p.Body.Append(body)
	return p
}
