package wire

import (
	"encoding/binary"
	"errors"
	"hash/crc32"

	protoerr "github.com/alxayo/go-ihs/internal/errors"
	"github.com/alxayo/go-ihs/internal/ihs/buffer"
)

var (
	errShortHeader = errors.New("buffer shorter than header size")
	errShortBody   = errors.New("body shorter than advertised length")
	errCRCMismatch = errors.New("crc-32c mismatch")
	errUnknownType = errors.New("unknown packet type")
)

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// Packet is a parsed header plus its body buffer.
type Packet struct {
	Header Header
	Body   *buffer.Buffer
}

// Parse decodes a wire packet from raw bytes. If the header's HasCRC bit is
// set, the last 4 bytes are treated as a CRC-32C trailer covering
// header+body and verified; a mismatch returns an error so the caller can
// silently drop the packet per spec.md §7. On success the returned Packet's
// Body buffer has Offset()==HeaderSize so a later Serialize call can write
// the header back into the same reserved prefix.
func Parse(raw []byte) (*Packet, error) {
	if len(raw) < HeaderSize {
		return nil, protoerr.NewWireError("parse", errShortHeader)
	}
	h, err := parseHeader(raw)
	if err != nil {
		return nil, err
	}

	bodyEnd := len(raw)
	if h.HasCRC {
		if len(raw) < HeaderSize+CRCSize {
			return nil, protoerr.NewWireError("parse", errShortBody)
		}
		bodyEnd = len(raw) - CRCSize
		want := binary.LittleEndian.Uint32(raw[bodyEnd:])
		got := crc32.Checksum(raw[:bodyEnd], castagnoliTable)
		if want != got {
			return nil, protoerr.NewWireError("parse.crc", errCRCMismatch)
		}
	}

	bodyLen := bodyEnd - HeaderSize
	buf := buffer.New(HeaderSize+bodyLen, HeaderSize)
	buf.Append(raw[HeaderSize:bodyEnd])

	return &Packet{Header: h, Body: buf}, nil
}

// Serialize renders the packet as [13-byte header][body][optional 4-byte
// CRC-32C]. The header is written into the body buffer's reserved prefix
// in place, matching spec.md §4.1's described buffer layout.
func Serialize(p *Packet) []byte {
	body := p.Body.Bytes()
	total := HeaderSize + len(body)
	if p.Header.HasCRC {
		total += CRCSize
	}

	var hdrDst []byte
	if p.Body.Offset() >= HeaderSize {
		p.Header.serializeInto(p.Body.HeaderBytes()[:HeaderSize])
		hdrDst = p.Body.All()
	} else {
		// Fallback for bodies constructed without a reserved header prefix.
		out := make([]byte, 0, total)
		var hdr [HeaderSize]byte
		p.Header.serializeInto(hdr[:])
		out = append(out, hdr[:]...)
		out = append(out, body...)
		hdrDst = out
	}

	if !p.Header.HasCRC {
		return hdrDst
	}
	sum := crc32.Checksum(hdrDst, castagnoliTable)
	out := make([]byte, len(hdrDst)+CRCSize)
	copy(out, hdrDst)
	binary.LittleEndian.PutUint32(out[len(hdrDst):], sum)
	return out
}

// PadTo extends the packet body with 0xFE filler bytes until the total
// serialized length (header+body+optional CRC) equals totalSize. Used by
// the discovery channel's ping responder to honor a requested packet size.
// No-op if the packet is already at or above the requested size.
func PadTo(p *Packet, totalSize int) {
	overhead := HeaderSize
	if p.Header.HasCRC {
		overhead += CRCSize
	}
	want := totalSize - overhead
	if want <= p.Body.Size() {
		return
	}
	p.Body.Fill(0xFE, want-p.Body.Size())
}
