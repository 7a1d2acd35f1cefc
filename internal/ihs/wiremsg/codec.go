// Package wiremsg declares the protobuf-shaped control/data message catalog
// named in spec.md §6 and encodes/decodes it using the low-level wire
// helpers from google.golang.org/protobuf/encoding/protowire. There is no
// .proto/codegen step (none is available in this environment); each
// message implements Marshal/Unmarshal directly against the same
// varint/length-delimited wire format a generated protobuf message would
// use, so it interoperates with any real protobuf decoder on the other
// end of the wire.
package wiremsg

import (
	"fmt"

	protoerr "github.com/alxayo/go-ihs/internal/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Message is implemented by every wire message in this package.
type Message interface {
	Marshal() []byte
	Unmarshal([]byte) error
}

func appendUint32(b []byte, num protowire.Number, v uint32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendUint64(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(uint32(v)))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendFixed32(b []byte, num protowire.Number, v uint32) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, v)
}

// fieldVisitor is called once per top-level field encountered while parsing
// a message. It must return the number of bytes consumed for the field
// value (not including the tag), or -1 on error.
type fieldVisitor func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// parseFields walks a protobuf byte stream, calling visit for every field.
// Unknown fields are skipped using protowire's own field-value skipper.
func parseFields(b []byte, visit fieldVisitor) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protoerr.NewMessageError("parse.tag", fmt.Errorf("invalid tag"))
		}
		b = b[n:]
		consumed, err := visit(num, typ, b)
		if err != nil {
			return err
		}
		if consumed < 0 {
			return protoerr.NewMessageError("parse.field", fmt.Errorf("field %d: unreadable", num))
		}
		b = b[consumed:]
	}
	return nil
}

// skip consumes and discards a field value of the given wire type, for
// callers that want to ignore a field while still advancing the cursor.
func skip(typ protowire.Type, b []byte) int {
	return protowire.ConsumeFieldValue(0, typ, b)
}
