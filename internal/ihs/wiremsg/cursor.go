package wiremsg

import "google.golang.org/protobuf/encoding/protowire"

// SetCursorImage pushes a new cached cursor bitmap (BGRA32) the host may
// later reference by CursorID via SetCursor (spec.md §4.6 cursor updates).
type SetCursorImage struct {
	CursorID uint32
	Width    uint32
	Height   uint32
	HotX     uint32
	HotY     uint32
	Pixels   []byte
}

const (
	fCursorImgID     protowire.Number = 1
	fCursorImgWidth  protowire.Number = 2
	fCursorImgHeight protowire.Number = 3
	fCursorImgHotX   protowire.Number = 4
	fCursorImgHotY   protowire.Number = 5
	fCursorImgPixels protowire.Number = 6
)

func (m *SetCursorImage) Marshal() []byte {
	var b []byte
	b = appendUint32(b, fCursorImgID, m.CursorID)
	b = appendUint32(b, fCursorImgWidth, m.Width)
	b = appendUint32(b, fCursorImgHeight, m.Height)
	b = appendUint32(b, fCursorImgHotX, m.HotX)
	b = appendUint32(b, fCursorImgHotY, m.HotY)
	b = appendBytes(b, fCursorImgPixels, m.Pixels)
	return b
}

func (m *SetCursorImage) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fCursorImgID:
			v, n := protowire.ConsumeVarint(b)
			m.CursorID = uint32(v)
			return n, nil
		case fCursorImgWidth:
			v, n := protowire.ConsumeVarint(b)
			m.Width = uint32(v)
			return n, nil
		case fCursorImgHeight:
			v, n := protowire.ConsumeVarint(b)
			m.Height = uint32(v)
			return n, nil
		case fCursorImgHotX:
			v, n := protowire.ConsumeVarint(b)
			m.HotX = uint32(v)
			return n, nil
		case fCursorImgHotY:
			v, n := protowire.ConsumeVarint(b)
			m.HotY = uint32(v)
			return n, nil
		case fCursorImgPixels:
			v, n := protowire.ConsumeBytes(b)
			m.Pixels = append([]byte(nil), v...)
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

// SetCursor selects a previously-cached cursor image by id as the active
// pointer shape.
type SetCursor struct {
	CursorID uint32
}

const fSetCursorID protowire.Number = 1

func (m *SetCursor) Marshal() []byte {
	var b []byte
	return appendUint32(b, fSetCursorID, m.CursorID)
}

func (m *SetCursor) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fSetCursorID:
			v, n := protowire.ConsumeVarint(b)
			m.CursorID = uint32(v)
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

// DeleteCursor evicts a cached cursor image, allowing CursorID reuse.
type DeleteCursor struct {
	CursorID uint32
}

const fDeleteCursorID protowire.Number = 1

func (m *DeleteCursor) Marshal() []byte {
	var b []byte
	return appendUint32(b, fDeleteCursorID, m.CursorID)
}

func (m *DeleteCursor) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fDeleteCursorID:
			v, n := protowire.ConsumeVarint(b)
			m.CursorID = uint32(v)
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

// ShowCursor and HideCursor toggle local pointer rendering; both are
// empty-bodied state transitions.
type ShowCursor struct{}

func (m *ShowCursor) Marshal() []byte        { return nil }
func (m *ShowCursor) Unmarshal([]byte) error { return nil }

type HideCursor struct{}

func (m *HideCursor) Marshal() []byte        { return nil }
func (m *HideCursor) Unmarshal([]byte) error { return nil }

// GetCursorImage lets the client re-request a cached image it no longer
// holds, e.g. after a reconnect (spec.md's cursor-cache open question).
type GetCursorImage struct {
	CursorID uint32
}

const fGetCursorImageID protowire.Number = 1

func (m *GetCursorImage) Marshal() []byte {
	var b []byte
	return appendUint32(b, fGetCursorImageID, m.CursorID)
}

func (m *GetCursorImage) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fGetCursorImageID:
			v, n := protowire.ConsumeVarint(b)
			m.CursorID = uint32(v)
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}
