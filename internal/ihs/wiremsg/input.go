package wiremsg

import "google.golang.org/protobuf/encoding/protowire"

// MouseMotion reports a relative pointer delta.
type MouseMotion struct {
	DeltaX int32
	DeltaY int32
}

const (
	fMouseMotionDX protowire.Number = 1
	fMouseMotionDY protowire.Number = 2
)

func (m *MouseMotion) Marshal() []byte {
	var b []byte
	b = appendInt32(b, fMouseMotionDX, m.DeltaX)
	b = appendInt32(b, fMouseMotionDY, m.DeltaY)
	return b
}

func (m *MouseMotion) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fMouseMotionDX:
			v, n := protowire.ConsumeVarint(b)
			m.DeltaX = int32(uint32(v))
			return n, nil
		case fMouseMotionDY:
			v, n := protowire.ConsumeVarint(b)
			m.DeltaY = int32(uint32(v))
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

// MouseMotionAbsolute reports a pointer position normalized to [0,1] of
// the streamed video surface (spec.md §4.6 input forwarding).
type MouseMotionAbsolute struct {
	X uint32 // fixed point, 1/65535ths
	Y uint32
}

const (
	fMouseAbsX protowire.Number = 1
	fMouseAbsY protowire.Number = 2
)

func (m *MouseMotionAbsolute) Marshal() []byte {
	var b []byte
	b = appendUint32(b, fMouseAbsX, m.X)
	b = appendUint32(b, fMouseAbsY, m.Y)
	return b
}

func (m *MouseMotionAbsolute) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fMouseAbsX:
			v, n := protowire.ConsumeVarint(b)
			m.X = uint32(v)
			return n, nil
		case fMouseAbsY:
			v, n := protowire.ConsumeVarint(b)
			m.Y = uint32(v)
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

// MouseButton is a bitmask of simultaneously-held buttons.
type MouseButton uint32

const (
	MouseButtonLeft   MouseButton = 1 << 0
	MouseButtonRight  MouseButton = 1 << 1
	MouseButtonMiddle MouseButton = 1 << 2
	MouseButtonX1     MouseButton = 1 << 3
	MouseButtonX2     MouseButton = 1 << 4
)

// MouseButtonEvent reports a button press or release.
type MouseButtonEvent struct {
	Button MouseButton
	Down   bool
}

const (
	fMouseBtnButton protowire.Number = 1
	fMouseBtnDown   protowire.Number = 2
)

func (m *MouseButtonEvent) Marshal() []byte {
	var b []byte
	b = appendUint32(b, fMouseBtnButton, uint32(m.Button))
	b = appendBool(b, fMouseBtnDown, m.Down)
	return b
}

func (m *MouseButtonEvent) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fMouseBtnButton:
			v, n := protowire.ConsumeVarint(b)
			m.Button = MouseButton(uint32(v))
			return n, nil
		case fMouseBtnDown:
			v, n := protowire.ConsumeVarint(b)
			m.Down = v != 0
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

// MouseWheel reports a scroll delta; positive is up/away from the user.
type MouseWheel struct {
	DeltaX int32
	DeltaY int32
}

const (
	fWheelDX protowire.Number = 1
	fWheelDY protowire.Number = 2
)

func (m *MouseWheel) Marshal() []byte {
	var b []byte
	b = appendInt32(b, fWheelDX, m.DeltaX)
	b = appendInt32(b, fWheelDY, m.DeltaY)
	return b
}

func (m *MouseWheel) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fWheelDX:
			v, n := protowire.ConsumeVarint(b)
			m.DeltaX = int32(uint32(v))
			return n, nil
		case fWheelDY:
			v, n := protowire.ConsumeVarint(b)
			m.DeltaY = int32(uint32(v))
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

// KeyEvent reports a hardware scan-code transition.
type KeyEvent struct {
	ScanCode uint32
	Down     bool
}

const (
	fKeyScanCode protowire.Number = 1
	fKeyDown     protowire.Number = 2
)

func (m *KeyEvent) Marshal() []byte {
	var b []byte
	b = appendUint32(b, fKeyScanCode, m.ScanCode)
	b = appendBool(b, fKeyDown, m.Down)
	return b
}

func (m *KeyEvent) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fKeyScanCode:
			v, n := protowire.ConsumeVarint(b)
			m.ScanCode = uint32(v)
			return n, nil
		case fKeyDown:
			v, n := protowire.ConsumeVarint(b)
			m.Down = v != 0
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

// TouchFingerDown/Motion/Up mirror SDL's multi-touch event shape: a
// touch-device id, a per-device finger id, and a normalized position.
type TouchFingerDown struct {
	DeviceID int64
	FingerID int64
	X, Y     uint32
	Pressure uint32
}

type TouchFingerMotion struct {
	DeviceID int64
	FingerID int64
	X, Y     uint32
	Pressure uint32
}

type TouchFingerUp struct {
	DeviceID int64
	FingerID int64
}

const (
	fTouchDeviceID protowire.Number = 1
	fTouchFingerID protowire.Number = 2
	fTouchX        protowire.Number = 3
	fTouchY        protowire.Number = 4
	fTouchPressure protowire.Number = 5
)

func marshalTouch(deviceID, fingerID int64, x, y, pressure uint32, withPressure bool) []byte {
	var b []byte
	b = appendUint64(b, fTouchDeviceID, uint64(deviceID))
	b = appendUint64(b, fTouchFingerID, uint64(fingerID))
	if withPressure {
		b = appendUint32(b, fTouchX, x)
		b = appendUint32(b, fTouchY, y)
		b = appendUint32(b, fTouchPressure, pressure)
	}
	return b
}

func unmarshalTouch(b []byte) (deviceID, fingerID int64, x, y, pressure uint32, err error) {
	err = parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fTouchDeviceID:
			v, n := protowire.ConsumeVarint(b)
			deviceID = int64(v)
			return n, nil
		case fTouchFingerID:
			v, n := protowire.ConsumeVarint(b)
			fingerID = int64(v)
			return n, nil
		case fTouchX:
			v, n := protowire.ConsumeVarint(b)
			x = uint32(v)
			return n, nil
		case fTouchY:
			v, n := protowire.ConsumeVarint(b)
			y = uint32(v)
			return n, nil
		case fTouchPressure:
			v, n := protowire.ConsumeVarint(b)
			pressure = uint32(v)
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
	return
}

func (m *TouchFingerDown) Marshal() []byte {
	return marshalTouch(m.DeviceID, m.FingerID, m.X, m.Y, m.Pressure, true)
}

func (m *TouchFingerDown) Unmarshal(b []byte) error {
	deviceID, fingerID, x, y, pressure, err := unmarshalTouch(b)
	if err != nil {
		return err
	}
	m.DeviceID, m.FingerID, m.X, m.Y, m.Pressure = deviceID, fingerID, x, y, pressure
	return nil
}

func (m *TouchFingerMotion) Marshal() []byte {
	return marshalTouch(m.DeviceID, m.FingerID, m.X, m.Y, m.Pressure, true)
}

func (m *TouchFingerMotion) Unmarshal(b []byte) error {
	deviceID, fingerID, x, y, pressure, err := unmarshalTouch(b)
	if err != nil {
		return err
	}
	m.DeviceID, m.FingerID, m.X, m.Y, m.Pressure = deviceID, fingerID, x, y, pressure
	return nil
}

func (m *TouchFingerUp) Marshal() []byte {
	return marshalTouch(m.DeviceID, m.FingerID, 0, 0, 0, false)
}

func (m *TouchFingerUp) Unmarshal(b []byte) error {
	deviceID, fingerID, _, _, _, err := unmarshalTouch(b)
	if err != nil {
		return err
	}
	m.DeviceID, m.FingerID = deviceID, fingerID
	return nil
}
