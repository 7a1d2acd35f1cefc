package wiremsg

import "google.golang.org/protobuf/encoding/protowire"

// AudioCodec / VideoCodec enumerate the negotiable codecs named in
// spec.md §4.6. Exhaustive enumeration beyond what the client needs to
// select from is out of scope (protobuf catalog non-goal).
type AudioCodec int32

const (
	AudioCodecUnknown AudioCodec = 0
	AudioCodecOpus    AudioCodec = 1
)

type VideoCodec int32

const (
	VideoCodecUnknown VideoCodec = 0
	VideoCodecH264    VideoCodec = 1
	VideoCodecHEVC    VideoCodec = 2
)

// NegotiationInit lists what the host supports; the client replies with a
// NegotiationSetConfig selecting from it.
type NegotiationInit struct {
	SupportedAudioCodecs []AudioCodec
	SupportedVideoCodecs []VideoCodec
}

const (
	fNegInitAudioCodecs protowire.Number = 1
	fNegInitVideoCodecs protowire.Number = 2
)

func (m *NegotiationInit) Marshal() []byte {
	var b []byte
	for _, c := range m.SupportedAudioCodecs {
		b = appendInt32(b, fNegInitAudioCodecs, int32(c))
	}
	for _, c := range m.SupportedVideoCodecs {
		b = appendInt32(b, fNegInitVideoCodecs, int32(c))
	}
	return b
}

func (m *NegotiationInit) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fNegInitAudioCodecs:
			v, n := protowire.ConsumeVarint(b)
			m.SupportedAudioCodecs = append(m.SupportedAudioCodecs, AudioCodec(int32(v)))
			return n, nil
		case fNegInitVideoCodecs:
			v, n := protowire.ConsumeVarint(b)
			m.SupportedVideoCodecs = append(m.SupportedVideoCodecs, VideoCodec(int32(v)))
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

// VideoMode is one entry of the client's available video-mode list.
type VideoMode struct {
	Width, Height, RefreshRateHz uint32
}

// ClientCapabilities flags client-side streaming capabilities (spec.md
// §4.6's negotiation reply: form factor TV, suspend supported, hardware
// decoding enabled).
type ClientCapabilities struct {
	FormFactorTV      bool
	SuspendSupported  bool
	HardwareDecoding  bool
}

// NegotiationSetConfig is the client's reply to NegotiationInit.
type NegotiationSetConfig struct {
	AudioCodec   AudioCodec
	VideoCodec   VideoCodec
	VideoModes   []VideoMode
	Capabilities ClientCapabilities
}

const (
	fNegSetAudioCodec protowire.Number = 1
	fNegSetVideoCodec protowire.Number = 2
	fNegSetVideoModes protowire.Number = 3
	fNegSetCaps       protowire.Number = 4

	fVideoModeWidth   protowire.Number = 1
	fVideoModeHeight  protowire.Number = 2
	fVideoModeRefresh protowire.Number = 3

	fCapsFormFactorTV     protowire.Number = 1
	fCapsSuspendSupported protowire.Number = 2
	fCapsHardwareDecoding protowire.Number = 3
)

func marshalVideoMode(vm VideoMode) []byte {
	var b []byte
	b = appendUint32(b, fVideoModeWidth, vm.Width)
	b = appendUint32(b, fVideoModeHeight, vm.Height)
	b = appendUint32(b, fVideoModeRefresh, vm.RefreshRateHz)
	return b
}

func unmarshalVideoMode(b []byte) (VideoMode, error) {
	var vm VideoMode
	err := parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fVideoModeWidth:
			v, n := protowire.ConsumeVarint(b)
			vm.Width = uint32(v)
			return n, nil
		case fVideoModeHeight:
			v, n := protowire.ConsumeVarint(b)
			vm.Height = uint32(v)
			return n, nil
		case fVideoModeRefresh:
			v, n := protowire.ConsumeVarint(b)
			vm.RefreshRateHz = uint32(v)
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
	return vm, err
}

func marshalCapabilities(c ClientCapabilities) []byte {
	var b []byte
	b = appendBool(b, fCapsFormFactorTV, c.FormFactorTV)
	b = appendBool(b, fCapsSuspendSupported, c.SuspendSupported)
	b = appendBool(b, fCapsHardwareDecoding, c.HardwareDecoding)
	return b
}

func unmarshalCapabilities(b []byte) (ClientCapabilities, error) {
	var c ClientCapabilities
	err := parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fCapsFormFactorTV:
			v, n := protowire.ConsumeVarint(b)
			c.FormFactorTV = v != 0
			return n, nil
		case fCapsSuspendSupported:
			v, n := protowire.ConsumeVarint(b)
			c.SuspendSupported = v != 0
			return n, nil
		case fCapsHardwareDecoding:
			v, n := protowire.ConsumeVarint(b)
			c.HardwareDecoding = v != 0
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
	return c, err
}

func (m *NegotiationSetConfig) Marshal() []byte {
	var b []byte
	b = appendInt32(b, fNegSetAudioCodec, int32(m.AudioCodec))
	b = appendInt32(b, fNegSetVideoCodec, int32(m.VideoCodec))
	for _, vm := range m.VideoModes {
		b = appendBytes(b, fNegSetVideoModes, marshalVideoMode(vm))
	}
	b = appendBytes(b, fNegSetCaps, marshalCapabilities(m.Capabilities))
	return b
}

func (m *NegotiationSetConfig) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fNegSetAudioCodec:
			v, n := protowire.ConsumeVarint(b)
			m.AudioCodec = AudioCodec(int32(v))
			return n, nil
		case fNegSetVideoCodec:
			v, n := protowire.ConsumeVarint(b)
			m.VideoCodec = VideoCodec(int32(v))
			return n, nil
		case fNegSetVideoModes:
			raw, n := protowire.ConsumeBytes(b)
			vm, err := unmarshalVideoMode(raw)
			if err != nil {
				return -1, err
			}
			m.VideoModes = append(m.VideoModes, vm)
			return n, nil
		case fNegSetCaps:
			raw, n := protowire.ConsumeBytes(b)
			caps, err := unmarshalCapabilities(raw)
			if err != nil {
				return -1, err
			}
			m.Capabilities = caps
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

// NegotiationComplete closes out negotiation; empty body.
type NegotiationComplete struct{}

func (m *NegotiationComplete) Marshal() []byte        { return nil }
func (m *NegotiationComplete) Unmarshal([]byte) error { return nil }

// KeepAlive is an empty periodic control message (spec.md §4.6).
type KeepAlive struct{}

func (m *KeepAlive) Marshal() []byte        { return nil }
func (m *KeepAlive) Unmarshal([]byte) error { return nil }
