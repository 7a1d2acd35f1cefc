package wiremsg

import "google.golang.org/protobuf/encoding/protowire"

// AudioConfig tells the client how to initialize its decoder before audio
// frames start arriving (spec.md §4.7).
type AudioConfig struct {
	Codec      AudioCodec
	Channels   uint32
	SampleRate uint32
	// Codec-specific extradata, e.g. an Opus identification header.
	CodecData []byte
}

const (
	fAudioCfgCodec      protowire.Number = 1
	fAudioCfgChannels   protowire.Number = 2
	fAudioCfgSampleRate protowire.Number = 3
	fAudioCfgCodecData  protowire.Number = 4
)

func (m *AudioConfig) Marshal() []byte {
	var b []byte
	b = appendInt32(b, fAudioCfgCodec, int32(m.Codec))
	b = appendUint32(b, fAudioCfgChannels, m.Channels)
	b = appendUint32(b, fAudioCfgSampleRate, m.SampleRate)
	b = appendBytes(b, fAudioCfgCodecData, m.CodecData)
	return b
}

func (m *AudioConfig) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fAudioCfgCodec:
			v, n := protowire.ConsumeVarint(b)
			m.Codec = AudioCodec(int32(v))
			return n, nil
		case fAudioCfgChannels:
			v, n := protowire.ConsumeVarint(b)
			m.Channels = uint32(v)
			return n, nil
		case fAudioCfgSampleRate:
			v, n := protowire.ConsumeVarint(b)
			m.SampleRate = uint32(v)
			return n, nil
		case fAudioCfgCodecData:
			v, n := protowire.ConsumeBytes(b)
			m.CodecData = append([]byte(nil), v...)
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

// StartAudioData / StopAudioData bracket a streaming session on the audio
// data channel.
type StartAudioData struct {
	Config AudioConfig
}

const fStartAudioCfg protowire.Number = 1

func (m *StartAudioData) Marshal() []byte {
	var b []byte
	return appendBytes(b, fStartAudioCfg, m.Config.Marshal())
}

func (m *StartAudioData) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fStartAudioCfg:
			raw, n := protowire.ConsumeBytes(b)
			if err := m.Config.Unmarshal(raw); err != nil {
				return -1, err
			}
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

type StopAudioData struct{}

func (m *StopAudioData) Marshal() []byte        { return nil }
func (m *StopAudioData) Unmarshal([]byte) error { return nil }

// VideoConfig tells the client the decoder parameters for the upcoming
// video stream.
type VideoConfig struct {
	Codec  VideoCodec
	Width  uint32
	Height uint32
}

const (
	fVideoCfgCodec  protowire.Number = 1
	fVideoCfgWidth  protowire.Number = 2
	fVideoCfgHeight protowire.Number = 3
)

func (m *VideoConfig) Marshal() []byte {
	var b []byte
	b = appendInt32(b, fVideoCfgCodec, int32(m.Codec))
	b = appendUint32(b, fVideoCfgWidth, m.Width)
	b = appendUint32(b, fVideoCfgHeight, m.Height)
	return b
}

func (m *VideoConfig) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fVideoCfgCodec:
			v, n := protowire.ConsumeVarint(b)
			m.Codec = VideoCodec(int32(v))
			return n, nil
		case fVideoCfgWidth:
			v, n := protowire.ConsumeVarint(b)
			m.Width = uint32(v)
			return n, nil
		case fVideoCfgHeight:
			v, n := protowire.ConsumeVarint(b)
			m.Height = uint32(v)
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

// StartVideoData / StopVideoData bracket a streaming session on a video
// data channel.
type StartVideoData struct {
	Config VideoConfig
}

const fStartVideoCfg protowire.Number = 1

func (m *StartVideoData) Marshal() []byte {
	var b []byte
	return appendBytes(b, fStartVideoCfg, m.Config.Marshal())
}

func (m *StartVideoData) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fStartVideoCfg:
			raw, n := protowire.ConsumeBytes(b)
			if err := m.Config.Unmarshal(raw); err != nil {
				return -1, err
			}
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

type StopVideoData struct{}

func (m *StopVideoData) Marshal() []byte        { return nil }
func (m *StopVideoData) Unmarshal([]byte) error { return nil }

// RequestKeyFrame asks the host to force an IDR/keyframe, sent when
// reassembly desyncs beyond recovery (spec.md §4.7 key-frame-loss path).
type RequestKeyFrame struct{}

func (m *RequestKeyFrame) Marshal() []byte        { return nil }
func (m *RequestKeyFrame) Unmarshal([]byte) error { return nil }

// FrameStats is one sample of the periodic decode-quality report the
// client sends back on the stats channel (spec.md §4.7, every 1000ms).
type FrameStats struct {
	FramesReceived uint32
	FramesDecoded  uint32
	FramesDropped  uint32
	FramesRendered uint32
}

const (
	fStatsReceived protowire.Number = 1
	fStatsDecoded  protowire.Number = 2
	fStatsDropped  protowire.Number = 3
	fStatsRendered protowire.Number = 4
)

func marshalFrameStats(s FrameStats) []byte {
	var b []byte
	b = appendUint32(b, fStatsReceived, s.FramesReceived)
	b = appendUint32(b, fStatsDecoded, s.FramesDecoded)
	b = appendUint32(b, fStatsDropped, s.FramesDropped)
	b = appendUint32(b, fStatsRendered, s.FramesRendered)
	return b
}

func unmarshalFrameStats(b []byte) (FrameStats, error) {
	var s FrameStats
	err := parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fStatsReceived:
			v, n := protowire.ConsumeVarint(b)
			s.FramesReceived = uint32(v)
			return n, nil
		case fStatsDecoded:
			v, n := protowire.ConsumeVarint(b)
			s.FramesDecoded = uint32(v)
			return n, nil
		case fStatsDropped:
			v, n := protowire.ConsumeVarint(b)
			s.FramesDropped = uint32(v)
			return n, nil
		case fStatsRendered:
			v, n := protowire.ConsumeVarint(b)
			s.FramesRendered = uint32(v)
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
	return s, err
}

// FrameStatsListMsg batches per-stream FrameStats samples, keyed by the
// data channel id that produced them.
type FrameStatsListMsg struct {
	ChannelID uint8
	Stats     FrameStats
}

const (
	fStatsListChannel protowire.Number = 1
	fStatsListStats   protowire.Number = 2
)

func (m *FrameStatsListMsg) Marshal() []byte {
	var b []byte
	b = appendUint32(b, fStatsListChannel, uint32(m.ChannelID))
	b = appendBytes(b, fStatsListStats, marshalFrameStats(m.Stats))
	return b
}

func (m *FrameStatsListMsg) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fStatsListChannel:
			v, n := protowire.ConsumeVarint(b)
			m.ChannelID = uint8(v)
			return n, nil
		case fStatsListStats:
			raw, n := protowire.ConsumeBytes(b)
			s, err := unmarshalFrameStats(raw)
			if err != nil {
				return -1, err
			}
			m.Stats = s
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}
