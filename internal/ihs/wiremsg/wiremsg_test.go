package wiremsg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandshakeRoundTrip(t *testing.T) {
	in := &AuthenticationRequest{Token: []byte{1, 2, 3, 4}, ProtocolVersion: 7, SteamID: 76561197960287930}
	var out AuthenticationRequest
	require.NoError(t, out.Unmarshal(in.Marshal()))
	require.Equal(t, *in, out)
}

func TestNegotiationSetConfigRoundTrip(t *testing.T) {
	in := &NegotiationSetConfig{
		AudioCodec: AudioCodecOpus,
		VideoCodec: VideoCodecHEVC,
		VideoModes: []VideoMode{{Width: 1920, Height: 1080, RefreshRateHz: 60}, {Width: 1280, Height: 720, RefreshRateHz: 30}},
		Capabilities: ClientCapabilities{
			FormFactorTV:     true,
			SuspendSupported: false,
			HardwareDecoding: true,
		},
	}
	var out NegotiationSetConfig
	require.NoError(t, out.Unmarshal(in.Marshal()))
	require.Equal(t, *in, out)
}

func TestPingRoundTrip(t *testing.T) {
	req := &PingRequest{Sequence: 42, PacketSizeRequested: 1500}
	var gotReq PingRequest
	require.NoError(t, gotReq.Unmarshal(req.Marshal()))
	require.Equal(t, *req, gotReq)

	resp := &PingResponse{Sequence: 42, PacketSizeReceived: 1492}
	var gotResp PingResponse
	require.NoError(t, gotResp.Unmarshal(resp.Marshal()))
	require.Equal(t, *resp, gotResp)
}

func TestCursorMessagesRoundTrip(t *testing.T) {
	img := &SetCursorImage{CursorID: 3, Width: 32, Height: 32, HotX: 1, HotY: 1, Pixels: []byte{0xAA, 0xBB}}
	var gotImg SetCursorImage
	require.NoError(t, gotImg.Unmarshal(img.Marshal()))
	require.Equal(t, *img, gotImg)

	sel := &SetCursor{CursorID: 3}
	var gotSel SetCursor
	require.NoError(t, gotSel.Unmarshal(sel.Marshal()))
	require.Equal(t, *sel, gotSel)

	del := &DeleteCursor{CursorID: 3}
	var gotDel DeleteCursor
	require.NoError(t, gotDel.Unmarshal(del.Marshal()))
	require.Equal(t, *del, gotDel)
}

func TestInputMessagesRoundTrip(t *testing.T) {
	mm := &MouseMotion{DeltaX: -5, DeltaY: 10}
	var gotMM MouseMotion
	require.NoError(t, gotMM.Unmarshal(mm.Marshal()))
	require.Equal(t, *mm, gotMM)

	abs := &MouseMotionAbsolute{X: 30000, Y: 40000}
	var gotAbs MouseMotionAbsolute
	require.NoError(t, gotAbs.Unmarshal(abs.Marshal()))
	require.Equal(t, *abs, gotAbs)

	btn := &MouseButtonEvent{Button: MouseButtonRight, Down: true}
	var gotBtn MouseButtonEvent
	require.NoError(t, gotBtn.Unmarshal(btn.Marshal()))
	require.Equal(t, *btn, gotBtn)

	wheel := &MouseWheel{DeltaX: 0, DeltaY: -3}
	var gotWheel MouseWheel
	require.NoError(t, gotWheel.Unmarshal(wheel.Marshal()))
	require.Equal(t, *wheel, gotWheel)

	key := &KeyEvent{ScanCode: 0x1E, Down: true}
	var gotKey KeyEvent
	require.NoError(t, gotKey.Unmarshal(key.Marshal()))
	require.Equal(t, *key, gotKey)

	down := &TouchFingerDown{DeviceID: 1, FingerID: 2, X: 100, Y: 200, Pressure: 50}
	var gotDown TouchFingerDown
	require.NoError(t, gotDown.Unmarshal(down.Marshal()))
	require.Equal(t, *down, gotDown)

	up := &TouchFingerUp{DeviceID: 1, FingerID: 2}
	var gotUp TouchFingerUp
	require.NoError(t, gotUp.Unmarshal(up.Marshal()))
	require.Equal(t, *up, gotUp)
}

func TestDataChannelMessagesRoundTrip(t *testing.T) {
	start := &StartAudioData{Config: AudioConfig{Codec: AudioCodecOpus, Channels: 2, SampleRate: 48000, CodecData: []byte{1, 2}}}
	var gotStart StartAudioData
	require.NoError(t, gotStart.Unmarshal(start.Marshal()))
	require.Equal(t, *start, gotStart)

	startV := &StartVideoData{Config: VideoConfig{Codec: VideoCodecH264, Width: 1920, Height: 1080}}
	var gotStartV StartVideoData
	require.NoError(t, gotStartV.Unmarshal(startV.Marshal()))
	require.Equal(t, *startV, gotStartV)

	stats := &FrameStatsListMsg{ChannelID: 4, Stats: FrameStats{FramesReceived: 100, FramesDecoded: 98, FramesDropped: 2, FramesRendered: 97}}
	var gotStats FrameStatsListMsg
	require.NoError(t, gotStats.Unmarshal(stats.Marshal()))
	require.Equal(t, *stats, gotStats)
}

func TestDeviceInputReportFullAndDelta(t *testing.T) {
	full := []byte{0x01, 0x00, 0x00, 0x7F}
	r0 := BuildDeviceInputReport(9, nil, full)
	require.False(t, r0.Delta)

	applied, ok := ApplyDeviceInputReport(nil, r0)
	require.True(t, ok)
	require.Equal(t, full, applied)

	next := []byte{0x01, 0x00, 0x10, 0x7F}
	r1 := BuildDeviceInputReport(9, full, next)
	require.True(t, r1.Delta)
	require.Equal(t, []uint32{2}, r1.ChangedOffsets)

	wire := r1.Marshal()
	var decoded DeviceInputReport
	require.NoError(t, decoded.Unmarshal(wire))

	applied2, ok := ApplyDeviceInputReport(full, decoded)
	require.True(t, ok)
	require.Equal(t, next, applied2)
}

func TestDeviceInputReportCRCCatchesDesync(t *testing.T) {
	full := []byte{1, 2, 3, 4}
	r := BuildDeviceInputReport(1, nil, full)
	_, ok := ApplyDeviceInputReport(nil, DeviceInputReport{Delta: false, Data: []byte{9, 9, 9, 9}, CRC: r.CRC})
	require.False(t, ok)
}

func TestHIDRelayEnvelopesRoundTrip(t *testing.T) {
	toRemote := &HIDMessageToRemote{Subscribe: true, HasOutput: true, Output: HIDOutputReport{DeviceID: 2, Data: []byte{0xFF}}}
	var gotToRemote HIDMessageToRemote
	require.NoError(t, gotToRemote.Unmarshal(toRemote.Marshal()))
	require.Equal(t, *toRemote, gotToRemote)

	fromRemote := &HIDMessageFromRemote{
		HasAdded: true,
		DeviceAdded: HIDDeviceInfo{
			DeviceID:         2,
			VendorID:         0x045E,
			ProductID:        0x028E,
			ReportDescriptor: []byte{0x05, 0x01},
		},
	}
	var gotFromRemote HIDMessageFromRemote
	require.NoError(t, gotFromRemote.Unmarshal(fromRemote.Marshal()))
	require.Equal(t, *fromRemote, gotFromRemote)
}
