package data

import (
	"testing"

	"github.com/alxayo/go-ihs/internal/ihs/channel"
	"github.com/alxayo/go-ihs/internal/ihs/wire"
	"github.com/alxayo/go-ihs/internal/ihs/wiremsg"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	packets []*wire.Packet
}

func (f *fakeSender) Append(p *wire.Packet, retransmit bool) bool {
	f.packets = append(f.packets, p)
	return true
}

func newAudioBase(channelID uint8) *channel.Base {
	return channel.NewBase(channel.Config{ChannelID: channelID, MTU: 1500}, &fakeSender{}, nil, nil, false)
}

func dataHeader(channelID uint8, packetID uint16) wire.Header {
	return wire.Header{Type: wire.Unreliable, ChannelID: channelID, PacketID: packetID}
}

func TestAudioChannelDeliversConfigOnInit(t *testing.T) {
	var got wiremsg.AudioConfig
	cfg := wiremsg.AudioConfig{Codec: wiremsg.AudioCodecOpus, Channels: 2, SampleRate: 48000}
	c := NewAudio(newAudioBase(3), cfg, AudioCallbacks{OnConfig: func(c wiremsg.AudioConfig) { got = c }}, nil, nil)

	require.NoError(t, c.Init(channel.Config{}))
	require.Equal(t, uint32(48000), got.SampleRate)
}

func TestAudioChannelDeliversPayloadWithoutSubHeader(t *testing.T) {
	var got []byte
	var hadSub bool
	c := NewAudio(newAudioBase(3), wiremsg.AudioConfig{}, AudioCallbacks{
		OnReceived: func(payload []byte, sub SubHeader, hasSub bool) { got = payload; hadSub = hasSub },
	}, nil, nil)

	body := append([]byte{byte(msgKindDataPacket)}, []byte("opus-bytes")...)
	err := c.Received(dataHeader(3, 0), body)
	require.NoError(t, err)
	require.Equal(t, "opus-bytes", string(got))
	require.False(t, hadSub)
}

func TestAudioChannelDeliversPayloadWithSubHeader(t *testing.T) {
	var got []byte
	var gotSub SubHeader
	var hadSub bool
	c := NewAudio(newAudioBase(3), wiremsg.AudioConfig{}, AudioCallbacks{
		OnReceived: func(payload []byte, sub SubHeader, hasSub bool) { got = payload; gotSub = sub; hadSub = hasSub },
	}, nil, nil)

	payload := make([]byte, 0, subHeaderSize+14)
	payload = append(payload, 0x01, 0x00) // id=1
	payload = append(payload, 0x02, 0x00, 0x00, 0x00) // timestamp=2
	payload = append(payload, 0x03, 0x00) // inputMark=3
	payload = append(payload, 0x04, 0x00, 0x00, 0x00) // inputRecvTimestamp=4
	payload = append(payload, []byte("0123456789ABCD")...)

	body := append([]byte{byte(msgKindDataPacket)}, payload...)
	err := c.Received(dataHeader(3, 0), body)
	require.NoError(t, err)
	require.True(t, hadSub)
	require.Equal(t, uint16(1), gotSub.ID)
	require.Equal(t, uint32(2), gotSub.Timestamp)
	require.Equal(t, uint16(3), gotSub.InputMark)
	require.Equal(t, uint32(4), gotSub.InputRecvTimestamp)
	require.Equal(t, "0123456789ABCD", string(got))
}

func TestAudioChannelIgnoresNonDataPacketKind(t *testing.T) {
	called := false
	c := NewAudio(newAudioBase(3), wiremsg.AudioConfig{}, AudioCallbacks{
		OnReceived: func([]byte, SubHeader, bool) { called = true },
	}, nil, nil)

	err := c.Received(dataHeader(3, 0), []byte{0x7F, 0x00, 0x01})
	require.NoError(t, err)
	require.False(t, called)
}

func TestAudioChannelStoppedFiresCallback(t *testing.T) {
	stopped := false
	c := NewAudio(newAudioBase(3), wiremsg.AudioConfig{}, AudioCallbacks{OnStop: func() { stopped = true }}, nil, nil)
	c.Stopped()
	require.True(t, stopped)
}
