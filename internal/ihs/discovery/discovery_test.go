package discovery

import (
	"encoding/binary"
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

func encodeUnconnected(msgType wiremsg.DiscoveryMessageType, payload []byte) []byte {
	var b []byte
	b = append(b, byte(msgType))
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	b = append(b, lenBuf[:]...)
	b = append(b, payload...)
	return b
}

func TestConnectACKAdoptsHostConnectionID(t *testing.T) {
	s := &fakeSender{}
	base := channel.NewBase(channel.Config{MTU: 1500}, s, nil, nil, false)
	var got uint8
	var called bool
	ch := New(base, Callbacks{OnConnectACK: func(id uint8) { got, called = id, true }}, nil)

	err := ch.Received(wire.Header{Type: wire.ConnectACK, SrcConnectionID: 42}, nil)
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, uint8(42), got)

	id, ok := ch.HostConnectionID()
	require.True(t, ok)
	require.Equal(t, uint8(42), id)
}

func TestDisconnectInvokesCallback(t *testing.T) {
	s := &fakeSender{}
	base := channel.NewBase(channel.Config{MTU: 1500}, s, nil, nil, false)
	var called bool
	ch := New(base, Callbacks{OnDisconnect: func() { called = true }}, nil)

	err := ch.Received(wire.Header{Type: wire.Disconnect}, nil)
	require.NoError(t, err)
	require.True(t, called)
}

func TestPingRequestProducesPaddedPingResponse(t *testing.T) {
	s := &fakeSender{}
	base := channel.NewBase(channel.Config{MTU: 1500}, s, nil, nil, false)
	ch := New(base, Callbacks{}, nil)

	req := wiremsg.PingRequest{Sequence: 7, PacketSizeRequested: 256}
	body := encodeUnconnected(wiremsg.DiscoveryPingRequest, req.Marshal())

	err := ch.Received(wire.Header{Type: wire.Unconnected, SrcConnectionID: 1, DstConnectionID: 2}, body)
	require.NoError(t, err)
	require.Len(t, s.packets, 1)

	raw := wire.Serialize(s.packets[0])
	require.Equal(t, 256, len(raw))

	respBody := s.packets[0].Body.Bytes()
	require.Equal(t, wiremsg.DiscoveryPingResponse, wiremsg.DiscoveryMessageType(respBody[0]))
	payloadLen := binary.LittleEndian.Uint32(respBody[1:5])
	var resp wiremsg.PingResponse
	require.NoError(t, resp.Unmarshal(respBody[5 : 5+payloadLen]))
	require.Equal(t, uint32(7), resp.Sequence)
}

func TestSendConnectEmitsExpectedMagicBody(t *testing.T) {
	s := &fakeSender{}
	base := channel.NewBase(channel.Config{MTU: 1500}, s, nil, nil, true)
	ch := New(base, Callbacks{}, nil)
	ch.SendConnect()

	require.Len(t, s.packets, 1)
	p := s.packets[0]
	require.Equal(t, wire.Connect, p.Header.Type)
	require.True(t, p.Header.HasCRC)
	require.Equal(t, connectMagic, binary.LittleEndian.Uint32(p.Body.Bytes()))
}

func TestSendDisconnectEnqueuesBarePacket(t *testing.T) {
	s := &fakeSender{}
	base := channel.NewBase(channel.Config{MTU: 1500}, s, nil, nil, false)
	ch := New(base, Callbacks{}, nil)
	ch.SendDisconnect()

	require.Len(t, s.packets, 1)
	require.Equal(t, wire.Disconnect, s.packets[0].Header.Type)
	require.Equal(t, 0, s.packets[0].Body.Size())
}
