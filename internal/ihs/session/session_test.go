package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/alxayo/go-ihs/internal/ihs/wire"
	"github.com/alxayo/go-ihs/internal/metrics"
)

func testSessionKey() []byte {
	k := make([]byte, 16)
	for i := range k {
		k[i] = byte(i + 1)
	}
	return k
}

func newTestSession(t *testing.T, hostAddr string, cb Callbacks) *Session {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	s, err := New(
		Config{TickInterval: 5 * time.Millisecond},
		ClientConfig{DeviceID: 1, Name: "test"},
		SessionInfo{HostAddress: hostAddr, SessionKey: testSessionKey(), SteamID: 42},
		SessionConfig{},
		cb,
		m,
	)
	require.NoError(t, err)
	return s
}

func TestNewWiresDiscoveryAndControlChannels(t *testing.T) {
	var initialized bool
	s := newTestSession(t, "127.0.0.1:1", Callbacks{
		OnInitialized: func() { initialized = true },
	})

	require.True(t, initialized)
	require.Equal(t, stateIdle, s.st)
	require.NotEmpty(t, s.ID())

	_, ok := s.dispatcher.Lookup(wire.ChannelDiscovery)
	require.True(t, ok)
	_, ok = s.dispatcher.Lookup(wire.ChannelControl)
	require.True(t, ok)
}

func TestConnectRejectsSecondCallWhileConnecting(t *testing.T) {
	s := newTestSession(t, "127.0.0.1:1", Callbacks{})
	s.st = stateConnecting

	err := s.Connect(context.Background())
	require.Error(t, err)
}

// TestConnectAdoptsHostConnectionIDAndBeginsHandshake spins up a fake host
// UDP listener, lets a real Session dial it, and verifies the discovery
// channel adopts the host's connection id from ConnectACK and that the
// control channel immediately follows up with ClientHandshake.
func TestConnectAdoptsHostConnectionIDAndBeginsHandshake(t *testing.T) {
	host, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer host.Close()

	s := newTestSession(t, host.LocalAddr().String(), Callbacks{})
	defer s.Close()

	require.NoError(t, s.Connect(context.Background()))

	// Read the client's Connect packet, then reply with ConnectACK from
	// the host's chosen connection id (42).
	buf := make([]byte, 2048)
	require.NoError(t, host.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, clientAddr, err := host.ReadFromUDP(buf)
	require.NoError(t, err)
	p, err := wire.Parse(buf[:n])
	require.NoError(t, err)
	require.Equal(t, wire.Connect, p.Header.Type)

	ackHdr := wire.Header{Type: wire.ConnectACK, SrcConnectionID: 42}
	ackPacket := wire.NewWithBody(ackHdr, nil)
	_, err = host.WriteToUDP(wire.Serialize(ackPacket), clientAddr)
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if id, ok := s.discoveryChan.HostConnectionID(); ok && id == 42 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	id, ok := s.discoveryChan.HostConnectionID()
	require.True(t, ok)
	require.Equal(t, uint8(42), id)

	// The control channel should have sent ClientHandshake in response.
	// The Connect packet stays in the send queue and is resent on later
	// ticks, so discovery-channel datagrams may arrive first; skip those.
	require.NoError(t, host.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		n, _, err = host.ReadFromUDP(buf)
		require.NoError(t, err)
		p, err = wire.Parse(buf[:n])
		require.NoError(t, err)
		if p.Header.ChannelID != wire.ChannelDiscovery {
			break
		}
	}
	require.Equal(t, wire.ChannelControl, p.Header.ChannelID)
}

func TestHandlePacketACKRemovesSendQueueAndRetransmitEntries(t *testing.T) {
	s := newTestSession(t, "127.0.0.1:1", Callbacks{})

	hdr := wire.Header{Type: wire.Reliable, ChannelID: wire.ChannelControl, PacketID: 7}
	packet := wire.NewWithBody(hdr, []byte("payload"))
	require.True(t, s.sendQueue.Append(packet, true))
	s.retransmit.Register(packet)
	require.Equal(t, 1, s.sendQueue.Len())
	require.Equal(t, 1, s.retransmit.Len())

	ack := wire.NewWithBody(wire.Header{Type: wire.ACK, ChannelID: wire.ChannelControl, PacketID: 7}, nil)
	s.handlePacket(wire.Serialize(ack))

	require.Equal(t, 0, s.sendQueue.Len())
	require.Equal(t, 0, s.retransmit.Len())
}

func TestHandlePacketNACKRemovesSendQueueAndRetransmitEntries(t *testing.T) {
	s := newTestSession(t, "127.0.0.1:1", Callbacks{})

	hdr := wire.Header{Type: wire.Reliable, ChannelID: wire.ChannelControl, PacketID: 9}
	packet := wire.NewWithBody(hdr, []byte("payload"))
	require.True(t, s.sendQueue.Append(packet, true))
	s.retransmit.Register(packet)

	nack := wire.NewWithBody(wire.Header{Type: wire.NACK, ChannelID: wire.ChannelControl, PacketID: 9}, nil)
	s.handlePacket(wire.Serialize(nack))

	require.Equal(t, 0, s.sendQueue.Len())
	require.Equal(t, 0, s.retransmit.Len())
}

// TestMaybeDisconnectAckedTriggersStop verifies that observing an ACK on
// the discovery channel while disconnecting is treated as acknowledgment
// of the outstanding Disconnect packet.
func TestMaybeDisconnectAckedTriggersStop(t *testing.T) {
	var disconnected bool
	s := newTestSession(t, "127.0.0.1:1", Callbacks{
		OnDisconnected: func() { disconnected = true },
	})
	s.st = stateDisconnecting

	ack := wire.NewWithBody(wire.Header{Type: wire.ACK, ChannelID: wire.ChannelDiscovery, PacketID: 1}, nil)
	s.handlePacket(wire.Serialize(ack))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		st := s.st
		s.mu.Unlock()
		if st == stateDisconnected {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.mu.Lock()
	st := s.st
	s.mu.Unlock()
	require.Equal(t, stateDisconnected, st)
	require.True(t, disconnected)
}

func TestOnMTUReconfiguresChannels(t *testing.T) {
	s := newTestSession(t, "127.0.0.1:1", Callbacks{})
	s.onMTU(1200)
	require.Equal(t, uint32(1200), s.mtu)
}

func TestCloseIsIdempotentAndStopsWorkers(t *testing.T) {
	host, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer host.Close()

	var finalized bool
	s := newTestSession(t, host.LocalAddr().String(), Callbacks{
		OnFinalized: func() { finalized = true },
	})

	require.NoError(t, s.Connect(context.Background()))

	done := make(chan struct{})
	go func() {
		require.NoError(t, s.Close())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return in time")
	}
	require.True(t, finalized)

	// A second Close must be a safe no-op.
	require.NoError(t, s.Close())
}
