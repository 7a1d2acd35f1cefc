package sendqueue

import (
	"testing"

	"github.com/alxayo/go-ihs/internal/ihs/wire"
	"github.com/stretchr/testify/require"
)

func newPacket(channelID uint8, packetID uint16) *wire.Packet {
	return wire.New(wire.Header{Type: wire.Reliable, ChannelID: channelID, PacketID: packetID}, 0)
}

func TestAppendCoalescesDuplicates(t *testing.T) {
	q := New(8, nil)
	require.True(t, q.Append(newPacket(1, 5), true))
	require.True(t, q.Append(newPacket(1, 5), true))
	require.Equal(t, 1, q.Len())
}

func TestAppendRespectsCapacity(t *testing.T) {
	q := New(2, nil)
	require.True(t, q.Append(newPacket(1, 1), false))
	require.True(t, q.Append(newPacket(1, 2), false))
	require.False(t, q.Append(newPacket(1, 3), false))
}

func TestAckRemovesItem(t *testing.T) {
	q := New(8, nil)
	q.Append(newPacket(1, 5), true)
	require.True(t, q.AckReceived(1, 5))
	require.Equal(t, 0, q.Len())
	require.False(t, q.AckReceived(1, 5))
}

func TestFlushSendsDueItemsAndReschedules(t *testing.T) {
	q := New(8, nil)
	q.Append(newPacket(1, 1), true)

	var sent [][]byte
	q.Flush(0, func(raw []byte) error {
		sent = append(sent, raw)
		return nil
	})
	require.Len(t, sent, 1)
	require.Equal(t, 1, q.Len()) // still pending, marked retransmit

	// Not due yet at now=1.
	q.Flush(1, func(raw []byte) error {
		sent = append(sent, raw)
		return nil
	})
	require.Len(t, sent, 1)

	// Due once resendInterval has elapsed.
	q.Flush(resendInterval, func(raw []byte) error {
		sent = append(sent, raw)
		return nil
	})
	require.Len(t, sent, 2)
}

func TestFlushDropsNonRetransmitAfterSend(t *testing.T) {
	q := New(8, nil)
	q.Append(newPacket(1, 1), false)
	q.Flush(0, func([]byte) error { return nil })
	require.Equal(t, 0, q.Len())
}

func TestFlushDropsAfterInlineRetransmitLimit(t *testing.T) {
	q := New(8, nil)
	q.Append(newPacket(1, 1), true)
	now := uint32(0)
	for i := 0; i <= maxInlineRetransmits; i++ {
		q.Flush(now, func([]byte) error { return nil })
		now += resendInterval
	}
	require.Equal(t, 0, q.Len())
}

func TestWaitUnblocksOnClose(t *testing.T) {
	q := New(8, nil)
	done := make(chan struct{})
	go func() {
		q.Wait()
		close(done)
	}()
	q.Close()
	<-done
}

func TestRetransmitManagerLifecycle(t *testing.T) {
	r := NewRetransmitManager(nil)
	p := newPacket(2, 10)
	r.Register(p)
	require.Equal(t, 1, r.Len())

	var resubmitted int
	r.Tick(0, func(*wire.Packet) { resubmitted++ })
	require.Equal(t, 1, resubmitted)
	require.Equal(t, 1, r.Len())

	require.True(t, r.Cancel(2, 10, 0))
	require.Equal(t, 0, r.Len())
}

func TestRetransmitManagerExhaustion(t *testing.T) {
	r := NewRetransmitManager(nil)
	p := newPacket(2, 10)
	r.Register(p)

	now := uint32(0)
	for i := 0; i < maxRetransmitAttempts; i++ {
		r.Tick(now, func(*wire.Packet) {})
		now += retransmitInterval
	}
	require.Equal(t, 1, r.Len())

	r.Tick(now, func(*wire.Packet) {})
	require.Equal(t, 0, r.Len())
}
