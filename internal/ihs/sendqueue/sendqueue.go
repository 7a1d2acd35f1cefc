// Package sendqueue implements the bounded, coalescing outbound packet
// queue described in spec.md §4.9: every reliable or unreliable packet a
// channel wants to transmit passes through here before the send worker
// serializes and writes it to the socket.
package sendqueue

import (
	"sync"

	"github.com/alxayo/go-ihs/internal/ihs/wire"
	"github.com/alxayo/go-ihs/internal/metrics"
)

// resendInterval is the number of timestamp units (§4.1 units: seconds *
// 65536 + nanoseconds * 65536/1e9) a flushed item waits before it is
// eligible to be sent again while still marked retransmit.
const resendInterval = 100

// maxInlineRetransmits bounds how many times an item is resent directly
// out of the send queue before it is dropped; longer-lived retransmission
// is the retransmission manager's job (spec.md §4.9).
const maxInlineRetransmits = 10

type key struct {
	channelID uint8
	packetID  uint16
}

type item struct {
	packet          *wire.Packet
	nextSend        uint32
	retransmit      bool
	retransmitCount int
}

// Queue is the bounded, coalescing send-queue slot array. Append silently
// coalesces duplicate (channel-id, packet-id) pairs, overwriting the
// pending packet in place. The zero value is not usable; use New.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	order    []key
	items    map[key]*item
	capacity int
	closed   bool
	metrics  *metrics.Collectors
}

// New creates a Queue bounded to capacity slots.
func New(capacity int, m *metrics.Collectors) *Queue {
	q := &Queue{
		items:    make(map[key]*item, capacity),
		capacity: capacity,
		metrics:  m,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Append enqueues p for transmission, coalescing with any pending item
// for the same channel-id + packet-id. retransmit marks the item for
// repeated resend (at resendInterval) until acknowledged or it exceeds
// maxInlineRetransmits. Returns false if the queue is full and p could
// not be enqueued (caller should apply backpressure).
func (q *Queue) Append(p *wire.Packet, retransmit bool) bool {
	k := key{channelID: p.Header.ChannelID, packetID: p.Header.PacketID}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if existing, ok := q.items[k]; ok {
		existing.packet = p
		existing.retransmit = retransmit
		q.cond.Signal()
		return true
	}
	if len(q.order) >= q.capacity {
		return false
	}
	q.order = append(q.order, k)
	q.items[k] = &item{packet: p, retransmit: retransmit}
	q.cond.Signal()
	return true
}

// AckReceived removes the matching pending item, if any, immediately
// (spec.md §4.9: "ACK / NACK reception removes the matching send-queue
// item immediately"). Returns true if an item was removed.
func (q *Queue) AckReceived(channelID uint8, packetID uint16) bool {
	k := key{channelID: channelID, packetID: packetID}

	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.items[k]; !ok {
		return false
	}
	delete(q.items, k)
	q.removeFromOrder(k)
	if q.metrics != nil {
		q.metrics.Ack()
	}
	return true
}

func (q *Queue) removeFromOrder(k key) {
	for i, o := range q.order {
		if o == k {
			q.order = append(q.order[:i], q.order[i+1:]...)
			return
		}
	}
}

// Wait blocks until Append has signalled new work or the queue is
// closed. Intended for the send worker's loop; callers should re-check
// for closure after waking.
func (q *Queue) Wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.order) > 0 {
		return
	}
	q.cond.Wait()
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close unblocks any waiters and marks the queue closed; subsequent
// Append calls fail.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Flush is called once per send-worker tick. For every item whose
// next_send is zero or has elapsed, it stamps the packet's send
// timestamp, hands it to send, and reschedules it resendInterval units
// out. Items not marked retransmit, or whose retransmit count exceeds
// maxInlineRetransmits, are removed after sending. send receives the
// raw serialized bytes; errors from send are logged by the caller, not
// retried here.
func (q *Queue) Flush(now uint32, send func([]byte) error) {
	q.mu.Lock()
	due := make([]key, 0, len(q.order))
	for _, k := range q.order {
		it := q.items[k]
		if it.nextSend == 0 || it.nextSend <= now {
			due = append(due, k)
		}
	}
	q.mu.Unlock()

	for _, k := range due {
		q.mu.Lock()
		it, ok := q.items[k]
		if !ok {
			q.mu.Unlock()
			continue
		}
		it.packet.Header.SendTimestamp = now
		it.packet.Header.RetransmitCount = uint8(it.retransmitCount)
		raw := wire.Serialize(it.packet)
		q.mu.Unlock()

		_ = send(raw)
		if q.metrics != nil {
			q.metrics.PacketSent(it.packet.Header.Type.String())
		}

		q.mu.Lock()
		it, ok = q.items[k]
		if !ok {
			q.mu.Unlock()
			continue
		}
		it.retransmitCount++
		it.nextSend = now + resendInterval
		if !it.retransmit || it.retransmitCount > maxInlineRetransmits {
			delete(q.items, k)
			q.removeFromOrder(k)
		}
		q.mu.Unlock()
	}
}

// Len reports the number of pending items, for diagnostics and tests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}
