package sendqueue

import (
	"sync"

	"github.com/alxayo/go-ihs/internal/ihs/wire"
	"github.com/alxayo/go-ihs/internal/metrics"
)

// retransmitInterval is the fixed number of timestamp units between
// resubmission attempts (spec.md §4.9).
const retransmitInterval = 10

// maxRetransmitAttempts is the hard limit after which a pending
// retransmission is abandoned; reliable delivery is not guaranteed
// beyond this point (spec.md §8 edge cases).
const maxRetransmitAttempts = 20

// RetransmitKey identifies a pending retransmission by the fields an
// ACK/cancellation carries.
type RetransmitKey struct {
	ChannelID  uint8
	PacketID   uint16
	FragmentID int16
}

type pendingRetransmit struct {
	key     RetransmitKey
	packet  *wire.Packet
	attempt int
	nextDue uint32
}

// RetransmitManager is the FIFO queue of packets awaiting acknowledgment,
// tracked alongside the send queue's own inline resend (see Queue.Flush)
// from the moment they are registered. Each Tick resubmits any matured
// item back onto the send queue,
// marked for one more retransmit attempt, until maxRetransmitAttempts is
// exceeded.
type RetransmitManager struct {
	mu      sync.Mutex
	order   []RetransmitKey
	items   map[RetransmitKey]*pendingRetransmit
	metrics *metrics.Collectors
}

// NewRetransmitManager creates an empty manager.
func NewRetransmitManager(m *metrics.Collectors) *RetransmitManager {
	return &RetransmitManager{
		items:   make(map[RetransmitKey]*pendingRetransmit),
		metrics: m,
	}
}

// Register adds p to the retransmission queue, due immediately.
func (r *RetransmitManager) Register(p *wire.Packet) {
	k := RetransmitKey{ChannelID: p.Header.ChannelID, PacketID: p.Header.PacketID, FragmentID: p.Header.FragmentID}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[k]; ok {
		return
	}
	r.order = append(r.order, k)
	r.items[k] = &pendingRetransmit{key: k, packet: p}
}

// Cancel removes a pending retransmission matching the given key,
// typically on ACK receipt. Returns true if one was found and removed.
func (r *RetransmitManager) Cancel(channelID uint8, packetID uint16, fragmentID int16) bool {
	k := RetransmitKey{ChannelID: channelID, PacketID: packetID, FragmentID: fragmentID}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[k]; !ok {
		return false
	}
	delete(r.items, k)
	for i, o := range r.order {
		if o == k {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Tick resubmits every matured pending item to resubmit, marking it
// retransmit-eligible on the send queue, and drops items that have
// exceeded maxRetransmitAttempts.
func (r *RetransmitManager) Tick(now uint32, resubmit func(p *wire.Packet)) {
	r.mu.Lock()
	due := make([]RetransmitKey, 0, len(r.order))
	for _, k := range r.order {
		if it := r.items[k]; it.nextDue <= now {
			due = append(due, k)
		}
	}
	r.mu.Unlock()

	for _, k := range due {
		r.mu.Lock()
		it, ok := r.items[k]
		if !ok {
			r.mu.Unlock()
			continue
		}
		it.attempt++
		if it.attempt > maxRetransmitAttempts {
			delete(r.items, k)
			r.removeFromOrderLocked(k)
			r.mu.Unlock()
			if r.metrics != nil {
				r.metrics.RetransmitExhausted()
			}
			continue
		}
		it.nextDue = now + retransmitInterval
		packet := it.packet
		r.mu.Unlock()

		if r.metrics != nil {
			r.metrics.Retransmit()
		}
		resubmit(packet)
	}
}

func (r *RetransmitManager) removeFromOrderLocked(k RetransmitKey) {
	for i, o := range r.order {
		if o == k {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// Len reports the number of pending retransmissions, for diagnostics.
func (r *RetransmitManager) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
