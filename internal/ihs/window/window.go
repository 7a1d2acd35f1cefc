// Package window implements the bounded circular reassembly window of
// spec.md §4.2: a per-channel slot array indexed by packet-id modulo
// capacity that orders and stitches fragmented packets into frames.
package window

import (
	"sync"

	protoerr "github.com/alxayo/go-ihs/internal/errors"
	"github.com/alxayo/go-ihs/internal/ihs/wire"
	"github.com/alxayo/go-ihs/internal/metrics"
)

// Frame is a reassembled logical message: the head packet's header plus
// the concatenated bodies of all its fragments.
type Frame struct {
	Header wire.Header
	Body   []byte
}

type tail struct {
	pos int    // slot index of the highest seen packet
	id  uint16 // packet-id of the highest seen packet
}

// Window is a bounded circular buffer of reassembly slots. Each exported
// method takes the window's internal lock for its own duration; the lock
// is not exposed, so a sequence of calls (e.g. Add then DrainReady) is not
// atomic as a whole.
type Window struct {
	mu       sync.Mutex
	capacity int
	slots    []slot
	head     int // next-to-emit slot index
	tail     tail
	started   bool
	metrics   *metrics.Collectors
	channel   string // label used for metrics
	channelID uint8
}

type slot struct {
	occupied bool
	header   wire.Header
	body     []byte
}

// New creates a Window with the given slot capacity (typical 128 for
// control, 1024 for video).
func New(capacity int, channelID uint8, channelLabel string, m *metrics.Collectors) *Window {
	if capacity <= 0 {
		panic("window: capacity must be positive")
	}
	return &Window{capacity: capacity, slots: make([]slot, capacity), metrics: m, channel: channelLabel, channelID: channelID}
}

func signed16(delta int) int16 {
	return int16(uint16(delta))
}

// Add inserts a packet into the window per spec.md §4.2's Add algorithm.
// Returns (dropped bool, err error); err is non-nil only on fatal overflow,
// at which point the caller must disconnect the session.
func (w *Window) Add(h wire.Header, body []byte) (dropped bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var tailOffset int
	if !w.started {
		tailOffset = 1
	} else {
		tailOffset = int(signed16(int(h.PacketID) - int(w.tail.id)))
	}

	size := w.windowSize()
	if tailOffset < 0 && -tailOffset > size {
		// Already delivered (before current head..tail span).
		w.metrics.ReassemblyDrop("late")
		return true, nil
	}
	if tailOffset > w.capacity {
		w.metrics.WindowOverflow(w.channel)
		return false, protoerr.NewWindowOverflowError(w.channelID, tailOffset, w.capacity)
	}

	var idx int
	if !w.started {
		idx = w.head
	} else {
		idx = (w.tail.pos + tailOffset) % w.capacity
	}
	if idx < 0 {
		idx += w.capacity
	}

	if w.slots[idx].occupied {
		w.metrics.ReassemblyDrop("duplicate")
		return true, nil
	}

	w.slots[idx] = slot{occupied: true, header: h, body: body}

	if !w.started {
		w.started = true
		w.tail = tail{pos: idx, id: h.PacketID}
	} else if tailOffset > 0 {
		w.tail = tail{pos: idx, id: h.PacketID}
	}
	return false, nil
}

// windowSize returns the span between head and tail (inclusive of both
// ends), not a count of occupied slots: spec.md §4.2's "size" is
// window.c's IHS_SessionPacketsWindowSize, the distance a gap of
// missing/out-of-order packets between head and tail does not shrink.
func (w *Window) windowSize() int {
	if !w.started {
		return 0
	}
	if w.tail.pos+1 >= w.head {
		return w.tail.pos + 1 - w.head
	}
	return w.capacity - w.head + w.tail.pos + 1
}

// fragmentCount returns how many fragments the frame-head packet at idx
// declares (FragmentID holds the total count on a frame-head packet).
func fragmentCount(h wire.Header) int {
	if int(h.FragmentID) <= 0 {
		return 1
	}
	return int(h.FragmentID)
}

// Poll returns the next complete frame at head, if any, advancing head and
// recycling consumed slots. ok is false if the head slot is empty or its
// fragments are not all yet present.
func (w *Window) Poll() (frame Frame, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pollLocked()
}

func (w *Window) pollLocked() (Frame, bool) {
	headSlot := w.slots[w.head]
	if !headSlot.occupied || !headSlot.header.Type.IsFrameHead() {
		return Frame{}, false
	}
	n := fragmentCount(headSlot.header)
	total := 0
	for i := 0; i < n; i++ {
		idx := (w.head + i) % w.capacity
		if !w.slots[idx].occupied {
			return Frame{}, false
		}
		total += len(w.slots[idx].body)
	}

	body := make([]byte, 0, total)
	for i := 0; i < n; i++ {
		idx := (w.head + i) % w.capacity
		body = append(body, w.slots[idx].body...)
		w.slots[idx] = slot{}
	}
	w.head = (w.head + n) % w.capacity
	return Frame{Header: headSlot.header, Body: body}, true
}

// DrainReady polls repeatedly until no further frame is available,
// returning all frames in order.
func (w *Window) DrainReady() []Frame {
	var out []Frame
	for {
		f, ok := w.Poll()
		if !ok {
			return out
		}
		out = append(out, f)
	}
}

// Discard reclaims all frame-head slots whose SendTimestamp is more than
// diff units older than the tail's timestamp, per spec.md §4.2. Returns
// the count discarded. Used by data channels to skip stale video frames.
func (w *Window) Discard(diff uint32) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return 0
	}
	tailTS := w.slots[w.tail.pos].header.SendTimestamp
	count := 0
	for {
		headSlot := w.slots[w.head]
		if !headSlot.occupied || !headSlot.header.Type.IsFrameHead() {
			return count
		}
		if tailTS-headSlot.header.SendTimestamp <= diff {
			return count
		}
		n := fragmentCount(headSlot.header)
		for i := 0; i < n; i++ {
			idx := (w.head + i) % w.capacity
			w.slots[idx] = slot{}
		}
		w.head = (w.head + n) % w.capacity
		count++
		w.metrics.ReassemblyDrop("stale")
	}
}
