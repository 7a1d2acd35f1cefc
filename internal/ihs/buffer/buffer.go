// Package buffer implements the growable byte container described by the
// session protocol's data model: an owning allocation with a reserved
// header prefix (offset) and a payload length (size), used throughout the
// wire codec and reassembly windows so header bytes can be written after
// the body is already known.
package buffer

import "github.com/alxayo/go-ihs/internal/bufpool"

// Buffer is a move-only growable byte container.
//
//	data:     owning allocation (capacity bytes)
//	capacity: len(data)
//	offset:   prefix reserved for a header written last
//	size:     payload length beyond offset
//
// Invariant: offset+size <= capacity. Buffer is NOT safe for concurrent use;
// callers needing concurrent access (reassembly windows, send queues) guard
// it with their own mutex.
type Buffer struct {
	data     []byte
	capacity int
	offset   int
	size     int
}

// MaxCapacity bounds how large a single Buffer may grow. Exceeding it via
// New, Append or Fill is a programmer error and panics, matching spec.md §3's
// "exceeding it is a programmer error."
const MaxCapacity = 4 << 20 // 4 MiB; comfortably above any single IHS frame.

// New allocates a Buffer with the given capacity and header offset.
// The payload (size) starts empty.
func New(capacity, offset int) *Buffer {
	if capacity < 0 || offset < 0 || offset > capacity {
		panic("buffer: invalid capacity/offset")
	}
	if capacity > MaxCapacity {
		panic("buffer: capacity exceeds MaxCapacity")
	}
	return &Buffer{data: bufpool.Get(capacity), capacity: capacity, offset: offset}
}

// FromBytes wraps an existing slice as a Buffer, with payload occupying the
// whole slice (offset=0, size=len(b)). The Buffer takes ownership of b; the
// caller must not mutate it afterward.
func FromBytes(b []byte) *Buffer {
	return &Buffer{data: b, capacity: len(b), offset: 0, size: len(b)}
}

// Capacity returns the total allocation size.
func (b *Buffer) Capacity() int { return b.capacity }

// Offset returns the reserved header prefix length.
func (b *Buffer) Offset() int { return b.offset }

// Size returns the payload length beyond Offset.
func (b *Buffer) Size() int { return b.size }

// Len returns offset+size, the total bytes currently meaningful in the
// buffer (header prefix, if any, plus payload).
func (b *Buffer) Len() int { return b.offset + b.size }

// Bytes returns the payload slice (offset : offset+size). The returned
// slice aliases the Buffer's storage; callers must not retain it past the
// Buffer's lifetime without copying.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data[b.offset : b.offset+b.size]
}

// HeaderBytes returns the reserved prefix (0:offset) for in-place header
// writes, e.g. by a wire codec that appends the body first and serializes
// the header into the reserved space afterward.
func (b *Buffer) HeaderBytes() []byte {
	if b == nil {
		return nil
	}
	return b.data[:b.offset]
}

// All returns the full meaningful range (0 : offset+size).
func (b *Buffer) All() []byte {
	if b == nil {
		return nil
	}
	return b.data[:b.offset+b.size]
}

func (b *Buffer) ensure(extra int) {
	need := b.offset + b.size + extra
	if need <= b.capacity {
		return
	}
	if need > MaxCapacity {
		panic("buffer: append exceeds MaxCapacity")
	}
	newCap := b.capacity * 2
	if newCap < need {
		newCap = need
	}
	if newCap > MaxCapacity {
		newCap = MaxCapacity
	}
	nd := bufpool.Get(newCap)
	copy(nd, b.data[:b.offset+b.size])
	bufpool.Put(b.data)
	b.data = nd
	b.capacity = newCap
}

// Append grows the payload by copying p after the current payload tail.
func (b *Buffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	b.ensure(len(p))
	copy(b.data[b.offset+b.size:], p)
	b.size += len(p)
}

// Fill appends n bytes of the given filler value (used by pad-to).
func (b *Buffer) Fill(v byte, n int) {
	if n <= 0 {
		return
	}
	b.ensure(n)
	dst := b.data[b.offset+b.size : b.offset+b.size+n]
	for i := range dst {
		dst[i] = v
	}
	b.size += n
}

// WriteAt writes p at absolute offset `at` within the header+payload range,
// without changing size. Used to backfill header fields after the fact.
// Panics if the write would fall outside the currently allocated capacity.
func (b *Buffer) WriteAt(at int, p []byte) {
	if at < 0 || at+len(p) > b.capacity {
		panic("buffer: WriteAt out of range")
	}
	copy(b.data[at:at+len(p)], p)
}

// OffsetBy shifts the header/payload boundary by delta (positive consumes
// payload into the header region, e.g. after parsing a header out of what
// was initially undifferentiated payload; negative releases header bytes
// back into payload). size is adjusted so Len() is unchanged.
func (b *Buffer) OffsetBy(delta int) {
	newOffset := b.offset + delta
	newSize := b.size - delta
	if newOffset < 0 || newSize < 0 || newOffset+newSize > b.capacity {
		panic("buffer: OffsetBy out of range")
	}
	b.offset = newOffset
	b.size = newSize
}

// Take transfers ownership of the buffer's storage to the caller and
// resets the Buffer to empty, matching the "transfer-ownership (move)"
// operation in spec.md §3 (Go's analogue of C++'s std::move semantics:
// the source becomes unusable for storage but remains safe to call
// methods on).
func (b *Buffer) Take() []byte {
	if b == nil {
		return nil
	}
	out := b.data[b.offset : b.offset+b.size]
	b.data = nil
	b.capacity = 0
	b.offset = 0
	b.size = 0
	return out
}

// Clear resets size (and, if release is true, returns the backing storage
// to the pool and drops the allocation entirely). With release=false the
// capacity is retained for reuse.
func (b *Buffer) Clear(release bool) {
	if b == nil {
		return
	}
	b.size = 0
	if release {
		bufpool.Put(b.data)
		b.data = nil
		b.capacity = 0
		b.offset = 0
	}
}

// Clone returns a deep copy of the buffer's meaningful range.
func (b *Buffer) Clone() *Buffer {
	nb := New(b.capacity, b.offset)
	copy(nb.data, b.data[:b.offset+b.size])
	nb.size = b.size
	return nb
}
