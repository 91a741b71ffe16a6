// Package ring implements the single-producer/single-consumer byte queue
// the connection layer uses for I/O staging: a fixed-capacity region mapped
// twice in a row so that wrap-around is a property of the address space
// rather than something every caller has to branch on.
package ring

import (
	"errors"
	"sync/atomic"
)

// ErrMemoryMap is returned when the platform-specific double mapping could
// not be established.
var ErrMemoryMap = errors.New("ring: failed to memory map ring buffer")

// ErrCapacity is returned when the requested capacity is not usable.
var ErrCapacity = errors.New("ring: capacity is not greater than one")

// Buffer is a lock-free SPSC ring buffer backed by a region memory-mapped
// twice in a row, so that any contiguous read or write of up to Capacity()
// bytes can be served as one slice regardless of where it straddles the
// logical wrap point. Exactly one goroutine may call the read methods and
// exactly one goroutine may call the write methods; the two may run
// concurrently without any lock.
type Buffer struct {
	data        []byte // length 2*capacity; data[i] and data[i+capacity] alias the same byte
	capacity    uint32
	mask        uint32
	readIndex   atomic.Uint32
	writeIndex  atomic.Uint32
	closeMapped func() error
	// mirrorWrites is set on platforms where mapDouble could not establish
	// a true aliased double mapping (see ring_other.go); writes are copied
	// into both halves by hand instead of relying on the MMU.
	mirrorWrites bool
}

// New allocates a ring buffer with at least requestedCapacity bytes of
// usable space. The actual capacity is rounded up to a multiple of the
// system page size and then up to the next power of two; the effective
// capacity visible to callers is one byte less than that (Free()+Available()
// never exceeds capacity-1), so the buffer can distinguish full from empty.
func New(requestedCapacity int) (*Buffer, error) {
	if requestedCapacity <= 1 {
		return nil, ErrCapacity
	}

	capacity := roundUpToPageSize(requestedCapacity)
	capacity = nextPowerOfTwo(capacity)

	data, mirror, closeMapped, err := mapDouble(capacity)
	if err != nil {
		return nil, err
	}

	return &Buffer{
		data:         data,
		capacity:     uint32(capacity),
		mask:         uint32(capacity - 1),
		closeMapped:  closeMapped,
		mirrorWrites: mirror,
	}, nil
}

// Close releases the underlying mapping. Neither the producer nor the
// consumer may use the buffer afterward.
func (b *Buffer) Close() error {
	if b.closeMapped == nil {
		return nil
	}
	return b.closeMapped()
}

// Capacity returns the rounded-up backing capacity (not the usable
// capacity, which is Capacity()-1).
func (b *Buffer) Capacity() int32 { return int32(b.capacity) }

// Free returns the number of bytes the producer may currently write.
func (b *Buffer) Free() int32 {
	r, w := b.readIndex.Load(), b.writeIndex.Load()
	return int32((r - w - 1) & b.mask)
}

// Available returns the number of bytes the consumer may currently read.
func (b *Buffer) Available() int32 {
	r, w := b.readIndex.Load(), b.writeIndex.Load()
	return int32((b.capacity - (r - w)) & b.mask)
}

// BeginRead returns a slice of up to size bytes (clamped to Available())
// starting at the current read position, or nil if nothing is available.
// The caller must follow with EndRead once it has consumed (a prefix of)
// the returned slice.
func (b *Buffer) BeginRead(size int32) []byte {
	available := b.Available()
	if size > available {
		size = available
	}
	if size <= 0 {
		return nil
	}
	r := b.readIndex.Load()
	return b.data[r : r+uint32(size)]
}

// EndRead advances the read index by size bytes (clamped to Available())
// and returns the bytes still available afterward.
func (b *Buffer) EndRead(size int32) int32 {
	available := b.Available()
	if size > available {
		size = available
	}
	if size > 0 {
		r := b.readIndex.Load()
		b.readIndex.Store((r + uint32(size)) & b.mask)
	}
	return available - size
}

// Read copies up to len(dst) bytes into dst via one BeginRead/EndRead pair
// and returns the number of bytes copied.
func (b *Buffer) Read(dst []byte) int32 {
	size := int32(len(dst))
	src := b.BeginRead(size)
	n := int32(len(src))
	if n > 0 {
		copy(dst, src)
	}
	b.EndRead(n)
	return n
}

// BeginWrite returns a slice of up to size bytes (clamped to Free())
// starting at the current write position, or nil if there is no room. The
// caller must follow with EndWrite once it has filled (a prefix of) the
// returned slice.
func (b *Buffer) BeginWrite(size int32) []byte {
	free := b.Free()
	if size > free {
		size = free
	}
	if size <= 0 {
		return nil
	}
	w := b.writeIndex.Load()
	return b.data[w : w+uint32(size)]
}

// EndWrite advances the write index by size bytes (clamped to Free()) and
// returns the bytes still free afterward.
func (b *Buffer) EndWrite(size int32) int32 {
	free := b.Free()
	if size > free {
		size = free
	}
	if size > 0 {
		w := b.writeIndex.Load()
		if b.mirrorWrites {
			b.mirror(w, uint32(size))
		}
		b.writeIndex.Store((w + uint32(size)) & b.mask)
	}
	return free - size
}

// mirror copies each byte just written at [start, start+size) to its alias
// on the other side of the capacity boundary, for platforms without a true
// double memory mapping (see ring_other.go). start+size may cross the
// capacity boundary, since writes are allowed to straddle it by design.
func (b *Buffer) mirror(start uint32, size uint32) {
	cap := b.capacity
	for k := uint32(0); k < size; k++ {
		idx := start + k
		if idx < cap {
			b.data[idx+cap] = b.data[idx]
		} else {
			b.data[idx-cap] = b.data[idx]
		}
	}
}

// Write copies up to len(src) bytes from src via one BeginWrite/EndWrite
// pair and returns the number of bytes copied.
func (b *Buffer) Write(src []byte) int32 {
	size := int32(len(src))
	dst := b.BeginWrite(size)
	n := int32(len(dst))
	if n > 0 {
		copy(dst, src[:n])
	}
	b.EndWrite(n)
	return n
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func roundUpToPageSize(n int) int {
	page := pageSize()
	if n%page == 0 {
		return n
	}
	return n + (page - n%page)
}
