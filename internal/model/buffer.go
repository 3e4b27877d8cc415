package model

import "github.com/opensonata/dxcore/internal/dxerr"

// RingBuffer is the circular complex-float32 sample buffer described in
// spec §3 "Input buffer". Cursors obey done <= next <= read <= write, and
// the buffer never overwrites samples that have not yet been marked done.
//
// RingBuffer itself is not concurrency-safe; callers (internal/assembler)
// serialize access under the channel context's lock.
type RingBuffer struct {
	data           []complex64
	done, next, read, write int64 // absolute sample indices, mod len(data)
}

// NewRingBuffer allocates a ring of the given capacity. Capacity should be
// at least threshold * some small multiple so the assembler never has to
// block waiting for a flush it cannot perform.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{data: make([]complex64, capacity)}
}

// Cap returns the buffer's capacity in samples.
func (r *RingBuffer) Cap() int { return len(r.data) }

// Available reports how many samples can be written before the buffer is
// full relative to the current done cursor.
func (r *RingBuffer) Available() int {
	return len(r.data) - int(r.write-r.done)
}

// Unread reports how many written samples have not yet been consumed by
// the read cursor (i.e. are available to the DFB).
func (r *RingBuffer) Unread() int {
	return int(r.write - r.read)
}

// Write appends samples to the ring, advancing the write cursor. It fails
// with a buffer-overflow error if there is insufficient free space; the
// caller (assembler) is responsible for having flushed first.
func (r *RingBuffer) Write(samples []complex64) error {
	if len(samples) > r.Available() {
		return dxerr.New(dxerr.KindBufferOverflow,
			"ring buffer write of %d samples exceeds %d available", len(samples), r.Available())
	}
	n := len(r.data)
	for i, s := range samples {
		idx := (r.write + int64(i)) % int64(n)
		r.data[idx] = s
	}
	r.write += int64(len(samples))
	return nil
}

// PeekAt returns a contiguous view starting at absolute sample index
// `start` of length `length`, wrapping as needed. It is the caller's
// responsibility to ensure the range lies within [done, write).
func (r *RingBuffer) PeekAt(start int64, length int) []complex64 {
	out := make([]complex64, length)
	n := int64(len(r.data))
	for i := 0; i < length; i++ {
		idx := (start + int64(i)) % n
		out[i] = r.data[idx]
	}
	return out
}

// AdvanceRead moves the read cursor forward by n samples (called once a
// DFB iteration has consumed its input window's worth of new samples).
func (r *RingBuffer) AdvanceRead(n int64) { r.read += n }

// AdvanceDone moves the done cursor forward to newDone, which must not
// exceed any sample index still referenced by an in-flight DFB iteration;
// the assembler enforces that via its pending-iteration map before calling
// this.
func (r *RingBuffer) AdvanceDone(newDone int64) {
	if newDone > r.done {
		r.done = newDone
	}
}

// Cursors returns the four cursor values, chiefly for tests and metrics.
func (r *RingBuffer) Cursors() (done, next, read, write int64) {
	return r.done, r.next, r.read, r.write
}

// SetNext records the next-iteration start cursor (the sample index at
// which the next DFB iteration will begin reading).
func (r *RingBuffer) SetNext(next int64) { r.next = next }

// Next returns the next-iteration start cursor.
func (r *RingBuffer) Next() int64 { return r.next }
