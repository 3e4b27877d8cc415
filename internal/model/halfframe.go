package model

// HalfFrame holds one corner-turned block of DFB output for both
// polarizations: N_sub subchannels x samplesPerHF complex samples each,
// laid out subchannel-major ({sub 0 sample 0..S-1, sub 1 sample 0..S-1, ...})
// as described in spec §3 "Half-frame buffer".
type HalfFrame struct {
	Index       int64 // monotonic half-frame number for ordering checks
	NumSub      int
	SamplesPerHF int
	L, R        []complex64 // len == NumSub*SamplesPerHF
}

// NewHalfFrame allocates a half-frame buffer for the given geometry.
func NewHalfFrame(numSub, samplesPerHF int) *HalfFrame {
	return &HalfFrame{
		NumSub:       numSub,
		SamplesPerHF: samplesPerHF,
		L:            make([]complex64, numSub*samplesPerHF),
		R:            make([]complex64, numSub*samplesPerHF),
	}
}

// Subchannel returns a mutable slice view onto one subchannel's samples
// for the given polarization buffer (L or R, passed directly).
func (h *HalfFrame) Subchannel(buf []complex64, sub int) []complex64 {
	start := sub * h.SamplesPerHF
	return buf[start : start+h.SamplesPerHF]
}

// Pool is a semaphore-counted free list of half-frame buffers, matching
// spec §5's "half-frame buffer pool ... allocated from a semaphore-counted
// free list; alloc blocks until available; free returns to the pool and
// signals." Implemented as a buffered channel of pre-allocated buffers,
// the idiomatic Go analogue of the teacher's condition-variable wake-up
// (src/tq.go's wake_up_cond).
type Pool struct {
	free chan *HalfFrame
}

// NewPool preallocates `size` half-frame buffers of the given geometry.
func NewPool(size, numSub, samplesPerHF int) *Pool {
	p := &Pool{free: make(chan *HalfFrame, size)}
	for i := 0; i < size; i++ {
		p.free <- NewHalfFrame(numSub, samplesPerHF)
	}
	return p
}

// Alloc blocks until a half-frame buffer is available.
func (p *Pool) Alloc() *HalfFrame {
	hf := <-p.free
	return hf
}

// Free returns a half-frame buffer to the pool once every resolution that
// needed it has finished reading it.
func (p *Pool) Free(hf *HalfFrame) {
	p.free <- hf
}
