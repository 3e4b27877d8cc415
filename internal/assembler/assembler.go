// Package assembler implements the packet assembler and channel
// buffering of spec.md §4.2: it turns validated, possibly-lossy,
// dual-polarization UDP sample packets into a synchronized, gap-free
// pair of ring buffers ready for the DFB.
package assembler

import (
	"time"

	"github.com/opensonata/dxcore/internal/dxerr"
	"github.com/opensonata/dxcore/internal/model"
)

// MaxPacketError is the maximum tolerated imbalance between the left and
// right packet queues before the stream is declared desynchronized.
const MaxPacketError = 64

// State is the assembler's packet-gating state machine.
type State int

const (
	StatePending State = iota
	StateRunning
	StateAborted
)

// Stats tallies packet outcomes. Processed counts L/R pairs written to the
// ring buffers (a single-pol packet and its clone count once), Missed
// counts zero packets substituted for lost ones, Late and Wrong count
// individual rejected packets. Packets that arrive before the start time
// are not counted, so the sum of the four counters does not equal the
// number of packets delivered by the transport layer.
type Stats struct {
	Processed uint64
	Missed    uint64
	Late      uint64
	Wrong     uint64
}

// Assembler owns one channel's pair of packet queues and ring buffers.
// It is not concurrency-safe; callers serialize access (the owning
// activity's single mutex, per spec.md §5).
type Assembler struct {
	sourceID, channelID uint32
	singlePol           bool
	activePol           model.Polarization
	startAt             time.Time

	state    State
	startSeq uint32
	curSeq   uint32

	rQueue, lQueue []*model.SamplePacket

	Right, Left *model.RingBuffer

	Stats Stats

	pending map[int64]int // starting sample index -> outstanding iteration count
}

// New constructs an assembler for the given source/channel, ring-buffer
// capacity, and activity start time. If singlePol is true, the single
// received polarization is cloned into the other rail so the downstream
// path stays dual-rail.
func New(sourceID, channelID uint32, ringCapacity int, startAt time.Time, singlePol bool, activePol model.Polarization) *Assembler {
	return &Assembler{
		sourceID:  sourceID,
		channelID: channelID,
		singlePol: singlePol,
		activePol: activePol,
		startAt:   startAt,
		state:     StatePending,
		Right:     model.NewRingBuffer(ringCapacity),
		Left:      model.NewRingBuffer(ringCapacity),
		pending:   make(map[int64]int),
	}
}

// OnPacket validates and routes one received packet, then drains as many
// synchronized pairs as are available. It returns a KindStreamDesync
// error exactly once, when the L/R queue imbalance first crosses
// MaxPacketError; the assembler then discards all further packets for the
// rest of its lifetime (there is no reset).
func (a *Assembler) OnPacket(pkt *model.SamplePacket) error {
	if a.state == StateAborted {
		return nil
	}
	if pkt.SourceID != a.sourceID || pkt.ChannelID != a.channelID {
		a.Stats.Wrong++
		return nil
	}
	if !pkt.Valid {
		a.Stats.Wrong++
		return nil
	}
	if pkt.Pol != model.PolLeftCircular && pkt.Pol != model.PolRightCircular {
		a.Stats.Wrong++
		return nil
	}

	if a.state == StatePending {
		if pkt.AbsTime.Before(a.startAt) {
			return nil
		}
		a.state = StateRunning
		a.startSeq = pkt.Seq
		a.curSeq = pkt.Seq
	}

	if seqBefore(pkt.Seq, a.curSeq) {
		a.Stats.Late++
		return nil
	}

	a.enqueue(pkt)
	if a.singlePol {
		clone := *pkt
		if pkt.Pol == model.PolLeftCircular {
			clone.Pol = model.PolRightCircular
		} else {
			clone.Pol = model.PolLeftCircular
		}
		a.enqueue(&clone)
	}

	if !a.singlePol {
		if imb := a.queueImbalance(); abs(imb) >= MaxPacketError {
			a.state = StateAborted
			a.rQueue, a.lQueue = nil, nil
			return dxerr.New(dxerr.KindStreamDesync, "packet streams unsynchronized: imbalance=%d", imb)
		}
	}

	return a.drainPairs()
}

func (a *Assembler) enqueue(pkt *model.SamplePacket) {
	if pkt.Pol == model.PolRightCircular {
		a.rQueue = append(a.rQueue, pkt)
	} else {
		a.lQueue = append(a.lQueue, pkt)
	}
}

// queueImbalance returns r-size minus l-size.
func (a *Assembler) queueImbalance() int {
	return len(a.rQueue) - len(a.lQueue)
}

func (a *Assembler) drainPairs() error {
	for len(a.rQueue) > 0 && len(a.lQueue) > 0 {
		rp, lp := a.rQueue[0], a.lQueue[0]

		if seqBefore(rp.Seq, a.curSeq) {
			a.Stats.Late++
			a.rQueue = a.rQueue[1:]
			continue
		}
		if seqBefore(lp.Seq, a.curSeq) {
			a.Stats.Late++
			a.lQueue = a.lQueue[1:]
			continue
		}

		switch {
		case rp.Seq == lp.Seq && rp.Seq == a.curSeq:
			a.rQueue, a.lQueue = a.rQueue[1:], a.lQueue[1:]
			if err := a.addPair(rp, lp); err != nil {
				return err
			}
		case rp.Seq == lp.Seq:
			// both ahead of curSeq: matching packets were lost for both pols.
			zr := model.ZeroPacket(a.curSeq, model.PolRightCircular, len(rp.Samples), rp.AbsTime)
			zl := model.ZeroPacket(a.curSeq, model.PolLeftCircular, len(lp.Samples), lp.AbsTime)
			a.Stats.Missed += 2
			if err := a.addPair(zr, zl); err != nil {
				return err
			}
		case rp.Seq == a.curSeq:
			zl := model.ZeroPacket(a.curSeq, model.PolLeftCircular, len(rp.Samples), rp.AbsTime)
			a.rQueue = a.rQueue[1:]
			a.Stats.Missed++
			if err := a.addPair(rp, zl); err != nil {
				return err
			}
		case lp.Seq == a.curSeq:
			zr := model.ZeroPacket(a.curSeq, model.PolRightCircular, len(lp.Samples), lp.AbsTime)
			a.lQueue = a.lQueue[1:]
			a.Stats.Missed++
			if err := a.addPair(zr, lp); err != nil {
				return err
			}
		default:
			zr := model.ZeroPacket(a.curSeq, model.PolRightCircular, len(rp.Samples), rp.AbsTime)
			zl := model.ZeroPacket(a.curSeq, model.PolLeftCircular, len(lp.Samples), lp.AbsTime)
			a.Stats.Missed += 2
			if err := a.addPair(zr, zl); err != nil {
				return err
			}
		}
	}
	return nil
}

// addPair converts one synchronized pair of packets into ring-buffer
// writes and advances curSeq, failing with an overflow error if either
// ring lacks free space.
func (a *Assembler) addPair(rp, lp *model.SamplePacket) error {
	if err := a.ensureSpace(a.Right, len(rp.Samples)); err != nil {
		return err
	}
	if err := a.ensureSpace(a.Left, len(lp.Samples)); err != nil {
		return err
	}
	if err := a.Right.Write(rp.Samples); err != nil {
		return err
	}
	if err := a.Left.Write(lp.Samples); err != nil {
		return err
	}
	a.Stats.Processed++
	a.curSeq++
	return nil
}

// ensureSpace reports a fatal overflow if buf lacks free space for n more
// samples; it frees nothing itself. Space is freed only when the caller
// (channel context) marks DFB iterations complete via MarkIterationDone.
func (a *Assembler) ensureSpace(buf *model.RingBuffer, n int) error {
	if buf.Available() >= n {
		return nil
	}
	return dxerr.New(dxerr.KindBufferOverflow,
		"ring buffer cannot free %d samples (available=%d); pending iterations not yet complete", n, buf.Available())
}

// MarkIterationStarted records that a DFB iteration has begun consuming
// `n` samples starting at absolute index `start` from both buffers.
func (a *Assembler) MarkIterationStarted(start int64, n int) {
	a.pending[start]++
	_ = n
}

// MarkIterationDone records that a previously started iteration at
// `start` has completed, and advances the buffers' done cursor as far as
// is now safe (the lowest pending start, or read cursor if none remain).
func (a *Assembler) MarkIterationDone(start int64) {
	if c, ok := a.pending[start]; ok {
		if c <= 1 {
			delete(a.pending, start)
		} else {
			a.pending[start] = c - 1
		}
	}
	newDone := a.lowestPendingStart()
	a.Right.AdvanceDone(newDone)
	a.Left.AdvanceDone(newDone)
}

func (a *Assembler) lowestPendingStart() int64 {
	if len(a.pending) == 0 {
		_, _, r, _ := a.Right.Cursors()
		return r
	}
	var min int64 = -1
	for start := range a.pending {
		if min == -1 || start < min {
			min = start
		}
	}
	return min
}

func seqBefore(seq, cur uint32) bool {
	return int32(seq-cur) < 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
