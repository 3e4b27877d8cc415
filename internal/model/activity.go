package model

import (
	"sync"
	"time"
)

// ActivityState is the per-activity state machine (spec §4.8): messages
// arriving outside the expected state are a KindStateViolation dropped by
// the caller, not by Activity itself.
type ActivityState int

const (
	ActivityUndefined ActivityState = iota
	ActivityDefined
	ActivityRunning
	ActivityStopping
	ActivityDone
)

func (s ActivityState) String() string {
	switch s {
	case ActivityDefined:
		return "DEFINED"
	case ActivityRunning:
		return "RUNNING"
	case ActivityStopping:
		return "STOPPING"
	case ActivityDone:
		return "DONE"
	default:
		return "UNDEFINED"
	}
}

// Activity is the per-channel-context container tying together everything
// spec §3 attaches to one observation: baseline vectors, bad bands and the
// growing candidate-signal list, guarded by a single mutex as described in
// spec §5 ("one per-channel context guarded by a single mutex").
type Activity struct {
	mu sync.Mutex

	ID        uint32
	State     ActivityState
	StartedAt time.Time

	NumSub       int
	SamplesPerHF int

	BaselineLeft  *BaselineVector
	BaselineRight *BaselineVector

	BadBands   []BadBand
	Candidates []*CandidateSignal

	nextSuperClusterID uint64
}

// NewActivity constructs an Activity in the DEFINED state.
func NewActivity(id uint32, numSub, samplesPerHF int) *Activity {
	return &Activity{
		ID:            id,
		State:         ActivityDefined,
		NumSub:        numSub,
		SamplesPerHF:  samplesPerHF,
		BaselineLeft:  NewBaselineVector(numSub),
		BaselineRight: NewBaselineVector(numSub),
	}
}

// Lock and Unlock expose the activity's single mutex to the channel
// context orchestrator; all mutation of shared activity state happens
// between a Lock/Unlock pair.
func (a *Activity) Lock()   { a.mu.Lock() }
func (a *Activity) Unlock() { a.mu.Unlock() }

// SetState transitions the activity's state machine. Callers are expected
// to hold the lock.
func (a *Activity) SetState(s ActivityState) { a.State = s }

// NextSuperClusterID allocates a monotonically increasing super-cluster
// identifier, unique within this activity. Callers are expected to hold
// the lock.
func (a *Activity) NextSuperClusterID() uint64 {
	a.nextSuperClusterID++
	return a.nextSuperClusterID
}

// AddCandidate appends a classified signal to the activity's candidate
// list. Callers are expected to hold the lock.
func (a *Activity) AddCandidate(c *CandidateSignal) {
	a.Candidates = append(a.Candidates, c)
}

// AddBadBand records a newly flagged bad band. Callers are expected to
// hold the lock.
func (a *Activity) AddBadBand(b BadBand) {
	a.BadBands = append(a.BadBands, b)
}

// OverlapsBadBand reports whether the given bin span overlaps any
// recorded bad band of the given resolution and polarization. Callers are
// expected to hold the lock.
func (a *Activity) OverlapsBadBand(resolution int, pol Polarization, loBin, hiBin int) bool {
	for _, b := range a.BadBands {
		if b.Resolution != resolution {
			continue
		}
		if b.Pol != pol && b.Pol != PolBoth {
			continue
		}
		if b.Overlaps(loBin, hiBin) {
			return true
		}
	}
	return false
}
