package model

import "github.com/google/uuid"

// SignalKind is the tagged-variant discriminator called for by spec §9
// ("recast as a tagged variant {CwPower, PulseTrain, CwFollowup,
// PulseFollowup} with a small set of pattern-matched operations; no
// inheritance") in place of the teacher source's virtual CwSignal /
// PulseSignal upcast hierarchy.
type SignalKind int

const (
	SignalUnknown SignalKind = iota
	SignalCwPower
	SignalPulseTrain
	SignalCwFollowup
	SignalPulseFollowup
)

func (k SignalKind) String() string {
	switch k {
	case SignalCwPower:
		return "CW_POWER"
	case SignalPulseTrain:
		return "PULSE_TRAIN"
	case SignalCwFollowup:
		return "CW_FOLLOWUP"
	case SignalPulseFollowup:
		return "PULSE_FOLLOWUP"
	default:
		return "UNKNOWN"
	}
}

// SignalClass is the outcome of classification (spec §4.7).
type SignalClass int

const (
	ClassUninitialized SignalClass = iota
	ClassCandidate
	ClassRFI
	ClassUnknown
)

func (c SignalClass) String() string {
	switch c {
	case ClassCandidate:
		return "CAND"
	case ClassRFI:
		return "RFI"
	case ClassUnknown:
		return "UNKNOWN"
	default:
		return "UNINIT"
	}
}

// ClassReason is the reason code attached to a classified signal (spec §4.6).
type ClassReason int

const (
	ReasonUninitialized ClassReason = iota
	ReasonPassedCoherentDetect
	ReasonFailedCoherentDetect
	ReasonZeroDrift
	ReasonDriftTooHigh
	ReasonRecentRFIMask
	ReasonTestSignalMask
	ReasonTooManyCandidates
	ReasonFollowUpMatch
)

func (r ClassReason) String() string {
	switch r {
	case ReasonPassedCoherentDetect:
		return "PASSED_COHERENT_DETECT"
	case ReasonFailedCoherentDetect:
		return "FAILED_COHERENT_DETECT"
	case ReasonZeroDrift:
		return "ZERO_DRIFT"
	case ReasonDriftTooHigh:
		return "DRIFT_TOO_HIGH"
	case ReasonRecentRFIMask:
		return "RECENT_RFI_MASK"
	case ReasonTestSignalMask:
		return "TEST_SIGNAL_MASK"
	case ReasonTooManyCandidates:
		return "TOO_MANY_CANDIDATES"
	case ReasonFollowUpMatch:
		return "FOLLOW_UP_MATCH"
	default:
		return "UNINIT"
	}
}

// PathDescription is the common (freq, drift, width, power) description
// carried by both CW and pulse signals.
type PathDescription struct {
	RFFreqMHz float64
	DriftHz   float64
	WidthHz   float64
	Power     float32
}

// ConfirmationMetrics carries the coherent re-detector's refined PFA/SNR.
type ConfirmationMetrics struct {
	PFA float64
	SNR float64
}

// Pulse is one pulse belonging to a pulse train's final pulse list.
type Pulse struct {
	RFFreqMHz float64
	Power     float32
	Spectrum  int
	Bin       int
	Pol       Polarization
}

// CandidateSignal is the data-model "Candidate signal" entity of spec §3:
// owned by the activity's candidate lists from classification through
// archive release, and carries the tagged-variant Kind plus whichever
// fields that kind uses.
type CandidateSignal struct {
	// GlobalID identifies this candidate across activities and cores,
	// independent of the per-activity SuperClusterID: consumers that
	// archive or cross-reference candidates from multiple dxcore
	// instances need an identifier that isn't just unique within one
	// process's counter.
	GlobalID       uuid.UUID
	SuperClusterID uint64
	Kind           SignalKind
	Pol            Polarization
	Path           PathDescription
	Class          SignalClass
	Reason         ClassReason
	Confirm        ConfirmationMetrics
	Pulses         []Pulse // non-nil only for PulseTrain/PulseFollowup
	PulsePeriodSec float64
	ContainsBadBands bool
}

// BadBand is the data-model "Bad band" entity of spec §3.
type BadBand struct {
	CenterBin  int
	WidthBins  int
	Pol        Polarization
	Resolution int
	Paths      int
	Pulses     int
	Triplets   int
}

// Overlaps reports whether a drift-extended frequency span [loBin,hiBin]
// intersects this bad band's [Center-Width/2, Center+Width/2] extent.
func (b BadBand) Overlaps(loBin, hiBin int) bool {
	bandLo := b.CenterBin - b.WidthBins/2
	bandHi := b.CenterBin + b.WidthBins/2
	return loBin <= bandHi && hiBin >= bandLo
}
