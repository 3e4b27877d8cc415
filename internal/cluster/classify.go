package cluster

import (
	"math"

	"github.com/opensonata/dxcore/internal/config"
	"github.com/opensonata/dxcore/internal/model"
)

// FreqWindow is a (center, halfWidth) frequency window in MHz, used for
// recent-RFI, test-signal, and follow-up matching.
type FreqWindow struct {
	CenterMHz    float64
	HalfWidthMHz float64
}

func (w FreqWindow) contains(freqMHz float64) bool {
	return math.Abs(freqMHz-w.CenterMHz) <= w.HalfWidthMHz
}

// ClassifyParams bundles the activity-level configuration the
// classification pipeline needs.
type ClassifyParams struct {
	Operations            config.Operations
	ZeroDriftToleranceHz   float64
	MaxDriftRateToleranceHz float64
	MaxNumberOfCandidates  int
	IsSecondary            bool // processing a secondary (follow-up) candidate pass
}

// Classify applies spec.md §4.7's classification pipeline, in order:
// an initial coherent-detect verdict, recent-RFI mask (primary mode
// only), zero-drift rejection, max-drift rejection, test-signal
// override (forces CLASS_CAND), follow-up matching, and the
// candidate-count cap. Bad-band overlap is computed last and returned
// as a separate flag rather than affecting class/reason.
func Classify(
	sc SuperCluster,
	passedCoherentDetect bool,
	recentRFI, testSignals, followUps []FreqWindow,
	candidatesSoFar *int,
	badBands []model.BadBand,
	params ClassifyParams,
) (class model.SignalClass, reason model.ClassReason, containsBadBands bool) {
	freq := sc.Strongest.Path.RFFreqMHz
	drift := sc.Strongest.Path.DriftHz

	if passedCoherentDetect {
		class, reason = model.ClassCandidate, model.ReasonPassedCoherentDetect
	} else {
		class, reason = model.ClassRFI, model.ReasonFailedCoherentDetect
	}

	if params.Operations.Has(config.OpApplyRecentRFIMask) && !params.IsSecondary && matchesAny(recentRFI, freq) {
		class, reason = model.ClassRFI, model.ReasonRecentRFIMask
	}

	if params.Operations.Has(config.OpRejectZeroDriftSignals) && math.Abs(drift) <= params.ZeroDriftToleranceHz {
		class, reason = model.ClassRFI, model.ReasonZeroDrift
	}

	if math.Abs(drift) > params.MaxDriftRateToleranceHz {
		class, reason = model.ClassRFI, model.ReasonDriftTooHigh
	}

	if params.Operations.Has(config.OpApplyTestSignalMask) && matchesAny(testSignals, freq) {
		class, reason = model.ClassCandidate, model.ReasonTestSignalMask
	}

	if params.Operations.Has(config.OpFollowUpCandidates) && matchesAny(followUps, freq) {
		class, reason = model.ClassCandidate, model.ReasonFollowUpMatch
	}

	if class == model.ClassCandidate {
		if *candidatesSoFar >= params.MaxNumberOfCandidates {
			class, reason = model.ClassUnknown, model.ReasonTooManyCandidates
		} else {
			*candidatesSoFar++
		}
	}

	containsBadBands = overlapsAnyBadBand(sc, badBands)
	return class, reason, containsBadBands
}

func matchesAny(windows []FreqWindow, freqMHz float64) bool {
	for _, w := range windows {
		if w.contains(freqMHz) {
			return true
		}
	}
	return false
}

// overlapsAnyBadBand intersects the super-cluster's drift-extended bin
// span against every recorded bad band at the same resolution and a
// matching (or POL_BOTH) polarization.
func overlapsAnyBadBand(sc SuperCluster, badBands []model.BadBand) bool {
	e := sc.Strongest
	for _, b := range badBands {
		if b.Resolution != e.Resolution {
			continue
		}
		if b.Pol != sc.Pol && b.Pol != model.PolBoth {
			continue
		}
		if b.Overlaps(e.LoBin, e.HiBin) {
			return true
		}
	}
	return false
}
