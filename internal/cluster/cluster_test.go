package cluster

import (
	"testing"

	"github.com/opensonata/dxcore/internal/config"
	"github.com/opensonata/dxcore/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	entries []Entry
}

func (f *fakeSource) Count() int                        { return len(f.entries) }
func (f *fakeSource) NominalFreqMHz(i int) float64       { return f.entries[i].Path.RFFreqMHz }
func (f *fakeSource) Entry(i int) Entry                  { return f.entries[i] }

func mkEntry(kind model.SignalKind, pol model.Polarization, freqMHz float64, power float32) Entry {
	return Entry{Kind: kind, Pol: pol, Path: model.PathDescription{RFFreqMHz: freqMHz, Power: power}}
}

func newIDGen() func() uint64 {
	var next uint64
	return func() uint64 {
		next++
		return next
	}
}

func TestCompute_MergesOverlappingClustersAcrossSources(t *testing.T) {
	cw := &fakeSource{entries: []Entry{mkEntry(model.SignalCwPower, model.PolLeftCircular, 1420.000, 10)}}
	pulse := &fakeSource{entries: []Entry{mkEntry(model.SignalPulseTrain, model.PolRightCircular, 1420.0005, 20)}}

	scs := Compute([]Source{cw, pulse}, 0.001, newIDGen())
	require.Len(t, scs, 1)
	assert.Equal(t, model.SignalCwPower, scs[0].Kind, "CW dominates even when a stronger pulse is merged into it")
	assert.Equal(t, model.PolBoth, scs[0].Pol)
	assert.Equal(t, float32(20), scs[0].Strongest.Path.Power)
}

func TestCompute_DistantClustersFormSeparateSuperClusters(t *testing.T) {
	cw := &fakeSource{entries: []Entry{
		mkEntry(model.SignalCwPower, model.PolLeftCircular, 1420.0, 10),
		mkEntry(model.SignalCwPower, model.PolLeftCircular, 1430.0, 10),
	}}
	scs := Compute([]Source{cw}, 0.001, newIDGen())
	assert.Len(t, scs, 2)
}

func TestCompute_PulseOnlySuperClusterKeepsPulseKind(t *testing.T) {
	pulse := &fakeSource{entries: []Entry{
		mkEntry(model.SignalPulseTrain, model.PolBoth, 1420.0, 10),
	}}
	scs := Compute([]Source{pulse}, 0.001, newIDGen())
	require.Len(t, scs, 1)
	assert.Equal(t, model.SignalPulseTrain, scs[0].Kind)
}

func TestClassify_ZeroDriftRejectedWhenEnabled(t *testing.T) {
	sc := SuperCluster{Strongest: Entry{Path: model.PathDescription{RFFreqMHz: 1420.0, DriftHz: 0.001}}}
	params := ClassifyParams{
		Operations:              config.OpRejectZeroDriftSignals,
		ZeroDriftToleranceHz:     0.01,
		MaxDriftRateToleranceHz:  100,
		MaxNumberOfCandidates:    10,
	}
	count := 0
	class, reason, _ := Classify(sc, true, nil, nil, nil, &count, nil, params)
	assert.Equal(t, model.ClassRFI, class)
	assert.Equal(t, model.ReasonZeroDrift, reason)
}

func TestClassify_TestSignalOverridesRFI(t *testing.T) {
	sc := SuperCluster{Strongest: Entry{Path: model.PathDescription{RFFreqMHz: 1420.0, DriftHz: 50}}}
	params := ClassifyParams{
		Operations:              config.OpApplyTestSignalMask,
		MaxDriftRateToleranceHz:  10, // triggers drift-too-high first
		MaxNumberOfCandidates:    10,
	}
	testSignals := []FreqWindow{{CenterMHz: 1420.0, HalfWidthMHz: 0.001}}
	count := 0
	class, reason, _ := Classify(sc, true, nil, testSignals, nil, &count, nil, params)
	assert.Equal(t, model.ClassCandidate, class)
	assert.Equal(t, model.ReasonTestSignalMask, reason)
}

func TestClassify_CandidateCountCapReclassifiesUnknown(t *testing.T) {
	sc := SuperCluster{Strongest: Entry{Path: model.PathDescription{RFFreqMHz: 1420.0, DriftHz: 0}}}
	params := ClassifyParams{MaxDriftRateToleranceHz: 100, MaxNumberOfCandidates: 1}
	count := 1 // already at the cap
	class, reason, _ := Classify(sc, true, nil, nil, nil, &count, nil, params)
	assert.Equal(t, model.ClassUnknown, class)
	assert.Equal(t, model.ReasonTooManyCandidates, reason)
}

func TestClassify_FailedCoherentDetectDefaultsToRFI(t *testing.T) {
	sc := SuperCluster{Strongest: Entry{Path: model.PathDescription{RFFreqMHz: 1420.0, DriftHz: 0}}}
	params := ClassifyParams{MaxDriftRateToleranceHz: 100, MaxNumberOfCandidates: 10}
	count := 0
	class, reason, _ := Classify(sc, false, nil, nil, nil, &count, nil, params)
	assert.Equal(t, model.ClassRFI, class)
	assert.Equal(t, model.ReasonFailedCoherentDetect, reason)
}

func TestClassify_BadBandOverlapFlaggedIndependentlyOfClass(t *testing.T) {
	sc := SuperCluster{
		Pol:       model.PolLeftCircular,
		Strongest: Entry{Resolution: 0, LoBin: 100, HiBin: 110, Path: model.PathDescription{RFFreqMHz: 1420.0}},
	}
	badBands := []model.BadBand{{CenterBin: 105, WidthBins: 20, Pol: model.PolLeftCircular, Resolution: 0}}
	params := ClassifyParams{MaxDriftRateToleranceHz: 100, MaxNumberOfCandidates: 10}
	count := 0
	_, _, containsBadBands := Classify(sc, true, nil, nil, nil, &count, badBands, params)
	assert.True(t, containsBadBands)
}
