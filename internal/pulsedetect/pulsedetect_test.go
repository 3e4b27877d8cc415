package pulsedetect

import (
	"testing"

	"github.com/opensonata/dxcore/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkHit(res, bin, spectrum int, pol model.Polarization, power float32) model.PulseHit {
	return model.PulseHit{Res: res, GlobalBin: bin, Spectrum: spectrum, Pol: pol, Power: power}
}

func TestMergeHits_CombinesAgreeingPolsIntoPolBoth(t *testing.T) {
	left := []model.PulseHit{mkHit(0, 10, 5, model.PolLeftCircular, 3)}
	right := []model.PulseHit{mkHit(0, 10, 5, model.PolRightCircular, 4)}
	merged := MergeHits(left, right)
	require.Len(t, merged, 1)
	assert.Equal(t, model.PolBoth, merged[0].Pol)
	assert.Equal(t, float32(7), merged[0].Power)
}

func TestMergeHits_KeepsStrongerDuplicateWithinOnePol(t *testing.T) {
	left := []model.PulseHit{
		mkHit(0, 10, 5, model.PolLeftCircular, 3),
		mkHit(0, 10, 5, model.PolLeftCircular, 9),
	}
	merged := MergeHits(left)
	require.Len(t, merged, 1)
	assert.Equal(t, float32(9), merged[0].Power)
}

func TestFindTriplets_EquallySpacedDriftingPulsesFormTriplet(t *testing.T) {
	hits := []model.PulseHit{
		mkHit(0, 100, 0, model.PolLeftCircular, 10),
		mkHit(0, 102, 2, model.PolLeftCircular, 10),
		mkHit(0, 104, 4, model.PolLeftCircular, 10),
	}
	params := SliceParams{
		BinsPerSpectrum:  1024,
		BinsPerSlice:     1024,
		OverlapBins:      16,
		MaxDrift:         10,
		TripletThreshold: 5,
		PulseLimit:       100,
		TripletLimit:     100,
	}
	triplets, badBands := FindTriplets(hits, params)
	require.Len(t, triplets, 1)
	assert.Empty(t, badBands)
}

func TestFindTriplets_UnequalSpacingRejected(t *testing.T) {
	hits := []model.PulseHit{
		mkHit(0, 100, 0, model.PolLeftCircular, 10),
		mkHit(0, 105, 2, model.PolLeftCircular, 10),
		mkHit(0, 104, 4, model.PolLeftCircular, 10),
	}
	params := SliceParams{
		BinsPerSpectrum: 1024, BinsPerSlice: 1024, OverlapBins: 16,
		MaxDrift: 10, TripletThreshold: 5, PulseLimit: 100, TripletLimit: 100,
	}
	triplets, _ := FindTriplets(hits, params)
	assert.Empty(t, triplets)
}

func TestFindTriplets_TooManyPulsesFlagsBadBand(t *testing.T) {
	var hits []model.PulseHit
	for i := 0; i < 10; i++ {
		hits = append(hits, mkHit(0, 50, i, model.PolLeftCircular, 10))
	}
	params := SliceParams{
		BinsPerSpectrum: 1024, BinsPerSlice: 1024, OverlapBins: 0,
		MaxDrift: 10, TripletThreshold: 1000, PulseLimit: 3, TripletLimit: 100,
	}
	_, badBands := FindTriplets(hits, params)
	require.Len(t, badBands, 1)
	assert.True(t, badBands[0].TooManyPulses)
}

func TestClusterTriplets_AbsorbsOverlappingTripletsIntoOneTrain(t *testing.T) {
	triplets := []Triplet{
		{P0: mkHit(0, 100, 0, model.PolLeftCircular, 10), P1: mkHit(0, 102, 2, model.PolLeftCircular, 10), P2: mkHit(0, 104, 4, model.PolLeftCircular, 10)},
		{P0: mkHit(0, 102, 2, model.PolLeftCircular, 10), P1: mkHit(0, 104, 4, model.PolLeftCircular, 10), P2: mkHit(0, 106, 6, model.PolLeftCircular, 10)},
	}
	trains := ClusterTriplets(triplets, 1024, 8, 1.0, 20)
	require.Len(t, trains, 1)
	assert.GreaterOrEqual(t, len(trains[0].Pulses), 3)
}

func TestClusterTriplets_DistantTripletsFormSeparateTrains(t *testing.T) {
	triplets := []Triplet{
		{P0: mkHit(0, 100, 0, model.PolLeftCircular, 10), P1: mkHit(0, 102, 2, model.PolLeftCircular, 10), P2: mkHit(0, 104, 4, model.PolLeftCircular, 10)},
		{P0: mkHit(0, 900, 0, model.PolLeftCircular, 10), P1: mkHit(0, 902, 2, model.PolLeftCircular, 10), P2: mkHit(0, 904, 4, model.PolLeftCircular, 10)},
	}
	trains := ClusterTriplets(triplets, 1024, 8, 1.0, 20)
	assert.Len(t, trains, 2)
}

func TestComputePFA_HigherExcessPowerLowersPFA(t *testing.T) {
	low := computePFA(1024, 64, 3, 3.0, 1.0)
	high := computePFA(1024, 64, 3, 30.0, 1.0)
	assert.Less(t, high, low)
}

func TestTripletPol_MixedOnDisagreement(t *testing.T) {
	assert.Equal(t, model.PolMixed, TripletPol(model.PolLeftCircular, model.PolRightCircular, model.PolLeftCircular))
	assert.Equal(t, model.PolLeftCircular, TripletPol(model.PolLeftCircular, model.PolLeftCircular, model.PolLeftCircular))
}
