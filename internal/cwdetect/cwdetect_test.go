package cwdetect

import (
	"testing"

	"github.com/opensonata/dxcore/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreshold_MatchesFormula(t *testing.T) {
	got := Threshold(64, 7.0)
	assert.InDelta(t, 64+8*7.0, float64(got), 1e-4)
}

func TestExecute_SingleSpectrumDegeneratesToThresholding(t *testing.T) {
	power := [][]float32{{0, 5, 0, 1}}
	hits := Execute(power, 3, false)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].StartBin)
	assert.Equal(t, 0, hits[0].Drift)
}

func TestExecute_ZeroDriftPathSumsAcrossSpectra(t *testing.T) {
	// A stationary tone at bin 2 across 4 spectra should sum to 4x power
	// on the zero-drift path.
	power := [][]float32{
		{0, 0, 2, 0},
		{0, 0, 2, 0},
		{0, 0, 2, 0},
		{0, 0, 2, 0},
	}
	hits := Execute(power, 7, false)
	found := false
	for _, h := range hits {
		if h.StartBin == 2 && h.Drift == 0 {
			found = true
			assert.InDelta(t, 8.0, float64(h.Power), 1e-4)
		}
	}
	assert.True(t, found, "expected a zero-drift hit at bin 2")
}

func TestExecute_DriftingPathSumsAlongTheRamp(t *testing.T) {
	// A tone ramping one bin per spectrum (b=2,3,4,5 across 4 spectra)
	// must land entirely on one (StartBin, Drift) cell, not be spread
	// across zigzag or mislabeled paths.
	power := [][]float32{
		{0, 0, 5, 0, 0, 0},
		{0, 0, 0, 5, 0, 0},
		{0, 0, 0, 0, 5, 0},
		{0, 0, 0, 0, 0, 5},
	}
	hits := Execute(power, 19, false)
	require.Len(t, hits, 1)
	assert.Equal(t, 2, hits[0].StartBin)
	assert.Equal(t, 3, hits[0].Drift)
	assert.InDelta(t, 20.0, float64(hits[0].Power), 1e-4)
}

func TestExecute_AllDriftsAreDistinctAndMonotone(t *testing.T) {
	// With N=4 spectra, DADD must produce exactly N candidate drift
	// values (0..N-1) per bin, each the sum along a monotone (non-
	// decreasing) bin path — no duplicate or zigzag paths.
	power := [][]float32{
		{1, 0, 0, 0, 0, 0},
		{0, 1, 0, 0, 0, 0},
		{0, 0, 1, 0, 0, 0},
		{0, 0, 0, 1, 0, 0},
	}
	hits := Execute(power, 0, false)
	seen := map[int]bool{}
	for _, h := range hits {
		if h.StartBin != 0 {
			continue
		}
		assert.False(t, seen[h.Drift], "duplicate drift %d at bin 0", h.Drift)
		seen[h.Drift] = true
	}
	for d := 0; d < 4; d++ {
		assert.True(t, seen[d], "missing drift %d at bin 0", d)
	}
}

func TestExecute_NegativePassNegatesDrift(t *testing.T) {
	power := [][]float32{
		{0, 0, 2, 0},
		{0, 0, 2, 0},
	}
	pos := Execute(power, 0, false)
	neg := Execute(power, 0, true)
	assert.NotEmpty(t, pos)
	assert.NotEmpty(t, neg)
	for _, h := range neg {
		assert.LessOrEqual(t, h.Drift, 0)
	}
}

func TestBadBandAccountant_FlagsOverpopulatedBand(t *testing.T) {
	a := NewBadBandAccountant(0, 1.0, 10.0) // limit = 10
	for i := 0; i < 11; i++ {
		a.Record(5) // all in band 0
	}
	bands := a.BadBands(model.PolLeftCircular)
	require.Len(t, bands, 1)
	assert.Equal(t, 11, bands[0].Paths)
}

func TestBadBandAccountant_UnderLimitProducesNoBands(t *testing.T) {
	a := NewBadBandAccountant(0, 1.0, 10.0)
	for i := 0; i < 5; i++ {
		a.Record(5)
	}
	assert.Empty(t, a.BadBands(model.PolLeftCircular))
}

func TestClusterer_AbsorbsNearbyHitsKeepingStrongestAsRepresentative(t *testing.T) {
	hits := []model.CwHit{
		{StartBin: 10, Drift: 0, Power: 5},
		{StartBin: 12, Drift: 0, Power: 20},
		{StartBin: 14, Drift: 0, Power: 3},
	}
	clusters := NewClusterer(model.PolLeftCircular, 3).Cluster(hits)
	require.Len(t, clusters, 1)
	assert.Equal(t, float32(20), clusters[0].Power)
	assert.Equal(t, 12, clusters[0].StartBin)
}

func TestClusterer_SplitsDistantHitsIntoSeparateClusters(t *testing.T) {
	hits := []model.CwHit{
		{StartBin: 10, Drift: 0, Power: 5},
		{StartBin: 100, Drift: 0, Power: 5},
	}
	clusters := NewClusterer(model.PolLeftCircular, 3).Cluster(hits)
	assert.Len(t, clusters, 2)
}

func TestDetectPol_StationaryToneProducesSingleCluster(t *testing.T) {
	grid := model.NewCwPowerGrid(16, 4)
	for s := 0; s < 4; s++ {
		grid.Set(s, 8, 3)
	}
	result := DetectPol(grid, model.PolLeftCircular, 0, 3.0, 1000, 1.0, 3)
	require.NotEmpty(t, result.Clusters)
	assert.Empty(t, result.BadBands)
}
