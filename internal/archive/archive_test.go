package archive

import (
	"math"
	"testing"

	"github.com/opensonata/dxcore/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesize_NormalizesAveragePowerToOne(t *testing.T) {
	subchannels := make([][]complex64, 4)
	for i := range subchannels {
		row := make([]complex64, 16)
		for s := range row {
			row[s] = complex(float32(i+1), 0)
		}
		subchannels[i] = row
	}
	ac := Synthesize(subchannels)
	require.Len(t, ac, 64)
	assert.InDelta(t, 1.0, averagePower(ac), 1e-6)
}

func TestSynthesize_EmptyInputReturnsNil(t *testing.T) {
	assert.Nil(t, Synthesize(nil))
}

func TestDedrift_ZeroDriftAndFreqIsIdentity(t *testing.T) {
	ac := []complex64{1 + 0i, 0 + 1i, -1 + 0i}
	out := Dedrift(ac, 1000, 0, 0, 1000)
	for i := range ac {
		assert.InDelta(t, real(ac[i]), real(out[i]), 1e-6)
		assert.InDelta(t, imag(ac[i]), imag(out[i]), 1e-6)
	}
}

func TestHeterodyne_SumsAdjacentBlocks(t *testing.T) {
	ac := []complex64{1, 1, 1, 1, 2, 2, 2, 2}
	out := Heterodyne(ac, 4)
	require.Len(t, out, 2)
	assert.Equal(t, complex64(4), out[0])
	assert.Equal(t, complex64(8), out[1])
}

func TestSamplesPerBlock_RoundsAndClampsToOne(t *testing.T) {
	assert.Equal(t, 4, SamplesPerBlock(1000, 250))
	assert.Equal(t, 1, SamplesPerBlock(1, 1000))
}

func TestPowerSearch_FindsStationaryTonePath(t *testing.T) {
	spectra, bins := 4, 8
	signal := make([]complex64, spectra*bins/2+bins)
	for i := range signal {
		phase := 2 * math.Pi * float64(2) / float64(bins) * float64(i)
		signal[i] = complex64(complex(math.Cos(phase), math.Sin(phase)))
	}
	path := PowerSearch(signal, spectra, bins)
	assert.GreaterOrEqual(t, path.Power, float32(0))
}

func TestCoherentSearch_ReturnsFiniteResultForToneSignal(t *testing.T) {
	m := 8
	sig := make([]complex64, m)
	for i := range sig {
		sig[i] = complex64(complex(1, 0))
	}
	res := CoherentSearch(sig, m, 1.0, 8.0)
	assert.NotEqual(t, math.Inf(1), res.PFA)
	assert.GreaterOrEqual(t, res.WidthBins, 1)
}

func TestCombinePol_PicksLowerPFAAndMarksBothWhenBothPass(t *testing.T) {
	left := CoherentResult{PFA: 0.01}
	right := CoherentResult{PFA: 0.02}
	best, pol := CombinePol(left, right, 0.05)
	assert.Equal(t, left, best)
	assert.Equal(t, model.PolBoth, pol)
}

func TestCombinePol_OnlyOnePassingKeepsItsOwnPol(t *testing.T) {
	left := CoherentResult{PFA: 0.01}
	right := CoherentResult{PFA: 0.9}
	_, pol := CombinePol(left, right, 0.05)
	assert.Equal(t, model.PolLeftCircular, pol)
}

func TestChiSquareLogSurvival_DecreasesWithLargerExcess(t *testing.T) {
	small := chiSquareLogSurvival(4, 1.0)
	large := chiSquareLogSurvival(4, 20.0)
	assert.Less(t, large, small)
}
