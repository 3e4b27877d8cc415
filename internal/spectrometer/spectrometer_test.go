package spectrometer

import (
	"math"
	"testing"

	"github.com/opensonata/dxcore/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestUpdateBaseline_ConstantAmplitudeConverges(t *testing.T) {
	var scale float32 = 1.0
	var count int64
	samples := make([]complex64, 64)
	for i := range samples {
		samples[i] = complex(2.0, 0)
	}
	var applied float32
	for i := 0; i < 200; i++ {
		applied = updateBaseline(samples, &scale, &count, 0.9)
	}
	assert.InDelta(t, 0.5, float64(applied), 0.05)
}

func TestApplyBaseline_ScalesInPlace(t *testing.T) {
	samples := []complex64{complex(2, -4)}
	applyBaseline(samples, 0.5)
	assert.Equal(t, complex64(complex(1, -2)), samples[0])
}

func TestComputeBaselineStats_IgnoresMasked(t *testing.T) {
	scale := []float32{1, 2, 3, 100}
	masked := []bool{false, false, false, true}
	stats := ComputeBaselineStats(scale, masked)
	assert.InDelta(t, 2.0, stats.Mean, 1e-9)
	assert.InDelta(t, 2.0, stats.Range, 1e-9)
}

func TestSpectrumBank_EmitsDCCenteredWithOverlap(t *testing.T) {
	bank := NewSpectrumBank(8)
	samples := make([]complex64, 8)
	for i := range samples {
		samples[i] = complex(float32(i), 0)
	}
	// A single fftLen-sized push already primes one full window: the
	// first spectrum is available immediately, not after a second window
	// of delay.
	out := bank.Push(samples)
	require.Len(t, out, 1)
	assert.Len(t, out[0], 8)

	// The ramp's DC component (sum 28) is its strongest and sits at N/2.
	pow := func(v complex64) float32 { return real(v)*real(v) + imag(v)*imag(v) }
	for i, v := range out[0] {
		if i != 4 {
			assert.Less(t, pow(v), pow(out[0][4]), "bin %d vs DC", i)
		}
	}

	// Further pushes of step-sized (fftLen/2) batches should emit one
	// spectrum per push once primed.
	step := make([]complex64, 4)
	out = bank.Push(step)
	assert.Len(t, out, 1)
}

func TestSpectrumBank_EmittedCountMatchesOverlapCadence(t *testing.T) {
	// fftLen=8, step=4: pushing 20 samples in one call should yield
	// floor((20-8)/4)+1 = 4 spectra, pinning the 50%-overlap cadence.
	bank := NewSpectrumBank(8)
	samples := make([]complex64, 20)
	for i := range samples {
		samples[i] = complex(float32(i), 0)
	}
	out := bank.Push(samples)
	assert.Len(t, out, 4)
}

func TestPackCwPower_ClampsToTwoBits(t *testing.T) {
	grid := model.NewCwPowerGrid(4, 1)
	spectrum := []complex64{complex(100, 0), complex(0, 0), complex(0, 0), complex(0, 0)}
	PackCwPower(spectrum, grid, 0)
	for bin := 0; bin < 4; bin++ {
		level := grid.Get(0, bin)
		assert.LessOrEqual(t, level, uint8(3))
	}
}

func TestEmitCD_RoundTripsThroughGrid(t *testing.T) {
	grid := model.NewCDGrid(1, 2)
	samples := []complex64{complex(3, -5), complex(7, 7)}
	EmitCD(samples, grid, 0)
	re, im := grid.Get(0, 0)
	assert.Equal(t, int8(3), re)
	assert.Equal(t, int8(-5), im)
	// Second sample's components sit at the top of the 4-bit signed range [-7,7].
	re, im = grid.Get(0, 1)
	assert.Equal(t, int8(7), re)
	assert.Equal(t, int8(7), im)
}

func TestEmitMaskedCD_ZeroesEntries(t *testing.T) {
	grid := model.NewCDGrid(1, 3)
	EmitMaskedCD(grid, 0, 3)
	for i := 0; i < 3; i++ {
		re, im := grid.Get(0, i)
		assert.Zero(t, re)
		assert.Zero(t, im)
	}
}

func TestPulseAccumulator_EnforcesCaps(t *testing.T) {
	caps := PulseCaps{MaxPerHalfFrame: 2, MaxPerSubchannelPerHalfFrame: 1}
	acc := NewPulseAccumulator(caps)
	bins := []complex64{complex(10, 0), complex(10, 0), complex(10, 0)}
	acc.Threshold(0, 0, 0, 0, bins, model.PolLeftCircular, 1.0)
	acc.Threshold(0, 0, 0, 1, bins, model.PolLeftCircular, 1.0)

	assert.LessOrEqual(t, len(acc.Hits()), 2)
	perSub, perFrame := acc.Dropped()
	assert.Greater(t, perSub+perFrame, 0)
}

func TestProcessHalfFrame_MaskedSubchannelSkipsSpectrometry(t *testing.T) {
	st := NewSubchannelState(map[int]int{0: 8})
	st.Masked = true
	cd := model.NewCDGrid(1, 4)
	samples := make([]complex64, 4)
	spectraEmitted := map[int]int{}
	params := Params{BaselineDecay: 0.9, DaddResolutionIndex: 0, PulseThresholds: map[int]float32{0: 1.0}}
	acc := NewPulseAccumulator(PulseCaps{MaxPerHalfFrame: 10, MaxPerSubchannelPerHalfFrame: 10})

	ProcessHalfFrame(st, 0, 0, model.PolLeftCircular, samples, cd, nil, spectraEmitted, params, acc)

	re, im := cd.Get(0, 0)
	assert.Zero(t, re)
	assert.Zero(t, im)
	assert.Empty(t, acc.Hits())
}

func TestProcessHalfFrame_ActiveSubchannelProducesCWAndPulses(t *testing.T) {
	st := NewSubchannelState(map[int]int{0: 8})
	cd := model.NewCDGrid(1, 32)
	cwGrid := model.NewCwPowerGrid(8, 4)
	spectraEmitted := map[int]int{}
	params := Params{BaselineDecay: 0.9, DaddResolutionIndex: 0, PulseThresholds: map[int]float32{0: -1}}
	acc := NewPulseAccumulator(PulseCaps{MaxPerHalfFrame: 1000, MaxPerSubchannelPerHalfFrame: 1000})

	samples := make([]complex64, 16)
	for i := range samples {
		samples[i] = complex(float32(math.Cos(float64(i))), float32(math.Sin(float64(i))))
	}

	ProcessHalfFrame(st, 0, 0, model.PolLeftCircular, samples, cd, map[int]*model.CwPowerGrid{0: cwGrid}, spectraEmitted, params, acc)

	assert.Greater(t, spectraEmitted[0], 0)
	assert.NotEmpty(t, acc.Hits())
}

func TestUpdateBaseline_WarmUpWeightMatchesFormula(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		decay := rapid.Float64Range(0.5, 0.99).Draw(rt, "decay")
		var scale float32 = 1.0
		var count int64

		k := int64(math.Ceil(1 / (1 - decay)))
		for i := int64(0); i < k; i++ {
			// Half-frame i has amplitude i+2, so its instantaneous
			// inverse-RMS estimate is 1/(i+2) and the blend weight matters.
			amp := float64(i + 2)
			samples := []complex64{complex(float32(amp), 0), complex(float32(amp), 0)}
			before := scale
			w := 1 - 1/float64(count+1)
			updateBaseline(samples, &scale, &count, decay)
			// During warm-up the blend weight is 1-1/(hf+1).
			want := w*float64(before) + (1-w)/amp
			assert.False(rt, math.IsNaN(float64(scale)))
			assert.InDelta(rt, want, float64(scale), 1e-5)
		}
	})
}
