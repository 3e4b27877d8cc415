package dfb

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func flatCoeff(fftLen, foldings int) []float32 {
	c := make([]float32, fftLen*foldings)
	for i := range c {
		c[i] = 1.0
	}
	return c
}

func TestFilter_FlatCoefficientsPutDCInputInDCBin(t *testing.T) {
	const fftLen = 16
	const foldings = 4
	const overlap = 4
	const samples = 3

	f := &Filter{}
	require.NoError(t, f.SetCoefficients(flatCoeff(fftLen, foldings), fftLen, foldings))
	require.NoError(t, f.Configure(fftLen, overlap))

	need := f.Threshold(samples)
	in := make([]complex64, need)
	for i := range in {
		in[i] = complex(1, 0)
	}

	outs := make([][]complex64, fftLen)
	for i := range outs {
		outs[i] = make([]complex64, samples)
	}

	consumed, err := f.Iterate(in, outs, samples)
	require.NoError(t, err)
	assert.Equal(t, (fftLen-overlap)*samples, consumed)

	// A DC input through a DFB with flat coefficients should land all its
	// power in bin 0 (the DC bin) for every output sample.
	for s := 0; s < samples; s++ {
		for ch := 0; ch < fftLen; ch++ {
			mag := real(outs[ch][s])*real(outs[ch][s]) + imag(outs[ch][s])*imag(outs[ch][s])
			if ch == 0 {
				assert.Greater(t, mag, float32(0), "DC bin should carry power")
			} else {
				assert.InDelta(t, 0, mag, 1e-6, "non-DC bin %d should carry no power", ch)
			}
		}
	}
}

func TestFilter_ConfigureRejectsNonPowerOfTwo(t *testing.T) {
	f := &Filter{}
	require.NoError(t, f.SetCoefficients(flatCoeff(12, 2), 12, 2))
	err := f.Configure(12, 2)
	assert.Error(t, err)
}

func TestReadCoeffFile_RoundTrip(t *testing.T) {
	src := "Length=4\nFoldings=2\nOverlap=1\n# comment\n1.0\n2.0\n3.0\n4.0\n5.0\n6.0\n7.0\n8.0\n"
	cf, err := ReadCoeffFile(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 4, cf.Length)
	assert.Equal(t, 2, cf.Foldings)
	assert.Equal(t, 1, cf.Overlap)
	assert.Len(t, cf.Coeff, 8)

	filt, err := NewFilter(cf, 4)
	require.NoError(t, err)
	assert.NotNil(t, filt)
}

func TestReadCoeffFile_RejectsUnknownKey(t *testing.T) {
	_, err := ReadCoeffFile(strings.NewReader("Length=2\nFoldings=1\nBogus=3\n1.0\n2.0\n"))
	assert.Error(t, err)
}

func TestMakeCoeff_DecimationPreservesNormalization(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		blocks := rapid.IntRange(1, 3).Draw(t, "blocks")
		rawLenPow := rapid.IntRange(3, 6).Draw(t, "rawLenPow") // raw fftLen = 2^rawLenPow
		shrink := rapid.IntRange(1, rawLenPow).Draw(t, "shrink")

		rawLen := 1 << rawLenPow
		fftLen := 1 << (rawLenPow - shrink)

		raw := make([]float32, rawLen*blocks)
		for i := range raw {
			raw[i] = 1.0
		}

		f := &Filter{}
		require.NoError(t, f.SetCoefficients(raw, rawLen, blocks))
		require.NoError(t, f.Configure(fftLen, fftLen/4))

		var sum float64
		for _, c := range f.coeff {
			sum += float64(real(c))
		}
		want := math.Sqrt(float64(fftLen))
		assert.InDelta(t, want, sum, want*1e-3)
	})
}
