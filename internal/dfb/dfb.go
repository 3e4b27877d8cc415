// Package dfb implements the polyphase digital filter bank that turns one
// wide-channel time series into N_sub narrowband subchannels: a weighted
// overlap-add (WOLA) FIR stage followed by a complex FFT, exactly the
// "ROTATE_DATA" algorithm of the reference DFB library (the only live
// branch; the ROTATE_INPUT and interpolate-smaller-filter branches it
// also carried were never compiled in and are not reproduced here).
package dfb

import (
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/opensonata/dxcore/internal/dxerr"
)

// DefaultOverlapNum / DefaultOverlapDen describe the reference library's
// default 25% overlap (fftLen/4); Configure accepts any overlap < fftLen.
const DefaultOverlapNum = 1
const DefaultOverlapDen = 4

// Filter is one configured polyphase filter bank instance. A Filter is
// not safe for concurrent use; the channel context owns one per
// polarization and serializes calls to Iterate.
type Filter struct {
	fftLen  int
	blocks  int // number of foldings
	overlap int

	rawCoeff []float32 // length rawFFTLen*blocks, as loaded from file
	rawLen   int
	coeff    []complex64 // length fftLen*blocks, derived via makeCoeff

	start int // rotation phase carried across Iterate calls

	plan *fourier.CmplxFFT

	work   []complex64  // WOLA accumulator, length fftLen
	fftIn  []complex128 // rotated WOLA output, length fftLen, fed to the FFT
	fftOut []complex128 // FFT scratch output, length fftLen
}

// Threshold returns the number of input samples required before an
// Iterate call producing `samples` channel-samples can be made, matching
// the reference library's getThreshold: foldings*fftLen + (fftLen-overlap)*(samples-1).
func Threshold(fftLen, foldings, overlap, samples int) int {
	return foldings*fftLen + (fftLen-overlap)*(samples-1)
}

// SetCoefficients assigns the canonical raw filter coefficients and their
// native FFT length/foldings. Configure must be called afterward.
func (f *Filter) SetCoefficients(raw []float32, rawFFTLen, foldings int) error {
	if rawFFTLen <= 0 || foldings <= 0 {
		return dxerr.New(dxerr.KindConfiguration, "dfb: rawFFTLen and foldings must be positive")
	}
	if len(raw) != rawFFTLen*foldings {
		return dxerr.New(dxerr.KindConfiguration,
			"dfb: coefficient count %d does not match rawFFTLen*foldings=%d", len(raw), rawFFTLen*foldings)
	}
	f.rawCoeff = append([]float32(nil), raw...)
	f.rawLen = rawFFTLen
	f.blocks = foldings
	f.overlap = -1 // Configure must be called
	return nil
}

// Configure sets the operating FFT length and overlap (the per-call output
// sample count is passed to Iterate), derives the actual filter coefficients (combining or
// interpolating the raw set to match fftLen), and prepares the FFT plan.
// fftLen must be a power of two and a multiple or factor of the raw FFT
// length used in SetCoefficients.
func (f *Filter) Configure(fftLen, overlap int) error {
	if !isPowerOfTwo(fftLen) {
		return dxerr.New(dxerr.KindConfiguration, "dfb: fftLen %d is not a power of two", fftLen)
	}
	if overlap < 0 || overlap >= fftLen {
		return dxerr.New(dxerr.KindConfiguration, "dfb: overlap %d must be in [0,%d)", overlap, fftLen)
	}
	f.fftLen = fftLen
	f.overlap = overlap
	f.start = 0

	if f.rawCoeff != nil {
		if err := f.makeCoeff(); err != nil {
			return err
		}
	}

	f.plan = fourier.NewCmplxFFT(fftLen)
	f.work = make([]complex64, fftLen)
	f.fftIn = make([]complex128, fftLen)
	f.fftOut = make([]complex128, fftLen)
	return nil
}

// Threshold returns the number of input samples this filter's current
// configuration requires to iterate the given number of output samples.
func (f *Filter) Threshold(samplesPerChan int) int {
	return Threshold(f.fftLen, f.blocks, f.overlap, samplesPerChan)
}

// Iterate filters and channelizes `in`, which must hold at least
// Threshold(samplesPerChan) samples, writing samplesPerChan complex
// samples into each of outs[0..fftLen), corner-turned so outs[ch][i]
// holds the i'th sample of subchannel ch. It returns the number of
// input samples consumed.
func (f *Filter) Iterate(in []complex64, outs [][]complex64, samplesPerChan int) (int, error) {
	istride := f.fftLen - f.overlap
	need := f.Threshold(samplesPerChan)
	if len(in) < need {
		return 0, dxerr.New(dxerr.KindData, "dfb: iterate needs %d input samples, got %d", need, len(in))
	}
	if len(outs) < f.fftLen {
		return 0, dxerr.New(dxerr.KindConfiguration, "dfb: need %d output channel buffers, got %d", f.fftLen, len(outs))
	}

	window := f.blocks * f.fftLen
	for s := 0; s < samplesPerChan; s++ {
		base := s * istride
		f.wola(in[base : base+window])
		f.rotate()
		f.fftOut = f.plan.Coefficients(f.fftOut, f.fftIn)
		for ch := 0; ch < f.fftLen; ch++ {
			outs[ch][s] = complex64(f.fftOut[ch])
		}
	}
	return istride * samplesPerChan, nil
}

// wola performs the weighted overlap-add: accumulates f.blocks blocks of
// fftLen samples from window, each multiplied by the matching block of
// derived coefficients, into f.work.
func (f *Filter) wola(window []complex64) {
	for i := range f.work {
		f.work[i] = 0
	}
	for blk := 0; blk < f.blocks; blk++ {
		off := blk * f.fftLen
		for j := 0; j < f.fftLen; j++ {
			f.work[j] += window[off+j] * f.coeff[off+j]
		}
	}
}

// rotate realigns the WOLA output so the accumulated phase shift
// introduced by the overlap advances is undone before the FFT, mirroring
// Dfb::rotate's ROTATE_DATA behaviour.
func (f *Filter) rotate() {
	start := f.start % f.fftLen
	end := f.fftLen - start
	for i, s := range f.work[start:f.fftLen] {
		f.fftIn[i] = complex128(s)
	}
	for i, s := range f.work[0:start] {
		f.fftIn[end+i] = complex128(s)
	}
	f.start += f.overlap
}

func isPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}
