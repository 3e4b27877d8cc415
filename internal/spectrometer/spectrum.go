package spectrometer

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// SpectrumBank accumulates one subchannel's samples at one resolution
// and emits complex spectra with 50% overlap, per spec.md §4.3 step 3.
// Spectra are returned DC-centered: index 0 holds the most-negative
// frequency, index N/2 holds DC, undoing the FFT's natural bin order.
type SpectrumBank struct {
	fftLen int
	plan   *fourier.CmplxFFT

	history []complex128 // rolling window buffer, length fftLen
	filled  int
}

// NewSpectrumBank allocates a bank for the given FFT length (a power of
// two spectral-bin-width resolution entry).
func NewSpectrumBank(fftLen int) *SpectrumBank {
	return &SpectrumBank{
		fftLen:  fftLen,
		plan:    fourier.NewCmplxFFT(fftLen),
		history: make([]complex128, fftLen),
	}
}

// Push appends newSamples to the rolling history and returns every
// complete, DC-centered, 50%-overlapped spectrum that can now be formed
// (zero, one, or more depending on how many samples were pushed). The
// first spectrum is emitted as soon as fftLen samples have been pushed
// in total, and one more every fftLen/2 samples after that, matching
// spec.md §4.3 step 3's 50%-overlap cadence: an N-sample stream yields
// floor((N-fftLen)/(fftLen/2))+1 spectra once N >= fftLen.
func (b *SpectrumBank) Push(newSamples []complex64) [][]complex64 {
	step := b.fftLen / 2
	var out [][]complex64

	rem := newSamples
	for len(rem) > 0 {
		n := len(b.history) - b.filled
		if n > len(rem) {
			n = len(rem)
		}
		for i := 0; i < n; i++ {
			b.history[b.filled+i] = complex128(rem[i])
		}
		b.filled += n
		rem = rem[n:]

		for b.filled == len(b.history) {
			out = append(out, b.emit())
			copy(b.history, b.history[step:])
			b.filled -= step
		}
	}
	return out
}

func (b *SpectrumBank) emit() []complex64 {
	spectrum := b.plan.Coefficients(nil, b.history)
	return centerDC(spectrum)
}

// centerDC rearranges a natural-order FFT output (bin 0 = DC, bin N/2 =
// Nyquist/most-negative) into centered order (bin 0 = most-negative
// frequency, bin N/2 = DC), per spec.md §4.3 step 3.
func centerDC(spectrum []complex128) []complex64 {
	n := len(spectrum)
	out := make([]complex64, n)
	half := n / 2
	for i := 0; i < half; i++ {
		out[i] = complex64(spectrum[half+i])
	}
	for i := 0; i < half; i++ {
		out[half+i] = complex64(spectrum[i])
	}
	return out
}
