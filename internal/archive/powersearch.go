package archive

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// PowerPath is the best (start-bin, drift-in-bins, power) path found by
// the power search.
type PowerPath struct {
	Bin   int
	Drift int
	Power float32
}

// PowerSearch FFTs the signal channel into 50%-overlapped spectra of
// bins width each, DC-centers each spectrum, and for every (bin, drift)
// with drift in [-spectra, +spectra] sums power along the path
// bin + round(drift*(s+0.5)/spectra) across all s, returning the
// maximizing path. Grounded on spec.md §4.6's power-search description.
func PowerSearch(signal []complex64, spectra, bins int) PowerPath {
	power := spectrogram(signal, spectra, bins)
	best := PowerPath{Power: -1}
	for drift := -spectra; drift <= spectra; drift++ {
		for bin := 0; bin < bins; bin++ {
			var sum float32
			ok := true
			for s := 0; s < spectra; s++ {
				b := bin + int(math.Round(float64(drift)*(float64(s)+0.5)/float64(spectra)))
				if b < 0 || b >= bins {
					ok = false
					break
				}
				sum += power[s][b]
			}
			if ok && sum > best.Power {
				best = PowerPath{Bin: bin, Drift: drift, Power: sum}
			}
		}
	}
	return best
}

// spectrogram FFTs signal into overlapping (50%) spectra of bins width,
// rearranged so DC is central, returning squared-magnitude power.
func spectrogram(signal []complex64, spectra, bins int) [][]float32 {
	fft := fourier.NewCmplxFFT(bins)
	step := bins / 2
	half := bins / 2
	out := make([][]float32, spectra)
	buf := make([]complex128, bins)
	for s := 0; s < spectra; s++ {
		base := s * step
		for i := 0; i < bins; i++ {
			idx := base + i
			if idx < len(signal) {
				buf[i] = complex128(signal[idx])
			} else {
				buf[i] = 0
			}
		}
		freq := fft.Coefficients(nil, buf)
		row := make([]float32, bins)
		for i, v := range freq {
			dst := i + half
			if dst >= bins {
				dst -= bins
			}
			mag := real(v)*real(v) + imag(v)*imag(v)
			row[dst] = float32(mag)
		}
		out[s] = row
	}
	return out
}
