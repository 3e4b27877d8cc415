// Package archive implements spec.md §4.6: synthesizing a wider archive
// channel from a set of adjacent confirmation-data subchannels, and
// running the two-stage (power, coherent) re-detection search used to
// refine a CW candidate's description.
//
// Grounded on original_source/sig-pkg/dx/lib/ArchiveChannel.cpp's
// createChannel/assembleSpectrum/createTimeSamples (split-half-swap
// spectrum assembly + per-spectrum inverse FFT, concatenated across
// half-frames) and spec.md §4.6's de-drift/heterodyne/power-search/
// coherent-search description. The debug-only floating-point-input path
// and oversampling-removal branch of the original (used only when
// reconstructing directly from un-quantized time series) are not carried
// over: this implementation always starts from already-unpacked
// confirmation-data subchannels, matching the DX's normal 4-bit-integer
// archive path.
package archive

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Synthesize combines nSubchan adjacent subchannels' complex confirmation
// data into one wider archive channel. subchannels[i] holds one
// subchannel's samples, spectraPerHF long (one complex sample per output
// time slot). The result is a single concatenated time series of length
// len(subchannels[0])*nSubchan, rescaled so its average sample power is
// one (spec.md's "normalize by 1/√P̄ so downstream statistics assume unit
// noise floor").
func Synthesize(subchannels [][]complex64) []complex64 {
	nSubchan := len(subchannels)
	if nSubchan == 0 {
		return nil
	}
	spectra := len(subchannels[0])
	fft := fourier.NewCmplxFFT(nSubchan)
	// fourier.CmplxFFT.Sequence computes the inverse DFT with the usual
	// 1/N normalization; spec.md calls for the unitary 1/√N scaling
	// ArchiveChannel.cpp gets for free from an unnormalized FFTW_BACKWARD
	// plan, so undo gonum's 1/N and reapply 1/√N: net factor is √N.
	scale := complex(math.Sqrt(float64(nSubchan)), 0)
	half := nSubchan / 2

	out := make([]complex64, spectra*nSubchan)
	spectrum := make([]complex128, nSubchan)
	for s := 0; s < spectra; s++ {
		// assembleSpectrum: one sample from each subchannel, split-half
		// swapped so DC lands in the middle of the spectrum buffer.
		for i := 0; i < nSubchan; i++ {
			v := complex128(subchannels[i][s])
			if i < half {
				spectrum[i+half] = v
			} else {
				spectrum[i-half] = v
			}
		}
		td := fft.Sequence(nil, spectrum)
		base := s * nSubchan
		for i, v := range td {
			out[base+i] = complex64(complex(real(v), imag(v)) * scale)
		}
	}

	avgPower := averagePower(out)
	if avgPower > 0 {
		norm := complex64(complex(1/math.Sqrt(avgPower), 0))
		for i := range out {
			out[i] *= norm
		}
	}
	return out
}

func averagePower(samples []complex64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += float64(real(v))*float64(real(v)) + float64(imag(v))*float64(imag(v))
	}
	return sum / float64(len(samples))
}
