package dfb

import "math"

// makeCoeff derives the actual fftLen*blocks filter coefficients from the
// raw coefficient set recorded by SetCoefficients, following the three
// cases of the reference Dfb::makeCoeff:
//
//   - equal length: use the raw coefficients unchanged;
//   - fewer actual coefficients (decimation): average each contiguous
//     run of rawLen/fftLen raw coefficients into one;
//   - more actual coefficients (expansion): linearly interpolate across
//     the raw set, recomputing every point rather than just filling gaps,
//     since N and 2N coefficients imply different interval counts.
//
// The combined/interpolated set is then rescaled so its sum equals
// sqrt(fftLen), matching the reference library's bin-power normalization.
func (f *Filter) makeCoeff() error {
	nCoeff := f.fftLen * f.blocks
	nRaw := len(f.rawCoeff)

	coeffs := make([]float32, nCoeff)
	var sum float64

	switch {
	case nCoeff == nRaw:
		copy(coeffs, f.rawCoeff)
		for _, v := range coeffs {
			sum += float64(v)
		}

	case nCoeff < nRaw:
		stride := nRaw / nCoeff
		for i := 0; i < nCoeff; i++ {
			var v float64
			for j := 0; j < stride; j++ {
				v += float64(f.rawCoeff[i*stride+j])
			}
			v /= float64(stride)
			coeffs[i] = float32(v)
			sum += v
		}

	default:
		d := float64(nRaw-1) / float64(nCoeff-1)
		for i := 0; i < nCoeff; i++ {
			pos := float64(i) * d
			idx := int(pos)
			if idx >= nRaw-1 {
				idx = nRaw - 2
			}
			frac := pos - float64(idx)
			v := float64(f.rawCoeff[idx]) + frac*float64(f.rawCoeff[idx+1]-f.rawCoeff[idx])
			coeffs[i] = float32(v)
			sum += v
		}
	}

	factor := float32(math.Sqrt(float64(f.fftLen)) / sum)
	f.coeff = make([]complex64, nCoeff)
	for i, v := range coeffs {
		f.coeff[i] = complex(v*factor, 0)
	}
	return nil
}
