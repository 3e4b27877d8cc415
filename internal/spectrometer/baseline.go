// Package spectrometer implements spec.md §4.3: per half-frame, per
// polarization, per subchannel baselining, confirmation-data emission,
// multi-resolution spectrum synthesis, CW power packing, and pulse
// thresholding.
package spectrometer

import "math"

// updateBaseline blends the running inverse-RMS scale for one subchannel
// with the half-frame's instantaneous value, returning the pre-update
// scale that should be applied to this half-frame's samples (so the
// baseline always lags one half-frame behind what it's correcting,
// matching the reference spectrometer's "apply the pre-update baseline"
// rule).
//
// During the first k = ceil(1/(1-decay)) half-frames the blend weight is
// relaxed to 1-1/(hf+1) so the running value converges from the initial
// seed rather than from zero history.
func updateBaseline(samples []complex64, scale *float32, halfFrameCount *int64, decay float64) float32 {
	applied := *scale

	var power float64
	for _, s := range samples {
		re, im := float64(real(s)), float64(imag(s))
		power += re*re + im*im
	}
	n := float64(len(samples))
	instant := math.Sqrt(n / power)

	w := decay
	k := int64(math.Ceil(1 / (1 - decay)))
	if *halfFrameCount < k {
		w = 1 - 1/float64(*halfFrameCount+1)
	}
	*scale = float32(w*float64(*scale) + (1-w)*instant)
	*halfFrameCount++

	return applied
}

// applyBaseline rescales samples in place by `scale`.
func applyBaseline(samples []complex64, scale float32) {
	for i, s := range samples {
		samples[i] = complex(real(s)*scale, imag(s)*scale)
	}
}

// BaselineStats is the per-activity reporting summary described in
// spec.md §4.3 ("compute per-activity baseline mean / stdev / range
// across non-masked subchannels").
type BaselineStats struct {
	Mean   float64
	StdDev float64
	Range  float64
}

// ComputeBaselineStats summarizes the non-masked entries of scale.
func ComputeBaselineStats(scale []float32, masked []bool) BaselineStats {
	var sum, sumSq float64
	var n int
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range scale {
		if masked[i] {
			continue
		}
		f := float64(v)
		sum += f
		sumSq += f * f
		if f < lo {
			lo = f
		}
		if f > hi {
			hi = f
		}
		n++
	}
	if n == 0 {
		return BaselineStats{}
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return BaselineStats{Mean: mean, StdDev: math.Sqrt(variance), Range: hi - lo}
}
