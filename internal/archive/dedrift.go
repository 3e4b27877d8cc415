package archive

import "math"

// Dedrift multiplies the archive channel by exp(-i*(2*pi*deltaFreqHz*t +
// pi*driftHzPerSec*t^2/acBandwidthHz^2)), per spec.md §4.6's de-drift
// formula. sampleRateHz is the archive channel's sample rate (equal to
// acBandwidthHz, the synthesized channel's bandwidth).
func Dedrift(ac []complex64, sampleRateHz, deltaFreqHz, driftHzPerSec, acBandwidthHz float64) []complex64 {
	out := make([]complex64, len(ac))
	for i, v := range ac {
		t := float64(i) / sampleRateHz
		phase := -(2*math.Pi*deltaFreqHz*t + math.Pi*driftHzPerSec*t*t/(acBandwidthHz*acBandwidthHz))
		rot := complex(math.Cos(phase), math.Sin(phase))
		out[i] = complex64(complex128(v) * rot)
	}
	return out
}

// Heterodyne collapses the de-drifted archive channel to a narrower
// signal channel of the requested bandwidth by summing adjacent
// samplesPerBlk-sample blocks, per spec.md's "sum adjacent samplesPerBlk
// = round(AC_BW_Hz / widthHz) samples".
func Heterodyne(ac []complex64, samplesPerBlk int) []complex64 {
	if samplesPerBlk < 1 {
		samplesPerBlk = 1
	}
	n := len(ac) / samplesPerBlk
	out := make([]complex64, n)
	for b := 0; b < n; b++ {
		var sum complex128
		base := b * samplesPerBlk
		for i := 0; i < samplesPerBlk; i++ {
			sum += complex128(ac[base+i])
		}
		out[b] = complex64(sum)
	}
	return out
}

// SamplesPerBlock computes round(acBandwidthHz / widthHz), clamped to
// at least 1.
func SamplesPerBlock(acBandwidthHz, widthHz float64) int {
	n := int(math.Round(acBandwidthHz / widthHz))
	if n < 1 {
		n = 1
	}
	return n
}
