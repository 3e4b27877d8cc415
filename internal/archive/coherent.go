package archive

import (
	"math"

	"github.com/opensonata/dxcore/internal/model"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mathext"
)

// CoherentResult is the best (width, bin, drift) tuple checkCoherence
// found, along with its apparent 1 Hz SNR. PFA holds the natural log of
// the chi-square false-alarm probability, not the probability itself.
type CoherentResult struct {
	WidthBins int
	Bin       int
	Drift     int
	PFA       float64
	SNR       float64
}

// CoherentSearch re-extracts a power-of-two-length-M narrow signal
// channel, searches candidate micro-drifts d in [-M, +M] by dedrifting
// with phase = -pi*d*t^2/M^2 then FFTing, and for each width w in
// {1, 2, 4, ...} and candidate center bin sums w adjacent normalized bin
// powers, retaining the (w, bin, drift) triple with the smallest chi^2.
// Grounded on spec.md §4.6's coherent-search description.
func CoherentSearch(signalChannel []complex64, m int, binHz, acBandwidthBinWidthHz float64) CoherentResult {
	fft := fourier.NewCmplxFFT(m)
	best := CoherentResult{PFA: math.Inf(1)}

	for d := -m; d <= m; d++ {
		dedrifted := make([]complex128, m)
		for t := 0; t < m; t++ {
			tf := float64(t)
			phase := -math.Pi * float64(d) * tf * tf / float64(m*m)
			rot := complex(math.Cos(phase), math.Sin(phase))
			var v complex128
			if t < len(signalChannel) {
				v = complex128(signalChannel[t])
			}
			dedrifted[t] = v * rot
		}
		freq := fft.Coefficients(nil, dedrifted)
		power := make([]float32, m)
		for i, v := range freq {
			power[i] = float32(real(v)*real(v) + imag(v)*imag(v))
		}

		for w := 1; w <= m; w *= 2 {
			for bin := 0; bin+w <= m; bin++ {
				var sum float32
				for i := 0; i < w; i++ {
					sum += power[bin+i]
				}
				chi2 := chiSquareLogSurvival(2*w, 2*float64(sum))
				if chi2 < best.PFA {
					best = CoherentResult{WidthBins: w, Bin: bin, Drift: d, PFA: chi2}
					best.SNR = apparentSNR(float64(sum), float64(m), acBandwidthBinWidthHz, float64(w)*binHz)
				}
			}
		}
	}
	return best
}

// apparentSNR computes the apparent 1 Hz SNR, per spec.md §4.6:
// (P*/M + (W_bin - w*B_coh)/W_bin - 1/W_bin) / (1/W_bin).
func apparentSNR(power, m, widthBinsHz, coherentWidthHz float64) float64 {
	perBin := 1 / widthBinsHz
	return (power/m + (widthBinsHz-coherentWidthHz)/widthBinsHz - perBin) / perBin
}

// chiSquareLogSurvival returns log(P(X > x)) for X ~ chi-square(df),
// via the regularized upper incomplete gamma function, matching
// pulsedetect's PFA correction (the original ChiSquare() helper did not
// survive distillation into the retrieval pack).
func chiSquareLogSurvival(df int, x float64) float64 {
	if x <= 0 {
		return 0
	}
	k := float64(df) / 2
	q := mathext.GammaIncRegComp(k, x/2)
	if q <= 0 {
		return math.Inf(-1)
	}
	return math.Log(q)
}

// CombinePol compares the two per-pol coherent results and returns the
// lower-PFA one as the summary, marking the polarization POL_BOTH if
// both results pass the given PFA threshold.
func CombinePol(left, right CoherentResult, pfaThreshold float64) (CoherentResult, model.Polarization) {
	best := left
	pol := model.PolLeftCircular
	if right.PFA < left.PFA {
		best = right
		pol = model.PolRightCircular
	}
	if left.PFA <= pfaThreshold && right.PFA <= pfaThreshold {
		pol = model.PolBoth
	}
	return best, pol
}
