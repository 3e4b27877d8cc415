package pulsedetect

import "github.com/opensonata/dxcore/internal/model"

// linearRegression accumulates (spectrum, bin) pairs for the ordinary
// least-squares fit PulseClusterer.cpp performs twice per train: once
// per triplet to find its nominal (startBin, drift), and once more over
// the full, de-duplicated pulse set when a train closes.
type linearRegression struct {
	sumX, sumXX, sumY, sumXY float64
	n                        int
}

func (lr *linearRegression) add(spectrum, bin int) {
	x, y := float64(spectrum), float64(bin)
	lr.sumX += x
	lr.sumY += y
	lr.sumXX += x * x
	lr.sumXY += x * y
	lr.n++
}

// result returns (startBin, driftPerSpectrum), or ok=false if the fit is
// degenerate (fewer than two distinct spectra).
func (lr *linearRegression) result() (startBin, driftPerSpectrum float64, ok bool) {
	del := float64(lr.n)*lr.sumXX - lr.sumX*lr.sumX
	if del < 1 {
		return 0, 0, false
	}
	drift := float64(lr.n)*lr.sumXY/del - lr.sumX*lr.sumY/del
	start := lr.sumXX*lr.sumY/del - lr.sumX*lr.sumXY/del
	return start, drift, true
}

// fitTriplet runs the per-triplet linear regression PulseClusterer::
// recordTriplet performs before inserting into the mid-bin multimap.
func fitTriplet(t Triplet) (startBin, driftBins float64, ok bool) {
	var lr linearRegression
	lr.add(t.P0.Spectrum, t.P0.GlobalBin)
	lr.add(t.P1.Spectrum, t.P1.GlobalBin)
	lr.add(t.P2.Spectrum, t.P2.GlobalBin)
	start, driftPerSpectrum, ok := lr.result()
	if !ok {
		return 0, 0, false
	}
	spectraPerObs := float64(spanSpectra(t))
	return start, driftPerSpectrum * spectraPerObs, true
}

func spanSpectra(t Triplet) int {
	return t.P2.Spectrum - t.P0.Spectrum + 1
}

func midBin(startBin, driftBins float64) float64 {
	return startBin + driftBins/2
}

// fitPulses runs the full-train refit PulseClusterer::clusterDone
// performs, returning (startBin, driftPerSpectrum).
func fitPulses(pulses []model.PulseHit) (startBin, driftPerSpectrum float64, ok bool) {
	var lr linearRegression
	for _, p := range pulses {
		lr.add(p.Spectrum, p.GlobalBin)
	}
	return lr.result()
}
