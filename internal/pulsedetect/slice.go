package pulsedetect

import (
	"math"
	"sort"

	"github.com/opensonata/dxcore/internal/model"
)

// Triplet-search tolerances. PulseTask.cpp referenced MIN_DELTA_SPECTRA,
// MAX_DIFF_BINS, and MAX_DIFF_SPECTRA from a shared constants header
// that did not survive distillation into the retrieval pack; these
// values are this implementation's own choice, picked to match the
// qualitative behavior PulseTask.cpp describes (reject triplets whose
// legs are too close together in time, or whose spacing disagrees by
// more than a couple of bins/spectra).
const (
	minDeltaSpectra = 2
	maxDiffBins     = 2
	maxDiffSpectra  = 2
)

// Triplet is three pulses that passed the drift-cone and equal-spacing
// checks, ready for linear-regression fitting and clustering.
type Triplet struct {
	P0, P1, P2 model.PulseHit
}

// SliceParams configures one resolution's triplet search.
type SliceParams struct {
	BinsPerSpectrum  int
	BinsPerSlice     int
	OverlapBins      int
	MaxDrift         float64 // bins per spectrum
	TripletThreshold float32
	PulseLimit       int
	TripletLimit     int
}

// BadBandFlag reports one slice whose pulse or triplet count exceeded
// its configured limit.
type BadBandFlag struct {
	StartBin      int
	WidthBins     int
	Pulses        int
	Triplets      int
	TooManyPulses bool
	TooManyTriplets bool
}

// FindTriplets slices the combined pulse map for one resolution into
// BinsPerSlice-wide, overlap-padded windows and searches each for
// triplets, mirroring PulseTask::processSlice/extractSliceData/
// findTriplets. Returns every triplet found across all slices plus one
// BadBandFlag per overpopulated slice.
func FindTriplets(hits []model.PulseHit, p SliceParams) ([]Triplet, []BadBandFlag) {
	if p.BinsPerSlice <= 0 {
		p.BinsPerSlice = p.BinsPerSpectrum
	}
	slices := p.BinsPerSpectrum / p.BinsPerSlice
	if slices*p.BinsPerSlice < p.BinsPerSpectrum {
		slices++
	}

	var triplets []Triplet
	var badBands []BadBandFlag

	for s := 0; s < slices; s++ {
		startBin := s * p.BinsPerSlice
		endBin := startBin + p.BinsPerSlice
		if endBin > p.BinsPerSpectrum {
			endBin = p.BinsPerSpectrum
		}
		extractStart := startBin - p.OverlapBins
		if extractStart < 0 {
			extractStart = 0
		}
		extractEnd := endBin + p.OverlapBins
		if extractEnd > p.BinsPerSpectrum {
			extractEnd = p.BinsPerSpectrum
		}

		sliceList, slicePulses, tooManyPulses := extractSlice(hits, extractStart, extractEnd, p.PulseLimit)
		found, sliceTriplets, tooManyTriplets := findTripletsInSlice(sliceList, startBin, endBin, p)
		triplets = append(triplets, found...)

		if tooManyPulses || tooManyTriplets {
			badBands = append(badBands, BadBandFlag{
				StartBin:        startBin,
				WidthBins:       p.BinsPerSlice,
				Pulses:          slicePulses,
				Triplets:        sliceTriplets,
				TooManyPulses:   tooManyPulses,
				TooManyTriplets: tooManyTriplets,
			})
		}
	}
	return triplets, badBands
}

// extractSlice selects every hit whose bin falls in [extractStart,
// extractEnd), stable-sorted by spectrum (PulseTask::extractSliceData).
func extractSlice(hits []model.PulseHit, extractStart, extractEnd, pulseLimit int) (out []model.PulseHit, count int, tooMany bool) {
	for _, h := range hits {
		if h.GlobalBin < extractStart || h.GlobalBin >= extractEnd {
			continue
		}
		count++
		if count <= pulseLimit {
			out = append(out, h)
		} else {
			tooMany = true
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Spectrum < out[j].Spectrum })
	return out, count, tooMany
}

// findTripletsInSlice implements PulseTask::findTriplets: for every
// anchor pulse0 within [startBin, endBin), search forward for a pulse2
// inside the drift cone, then every pulse1 between them for an
// about-equal spacing.
func findTripletsInSlice(sliceList []model.PulseHit, startBin, endBin int, p SliceParams) ([]Triplet, int, bool) {
	var out []Triplet
	sliceTriplets := 0
	tooMany := false

	for i, p0 := range sliceList {
		if p0.GlobalBin < startBin || p0.GlobalBin >= endBin {
			continue
		}
		for k := i + 2; k < len(sliceList); k++ {
			p2 := sliceList[k]
			if !insideDriftCone(p0, p2, p.MaxDrift) {
				continue
			}
			for j := i + 1; j < k; j++ {
				p1 := sliceList[j]
				if !tripletCheck(p0, p1, p2) {
					continue
				}
				power := p0.Power + p1.Power + p2.Power
				if power <= p.TripletThreshold {
					continue
				}
				if sliceTriplets < p.TripletLimit || !tooMany {
					if sliceTriplets >= p.TripletLimit {
						tooMany = true
					}
					out = append(out, Triplet{P0: p0, P1: p1, P2: p2})
				}
				sliceTriplets++
			}
		}
	}
	return out, sliceTriplets, tooMany
}

type pulseDiff struct {
	bins, spectra int
}

func diff(a, b model.PulseHit) pulseDiff {
	return pulseDiff{bins: b.GlobalBin - a.GlobalBin, spectra: b.Spectrum - a.Spectrum}
}

func insideDriftCone(p0, p1 model.PulseHit, maxDrift float64) bool {
	d := diff(p0, p1)
	if d.spectra < 2*minDeltaSpectra {
		return false
	}
	drift := float64(d.bins) / float64(d.spectra)
	return math.Abs(drift) < maxDrift
}

func tripletCheck(p0, p1, p2 model.PulseHit) bool {
	d0 := diff(p0, p1)
	d1 := diff(p1, p2)
	return aboutEqual(d0, d1)
}

func aboutEqual(d0, d1 pulseDiff) bool {
	if d0.spectra <= 0 || d1.spectra <= 0 {
		return false
	}
	if d0.spectra < minDeltaSpectra || d1.spectra < minDeltaSpectra {
		return false
	}
	dBins := abs(d0.bins - d1.bins)
	dSpectra := abs(d0.spectra - d1.spectra)
	return dBins <= maxDiffBins && dSpectra <= maxDiffSpectra
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// TripletPol returns the combined polarization of a triplet's three
// legs, mirroring PulseTask::getTripletPol: any disagreement yields
// POL_MIXED.
func TripletPol(p0, p1, p2 model.Polarization) model.Polarization {
	if p0 != p1 || p0 != p2 || p1 != p2 {
		return model.PolMixed
	}
	return p0
}
