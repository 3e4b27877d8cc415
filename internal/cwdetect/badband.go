package cwdetect

import "github.com/opensonata/dxcore/internal/model"

// DaddBandBins is the fixed bucket width (in spectral bins) used to
// group DADD hits for bad-band accounting, per spec.md §4.4.
const DaddBandBins = 1024

// BadBandAccountant tallies raw DADD path hits per frequency band, ahead
// of clustering, so that overpopulated bands can be reported and their
// member hits excluded from clustering (see DetectPol).
type BadBandAccountant struct {
	resolution int
	bandWidth  int
	limit      int
	counts     map[int]int // band index -> raw path count
}

// NewBadBandAccountant builds an accountant whose limit is
// badBandCwPathLimit scaled by the channel width in kHz, per
// CwTask.cpp's `badBandLimit = badBandCwPathLimit * channelWidthKHz`.
func NewBadBandAccountant(resolution int, badBandCwPathLimit, channelWidthKHz float64) *BadBandAccountant {
	return &BadBandAccountant{
		resolution: resolution,
		bandWidth:  DaddBandBins,
		limit:      int(badBandCwPathLimit * channelWidthKHz),
		counts:     make(map[int]int),
	}
}

// Record tallies one raw DADD hit into its band bucket.
func (a *BadBandAccountant) Record(startBin int) {
	a.counts[startBin/a.bandWidth]++
}

// BadBands returns a model.BadBand for every band whose accumulated
// path count exceeded the configured limit.
func (a *BadBandAccountant) BadBands(pol model.Polarization) []model.BadBand {
	var out []model.BadBand
	for band, count := range a.counts {
		if count <= a.limit {
			continue
		}
		out = append(out, model.BadBand{
			CenterBin:  band*a.bandWidth + a.bandWidth/2,
			WidthBins:  a.bandWidth,
			Pol:        pol,
			Resolution: a.resolution,
			Paths:      count,
		})
	}
	return out
}
