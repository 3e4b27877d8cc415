package cwdetect

import "github.com/opensonata/dxcore/internal/model"

// Result is the outcome of running DADD + clustering over one
// polarization's CW power grid for one resolution.
type Result struct {
	Clusters []Cluster
	BadBands []model.BadBand
}

// DetectPol unpacks grid, runs DADD over both drift slopes, accounts
// for bad bands, and clusters the surviving hits, per spec.md §4.4's
// "runs DADD over positive and negative drift slopes for each
// polarization, records bad-band rejections, clusters hits in
// frequency" description.
func DetectPol(
	grid *model.CwPowerGrid,
	pol model.Polarization,
	resolution int,
	daddThreshold float64,
	badBandCwPathLimit, channelWidthKHz float64,
	clusterRange float64,
) Result {
	rows := UnpackRows(grid)
	threshold := Threshold(grid.Spectra, daddThreshold)

	pos := Execute(rows, threshold, false)
	neg := Execute(rows, threshold, true)

	accountant := NewBadBandAccountant(resolution, badBandCwPathLimit, channelWidthKHz)
	for _, h := range pos {
		accountant.Record(h.StartBin)
	}
	for _, h := range neg {
		accountant.Record(h.StartBin)
	}
	badBands := accountant.BadBands(pol)

	all := make([]model.CwHit, 0, len(pos)+len(neg))
	for _, h := range pos {
		h.Pol = pol
		all = append(all, h)
	}
	for _, h := range neg {
		h.Pol = pol
		all = append(all, h)
	}

	surviving := excludeBadBandHits(all, badBands)
	clusters := NewClusterer(pol, clusterRange).Cluster(surviving)

	return Result{Clusters: clusters, BadBands: badBands}
}

// excludeBadBandHits drops hits whose start bin falls inside a reported
// bad band, so flagged regions don't also surface as spurious clusters.
func excludeBadBandHits(hits []model.CwHit, badBands []model.BadBand) []model.CwHit {
	if len(badBands) == 0 {
		return hits
	}
	out := hits[:0:0]
	for _, h := range hits {
		bad := false
		for _, b := range badBands {
			if b.Overlaps(h.StartBin, h.StartBin) {
				bad = true
				break
			}
		}
		if !bad {
			out = append(out, h)
		}
	}
	return out
}
