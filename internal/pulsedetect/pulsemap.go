// Package pulsedetect implements spec.md §4.5's pulse detector: merging
// per-polarization pulse hits into a combined map, a sliced triplet
// search with drift-cone and equal-spacing rejection, and clustering of
// triplets into pulse trains.
//
// Grounded on original_source/sig-pkg/dx/src/PulseTask.cpp (slicing,
// triplet search, bad-band accounting) and
// original_source/sig-pkg/dx/lib/PulseClusterer.cpp (linear-regression
// fit, clustering, PFA computation).
package pulsedetect

import "github.com/opensonata/dxcore/internal/model"

// pulseKey uniquely identifies one combined-map entry, matching
// PulseTask.h's PULSE_KEY(res,bin,spectrum) packing.
type pulseKey struct {
	res      int
	bin      int
	spectrum int
}

// MergeHits combines per-polarization pulse hits into the single pulse
// map the slicer and triplet search operate on. A bin hit in both
// polarizations at the same (res, bin, spectrum) becomes one POL_BOTH
// entry carrying the combined power; PulseTask.cpp's pulseMap has at
// most one entry per key, so within one polarization's own hit list the
// higher-power hit at a duplicate key wins.
func MergeHits(pols ...[]model.PulseHit) []model.PulseHit {
	merged := make(map[pulseKey]model.PulseHit)
	for _, hits := range pols {
		for _, h := range hits {
			key := pulseKey{h.Res, h.GlobalBin, h.Spectrum}
			existing, ok := merged[key]
			if !ok {
				merged[key] = h
				continue
			}
			if existing.Pol == h.Pol {
				if h.Power > existing.Power {
					merged[key] = h
				}
				continue
			}
			combined := h
			combined.Power = existing.Power + h.Power
			combined.Pol = model.PolBoth
			merged[key] = combined
		}
	}
	out := make([]model.PulseHit, 0, len(merged))
	for _, h := range merged {
		out = append(out, h)
	}
	return out
}
