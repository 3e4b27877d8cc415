package spectrometer

import "github.com/opensonata/dxcore/internal/model"

// PulseCaps bounds how many pulse hits a single half-frame (and a single
// subchannel within it) may contribute, per spec.md §4.3 step 5; excess
// hits are silently dropped but counted.
type PulseCaps struct {
	MaxPerHalfFrame            int
	MaxPerSubchannelPerHalfFrame int
}

// PulseAccumulator collects pulse hits for one half-frame across
// subchannels, enforcing PulseCaps and reporting how many hits were
// dropped once the caps were hit.
type PulseAccumulator struct {
	caps PulseCaps

	hits           []model.PulseHit
	perSubCount    map[int]int
	droppedSub     int
	droppedFrame   int
}

// NewPulseAccumulator starts a fresh accumulator for one half-frame.
func NewPulseAccumulator(caps PulseCaps) *PulseAccumulator {
	return &PulseAccumulator{caps: caps, perSubCount: make(map[int]int)}
}

// Threshold scans one subchannel's spectrum bins for power exceeding
// pulseThreshold and appends qualifying hits, honoring the per-subchannel
// and per-half-frame caps.
func (a *PulseAccumulator) Threshold(res, globalBinBase, spectrum int, sub int, bins []complex64, pol model.Polarization, pulseThreshold float32) {
	for bin, s := range bins {
		power := real(s)*real(s) + imag(s)*imag(s)
		if power <= pulseThreshold {
			continue
		}
		if len(a.hits) >= a.caps.MaxPerHalfFrame {
			a.droppedFrame++
			continue
		}
		if a.perSubCount[sub] >= a.caps.MaxPerSubchannelPerHalfFrame {
			a.droppedSub++
			continue
		}
		a.hits = append(a.hits, model.PulseHit{
			Res:       res,
			GlobalBin: globalBinBase + bin,
			Spectrum:  spectrum,
			Pol:       pol,
			Power:     power,
		})
		a.perSubCount[sub]++
	}
}

// Hits returns the accumulated, capped pulse hits.
func (a *PulseAccumulator) Hits() []model.PulseHit { return a.hits }

// Dropped returns how many candidate hits were dropped due to the
// per-subchannel and per-half-frame caps respectively.
func (a *PulseAccumulator) Dropped() (perSubchannel, perHalfFrame int) {
	return a.droppedSub, a.droppedFrame
}
