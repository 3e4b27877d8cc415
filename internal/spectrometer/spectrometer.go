package spectrometer

import "github.com/opensonata/dxcore/internal/model"

// SubchannelState is the per-subchannel, per-polarization working state
// carried across half-frames: the baseline scale, its warm-up counter,
// and one SpectrumBank per requested resolution.
type SubchannelState struct {
	Scale          float32
	HalfFrameCount int64
	Masked         bool

	Banks map[int]*SpectrumBank // resolution index -> bank
}

// NewSubchannelState allocates working state for one subchannel across
// the given resolution fftLens (index -> fft length).
func NewSubchannelState(resolutionFFTLens map[int]int) *SubchannelState {
	s := &SubchannelState{Scale: 1.0, Banks: make(map[int]*SpectrumBank, len(resolutionFFTLens))}
	for idx, fftLen := range resolutionFFTLens {
		s.Banks[idx] = NewSpectrumBank(fftLen)
	}
	return s
}

// Params bundles the per-activity configuration the spectrometer needs
// per half-frame, pulled from config.ActivityParams by the caller.
type Params struct {
	BaselineDecay       float64
	DaddResolutionIndex int
	PulseThresholds     map[int]float32 // resolution index -> pulseThreshold
	PulseCaps           PulseCaps
}

// Result carries everything produced for one subchannel's half-frame.
type Result struct {
	Baseline      BaselineStats
	CwSpectraEmitted int
	Pulses        []model.PulseHit
}

// ProcessHalfFrame runs the full per-subchannel pipeline of spec.md
// §4.3 steps 1-5 for one half-frame's worth of raw samples, writing CD
// and CW grid output and adding any pulse hits to pulseAcc. samples is mutated in
// place by the baseline rescale.
func ProcessHalfFrame(
	st *SubchannelState,
	sub int,
	globalBinBase int,
	pol model.Polarization,
	samples []complex64,
	cd *model.CDGrid,
	cwGrids map[int]*model.CwPowerGrid, // resolution index -> grid, only daddResolution populated by caller
	spectraEmitted map[int]int, // resolution index -> next spectrum slot, mutated
	params Params,
	pulseAcc *PulseAccumulator,
) {
	if st.Masked {
		EmitMaskedCD(cd, sub, len(samples))
		return
	}

	applied := updateBaseline(samples, &st.Scale, &st.HalfFrameCount, params.BaselineDecay)
	applyBaseline(samples, applied)

	EmitCD(samples, cd, sub)

	for resIdx, bank := range st.Banks {
		spectra := bank.Push(samples)
		for _, spec := range spectra {
			slot := spectraEmitted[resIdx]
			spectraEmitted[resIdx] = slot + 1

			if resIdx == params.DaddResolutionIndex {
				if grid, ok := cwGrids[resIdx]; ok {
					PackCwPower(spec, grid, slot)
				}
			}
			if thresh, ok := params.PulseThresholds[resIdx]; ok {
				pulseAcc.Threshold(resIdx, globalBinBase, slot, sub, spec, pol, thresh)
			}
		}
	}
}
