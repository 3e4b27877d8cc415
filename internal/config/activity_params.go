// Package config defines the per-activity parameter set (spec.md §6) and
// the observing-site metadata attached to science output, loadable from
// YAML for local ops in addition to the wire CONFIGURE_DX path.
package config

import (
	"math/bits"
	"os"

	"github.com/opensonata/dxcore/internal/dxerr"
	"gopkg.in/yaml.v3"
)

// Resolution names one entry of the per-subchannel FFT pyramid: a
// spectral bin width in Hz and the FFT length needed to produce it.
type Resolution struct {
	BinHz    float64 `yaml:"binHz"`
	FFTLen   int     `yaml:"fftLen"`
}

// BaselineLimits is the shared shape of baselineWarningLimits and
// baselineErrorLimits.
type BaselineLimits struct {
	Mean      float64 `yaml:"mean"`
	Range     float64 `yaml:"range"`
	StdDevPct float64 `yaml:"stdDevPct"`
}

// PerResolution holds the three threshold families that are configured
// independently for each entry of Resolutions, in the same order.
type PerResolution struct {
	PulseThreshold   float64 `yaml:"pulseThreshold"`
	TripletThreshold float64 `yaml:"tripletThreshold"`
	SingletThreshold float64 `yaml:"singletThreshold"`
	RequestPulse     bool    `yaml:"requestPulse"`
}

// ActivityParams is the full recognized-options set of spec.md §6.
type ActivityParams struct {
	DataCollectionLength uint32 `yaml:"dataCollectionLength"` // half-frames, requested
	MaxFrames            uint32 `yaml:"maxFrames"`
	NumSubchannels       int    `yaml:"numSubchannels"`
	SamplesPerHF         int    `yaml:"samplesPerHF"`

	Resolutions   []Resolution    `yaml:"resolutions"`
	PerResolution []PerResolution `yaml:"perResolution"`

	DaddResolutionIndex int     `yaml:"daddResolutionIndex"`
	DaddThreshold       float64 `yaml:"daddThreshold"`

	BaselineInitAccumHalfFrames int64          `yaml:"baselineInitAccumHalfFrames"`
	BaselineDecay               float64        `yaml:"baselineDecay"`
	BaselineReportingRate       int            `yaml:"baselineReportingRate"`
	BaselineWarningLimits       BaselineLimits `yaml:"baselineWarningLimits"`
	BaselineErrorLimits         BaselineLimits `yaml:"baselineErrorLimits"`

	MaxPulsesPerHalfFrame            int `yaml:"maxPulsesPerHalfFrame"`
	MaxPulsesPerSubchannelPerHalfFrame int `yaml:"maxPulsesPerSubchannelPerHalfFrame"`
	MaxNumberOfCandidates            int `yaml:"maxNumberOfCandidates"`

	CwClusteringDeltaFreq   float64 `yaml:"cwClusteringDeltaFreq"`
	PulseClusteringDeltaFreq float64 `yaml:"pulseClusteringDeltaFreq"`
	ClusteringFreqTolerance float64 `yaml:"clusteringFreqTolerance"`
	SuperClusterGapHz       float64 `yaml:"superClusterGapHz"`

	BadBandCwPathLimit        float64 `yaml:"badBandCwPathLimit"`
	BadBandPulseLimit         float64 `yaml:"badBandPulseLimit"`
	BadBandPulseTripletLimit  float64 `yaml:"badBandPulseTripletLimit"`

	CwCoherentThreshold          float64 `yaml:"cwCoherentThreshold"`
	SecondaryCwCoherentThreshold float64 `yaml:"secondaryCwCoherentThreshold"`
	SecondaryPfaMargin           float64 `yaml:"secondaryPfaMargin"`

	ZeroDriftTolerance    float64 `yaml:"zeroDriftTolerance"`
	MaxDriftRateTolerance float64 `yaml:"maxDriftRateTolerance"`

	SubchannelsPerArchiveChannel int     `yaml:"subchannelsPerArchiveChannel"`
	ArchiveSignalChannelWidthHz  float64 `yaml:"archiveSignalChannelWidthHz"`
	CoherentMicroDriftLen        int     `yaml:"coherentMicroDriftLen"` // power-of-two M

	// TunedFreqMHz and ChannelWidthMHz locate the activity's wide channel
	// on the sky, set from the DX_TUNED control message rather than this
	// YAML file in normal operation; they are recognized options here so
	// bench/replay tooling can drive the same pipeline without a control
	// connection.
	TunedFreqMHz    float64 `yaml:"tunedFreqMHz"`
	ChannelWidthMHz float64 `yaml:"channelWidthMHz"`

	OperationNames []string `yaml:"operations"`
	Operations     Operations `yaml:"-"`
}

// Load reads and strictly decodes a YAML activity-parameter file: unknown
// keys are a configuration error, matching spec.md §7's "configuration
// errors ... fail the activity definition" rule.
func Load(path string) (*ActivityParams, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dxerr.Wrap(dxerr.KindConfiguration, err, "opening activity parameters file %q", path)
	}
	defer f.Close()

	var p ActivityParams
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, dxerr.Wrap(dxerr.KindConfiguration, err, "parsing activity parameters file %q", path)
	}
	if err := p.Normalize(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Normalize rounds DataCollectionLength down to the nearest power-of-two
// frame count within MaxFrames, resolves the operations bitset from
// OperationNames, and validates resolution-indexed slice lengths, per
// spec.md §6.
func (p *ActivityParams) Normalize() error {
	if len(p.PerResolution) != len(p.Resolutions) {
		return dxerr.New(dxerr.KindConfiguration,
			"perResolution has %d entries, want %d (one per resolution)",
			len(p.PerResolution), len(p.Resolutions))
	}
	if p.DaddResolutionIndex < 0 || p.DaddResolutionIndex >= len(p.Resolutions) {
		return dxerr.New(dxerr.KindConfiguration,
			"daddResolutionIndex %d out of range [0,%d)", p.DaddResolutionIndex, len(p.Resolutions))
	}

	frames := p.DataCollectionLength / 2 // a frame is two half-frames
	if frames == 0 {
		return dxerr.New(dxerr.KindConfiguration, "dataCollectionLength must cover at least one frame")
	}
	pow2 := uint32(1) << (bits.Len32(frames) - 1)
	if p.MaxFrames > 0 && pow2 > p.MaxFrames {
		pow2 = uint32(1) << (bits.Len32(p.MaxFrames) - 1)
	}
	p.DataCollectionLength = pow2 * 2

	ops, err := ParseOperationNames(p.OperationNames)
	if err != nil {
		return err
	}
	p.Operations = ops
	return nil
}

// RequestedPulseResolutions returns the indices into Resolutions for
// which pulse detection was requested.
func (p *ActivityParams) RequestedPulseResolutions() []int {
	var out []int
	for i, r := range p.PerResolution {
		if r.RequestPulse {
			out = append(out, i)
		}
	}
	return out
}
