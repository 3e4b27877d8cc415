// Package channelctx orchestrates one activity's full pipeline: packet
// intake, assembly, DFB channelization, spectrometry, CW/pulse
// detection, clustering, classification, and archive-based coherent
// re-detection. It is the Go counterpart of the teacher's per-channel
// goroutine wiring (internal/transport's Serve/JoinMulticast accept-
// loop-plus-worker-goroutine idiom, generalized from one connection per
// goroutine to one half-frame per worker).
package channelctx

import (
	"context"
	"sync"

	"github.com/opensonata/dxcore/internal/assembler"
	"github.com/opensonata/dxcore/internal/config"
	"github.com/opensonata/dxcore/internal/dfb"
	"github.com/opensonata/dxcore/internal/logging"
	"github.com/opensonata/dxcore/internal/model"
	"github.com/opensonata/dxcore/internal/spectrometer"
)

// archiveHistoryHalfFrames bounds how many half-frames of CD data per
// subchannel are retained for archive-channel synthesis (spec.md §4.6);
// a CW candidate's coherent re-detection only ever needs a handful of
// half-frames around the DADD window that produced it, so the history
// is a bounded ring rather than the whole activity's CD stream.
const archiveHistoryHalfFrames = 64

// subchannelDetect is one subchannel's accumulated CW detection input:
// a power grid at the DADD resolution spanning the whole activity, and
// the per-resolution spectrum-emission counters spectrometer.ProcessHalfFrame
// needs threaded across half-frame calls.
type subchannelDetect struct {
	cwGrid         *model.CwPowerGrid
	spectraEmitted map[int]int
}

// Context owns everything needed to run one activity end to end: the
// shared Activity state, the packet assembler, the two polarizations'
// DFB filters, per-subchannel spectrometer state, and the accumulated
// detection inputs (CW power grids, pulse hits, CD history) that
// Finalize consumes once data collection completes.
type Context struct {
	Log      *logging.Logger
	Activity *model.Activity
	Params   *config.ActivityParams
	Site     config.Site

	Assembler *assembler.Assembler
	DFBLeft   *dfb.Filter
	DFBRight  *dfb.Filter

	pool *model.Pool

	subLeft  []*spectrometer.SubchannelState
	subRight []*spectrometer.SubchannelState

	detLeft  []*subchannelDetect
	detRight []*subchannelDetect

	metrics *spectrometer.Metrics

	mu             sync.Mutex
	pulseCaps      spectrometer.PulseCaps
	pulseHitsLeft  []model.PulseHit
	pulseHitsRight []model.PulseHit

	// cdHistory[sub] is a ring of archiveHistoryHalfFrames concatenated
	// CD samples for that subchannel, used to synthesize archive
	// channels around a CW candidate's DADD window.
	cdHistoryLeft  [][]complex64
	cdHistoryRight [][]complex64
	cdHistoryNext  int
	cdHistoryCount int
}

// New constructs a Context for one activity, wiring fresh per-subchannel
// spectrometer and detection state sized to params. New leaves Assembler,
// DFBLeft and DFBRight nil: creating the assembler (with its start time)
// and configuring the DFB filters (coefficients, FFT length, overlap) is
// the caller's responsibility, performed once per activity after the
// CONFIGURE_DX/START_TIME handshake.
func New(log *logging.Logger, activity *model.Activity, params *config.ActivityParams, site config.Site, metrics *spectrometer.Metrics) *Context {
	numSub := activity.NumSub
	resFFTLens := make(map[int]int, len(params.Resolutions))
	for i, r := range params.Resolutions {
		resFFTLens[i] = r.FFTLen
	}
	daddFFTLen := params.Resolutions[params.DaddResolutionIndex].FFTLen
	totalSamples := int64(params.DataCollectionLength) * int64(activity.SamplesPerHF)
	totalSpectra := int(totalSamples/int64(daddFFTLen/2)) + 1

	c := &Context{
		Log:      log,
		Activity: activity,
		Params:   params,
		Site:     site,
		metrics:  metrics,

		subLeft:  make([]*spectrometer.SubchannelState, numSub),
		subRight: make([]*spectrometer.SubchannelState, numSub),
		detLeft:  make([]*subchannelDetect, numSub),
		detRight: make([]*subchannelDetect, numSub),

		cdHistoryLeft:  make([][]complex64, numSub),
		cdHistoryRight: make([][]complex64, numSub),
	}
	for i := 0; i < numSub; i++ {
		c.subLeft[i] = spectrometer.NewSubchannelState(resFFTLens)
		c.subRight[i] = spectrometer.NewSubchannelState(resFFTLens)
		c.detLeft[i] = &subchannelDetect{
			cwGrid:         model.NewCwPowerGrid(daddFFTLen, totalSpectra),
			spectraEmitted: make(map[int]int, len(params.Resolutions)),
		}
		c.detRight[i] = &subchannelDetect{
			cwGrid:         model.NewCwPowerGrid(daddFFTLen, totalSpectra),
			spectraEmitted: make(map[int]int, len(params.Resolutions)),
		}
	}

	c.pulseCaps = spectrometer.PulseCaps{
		MaxPerSubchannelPerHalfFrame: params.MaxPulsesPerSubchannelPerHalfFrame,
		MaxPerHalfFrame:              params.MaxPulsesPerHalfFrame,
	}

	c.pool = model.NewPool(4, numSub, activity.SamplesPerHF)
	return c
}

// Stop blocks until ctx is cancelled; it exists so callers can park a
// goroutine on activity teardown without importing context themselves.
func (c *Context) Stop(ctx context.Context) {
	<-ctx.Done()
}
