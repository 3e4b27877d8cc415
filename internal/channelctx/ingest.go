package channelctx

import (
	"github.com/opensonata/dxcore/internal/dxerr"
	"github.com/opensonata/dxcore/internal/model"
	"github.com/opensonata/dxcore/internal/spectrometer"
)

// OnPacket routes one received sample packet through the assembler and
// drains as many DFB/spectrometry half-frames as the resulting ring
// buffers now support.
func (c *Context) OnPacket(pkt *model.SamplePacket) error {
	if err := c.Assembler.OnPacket(pkt); err != nil {
		return err
	}
	return c.drainHalfFrames()
}

// drainHalfFrames repeatedly channelizes and spectrometers every
// complete half-frame's worth of samples now sitting in the ring
// buffers, until fewer than the DFB threshold for one half-frame remain.
// Each iteration is registered with the assembler so the ring buffers'
// done cursor advances as input is consumed.
func (c *Context) drainHalfFrames() error {
	samplesPerHF := c.Activity.SamplesPerHF
	needLeft := c.DFBLeft.Threshold(samplesPerHF)
	needRight := c.DFBRight.Threshold(samplesPerHF)

	for {
		_, _, readL, writeL := c.Assembler.Left.Cursors()
		_, _, readR, writeR := c.Assembler.Right.Cursors()
		if int64(needLeft) > writeL-readL || int64(needRight) > writeR-readR {
			return nil
		}

		c.Assembler.MarkIterationStarted(readL, needLeft)
		hf := c.pool.Alloc()
		inL := c.Assembler.Left.PeekAt(readL, needLeft)
		inR := c.Assembler.Right.PeekAt(readR, needRight)

		outsL := make([][]complex64, c.Activity.NumSub)
		outsR := make([][]complex64, c.Activity.NumSub)
		for sub := 0; sub < c.Activity.NumSub; sub++ {
			outsL[sub] = hf.Subchannel(hf.L, sub)
			outsR[sub] = hf.Subchannel(hf.R, sub)
		}

		consumedL, err := c.DFBLeft.Iterate(inL, outsL, samplesPerHF)
		if err != nil {
			c.pool.Free(hf)
			return dxerr.Wrap(dxerr.KindDetectionAnomaly, err, "left DFB iterate")
		}
		consumedR, err := c.DFBRight.Iterate(inR, outsR, samplesPerHF)
		if err != nil {
			c.pool.Free(hf)
			return dxerr.Wrap(dxerr.KindDetectionAnomaly, err, "right DFB iterate")
		}
		c.Assembler.Left.AdvanceRead(int64(consumedL))
		c.Assembler.Right.AdvanceRead(int64(consumedR))
		c.Assembler.MarkIterationDone(readL)

		c.processHalfFrame(hf)
		c.pool.Free(hf)
	}
}

// processHalfFrame runs the per-subchannel spectrometry pipeline for one
// channelized half-frame, accumulating CW grid bits, pulse hits, and
// bounded CD history across both polarizations.
func (c *Context) processHalfFrame(hf *model.HalfFrame) {
	cdLeft := model.NewCDGrid(c.Activity.NumSub, c.Activity.SamplesPerHF)
	cdRight := model.NewCDGrid(c.Activity.NumSub, c.Activity.SamplesPerHF)
	resFFTLens := make(map[int]int, len(c.Params.Resolutions))
	pulseThresholds := make(map[int]float32, len(c.Params.Resolutions))
	for i, r := range c.Params.PerResolution {
		resFFTLens[i] = c.Params.Resolutions[i].FFTLen
		if r.RequestPulse {
			pulseThresholds[i] = float32(r.PulseThreshold)
		}
	}

	pulseAccLeft := spectrometer.NewPulseAccumulator(c.pulseCaps)
	pulseAccRight := spectrometer.NewPulseAccumulator(c.pulseCaps)

	for sub := 0; sub < c.Activity.NumSub; sub++ {
		globalBinBase := sub * c.Params.Resolutions[c.Params.DaddResolutionIndex].FFTLen
		params := spectrometer.Params{
			BaselineDecay:       c.Params.BaselineDecay,
			DaddResolutionIndex: c.Params.DaddResolutionIndex,
			PulseThresholds:     pulseThresholds,
		}
		spectrometer.ProcessHalfFrame(
			c.subLeft[sub], sub, globalBinBase, model.PolLeftCircular, hf.Subchannel(hf.L, sub), cdLeft,
			map[int]*model.CwPowerGrid{c.Params.DaddResolutionIndex: c.detLeft[sub].cwGrid},
			c.detLeft[sub].spectraEmitted, params, pulseAccLeft,
		)
		spectrometer.ProcessHalfFrame(
			c.subRight[sub], sub, globalBinBase, model.PolRightCircular, hf.Subchannel(hf.R, sub), cdRight,
			map[int]*model.CwPowerGrid{c.Params.DaddResolutionIndex: c.detRight[sub].cwGrid},
			c.detRight[sub].spectraEmitted, params, pulseAccRight,
		)
	}

	c.mu.Lock()
	c.pulseHitsLeft = append(c.pulseHitsLeft, pulseAccLeft.Hits()...)
	c.pulseHitsRight = append(c.pulseHitsRight, pulseAccRight.Hits()...)
	c.appendCDHistory(cdLeft, cdRight)
	c.mu.Unlock()
}

// appendCDHistory records this half-frame's CD samples into each
// subchannel's bounded history ring, for later archive-channel
// synthesis. Callers hold c.mu.
func (c *Context) appendCDHistory(cdLeft, cdRight *model.CDGrid) {
	maxLen := archiveHistoryHalfFrames * c.Activity.SamplesPerHF
	for sub := 0; sub < c.Activity.NumSub; sub++ {
		rowL := make([]complex64, c.Activity.SamplesPerHF)
		rowR := make([]complex64, c.Activity.SamplesPerHF)
		for s := 0; s < c.Activity.SamplesPerHF; s++ {
			rowL[s] = cdLeft.ToComplex(sub, s)
			rowR[s] = cdRight.ToComplex(sub, s)
		}
		c.cdHistoryLeft[sub] = appendBounded(c.cdHistoryLeft[sub], rowL, maxLen)
		c.cdHistoryRight[sub] = appendBounded(c.cdHistoryRight[sub], rowR, maxLen)
	}
}

func appendBounded(dst, row []complex64, maxLen int) []complex64 {
	dst = append(dst, row...)
	if len(dst) > maxLen {
		dst = dst[len(dst)-maxLen:]
	}
	return dst
}
