package channelctx

// subchannelCenterMHz returns the RF center frequency of subchannel sub
// within the activity's tuned wide channel.
func (c *Context) subchannelCenterMHz(sub int) float64 {
	subWidth := c.Params.ChannelWidthMHz / float64(c.Activity.NumSub)
	lowEdge := c.Params.TunedFreqMHz - c.Params.ChannelWidthMHz/2
	return lowEdge + (float64(sub)+0.5)*subWidth
}

// binFreqMHz maps a DC-centered bin index at the given resolution, within
// subchannel sub, to an absolute RF frequency in MHz, per spec.md §4.4's
// "frequency = low-bin-of-cluster mapped to MHz".
func (c *Context) binFreqMHz(sub, bin, resolution int) float64 {
	fftLen := c.Params.Resolutions[resolution].FFTLen
	binHz := c.Params.Resolutions[resolution].BinHz
	center := c.subchannelCenterMHz(sub)
	return center + float64(bin-fftLen/2)*binHz/1e6
}

// binHz returns the spectral bin width in Hz for the given resolution.
func (c *Context) binHz(resolution int) float64 {
	return c.Params.Resolutions[resolution].BinHz
}

// driftHz converts a DADD path's total bin drift (over the whole
// observation) to a Hz excursion, per spec.md §4.4's "drift = hit-drift-
// in-Hz per observation duration".
func (c *Context) driftHz(driftBins int, resolution int) float64 {
	return float64(driftBins) * c.binHz(resolution)
}
