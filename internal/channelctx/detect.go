package channelctx

import (
	"sort"

	"github.com/google/uuid"

	"github.com/opensonata/dxcore/internal/archive"
	"github.com/opensonata/dxcore/internal/cluster"
	"github.com/opensonata/dxcore/internal/cwdetect"
	"github.com/opensonata/dxcore/internal/model"
	"github.com/opensonata/dxcore/internal/pulsedetect"
)

// sortedSource is a cluster.Source backed by a pre-sorted (ascending
// nominal frequency) slice of entries, the Go counterpart of one
// ChildClusterer feeding SuperClusterer::compute.
type sortedSource struct {
	entries []cluster.Entry
}

func (s *sortedSource) Count() int { return len(s.entries) }
func (s *sortedSource) NominalFreqMHz(i int) float64 {
	return s.entries[i].Path.RFFreqMHz
}
func (s *sortedSource) Entry(i int) cluster.Entry { return s.entries[i] }

func newSortedSource(entries []cluster.Entry) *sortedSource {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path.RFFreqMHz < entries[j].Path.RFFreqMHz })
	return &sortedSource{entries: entries}
}

// Finalize runs CW detection, pulse detection, super-clustering, and
// classification (including archive-based coherent re-detection of CW
// super-clusters) over everything accumulated during the activity's
// data-collection window, appending the resulting classified signals to
// the activity's candidate list. Callers hold no Activity lock going in;
// Finalize takes it only while mutating Activity.
func (c *Context) Finalize(rfi, testSignals, followUps []cluster.FreqWindow) {
	resIdx := c.Params.DaddResolutionIndex
	daddThreshold := c.Params.DaddThreshold
	badBandLimit := c.Params.BadBandCwPathLimit
	channelWidthKHz := c.Params.ChannelWidthMHz * 1000

	var cwEntries []cluster.Entry
	for sub := 0; sub < c.Activity.NumSub; sub++ {
		for _, d := range []struct {
			grid *model.CwPowerGrid
			pol  model.Polarization
		}{
			{c.detLeft[sub].cwGrid, model.PolLeftCircular},
			{c.detRight[sub].cwGrid, model.PolRightCircular},
		} {
			res := cwdetect.DetectPol(d.grid, d.pol, resIdx, daddThreshold, badBandLimit, channelWidthKHz, cwdetect.ClusterRange)
			for _, bb := range res.BadBands {
				bb.CenterBin += sub * c.Params.Resolutions[resIdx].FFTLen
				c.Activity.Lock()
				c.Activity.AddBadBand(bb)
				c.Activity.Unlock()
			}
			for _, cl := range res.Clusters {
				cwEntries = append(cwEntries, cluster.Entry{
					Kind: model.SignalCwPower,
					Pol:  cl.Pol,
					Path: model.PathDescription{
						RFFreqMHz: c.binFreqMHz(sub, cl.StartBin, resIdx),
						DriftHz:   c.driftHz(cl.Drift, resIdx),
						WidthHz:   float64(cl.WidthBins) * c.binHz(resIdx),
						Power:     cl.Power,
					},
					Resolution: resIdx,
					LoBin:      sub*c.Params.Resolutions[resIdx].FFTLen + cl.StartBin,
					HiBin:      sub*c.Params.Resolutions[resIdx].FFTLen + cl.StartBin + cl.WidthBins,
				})
			}
		}
	}

	pulseEntries := c.detectPulses()

	sources := []cluster.Source{newSortedSource(cwEntries), newSortedSource(pulseEntries)}
	c.Activity.Lock()
	superClusters := cluster.Compute(sources, c.Params.SuperClusterGapHz/1e6, c.Activity.NextSuperClusterID)
	c.Activity.Unlock()

	candidatesSoFar := 0
	for _, sc := range superClusters {
		passed := true
		confirm := model.ConfirmationMetrics{}
		if sc.Kind == model.SignalCwPower {
			confirm, passed = c.confirmCwCandidate(sc)
		}

		c.Activity.Lock()
		class, reason, containsBadBands := cluster.Classify(
			sc, passed, rfi, testSignals, followUps, &candidatesSoFar, c.Activity.BadBands,
			cluster.ClassifyParams{
				Operations:              c.Params.Operations,
				ZeroDriftToleranceHz:     c.Params.ZeroDriftTolerance,
				MaxDriftRateToleranceHz:  c.Params.MaxDriftRateTolerance,
				MaxNumberOfCandidates:    c.Params.MaxNumberOfCandidates,
			},
		)
		cand := &model.CandidateSignal{
			GlobalID:         uuid.New(),
			SuperClusterID:   sc.ID,
			Kind:             sc.Kind,
			Pol:              sc.Pol,
			Path:             sc.Strongest.Path,
			Class:            class,
			Reason:           reason,
			Confirm:          confirm,
			Pulses:           sc.Strongest.Pulses,
			PulsePeriodSec:   sc.Strongest.PulsePeriodSec,
			ContainsBadBands: containsBadBands,
		}
		c.Activity.AddCandidate(cand)
		c.Activity.Unlock()
	}
}

// confirmCwCandidate synthesizes an archive channel around a CW
// super-cluster's strongest member, dedrifts and heterodynes it per
// polarization, and runs the coherent search to obtain a refined PFA/SNR
// and a pass/fail verdict, per spec.md §4.6.
func (c *Context) confirmCwCandidate(sc cluster.SuperCluster) (model.ConfirmationMetrics, bool) {
	fftLen := c.Params.Resolutions[sc.Strongest.Resolution].FFTLen
	centerSub := sc.Strongest.LoBin / fftLen

	nAC := c.Params.SubchannelsPerArchiveChannel
	if nAC < 1 {
		nAC = 1
	}
	subStart := centerSub - nAC/2
	if subStart+nAC > c.Activity.NumSub {
		subStart = c.Activity.NumSub - nAC
	}
	if subStart < 0 {
		subStart = 0
	}

	c.mu.Lock()
	leftSubs := make([][]complex64, nAC)
	rightSubs := make([][]complex64, nAC)
	for i := 0; i < nAC; i++ {
		leftSubs[i] = append([]complex64(nil), c.cdHistoryLeft[subStart+i]...)
		rightSubs[i] = append([]complex64(nil), c.cdHistoryRight[subStart+i]...)
	}
	c.mu.Unlock()

	subWidthMHz := c.Params.ChannelWidthMHz / float64(c.Activity.NumSub)
	subBandwidthHz := subWidthMHz * 1e6
	acBandwidthHz := subBandwidthHz * float64(nAC)

	acLeft := archive.Synthesize(leftSubs)
	acRight := archive.Synthesize(rightSubs)

	lowEdgeMHz := c.Params.TunedFreqMHz - c.Params.ChannelWidthMHz/2 + float64(subStart)*subWidthMHz
	acCenterMHz := lowEdgeMHz + float64(nAC)*subWidthMHz/2
	deltaFreqHz := (sc.Strongest.Path.RFFreqMHz - acCenterMHz) * 1e6

	halfFrameDurationSec := float64(c.Activity.SamplesPerHF) / subBandwidthHz
	obsDurationSec := float64(c.Params.DataCollectionLength) * halfFrameDurationSec
	var driftHzPerSec float64
	if obsDurationSec > 0 {
		driftHzPerSec = sc.Strongest.Path.DriftHz / obsDurationSec
	}

	dedriftedLeft := archive.Dedrift(acLeft, acBandwidthHz, deltaFreqHz, driftHzPerSec, acBandwidthHz)
	dedriftedRight := archive.Dedrift(acRight, acBandwidthHz, deltaFreqHz, driftHzPerSec, acBandwidthHz)

	samplesPerBlk := archive.SamplesPerBlock(acBandwidthHz, c.Params.ArchiveSignalChannelWidthHz)
	signalLeft := fitLength(archive.Heterodyne(dedriftedLeft, samplesPerBlk), c.Params.CoherentMicroDriftLen)
	signalRight := fitLength(archive.Heterodyne(dedriftedRight, samplesPerBlk), c.Params.CoherentMicroDriftLen)

	m := c.Params.CoherentMicroDriftLen
	if m < 1 {
		m = 1
	}
	binHz := c.Params.ArchiveSignalChannelWidthHz / float64(m)
	resLeft := archive.CoherentSearch(signalLeft, m, binHz, c.Params.ArchiveSignalChannelWidthHz)
	resRight := archive.CoherentSearch(signalRight, m, binHz, c.Params.ArchiveSignalChannelWidthHz)

	best, _ := archive.CombinePol(resLeft, resRight, c.Params.CwCoherentThreshold)
	passed := best.PFA <= c.Params.CwCoherentThreshold
	return model.ConfirmationMetrics{PFA: best.PFA, SNR: best.SNR}, passed
}

// fitLength truncates s to its last m samples, or left-pads with zeros
// if shorter, so CoherentSearch always receives a power-of-two signal
// channel of exactly length m.
func fitLength(s []complex64, m int) []complex64 {
	if m < 1 {
		m = 1
	}
	if len(s) >= m {
		return s[len(s)-m:]
	}
	out := make([]complex64, m)
	copy(out[m-len(s):], s)
	return out
}

// detectPulses runs the triplet search and train clustering over every
// requested pulse resolution's merged (both-pol) hit map, returning one
// cluster.Entry per resulting train.
func (c *Context) detectPulses() []cluster.Entry {
	merged := pulsedetect.MergeHits(c.pulseHitsLeft, c.pulseHitsRight)

	var out []cluster.Entry
	for _, resIdx := range c.Params.RequestedPulseResolutions() {
		var hits []model.PulseHit
		for _, h := range merged {
			if h.Res == resIdx {
				hits = append(hits, h)
			}
		}
		if len(hits) == 0 {
			continue
		}
		pr := c.Params.PerResolution[resIdx]
		fftLen := c.Params.Resolutions[resIdx].FFTLen
		sp := pulsedetect.SliceParams{
			BinsPerSpectrum:  fftLen * c.Activity.NumSub,
			BinsPerSlice:     fftLen,
			OverlapBins:      fftLen / 8,
			MaxDrift:         1.0,
			TripletThreshold: float32(pr.TripletThreshold),
			PulseLimit:       c.Params.MaxPulsesPerSubchannelPerHalfFrame,
			TripletLimit:     c.Params.MaxPulsesPerSubchannelPerHalfFrame,
		}
		triplets, badBands := pulsedetect.FindTriplets(hits, sp)
		for _, bb := range badBands {
			c.Activity.Lock()
			c.Activity.AddBadBand(model.BadBand{
				CenterBin: bb.StartBin + bb.WidthBins/2, WidthBins: bb.WidthBins,
				Resolution: resIdx, Pulses: bb.Pulses, Triplets: bb.Triplets,
			})
			c.Activity.Unlock()
		}

		spectra := int(c.Params.DataCollectionLength)
		trains := pulsedetect.ClusterTriplets(triplets, sp.BinsPerSpectrum, spectra, float32(pr.PulseThreshold), pulsedetect.ClusterRange)
		for _, tr := range trains {
			sub := int(tr.StartBin) / fftLen
			localBin := int(tr.StartBin) % fftLen
			pulses := make([]model.Pulse, len(tr.Pulses))
			for i, p := range tr.Pulses {
				pulses[i] = model.Pulse{
					RFFreqMHz: c.binFreqMHz(p.Bin/fftLen, p.Bin%fftLen, resIdx),
					Power:     p.Power, Spectrum: p.Spectrum, Bin: p.Bin, Pol: p.Pol,
				}
			}
			out = append(out, cluster.Entry{
				Kind: model.SignalPulseTrain,
				Pol:  tr.Pol,
				Path: model.PathDescription{
					RFFreqMHz: c.binFreqMHz(sub, localBin, resIdx),
					DriftHz:   c.driftHz(int(tr.DriftBins), resIdx),
					WidthHz:   float64(tr.WidthBins) * c.binHz(resIdx),
					Power:     tr.Power,
				},
				Pulses:         pulses,
				// Spectra are 50% overlapped, so consecutive spectra are
				// 1/(2·binHz) seconds apart.
				PulsePeriodSec: float64(tr.PeriodBins) / (2 * c.binHz(resIdx)),
				Resolution:     resIdx,
				LoBin:          int(tr.StartBin),
				HiBin:          int(tr.StartBin) + tr.WidthBins,
			})
		}
	}
	return out
}
