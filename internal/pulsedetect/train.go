package pulsedetect

import (
	"math"
	"sort"

	"github.com/opensonata/dxcore/internal/model"
	"gonum.org/v1/gonum/mathext"
)

// ClusterRange is the default mid-bin absorption window for pulse
// trains, matching PulseClusterer.cpp's `clusterRange(20)` constructor
// default (wider than CW's 3 bins, since triplet legs spread further).
const ClusterRange = 20

// MaxTrainPulses caps the number of distinct-spectrum pulses retained
// per train, mirroring PulseClusterer::Train::addPulse's MAX_TRAIN_PULSES
// guard. The defining constant did not survive distillation into the
// retrieval pack; 64 is this implementation's own choice.
const MaxTrainPulses = 64

// Train is one pulse-train candidate formed by clustering triplets,
// the Go counterpart of PulseClusterer.cpp's Train/PulseSignalHeader.
type Train struct {
	StartBin     float64
	DriftBins    float64
	WidthBins    int
	Power        float32
	Pol          model.Polarization
	Pulses       []model.Pulse
	PeriodBins   int // most common inter-pulse spectrum gap
	SNR          float64
	LogPFA       float64
}

// fittedTriplet is a triplet plus its regression-derived mid-bin key,
// ready for ordered absorption.
type fittedTriplet struct {
	mid   float64
	t     Triplet
	start float64
	drift float64
}

// ClusterTriplets scans triplets in ascending mid-bin order and absorbs
// them into trains, mirroring PulseClusterer::allHitsLoaded/absorb
// exactly: the train's high edge is replaced (not merely extended) by
// each absorbed triplet's mid-bin.
func ClusterTriplets(triplets []Triplet, bins, spectra int, pulseThreshold float32, clusterRange float64) []Train {
	if len(triplets) == 0 {
		return nil
	}
	if clusterRange <= 0 {
		clusterRange = ClusterRange
	}

	fitted := make([]fittedTriplet, 0, len(triplets))
	for _, t := range triplets {
		start, drift, ok := fitTriplet(t)
		if !ok {
			continue
		}
		fitted = append(fitted, fittedTriplet{mid: midBin(start, drift), t: t, start: start, drift: drift})
	}
	sort.Slice(fitted, func(i, j int) bool { return fitted[i].mid < fitted[j].mid })

	var trains []Train
	var acc trainAccum
	first := true
	for _, f := range fitted {
		switchCluster := first || f.mid > acc.hiBin+clusterRange
		if switchCluster {
			if !first {
				trains = append(trains, acc.finish(bins, spectra, pulseThreshold))
			}
			first = false
			acc = newTrainAccum(f)
			continue
		}
		acc.absorb(f)
	}
	if !first {
		trains = append(trains, acc.finish(bins, spectra, pulseThreshold))
	}
	return trains
}

type trainAccum struct {
	loBin, hiBin float64
	period       map[int]int
	pulses       map[int]model.PulseHit // spectrum -> strongest pulse
	order        []int                  // insertion order of spectra, for MaxTrainPulses capping
}

func newTrainAccum(f fittedTriplet) trainAccum {
	acc := trainAccum{loBin: f.mid, hiBin: f.mid, period: make(map[int]int), pulses: make(map[int]model.PulseHit)}
	acc.period[f.t.P1.Spectrum-f.t.P0.Spectrum]++
	acc.addPulse(f.t.P0)
	acc.addPulse(f.t.P1)
	acc.addPulse(f.t.P2)
	return acc
}

func (a *trainAccum) absorb(f fittedTriplet) {
	a.period[f.t.P1.Spectrum-f.t.P0.Spectrum]++
	a.hiBin = f.mid
	a.addPulse(f.t.P0)
	a.addPulse(f.t.P1)
	a.addPulse(f.t.P2)
}

func (a *trainAccum) addPulse(h model.PulseHit) {
	if existing, ok := a.pulses[h.Spectrum]; ok {
		if h.Power > existing.Power {
			a.pulses[h.Spectrum] = h
		}
		return
	}
	if len(a.pulses) >= MaxTrainPulses {
		return
	}
	a.pulses[h.Spectrum] = h
	a.order = append(a.order, h.Spectrum)
}

func (a *trainAccum) finish(bins, spectra int, pulseThreshold float32) Train {
	ordered := make([]model.PulseHit, 0, len(a.pulses))
	for _, spec := range a.order {
		ordered = append(ordered, a.pulses[spec])
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Spectrum < ordered[j].Spectrum })

	startBin, driftPerSpectrum, ok := fitPulses(ordered)
	if !ok {
		startBin, driftPerSpectrum = a.loBin, 0
	}

	var totalPower float32
	pol := model.PolUnknown
	n := 0
	pulses := make([]model.Pulse, 0, len(ordered))
	for i, h := range ordered {
		if i == 0 {
			pol = h.Pol
		} else if pol != h.Pol {
			pol = model.PolMixed
		}
		totalPower += h.Power
		n++
		if h.Pol == model.PolBoth {
			n++
		}
		pulses = append(pulses, model.Pulse{Power: h.Power, Spectrum: h.Spectrum, Bin: h.GlobalBin, Pol: h.Pol})
	}

	hiCount, period := 0, 0
	for p, count := range a.period {
		if count > hiCount {
			hiCount, period = count, p
		}
	}

	snr := 0.0
	if n > 0 {
		snr = float64(totalPower-float32(n)) / float64(n)
	}
	logPFA := computePFA(bins, spectra, n, totalPower, pulseThreshold)

	return Train{
		StartBin:   startBin,
		DriftBins:  driftPerSpectrum * float64(spectra),
		WidthBins:  int(1 + a.hiBin - a.loBin),
		Power:      totalPower,
		Pol:        pol,
		Pulses:     pulses,
		PeriodBins: period,
		SNR:        snr,
		LogPFA:     logPFA,
	}
}

// computePFA mirrors PulseClusterer::computePfa: pulse probability is
// doubled for dual-polarization coverage, the base false-alarm estimate
// scales with the combinatorial triplet space, and a chi-square
// correction accounts for power in excess of n·pulseThreshold.
func computePFA(bins, spectra, n int, power float32, pulseThreshold float32) float64 {
	if n <= 0 {
		return -math.MaxFloat32
	}
	pPulse := 2 * math.Exp(-float64(pulseThreshold))
	pfa := float64(bins) * math.Pow(4.0, float64(n-2)) * math.Pow(float64(spectra), 3) * math.Pow(pPulse, float64(n)) / 3.0

	var logPFA float64
	if pfa < math.SmallestNonzeroFloat64 {
		logPFA = -math.MaxFloat32
	} else {
		logPFA = math.Log(pfa)
	}

	excess := float64(power) - float64(n)*float64(pulseThreshold)
	if excess < 0 {
		excess = 0
	}
	logPFA += chiSquareLogSurvival(2*n, 2*excess)
	if logPFA < -math.MaxFloat32 {
		logPFA = -math.MaxFloat32
	}
	return logPFA
}

// chiSquareLogSurvival returns log(P(X > x)) for X ~ chi-square(df),
// via gonum's regularized upper incomplete gamma function.
func chiSquareLogSurvival(df int, x float64) float64 {
	if x <= 0 {
		return 0
	}
	q := mathext.GammaIncRegComp(float64(df)/2, x/2)
	if q <= 0 {
		return -math.MaxFloat32
	}
	return math.Log(q)
}
