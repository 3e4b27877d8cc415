// Package cluster implements spec.md §4.7: the N-way super-cluster
// merge across CW and pulse cluster lists, and the classification
// pipeline applied to each resulting super-cluster.
//
// Grounded on original_source/sig-pkg/dx/lib/SuperClusterer.cpp's
// cursor-merge `compute()` and `setTypeAndPol`.
package cluster

import "github.com/opensonata/dxcore/internal/model"

// Entry is one cluster (CW or pulse train) contributed by a child
// clusterer, ready for super-cluster merging.
type Entry struct {
	Kind           model.SignalKind
	Pol            model.Polarization
	Path           model.PathDescription
	Pulses         []model.Pulse
	PulsePeriodSec float64

	// Resolution, LoBin, and HiBin carry the cluster's native bin-space
	// span (before conversion to the Hz-space PathDescription), so
	// classification can test bad-band overlap in the same bin space
	// BadBand itself is keyed in.
	Resolution int
	LoBin      int
	HiBin      int
}

// isCW reports whether this entry's kind dominates a super-cluster's
// type the way SuperClusterer.cpp's CW_POWER case does.
func (e Entry) isCW() bool {
	return e.Kind == model.SignalCwPower || e.Kind == model.SignalCwFollowup
}

// Source is an ordered cluster list (by ascending nominal frequency),
// the Go counterpart of ChildClusterer: one CW clusterer or one pulse
// clusterer per polarization/resolution combination.
type Source interface {
	Count() int
	NominalFreqMHz(i int) float64
	Entry(i int) Entry
}

// SuperCluster is one merged signal spanning possibly many child
// clusters, the Go counterpart of SuperClusterDescription.
type SuperCluster struct {
	ID         uint64
	Kind       model.SignalKind
	Pol        model.Polarization
	HiBoundMHz float64
	Strongest  Entry
	Members    []Entry
}

// Compute merges all sources' cluster lists into super-clusters using
// an N-way cursor merge on ascending nominal frequency, absorbing a
// cluster into the running super-cluster whenever its frequency falls
// below the super-cluster's high bound (which is then extended by
// superClusterGapMHz), and starting a new super-cluster otherwise.
// Mirrors SuperClusterer::compute exactly.
func Compute(sources []Source, superClusterGapMHz float64, nextID func() uint64) []SuperCluster {
	n := len(sources)
	if n == 0 {
		return nil
	}
	index := make([]int, n)
	freq := make([]float64, n)
	active := make([]bool, n)
	for i, s := range sources {
		if s.Count() > 0 {
			active[i] = true
			freq[i] = s.NominalFreqMHz(0)
		}
	}

	var out []SuperCluster
	var lastSuper *SuperCluster

	for {
		nextList := -1
		for i := 0; i < n; i++ {
			if active[i] && (nextList < 0 || freq[i] < freq[nextList]) {
				nextList = i
			}
		}
		if nextList < 0 {
			break
		}

		entry := sources[nextList].Entry(index[nextList])
		if lastSuper != nil && freq[nextList] < lastSuper.HiBoundMHz {
			lastSuper.HiBoundMHz = freq[nextList] + superClusterGapMHz
			if entry.Path.Power > lastSuper.Strongest.Path.Power {
				lastSuper.Strongest = entry
			}
			lastSuper.Members = append(lastSuper.Members, entry)
			setTypeAndPol(entry, lastSuper)
		} else {
			sc := SuperCluster{
				ID:         nextID(),
				HiBoundMHz: freq[nextList] + superClusterGapMHz,
				Strongest:  entry,
				Members:    []Entry{entry},
				Pol:        entry.Pol,
			}
			if entry.isCW() {
				sc.Kind = model.SignalCwPower
			} else {
				sc.Kind = model.SignalPulseTrain
			}
			out = append(out, sc)
			lastSuper = &out[len(out)-1]
		}

		index[nextList]++
		if index[nextList] >= sources[nextList].Count() {
			active[nextList] = false
		} else {
			freq[nextList] = sources[nextList].NominalFreqMHz(index[nextList])
		}
	}
	return out
}

// setTypeAndPol mirrors SuperClusterer::setTypeAndPol: any supercluster
// containing a CW signal becomes CW (a supercluster is pulse-only if it
// contains no CW signals at all). A CW supercluster is POL_BOTH if it
// contains signals of both polarizations; a pulse supercluster is
// POL_BOTH only if built entirely from POL_BOTH pulses, and POL_MIXED if
// its pulses disagree in polarization.
func setTypeAndPol(e Entry, super *SuperCluster) {
	if e.isCW() {
		super.Kind = model.SignalCwPower
		switch super.Pol {
		case model.PolLeftCircular, model.PolRightCircular:
			if e.Pol != super.Pol {
				super.Pol = model.PolBoth
			}
		case model.PolMixed:
			super.Pol = model.PolBoth
		}
		return
	}
	switch super.Kind {
	case model.SignalCwPower:
		if e.Pol != super.Pol {
			super.Pol = model.PolBoth
		}
	case model.SignalPulseTrain:
		if e.Pol != super.Pol {
			super.Pol = model.PolMixed
		}
	}
}
