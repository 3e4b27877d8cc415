package cwdetect

import (
	"sort"

	"github.com/opensonata/dxcore/internal/model"
)

// ClusterRange is the default mid-bin absorption range (spec.md §4.4),
// matching CwClusterer.cpp's `clusterRange(3)` constructor default.
const ClusterRange = 3

// Cluster is one CW signal path formed by absorbing adjacent DADD hits,
// the Go counterpart of CwClusterer.cpp's internal Cluster/CwPowerSignal.
type Cluster struct {
	Pol       model.Polarization
	StartBin  int
	Drift     int
	WidthBins int
	Power     float32
}

// Clusterer absorbs CW hits in ascending mid-bin order into clusters,
// mirroring CwClusterer::absorb/clusterDone exactly: a cluster's high
// edge is replaced by each absorbed hit's mid-bin (not merely extended),
// and the cluster's representative hit is always the strongest-power
// one seen so far.
type Clusterer struct {
	pol          model.Polarization
	clusterRange float64
}

// NewClusterer builds a clusterer for one polarization's CW hits.
func NewClusterer(pol model.Polarization, clusterRange float64) *Clusterer {
	if clusterRange <= 0 {
		clusterRange = ClusterRange
	}
	return &Clusterer{pol: pol, clusterRange: clusterRange}
}

// Cluster scans hits in ascending mid-bin order and returns the
// resulting clusters.
func (c *Clusterer) Cluster(hits []model.CwHit) []Cluster {
	if len(hits) == 0 {
		return nil
	}
	ordered := append([]model.CwHit(nil), hits...)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].MidBin() < ordered[j].MidBin()
	})

	var out []Cluster
	var cur clusterAccum
	first := true
	for _, h := range ordered {
		mid := h.MidBin()
		switchCluster := first || mid > cur.hiBin+c.clusterRange
		if switchCluster {
			if !first {
				out = append(out, cur.finish(c.pol))
			}
			first = false
			cur = clusterAccum{loBin: mid, hiBin: mid, rep: h}
			continue
		}
		cur.hiBin = mid
		if h.Power > cur.rep.Power {
			cur.rep = h
		}
	}
	if !first {
		out = append(out, cur.finish(c.pol))
	}
	return out
}

type clusterAccum struct {
	loBin, hiBin float64
	rep          model.CwHit
}

func (c clusterAccum) finish(pol model.Polarization) Cluster {
	return Cluster{
		Pol:       pol,
		StartBin:  c.rep.StartBin,
		Drift:     c.rep.Drift,
		WidthBins: int(1 + c.hiBin - c.loBin),
		Power:     c.rep.Power,
	}
}
