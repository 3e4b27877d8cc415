package spectrometer

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes per-activity baseline statistics as Prometheus gauges,
// labeled by activity and polarization, for the science-output reporting
// cadence of spec.md §4.3.
type Metrics struct {
	BaselineMean   *prometheus.GaugeVec
	BaselineStdDev *prometheus.GaugeVec
	BaselineRange  *prometheus.GaugeVec
}

// NewMetrics registers the spectrometer's gauges with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BaselineMean: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dxcore",
			Subsystem: "baseline",
			Name:      "mean",
			Help:      "Mean inverse-RMS baseline scale across non-masked subchannels.",
		}, []string{"activity", "pol"}),
		BaselineStdDev: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dxcore",
			Subsystem: "baseline",
			Name:      "stddev",
			Help:      "Standard deviation of the baseline scale across non-masked subchannels.",
		}, []string{"activity", "pol"}),
		BaselineRange: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dxcore",
			Subsystem: "baseline",
			Name:      "range",
			Help:      "Max-min spread of the baseline scale across non-masked subchannels.",
		}, []string{"activity", "pol"}),
	}
	reg.MustRegister(m.BaselineMean, m.BaselineStdDev, m.BaselineRange)
	return m
}

// Report publishes one BaselineStats sample for an (activity, pol) pair.
func (m *Metrics) Report(activity, pol string, stats BaselineStats) {
	m.BaselineMean.WithLabelValues(activity, pol).Set(stats.Mean)
	m.BaselineStdDev.WithLabelValues(activity, pol).Set(stats.StdDev)
	m.BaselineRange.WithLabelValues(activity, pol).Set(stats.Range)
}
