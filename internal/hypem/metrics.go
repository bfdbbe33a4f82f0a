package hypem

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"hypecast/internal/media"
)

// Metrics counts step outcomes and resolution paths. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	StepsTotal       *prometheus.CounterVec
	ResolutionsTotal *prometheus.CounterVec
	Duration         prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypecast_step_total",
				Help: "Pipeline step attempts by outcome",
			},
			[]string{"step", "outcome"},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypecast_resolve_total",
				Help: "Resolutions by the path that produced the URL",
			},
			[]string{"path"},
		),
		Duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hypecast_resolve_duration_seconds",
				Help:    "Time spent resolving one identifier",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	reg.MustRegister(m.StepsTotal, m.ResolutionsTotal, m.Duration)
	return m
}

func (m *Metrics) step(name string, o Outcome) {
	if m == nil {
		return
	}
	m.StepsTotal.WithLabelValues(name, o.String()).Inc()
}

func (m *Metrics) resolution(p media.Path, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(p.String()).Inc()
	m.Duration.Observe(elapsed.Seconds())
}
