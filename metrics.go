package hardstep

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the diagnostic counters surface referenced by spec §5
// ("Global counters... updated via atomics or reductions at the end of the
// parallel region") and §6 ("diagnostic fields: energy error running
// totals, sub-step counters"). The zero value is a fully functional no-op
// sink, mirroring the nopLogger pattern, so HardManager never nil-checks it.
type Metrics struct {
	substepsTotal       prometheus.Counter
	clustersProcessed   prometheus.Counter
	invariantViolations prometheus.Counter
	capacityAborts      prometheus.Counter
	energyErrorAbs      prometheus.Histogram
}

// NewMetrics registers the hardstep counters on reg and returns a Metrics
// ready to pass into HardManager.Metrics. Grounded on ghjramos-aistore's use
// of prometheus.NewRegistry()-scoped collectors rather than the global
// default registry, so multiple HardManagers in one process don't collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		substepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hardstep",
			Name:      "ar_substeps_total",
			Help:      "Cumulative AR integrator sub-steps across all clusters.",
		}),
		clustersProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hardstep",
			Name:      "clusters_processed_total",
			Help:      "Number of clusters that completed a hard step.",
		}),
		invariantViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hardstep",
			Name:      "invariant_violations_total",
			Help:      "Recoverable invariant corrections applied (e.g. r_in snap).",
		}),
		capacityAborts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hardstep",
			Name:      "capacity_aborts_total",
			Help:      "Hard steps aborted due to ARRAY_ALLOW_LIMIT overrun.",
		}),
		energyErrorAbs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hardstep",
			Name:      "energy_error_abs",
			Help:      "Absolute slow-down-corrected energy error per cluster step.",
			Buckets:   prometheus.ExponentialBuckets(1e-12, 10, 16),
		}),
	}
	reg.MustRegister(m.substepsTotal, m.clustersProcessed, m.invariantViolations, m.capacityAborts, m.energyErrorAbs)
	return m
}

func (m *Metrics) addSubsteps(n int64) {
	if m == nil || m.substepsTotal == nil {
		return
	}
	m.substepsTotal.Add(float64(n))
}

func (m *Metrics) clusterDone() {
	if m == nil || m.clustersProcessed == nil {
		return
	}
	m.clustersProcessed.Inc()
}

func (m *Metrics) invariantCorrected() {
	if m == nil || m.invariantViolations == nil {
		return
	}
	m.invariantViolations.Inc()
}

func (m *Metrics) capacityAbort() {
	if m == nil || m.capacityAborts == nil {
		return
	}
	m.capacityAborts.Inc()
}

func (m *Metrics) observeEnergyError(absErr float64) {
	if m == nil || m.energyErrorAbs == nil {
		return
	}
	m.energyErrorAbs.Observe(absErr)
}
