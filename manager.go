package hardstep

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// HardManager is the top-level configuration object threaded through every
// cluster step (SPEC_FULL §A.2, grounded on the source's HardManager
// class): shared physical constants plus the three sub-manager configs for
// artificial-particle placement, the Hermite block integrator, and the AR
// slow-down integrator.
type HardManager struct {
	G              float64
	EpsSq          float64
	RInBase        float64
	ROutBase       float64
	RTidalTensor   float64
	EnergyErrorMax float64
	MeanMassInv    float64

	ArtificialParticle ArtificialParticleManager
	Hermite            HermiteManager
	AR                 ARManager

	Logger  Logger
	Metrics *Metrics
	Tracer  trace.Tracer
}

// NewHardManager returns a HardManager with a no-op logger and nil metrics,
// matching the teacher's "always-usable zero-ish value" convention for
// optional ambient dependencies (logging.go's NewNopLogger, metrics.go's
// nil-receiver-safe Metrics).
func NewHardManager() *HardManager {
	return &HardManager{
		Logger: NewNopLogger(),
	}
}

// WithMetrics registers a Metrics instance on reg and attaches it.
func (m *HardManager) WithMetrics(reg prometheus.Registerer) *HardManager {
	m.Metrics = NewMetrics(reg)
	return m
}

// Check validates every field and sub-manager, failing fast before any
// cluster is processed (spec §7 "configuration errors are InvariantViolation
// at startup, not per-step").
func (m *HardManager) Check() error {
	if m.G <= 0 {
		return invariantViolation("manager-config", "HardManager.G must be >0, got %g", m.G)
	}
	if m.EpsSq < 0 {
		return invariantViolation("manager-config", "HardManager.EpsSq must be >=0, got %g", m.EpsSq)
	}
	if m.RInBase <= 0 || m.ROutBase <= m.RInBase {
		return invariantViolation("manager-config", "HardManager requires 0 < r_in_base < r_out_base, got %g/%g", m.RInBase, m.ROutBase)
	}
	if m.RTidalTensor <= 0 {
		return invariantViolation("manager-config", "HardManager.RTidalTensor must be >0, got %g", m.RTidalTensor)
	}
	if m.EnergyErrorMax <= 0 {
		return invariantViolation("manager-config", "HardManager.EnergyErrorMax must be >0, got %g", m.EnergyErrorMax)
	}
	if err := m.ArtificialParticle.Check(); err != nil {
		return err
	}
	if err := m.Hermite.Check(); err != nil {
		return err
	}
	if err := m.AR.Check(); err != nil {
		return err
	}
	return nil
}

func (m *HardManager) logf(format string, args ...any) {
	if m.Logger != nil {
		m.Logger.Infof(format, args...)
	}
}
