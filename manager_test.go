package hardstep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validManager() *HardManager {
	m := NewHardManager()
	m.G = 1
	m.EpsSq = 1e-6
	m.RInBase = 0.01
	m.ROutBase = 0.1
	m.RTidalTensor = 1.0
	m.EnergyErrorMax = 1e-4
	m.ArtificialParticle = ArtificialParticleManager{NSplit: 2, RInBase: 0.01, ROutBase: 0.1, RTidalTensor: 1.0}
	m.Hermite = HermiteManager{DtMin: 1.0 / 1024, DtMax: 1.0 / 8, Eta: 0.01}
	m.AR = ARManager{Order: 4, TimeStepRealMin: 1e-5, KappaMax: 100, StepCountMax: 100000}
	return m
}

func TestHardManagerCheckAcceptsValidConfig(t *testing.T) {
	m := validManager()
	require.NoError(t, m.Check())
}

func TestHardManagerCheckRejectsBadChangeover(t *testing.T) {
	m := validManager()
	m.ROutBase = 0.001
	err := m.Check()
	require.Error(t, err)
	assert.True(t, IsHardError(err, InvariantViolation))
}

func TestHardManagerCheckPropagatesSubManagerErrors(t *testing.T) {
	m := validManager()
	m.AR.Order = 3
	err := m.Check()
	require.Error(t, err)
}
