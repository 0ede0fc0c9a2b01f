package hardstep

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeEqualMassBinary() []*RealParticle {
	a := &RealParticle{ID: 1, Mass: 1, Pos: mgl64.Vec3{-0.5, 0, 0}, Vel: mgl64.Vec3{0, -0.5, 0}, Status: SingleStatus()}
	b := &RealParticle{ID: 2, Mass: 1, Pos: mgl64.Vec3{0.5, 0, 0}, Vel: mgl64.Vec3{0, 0.5, 0}, Status: SingleStatus()}
	return []*RealParticle{a, b}
}

func TestCreateArtificialParticlesBlockLayoutAndConsistency(t *testing.T) {
	members := makeEqualMassBinary()
	for _, m := range members {
		require.NoError(t, m.Group(0))
	}

	mgr := ArtificialParticleManager{NSplit: 2, RInBase: 0.01, ROutBase: 0.1, RTidalTensor: 1.0}
	require.NoError(t, mgr.Check())

	block, err := mgr.CreateArtificialParticles(0, 0, members, 0.01)
	require.NoError(t, err)

	assert.Len(t, block.Particles, mgr.NArt())
	assert.Equal(t, ArtificialCenterOfMass, block.getCMParticle().Kind)
	assert.Len(t, block.getTidalTensorParticles(), TidalTensorStencilSize)
	assert.Len(t, block.getOrbitalParticles(), 2*mgr.NSplit)

	require.NoError(t, block.checkConsistence(members))

	cm := block.getCMParticle()
	assert.InDelta(t, 2.0, cm.Mass, 1e-12)
	assert.InDelta(t, 0.0, cm.Pos.Len(), 1e-9)
}

func TestFitExternalTidalTensorExcludesOwnGroupIncludesOutsiders(t *testing.T) {
	members := makeEqualMassBinary()
	for _, m := range members {
		require.NoError(t, m.Group(0))
	}
	mgr := ArtificialParticleManager{NSplit: 1, RInBase: 0.01, ROutBase: 0.1, RTidalTensor: 1.0}
	block, err := mgr.CreateArtificialParticles(0, 0, members, 0.01)
	require.NoError(t, err)

	perturber := &RealParticle{ID: 99, Mass: 1000, Pos: mgl64.Vec3{100, 0, 0}, Status: SingleStatus()}
	cluster := append(append([]*RealParticle{}, members...), perturber)

	tensor := block.fitExternalTidalTensor(cluster, nil, 1.0, 1e-9)

	assert.NotEqual(t, mgl64.Mat3{}, tensor.Tensor)
	cm := block.getCMParticle()
	assert.InDelta(t, 1000.0/(100*100), cm.AccSoft.Len(), 1e-6)
}

func TestCheckConsistenceRejectsMassMismatch(t *testing.T) {
	members := makeEqualMassBinary()
	for _, m := range members {
		require.NoError(t, m.Group(0))
	}
	mgr := ArtificialParticleManager{NSplit: 1, RInBase: 0.01, ROutBase: 0.1, RTidalTensor: 1.0}
	block, err := mgr.CreateArtificialParticles(0, 0, members, 0.01)
	require.NoError(t, err)

	block.getCMParticle().Mass = 999
	err = block.checkConsistence(members)
	require.Error(t, err)
	assert.True(t, IsHardError(err, InvariantViolation))
}
