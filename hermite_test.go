package hardstep

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantiseDtSnapsToPowerOfTwoBlock(t *testing.T) {
	m := HermiteManager{DtMin: 1.0 / 64, DtMax: 1.0, Eta: 0.02}
	assert.Equal(t, 1.0, m.quantiseDt(2.0))
	assert.Equal(t, 1.0/64, m.quantiseDt(1.0/1000))
	assert.Equal(t, 0.25, m.quantiseDt(0.2))
}

func TestHermiteSystemStepBlockAdvancesTwoBodyProblem(t *testing.T) {
	p1 := &RealParticle{ID: 1, Mass: 1, Pos: mgl64.Vec3{-0.5, 0, 0}, Vel: mgl64.Vec3{0, -0.5, 0}, Status: SingleStatus()}
	p2 := &RealParticle{ID: 2, Mass: 1, Pos: mgl64.Vec3{0.5, 0, 0}, Vel: mgl64.Vec3{0, 0.5, 0}, Status: SingleStatus()}
	sys := NewHermiteSystem(1.0, []*RealParticle{p1, p2}, nil)
	require.NoError(t, sys.Bodies[0].Particle.CheckInvariantM())

	cfg := HermiteManager{DtMin: 1.0 / 1024, DtMax: 1.0 / 8, Eta: 0.01}
	blockTime := sys.StepBlock(cfg)
	assert.Greater(t, blockTime, 0.0)
	assert.Equal(t, stateActive, sys.Bodies[0].State)

	sys.writeBack()
	assert.NotEqual(t, mgl64.Vec3{-0.5, 0, 0}, p1.Pos)
}
