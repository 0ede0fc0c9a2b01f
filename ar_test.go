package hardstep

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func equalMassCircularBinary() []*RealParticle {
	// G=1, m=1 each, separation 1: circular relative speed sqrt(2), split
	// evenly between the two bodies.
	v := math.Sqrt(0.5)
	return []*RealParticle{
		{ID: 1, Mass: 1, Pos: mgl64.Vec3{-0.5, 0, 0}, Vel: mgl64.Vec3{0, -v, 0}, Status: SingleStatus(), Changeover: NewChangeover(0.01, 0.1)},
		{ID: 2, Mass: 1, Pos: mgl64.Vec3{0.5, 0, 0}, Vel: mgl64.Vec3{0, v, 0}, Status: SingleStatus(), Changeover: NewChangeover(0.01, 0.1)},
	}
}

func TestBuildBinaryTreePairsTwoBodyGroup(t *testing.T) {
	members := equalMassCircularBinary()
	root := buildBinaryTree(members, 1.0)
	require.NotNil(t, root)
	assert.True(t, root.Left.isLeaf())
	assert.True(t, root.Right.isLeaf())
	assert.InDelta(t, 2.0, root.Mass, 1e-12)
}

func TestARGroupIntegrateToTimeConservesEnergyUnperturbed(t *testing.T) {
	members := equalMassCircularBinary()
	grp := NewARGroup(0, 0, members, 1.0, TidalTensor{})

	period := grp.Tree.Period

	cfg := ARManager{Order: 4, TimeStepRealMin: period / 200, KappaMax: 1, StepCountMax: 10000}
	require.NoError(t, cfg.Check())
	err := grp.IntegrateToTime(cfg, period)
	require.NoError(t, err)

	errAbs := grp.EnergyError()
	assert.Less(t, errAbs, 1e-6)
}

func TestARGroupUnboundDetection(t *testing.T) {
	members := equalMassCircularBinary()
	grp := NewARGroup(0, 0, members, 1.0, TidalTensor{})
	assert.False(t, grp.Unbound())

	grp.Tree.Left.Pos = mgl64.Vec3{-1000, 0, 0}
	grp.Tree.Right.Pos = mgl64.Vec3{1000, 0, 0}
	assert.True(t, grp.Unbound())
}

func TestSymplecticStepHigherOrderMoreAccurateThanBase(t *testing.T) {
	members := equalMassCircularBinary()
	grp2 := NewARGroup(0, 0, members, 1.0, TidalTensor{})
	members4 := equalMassCircularBinary()
	grp4 := NewARGroup(0, 0, members4, 1.0, TidalTensor{})

	const dt = 0.2
	grp2.symplecticStep(2, dt)
	grp4.symplecticStep(4, dt)

	e2 := grp2.EnergyError()
	e4 := grp4.EnergyError()
	assert.LessOrEqual(t, e4, e2+1e-9)
}
