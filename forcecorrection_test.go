package hardstep

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestScaleChangeCorrectionRoundTripsToZero(t *testing.T) {
	pi := &RealParticle{Pos: mgl64.Vec3{0, 0, 0}, AccSoft: mgl64.Vec3{1, 2, 3}}
	chOld := NewChangeover(0.1, 1.0)
	chNew := Changeover{RIn: 0.2, ROut: 2.0, RScaleNext: 1}
	posJ := mgl64.Vec3{0.5, 0, 0}
	const effMassJ, epsSq = 5.0, 0.01

	before := pi.AccSoft
	ApplyScaleChangeCorrection(pi, chOld, chNew, posJ, chOld, chNew, effMassJ, epsSq)
	afterForward := pi.AccSoft

	assert.NotEqual(t, before, afterForward)

	ApplyScaleChangeCorrection(pi, chNew, chOld, posJ, chNew, chOld, effMassJ, epsSq)
	assert.InDelta(t, before.X(), pi.AccSoft.X(), 1e-12)
	assert.InDelta(t, before.Y(), pi.AccSoft.Y(), 1e-12)
	assert.InDelta(t, before.Z(), pi.AccSoft.Z(), 1e-12)
}

func TestApplySelfPotentialOnlySingles(t *testing.T) {
	single := &RealParticle{Mass: 2, Status: SingleStatus()}
	applySelfPotential(single, 0.5)
	assert.InDelta(t, 4.0, single.PotSoft, 1e-12)

	member := &RealParticle{Mass: 0, MassBackup: 2, Status: MemberStatus(0)}
	applySelfPotential(member, 0.5)
	assert.Equal(t, 0.0, member.PotSoft)
}

func TestCorrectForceClusterLocalRunsWithoutPanic(t *testing.T) {
	cluster := []*RealParticle{
		{ID: 1, Mass: 1, Pos: mgl64.Vec3{0, 0, 0}, Changeover: NewChangeover(0.01, 0.1), Status: SingleStatus()},
		{ID: 2, Mass: 1, Pos: mgl64.Vec3{1, 0, 0}, Changeover: NewChangeover(0.01, 0.1), Status: SingleStatus()},
	}
	CorrectForceClusterLocal(cluster, nil, 0.0001, 0.1)
	assert.NotEqual(t, mgl64.Vec3{}, cluster[0].AccSoft)
}
