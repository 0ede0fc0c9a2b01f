package hardstep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupAndResingleRoundTrip(t *testing.T) {
	p := &RealParticle{ID: 1, Mass: 4, Status: SingleStatus()}

	require.NoError(t, p.Group(7))
	assert.Equal(t, 0.0, p.Mass)
	assert.Equal(t, 4.0, p.MassBackup)
	assert.True(t, p.Status.IsGrouped())
	assert.Equal(t, 4.0, p.EffectiveMass())

	require.NoError(t, p.CheckInvariantM())

	require.NoError(t, p.Resingle())
	assert.Equal(t, 4.0, p.Mass)
	assert.Equal(t, 0.0, p.MassBackup)
	assert.False(t, p.Status.IsGrouped())
}

func TestGroupRejectsNonSingle(t *testing.T) {
	p := &RealParticle{ID: 1, Mass: 4, Status: MemberStatus(0)}
	err := p.Group(1)
	require.Error(t, err)
	assert.True(t, IsHardError(err, InvariantViolation))
}

func TestCheckInvariantRFailsWhenRSearchTooSmall(t *testing.T) {
	p := &RealParticle{RSearch: 1, Changeover: NewChangeover(0.1, 1.5)}
	err := p.CheckInvariantR()
	require.Error(t, err)
	assert.True(t, IsHardError(err, InvariantViolation))
}

func TestUpdateRSearchTakesMax(t *testing.T) {
	p := &RealParticle{RSearch: 2}
	p.UpdateRSearch(1)
	assert.Equal(t, 2.0, p.RSearch)
	p.UpdateRSearch(5)
	assert.Equal(t, 5.0, p.RSearch)
}
