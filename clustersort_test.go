package hardstep

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortByClusterIDOrdersByClusterThenAdrOrg(t *testing.T) {
	refs := []ClusterParticleRef{
		{ClusterID: 2, Particle: RealParticle{ID: 1, AdrOrg: 5}},
		{ClusterID: 1, Particle: RealParticle{ID: 2, AdrOrg: 9}},
		{ClusterID: 1, Particle: RealParticle{ID: 3, AdrOrg: 3}},
		{ClusterID: 2, Particle: RealParticle{ID: 4, AdrOrg: 1}},
	}

	sortByClusterID(refs)

	want := []int64{3, 2, 4, 1}
	got := make([]int64, len(refs))
	for i, r := range refs {
		got[i] = r.Particle.ID
	}
	assert.Equal(t, want, got)
}

func TestSortByClusterIDStableWithinSameKey(t *testing.T) {
	refs := []ClusterParticleRef{
		{ClusterID: 0, Particle: RealParticle{ID: 1, AdrOrg: 1}},
		{ClusterID: 0, Particle: RealParticle{ID: 2, AdrOrg: 1}},
	}
	sortByClusterID(refs)
	assert.Equal(t, int64(1), refs[0].Particle.ID)
	assert.Equal(t, int64(2), refs[1].Particle.ID)
}
