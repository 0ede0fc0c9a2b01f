package hardstep

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindGroupsMergesCloseBinary(t *testing.T) {
	cluster := []RealParticle{
		{ID: 1, Mass: 1, Pos: mgl64.Vec3{0, 0, 0}, Status: SingleStatus(), Changeover: NewChangeover(0.01, 0.1)},
		{ID: 2, Mass: 1, Pos: mgl64.Vec3{0.05, 0, 0}, Status: SingleStatus(), Changeover: NewChangeover(0.01, 0.1)},
		{ID: 3, Mass: 1, Pos: mgl64.Vec3{100, 0, 0}, Status: SingleStatus(), Changeover: NewChangeover(0.01, 0.1)},
	}

	groups := FindGroups(cluster)
	require.Len(t, groups, 1)
	assert.Equal(t, []int{0, 1}, groups[0].Members)
	assert.Equal(t, int64(1), groups[0].FirstMemberID)
}

func TestFindGroupsNoMergeWhenFar(t *testing.T) {
	cluster := []RealParticle{
		{ID: 1, Mass: 1, Pos: mgl64.Vec3{0, 0, 0}, Status: SingleStatus(), Changeover: NewChangeover(0.01, 0.1)},
		{ID: 2, Mass: 1, Pos: mgl64.Vec3{10, 0, 0}, Status: SingleStatus(), Changeover: NewChangeover(0.01, 0.1)},
	}
	groups := FindGroups(cluster)
	assert.Empty(t, groups)
}

func TestFindGroupsDeterministicGroupIDOrdering(t *testing.T) {
	cluster := []RealParticle{
		{ID: 10, Mass: 1, Pos: mgl64.Vec3{0, 0, 0}, Status: SingleStatus(), Changeover: NewChangeover(0.01, 0.1)},
		{ID: 11, Mass: 1, Pos: mgl64.Vec3{0.02, 0, 0}, Status: SingleStatus(), Changeover: NewChangeover(0.01, 0.1)},
		{ID: 1, Mass: 1, Pos: mgl64.Vec3{50, 0, 0}, Status: SingleStatus(), Changeover: NewChangeover(0.01, 0.1)},
		{ID: 2, Mass: 1, Pos: mgl64.Vec3{50.02, 0, 0}, Status: SingleStatus(), Changeover: NewChangeover(0.01, 0.1)},
	}
	groups := FindGroups(cluster)
	require.Len(t, groups, 2)
	assert.Equal(t, int64(1), groups[0].FirstMemberID)
	assert.Equal(t, int64(10), groups[1].FirstMemberID)
	assert.Equal(t, 0, groups[0].GroupID)
	assert.Equal(t, 1, groups[1].GroupID)
}

func TestUnionFindTieBreakByLowerIndex(t *testing.T) {
	uf := newUnionFind(4)
	uf.union(3, 1)
	uf.union(2, 0)
	uf.union(1, 0)
	root := uf.find(3)
	for i := 0; i < 4; i++ {
		assert.Equal(t, root, uf.find(i))
	}
	assert.Equal(t, 0, root)
}
