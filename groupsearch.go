package hardstep

import "sort"

// Group is a connected, gravitationally coherent subset of a cluster (spec
// §3/§4.3). Members holds indices into the cluster's particle slice, sorted
// ascending; GroupID is assigned deterministically by ascending first-member
// id once all groups in the cluster are known.
type Group struct {
	GroupID       int
	Members       []int // indices into the cluster's particle slice
	FirstMemberID int64
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{parent: make([]int, n)}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	// Ties resolved by lower index (spec §4.3): the lower root always
	// survives, independent of call order.
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}

// pairBound is the pair-dependent separation bound below which two
// particles are merged into the same group candidate: the paired changeover
// r_out (spec §4.3 "a pair-dependent bound implied by r_out of the pair"),
// reusing the same envelope blend as the force-correction kernel (C1) so
// the group-formation boundary and the force-correction boundary agree.
func pairBound(pi, pj *RealParticle) float64 {
	_, rOut := pairedEndpoints(pi.Changeover, pj.Changeover)
	return rOut
}

// FindGroups partitions a cluster of real particles into groups by
// iterative merge of any pair closer than pairBound, using a spatial hash
// grid for broadphase candidate generation so a sparse cluster does not pay
// an O(N^2) scan (spec §4.3, adapted from the teacher's broadphase grid).
// The returned groups are canonicalised by ascending first-member id so
// GroupID is deterministic across threads (spec §4.3, §5 P9).
func FindGroups(cluster []RealParticle) []Group {
	n := len(cluster)
	if n < 2 {
		return nil
	}

	maxROut := 0.0
	for i := range cluster {
		if cluster[i].Changeover.ROut > maxROut {
			maxROut = cluster[i].Changeover.ROut
		}
	}
	cellSize := maxROut * 2
	if cellSize <= 0 {
		cellSize = 1
	}
	grid := newSpatialHashGrid(cellSize)
	for i := range cluster {
		grid.insert(i, cluster[i].Pos, maxROut)
	}

	uf := newUnionFind(n)
	checked := make(map[[2]int]struct{})
	for i := range cluster {
		for _, j := range grid.queryRadius(cluster[i].Pos, maxROut) {
			if j == i {
				continue
			}
			key := [2]int{i, j}
			if i > j {
				key = [2]int{j, i}
			}
			if _, done := checked[key]; done {
				continue
			}
			checked[key] = struct{}{}

			d := cluster[i].Pos.Sub(cluster[j].Pos).Len()
			if d < pairBound(&cluster[i], &cluster[j]) {
				uf.union(i, j)
			}
		}
	}

	byRoot := make(map[int][]int)
	for i := range cluster {
		r := uf.find(i)
		byRoot[r] = append(byRoot[r], i)
	}

	var groups []Group
	for _, members := range byRoot {
		if len(members) < 2 {
			continue // isolated singles are not groups
		}
		sort.Ints(members)
		groups = append(groups, Group{
			Members:       members,
			FirstMemberID: cluster[members[0]].ID,
		})
	}

	sort.Slice(groups, func(a, b int) bool {
		return groups[a].FirstMemberID < groups[b].FirstMemberID
	})
	for i := range groups {
		groups[i].GroupID = i
	}
	return groups
}
