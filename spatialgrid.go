package hardstep

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// spatialHashGrid is a uniform hash grid over particle indices, adapted
// from the teacher's broadphase collision grid into the cluster-local
// neighbor-candidate search used by group search (C5) to avoid an O(N^2)
// scan when a cluster is large. It stores indices into whatever particle slice the
// caller is working with — it never touches particle state itself.
type spatialHashGrid struct {
	cellSize float64
	cells    map[int64][]int
}

func newSpatialHashGrid(cellSize float64) *spatialHashGrid {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &spatialHashGrid{cellSize: cellSize, cells: make(map[int64][]int)}
}

func (g *spatialHashGrid) clear() {
	for k := range g.cells {
		delete(g.cells, k)
	}
}

func (g *spatialHashGrid) insert(idx int, center mgl64.Vec3, radius float64) {
	minX, maxX := g.cellIndex(center.X()-radius), g.cellIndex(center.X()+radius)
	minY, maxY := g.cellIndex(center.Y()-radius), g.cellIndex(center.Y()+radius)
	minZ, maxZ := g.cellIndex(center.Z()-radius), g.cellIndex(center.Z()+radius)

	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				key := g.hashKey(x, y, z)
				g.cells[key] = append(g.cells[key], idx)
			}
		}
	}
}

// queryRadius returns broadphase candidate indices near center; the caller
// must still check the exact separation, since the grid only tracks
// AABB-overlap cells, not true distances.
func (g *spatialHashGrid) queryRadius(center mgl64.Vec3, radius float64) []int {
	minX, maxX := g.cellIndex(center.X()-radius), g.cellIndex(center.X()+radius)
	minY, maxY := g.cellIndex(center.Y()-radius), g.cellIndex(center.Y()+radius)
	minZ, maxZ := g.cellIndex(center.Z()-radius), g.cellIndex(center.Z()+radius)

	seen := make(map[int]struct{})
	var results []int
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				key := g.hashKey(x, y, z)
				for _, idx := range g.cells[key] {
					if _, ok := seen[idx]; !ok {
						seen[idx] = struct{}{}
						results = append(results, idx)
					}
				}
			}
		}
	}
	return results
}

func (g *spatialHashGrid) cellIndex(pos float64) int {
	return int(math.Floor(pos / g.cellSize))
}

func (g *spatialHashGrid) hashKey(x, y, z int) int64 {
	const p1 = 73856093
	const p2 = 19349663
	const p3 = 83492791
	return int64(x)*p1 ^ int64(y)*p2 ^ int64(z)*p3
}
