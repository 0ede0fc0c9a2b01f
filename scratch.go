package hardstep

// clusterScratch is one worker's thread-local accumulation buffer for a
// single cluster's hard step (spec §5): rather than writing results
// directly into shared arrays as each cluster finishes (which would need a
// lock per write), every worker appends into its own scratch slice and the
// caller merges all workers' scratch buffers using offsets computed from a
// prefix sum over the workers' scratch particle counts before any worker
// writes into the shared output — so the merge is a plain, data-race-free
// copy into disjoint output ranges.
type clusterScratch struct {
	Particles  []RealParticle
	Blocks     []*ArtificialBlock
	Energies   []float64
	ClusterIDs []int
}

func newClusterScratch() *clusterScratch {
	return &clusterScratch{}
}

func (s *clusterScratch) record(clusterID int, particles []RealParticle, blocks []*ArtificialBlock, energy float64) {
	s.ClusterIDs = append(s.ClusterIDs, clusterID)
	s.Particles = append(s.Particles, particles...)
	s.Blocks = append(s.Blocks, blocks...)
	s.Energies = append(s.Energies, energy)
}

// mergeOffsets computes, for n worker scratch buffers each holding
// particleCounts[i] particles, the starting offset into the merged output
// array for worker i — a prefix sum computed once before any worker writes,
// so every worker can merge into its own disjoint output range
// concurrently (spec §5's "precomputed offsets" requirement).
func mergeOffsets(particleCounts []int) []int {
	offsets := make([]int, len(particleCounts))
	running := 0
	for i, n := range particleCounts {
		offsets[i] = running
		running += n
	}
	return offsets
}

// mergeScratch copies each worker's scratch particles into out at its
// precomputed offset, and concatenates the remaining bookkeeping slices in
// worker order. out must already be sized to the total particle count.
func mergeScratch(out []RealParticle, scratches []*clusterScratch, offsets []int) (blocks []*ArtificialBlock, clusterEnergies map[int]float64) {
	clusterEnergies = make(map[int]float64)
	for i, s := range scratches {
		if s == nil {
			continue
		}
		copy(out[offsets[i]:offsets[i]+len(s.Particles)], s.Particles)
		blocks = append(blocks, s.Blocks...)
		for j, id := range s.ClusterIDs {
			clusterEnergies[id] = s.Energies[j]
		}
	}
	return blocks, clusterEnergies
}
