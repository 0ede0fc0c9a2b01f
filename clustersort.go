package hardstep

import "sort"

// ClusterParticleRef pairs a received particle with the cluster id the
// sending rank tagged it with (SPEC_FULL §D.2's cross-node reconstruction
// buffer). AdrOrg on the particle itself supplies the adr_sys half of the
// sort key.
type ClusterParticleRef struct {
	ClusterID int
	Particle  RealParticle
}

// sortByClusterID stably reorders a received particle buffer by
// (id_cluster, adr_sys), the OPLessIDCluster comparator of hard.hpp: once
// sorted, particles belonging to the same cross-node cluster are contiguous
// and in original-array order within it, regardless of the order the
// sending ranks interleaved them in. hardstep does not itself own the MPI
// exchange (that remains an external collaborator, spec §1); this is the
// ordering primitive that exchange hands its assembled buffer through
// before reconstructing local clusters.
func sortByClusterID(refs []ClusterParticleRef) {
	sort.SliceStable(refs, func(a, b int) bool {
		if refs[a].ClusterID != refs[b].ClusterID {
			return refs[a].ClusterID < refs[b].ClusterID
		}
		return refs[a].Particle.AdrOrg < refs[b].Particle.AdrOrg
	})
}
