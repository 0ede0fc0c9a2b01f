package hardstep

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// NeighborRecord is the lightweight per-particle record the tree's neighbor
// list hands back (the source's EPJSoft): position, the mass the soft
// solver actually summed (0 for a grouped member, per INV-M), and the
// changeover endpoints carried on the soft record directly, used when no
// full RealParticle is reachable from the tree walk (spec §4.4, "build c_j
// on the fly from (r_in, r_out) fields on the soft record").
type NeighborRecord struct {
	Pos        mgl64.Vec3
	Mass       float64
	MassBackup float64
	Status     Status
	Changeover Changeover
}

func (n NeighborRecord) effectiveMass() float64 {
	if n.Status.IsGrouped() {
		return n.MassBackup
	}
	return n.Mass
}

func realPairInfo(p *RealParticle) (pos mgl64.Vec3, effMass float64, status Status, ch Changeover) {
	return p.Pos, p.EffectiveMass(), p.Status, p.Changeover
}

func artificialPairInfo(p *ArtificialParticle) (pos mgl64.Vec3, effMass float64, status Status, ch Changeover) {
	return p.Pos, p.Mass, p.Status(), p.Changeover
}

// correctPairAcc implements the per-pair acceleration correction of spec
// §4.4: removes the soft solver's linear-cutoff contribution and replaces
// it with the true changeover-weighted contribution, for the ordered pair
// (pi, j) at the given relative quantities.
func correctPairAcc(ci Changeover, cj Changeover, posI, posJ mgl64.Vec3, effMassJ, epsSq, rOutBase float64) mgl64.Vec3 {
	diff := posI.Sub(posJ)
	r2 := diff.LenSqr()
	drinv := 1 / math.Sqrt(r2+epsSq)
	movr := effMassJ * drinv
	movr3 := movr * drinv * drinv
	drEps := (r2 + epsSq) * drinv

	k := 1 - calcAcc0WTwo(ci, cj, drEps)

	rOut2 := rOutBase * rOutBase
	floor := r2
	if rOut2 > floor {
		floor = rOut2
	}
	movr3Max := effMassJ * math.Pow(floor, -1.5)

	coeff := movr3*k - movr3Max
	return diff.Mul(-coeff)
}

// correctPairPot implements the per-pair potential correction of spec
// §4.4, branching on j's role.
func correctPairPot(ci, cj Changeover, posI, posJ mgl64.Vec3, statusJ Status, effMassJ, epsSq, rOutBase float64) float64 {
	diff := posI.Sub(posJ)
	r2 := diff.LenSqr()
	r := math.Sqrt(r2)
	drinv := 1 / math.Sqrt(r2+epsSq)
	movr := effMassJ * drinv

	floor := r
	if rOutBase > floor {
		floor = rOutBase
	}
	movrMax := effMassJ / floor

	switch statusJ.Role {
	case RoleSingle:
		return -(movr - movrMax)
	case RoleMember:
		// effMassJ is already mass_bk (realPairInfo/NeighborRecord route
		// grouped members through EffectiveMass), so the formula is the
		// same shape as the single case.
		return -(movr - movrMax)
	default: // tidal probe, orbital probe, CM: artificial
		return movrMax
	}
}

// applySelfPotential adds the self-potential correction for a single
// particle (spec §4.4): only isolated singles get m_i/r_out_base; members
// and artificials do not.
func applySelfPotential(p *RealParticle, rOutBase float64) {
	if p.Status.Role == RoleSingle {
		p.PotSoft += p.Mass / rOutBase
	}
}

// CorrectPair applies both the acceleration and potential correction of a
// single ordered pair (pi, j) onto pi in place.
func CorrectPair(pi *RealParticle, posJ mgl64.Vec3, chJ Changeover, statusJ Status, effMassJ float64, epsSq, rOutBase float64) {
	pi.AccSoft = pi.AccSoft.Add(correctPairAcc(pi.Changeover, chJ, pi.Pos, posJ, effMassJ, epsSq, rOutBase))
	pi.PotSoft += correctPairPot(pi.Changeover, chJ, pi.Pos, posJ, statusJ, effMassJ, epsSq, rOutBase)
}

// CorrectPairWithArtificial is CorrectPair specialised for j being an
// artificial particle.
func CorrectPairWithArtificial(pi *RealParticle, aj *ArtificialParticle, epsSq, rOutBase float64) {
	pos, mass, status, ch := artificialPairInfo(aj)
	CorrectPair(pi, pos, ch, status, mass, epsSq, rOutBase)
}

// calcAccChangeOverCorrection implements spec §4.4's scale-change path: the
// step after r_scale_next changes subtracts the contribution computed with
// the old (r_in, r_out) and adds the contribution computed with the new
// rescaled radii. It must only be invoked on pairs where either side has
// r_scale_next != 1 (the caller filters this, matching the source).
func calcAccChangeOverCorrection(pi *RealParticle, chIOld, chINew, chJOld, chJNew Changeover, posJ mgl64.Vec3, effMassJ, epsSq float64) mgl64.Vec3 {
	diff := pi.Pos.Sub(posJ)
	r2 := diff.LenSqr()
	drinv := 1 / math.Sqrt(r2+epsSq)
	movr3 := effMassJ * drinv * drinv * drinv
	drEps := (r2 + epsSq) * drinv

	kOld := 1 - calcAcc0WTwo(chIOld, chJOld, drEps)
	kNew := 1 - calcAcc0WTwo(chINew, chJNew, drEps)

	return diff.Mul(-(movr3*kNew - movr3*kOld))
}

// ApplyScaleChangeCorrection mutates pi.AccSoft in place for one neighbor j
// undergoing a changeover rescale. Passing (chJNew, chJOld) with the two
// swapped and pi's own old/new swapped too inverts the correction exactly
// (spec §8 P7: round trip restores the original acceleration bit-for-bit,
// since calcAccChangeOverCorrection is antisymmetric in old/new).
func ApplyScaleChangeCorrection(pi *RealParticle, chIOld, chINew, posJ mgl64.Vec3, chJOld, chJNew Changeover, effMassJ, epsSq float64) {
	pi.AccSoft = pi.AccSoft.Add(calcAccChangeOverCorrection(pi, chIOld, chINew, chJOld, chJNew, posJ, effMassJ, epsSq))
}

// nextChangeover applies a particle's pending r_scale_next to produce its
// post-rescale changeover (r_scale_next resets to 1 once applied).
func nextChangeover(c Changeover) Changeover {
	if c.RScaleNext == 1 || c.RScaleNext == 0 {
		return c
	}
	return Changeover{RIn: c.RIn * c.RScaleNext, ROut: c.ROut * c.RScaleNext, RScaleNext: 1}
}

// CorrectForceClusterLocal is the cluster-local driver of spec §4.4: O(N^2)
// over a cluster's real particles, plus O(N*N_art) against each group's
// artificial-particle block.
func CorrectForceClusterLocal(cluster []*RealParticle, blocks []*ArtificialBlock, epsSq, rOutBase float64) {
	n := len(cluster)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			posJ, effMassJ, statusJ, chJ := realPairInfo(cluster[j])
			CorrectPair(cluster[i], posJ, chJ, statusJ, effMassJ, epsSq, rOutBase)
		}
		applySelfPotential(cluster[i], rOutBase)
	}

	for _, block := range blocks {
		for i := 0; i < n; i++ {
			for a := range block.Particles {
				CorrectPairWithArtificial(cluster[i], &block.Particles[a], epsSq, rOutBase)
			}
		}
	}

	for _, block := range blocks {
		block.correctArtficialParticleForce()
	}
}

// CorrectForceTreeNeighborOneParticle is the per-real-particle driver of
// spec §4.4's tree-neighbor strategy: walk the particle's tree neighbor
// list (already gathered by the caller into NeighborRecords, since this
// package does not own the tree) and correct each pair.
func CorrectForceTreeNeighborOneParticle(pi *RealParticle, neighbors []NeighborRecord, epsSq, rOutBase float64) {
	for _, nb := range neighbors {
		CorrectPair(pi, nb.Pos, nb.Changeover, nb.Status, nb.effectiveMass(), epsSq, rOutBase)
	}
	applySelfPotential(pi, rOutBase)
}

// evaluateExternalField computes the direct-summed gravitational
// acceleration at pos from every particle the long-range solver would still
// see as a point mass: cluster members carrying nonzero Mass (grouped
// members are already zeroed by INV-M, so they drop out on their own) plus
// any already-materialised CM artificial particles handed in by the caller.
// This stands in for the tree force a group's artificial probes would
// normally receive from the outer N-body solver (spec §4.2/§4.7 step 2).
func evaluateExternalField(pos mgl64.Vec3, cluster []*RealParticle, otherCMs []*ArtificialParticle, g, epsSq float64) mgl64.Vec3 {
	var acc mgl64.Vec3
	for _, p := range cluster {
		if p.Mass <= 0 {
			continue
		}
		diff := p.Pos.Sub(pos)
		r2 := diff.LenSqr() + epsSq
		invR3 := 1 / (math.Sqrt(r2) * r2)
		acc = acc.Add(diff.Mul(g * p.Mass * invR3))
	}
	for _, cm := range otherCMs {
		diff := cm.Pos.Sub(pos)
		r2 := diff.LenSqr() + epsSq
		invR3 := 1 / (math.Sqrt(r2) * r2)
		acc = acc.Add(diff.Mul(g * cm.Mass * invR3))
	}
	return acc
}

// CorrectForceTreeNeighborAndCluster combines the tree-neighbor pass for
// real particles (tree neighbor lists are meaningful for them) with the
// cluster-local pass for artificial particles (tree neighbor lists are not
// meaningful for probes, spec §4.4).
func CorrectForceTreeNeighborAndCluster(cluster []*RealParticle, neighborsByParticle [][]NeighborRecord, blocks []*ArtificialBlock, epsSq, rOutBase float64) {
	for i, pi := range cluster {
		CorrectForceTreeNeighborOneParticle(pi, neighborsByParticle[i], epsSq, rOutBase)
	}
	for _, block := range blocks {
		for i := range cluster {
			for a := range block.Particles {
				CorrectPairWithArtificial(cluster[i], &block.Particles[a], epsSq, rOutBase)
			}
		}
	}
	for _, block := range blocks {
		block.correctArtficialParticleForce()
	}
}
