package hardstep

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// ArtificialParticleManager holds the configuration for group→probe
// materialisation (spec §4.2): orbital sample count, base radii, and the
// tidal-tensor stencil radius.
type ArtificialParticleManager struct {
	NSplit       int
	RInBase      float64
	ROutBase     float64
	RTidalTensor float64
}

func (m ArtificialParticleManager) Check() error {
	if m.NSplit < 1 {
		return invariantViolation("artificial-config", "ArtificialParticleManager.NSplit must be >=1, got %d", m.NSplit)
	}
	if m.RInBase <= 0 || m.ROutBase <= m.RInBase {
		return invariantViolation("artificial-config", "ArtificialParticleManager requires 0 < r_in_base < r_out_base, got %g/%g", m.RInBase, m.ROutBase)
	}
	if m.RTidalTensor <= 0 {
		return invariantViolation("artificial-config", "ArtificialParticleManager.RTidalTensor must be >0, got %g", m.RTidalTensor)
	}
	return nil
}

// NArt returns the fixed artificial-particle block size for this manager's
// configuration: n_tt + 2*n_split + 1, CM last (spec §4.2).
func (m ArtificialParticleManager) NArt() int {
	return TidalTensorStencilSize + 2*m.NSplit + 1
}

// ArtificialBlock is one group's materialised artificial-particle block
// (spec §3/§4.2): a fixed-order slice of Particles — tidal-tensor probes,
// then orbital probes, then the CM last — plus the block-linkage metadata.
type ArtificialBlock struct {
	ClusterID     int
	GroupID       int
	MemberCount   int
	FirstMemberID int64
	Particles     []ArtificialParticle
}

// CreateArtificialParticles materialises one group's artificial-particle
// block: a tidal-tensor stencil and orbital-probe sample around the group
// CM, plus the CM particle itself (spec §4.2). members must already be
// grouped (RealParticle.Group called) so EffectiveMass reads mass_bk.
func (m ArtificialParticleManager) CreateArtificialParticles(clusterID, groupID int, members []*RealParticle, dtTree float64) (*ArtificialBlock, error) {
	if len(members) < 2 {
		return nil, errors.Errorf("group %d has %d members, need >=2", groupID, len(members))
	}

	totalMass := 0.0
	var weightedPos, weightedVel mgl64.Vec3
	for _, p := range members {
		mass := p.EffectiveMass()
		totalMass += mass
		weightedPos = weightedPos.Add(p.Pos.Mul(mass))
		weightedVel = weightedVel.Add(p.Vel.Mul(mass))
	}
	if totalMass <= 0 {
		return nil, invariantViolation("INV-M", "group %d total mass %g <= 0", groupID, totalMass)
	}
	cmPos := weightedPos.Mul(1 / totalMass)
	cmVel := weightedVel.Mul(1 / totalMass)

	block := &ArtificialBlock{
		ClusterID:     clusterID,
		GroupID:       groupID,
		MemberCount:   len(members),
		FirstMemberID: members[0].ID,
		Particles:     make([]ArtificialParticle, m.NArt()),
	}

	cmChangeover := NewChangeover(m.RInBase, m.ROutBase)

	// Tidal-tensor stencil: probes carry no mass (they sample the ambient
	// field only) and the base changeover so force-correction (C6) can
	// still apply the artificial-status branch to pairs that reference them.
	offsets := TidalTensorStencilOffsets(m.RTidalTensor)
	for i, off := range offsets {
		block.Particles[i] = ArtificialParticle{
			Mass:       0,
			Pos:        cmPos.Add(off),
			Vel:        cmVel,
			Changeover: cmChangeover,
			Kind:       ArtificialTidalProbe,
			ClusterID:  clusterID, GroupID: groupID, MemberCount: len(members), FirstMemberID: members[0].ID,
		}
	}

	// Orbital probes: 2*n_split samples of the dominant binary's Kepler
	// orbit, placed as the two components' positions at n_split phases
	// evenly spaced in true anomaly (spec §4.2 "n_split orbital probe
	// samples for the mean field").
	binA, binB, mu := dominantBinary(members)
	relPos := binA.Pos.Sub(binB.Pos)
	relVel := binA.Vel.Sub(binB.Vel)
	elements := ComputeKeplerElements(relPos, relVel, mu)
	mA, mB := binA.EffectiveMass(), binB.EffectiveMass()
	mSum := mA + mB

	orbitalStart := TidalTensorStencilSize
	for k := 0; k < m.NSplit; k++ {
		theta := 2 * piFraction(k, m.NSplit)
		r := elements.PositionAtTrueAnomaly(theta)
		posA := cmPos.Add(r.Mul(mB / mSum))
		posB := cmPos.Sub(r.Mul(mA / mSum))

		block.Particles[orbitalStart+2*k] = ArtificialParticle{
			Mass: 0, Pos: posA, Vel: cmVel, Changeover: cmChangeover, Kind: ArtificialOrbitalProbe,
			ClusterID: clusterID, GroupID: groupID, MemberCount: len(members), FirstMemberID: members[0].ID,
		}
		block.Particles[orbitalStart+2*k+1] = ArtificialParticle{
			Mass: 0, Pos: posB, Vel: cmVel, Changeover: cmChangeover, Kind: ArtificialOrbitalProbe,
			ClusterID: clusterID, GroupID: groupID, MemberCount: len(members), FirstMemberID: members[0].ID,
		}
	}

	// CM particle, always last.
	block.Particles[len(block.Particles)-1] = ArtificialParticle{
		Mass: totalMass, Pos: cmPos, Vel: cmVel, Changeover: cmChangeover, Kind: ArtificialCenterOfMass,
		ClusterID: clusterID, GroupID: groupID, MemberCount: len(members), FirstMemberID: members[0].ID,
	}

	return block, nil
}

func piFraction(k, n int) float64 {
	return float64(k) / float64(n) * 3.141592653589793
}

// dominantBinary returns the two most-bound members of a group (by
// pairwise specific orbital energy, with G taken as 1) and their combined
// mu = m1+m2, i.e. G*(m1+m2) in units where G = 1; used to seed
// orbital-probe placement here.
func dominantBinary(members []*RealParticle) (a, b *RealParticle, mu float64) {
	best := 0.0
	bestSet := false
	a, b = members[0], members[1]
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			mi, mj := members[i].EffectiveMass(), members[j].EffectiveMass()
			r := members[i].Pos.Sub(members[j].Pos).Len()
			if r == 0 {
				continue
			}
			v2 := members[i].Vel.Sub(members[j].Vel).LenSqr()
			energy := 0.5*v2 - (mi+mj)/r // G folded into caller's unit system; see ar.go for the G-aware variant
			if !bestSet || energy < best {
				best = energy
				bestSet = true
				a, b = members[i], members[j]
			}
		}
	}
	return a, b, a.EffectiveMass() + b.EffectiveMass()
}

// getTidalTensorParticles returns the typed view of a block's tidal-tensor
// probes.
func (b *ArtificialBlock) getTidalTensorParticles() []*ArtificialParticle {
	out := make([]*ArtificialParticle, TidalTensorStencilSize)
	for i := range out {
		out[i] = &b.Particles[i]
	}
	return out
}

// getOrbitalParticles returns the typed view of a block's orbital probes.
func (b *ArtificialBlock) getOrbitalParticles() []*ArtificialParticle {
	n := len(b.Particles) - 1 - TidalTensorStencilSize
	out := make([]*ArtificialParticle, n)
	for i := range out {
		out[i] = &b.Particles[TidalTensorStencilSize+i]
	}
	return out
}

// getCMParticle returns the block's CM particle (always last).
func (b *ArtificialBlock) getCMParticle() *ArtificialParticle {
	return &b.Particles[len(b.Particles)-1]
}

// correctArtficialParticleForce finalises CM and tidal-tensor accelerations
// after the soft solver has run (spec §4.2):
//  1. subtract the CM acceleration from each tidal-tensor probe so it
//     carries only the external tidal field;
//  2. replace the CM acceleration by the mean over orbital probes (the
//     averaging cancels the probes' own internal orbital harmonic, spec §8
//     P8).
func (b *ArtificialBlock) correctArtficialParticleForce() TidalTensor {
	cm := b.getCMParticle()
	cmAcc := cm.AccSoft

	tt := b.getTidalTensorParticles()
	var probeAccs [TidalTensorStencilSize]mgl64.Vec3
	var offsets [TidalTensorStencilSize]mgl64.Vec3
	cmPos := cm.Pos
	for i, p := range tt {
		p.AccSoft = p.AccSoft.Sub(cmAcc)
		probeAccs[i] = p.AccSoft
		offsets[i] = p.Pos.Sub(cmPos)
	}

	orb := b.getOrbitalParticles()
	var meanAcc mgl64.Vec3
	for _, p := range orb {
		meanAcc = meanAcc.Add(p.AccSoft)
	}
	if len(orb) > 0 {
		meanAcc = meanAcc.Mul(1 / float64(len(orb)))
	}
	cm.AccSoft = meanAcc

	stencilRadius := 0.0
	if len(offsets) > 0 {
		stencilRadius = offsets[0].Len()
	}
	return FitTidalTensor(offsets, probeAccs, stencilRadius)
}

// fitExternalTidalTensor populates this block's tidal-tensor probes (and
// its CM particle) with the direct-summed external field and fits the
// tensor from them, so a group has its tidal tensor available before its
// AR integration begins (spec §4.7 steps 2-3) rather than the stale,
// post-integration value correctArtficialParticleForce would otherwise
// leave in place.
func (b *ArtificialBlock) fitExternalTidalTensor(cluster []*RealParticle, otherCMs []*ArtificialParticle, g, epsSq float64) TidalTensor {
	cm := b.getCMParticle()
	cmAcc := evaluateExternalField(cm.Pos, cluster, otherCMs, g, epsSq)
	cm.AccSoft = cmAcc

	tt := b.getTidalTensorParticles()
	var offsets, probeAccs [TidalTensorStencilSize]mgl64.Vec3
	for i, p := range tt {
		p.AccSoft = evaluateExternalField(p.Pos, cluster, otherCMs, g, epsSq)
		offsets[i] = p.Pos.Sub(cm.Pos)
		probeAccs[i] = p.AccSoft.Sub(cmAcc)
	}

	stencilRadius := 0.0
	if len(offsets) > 0 {
		stencilRadius = offsets[0].Len()
	}
	return FitTidalTensor(offsets, probeAccs, stencilRadius)
}

// checkConsistence validates block↔member bookkeeping (spec §4.2): member
// count and first-member id must match, and the CM mass must equal the sum
// of member masses (mass_bk for grouped members).
func (b *ArtificialBlock) checkConsistence(members []*RealParticle) error {
	if b.MemberCount != len(members) {
		return invariantViolation("consistency", "block member_count=%d, got %d members", b.MemberCount, len(members))
	}
	if len(members) == 0 {
		return invariantViolation("consistency", "empty member list for block group %d", b.GroupID)
	}
	if b.FirstMemberID != members[0].ID {
		return invariantViolation("consistency", "block first_member_id=%d, got %d", b.FirstMemberID, members[0].ID)
	}
	sum := 0.0
	for _, p := range members {
		sum += p.EffectiveMass()
	}
	cmMass := b.getCMParticle().Mass
	if absf(cmMass-sum) > 1e-9*absf(sum) {
		return invariantViolation("consistency", "block CM mass=%g, sum of member masses=%g", cmMass, sum)
	}
	return nil
}
