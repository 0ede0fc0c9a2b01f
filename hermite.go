package hardstep

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// HermiteManager holds the configuration for the 4th-order predictor-
// corrector block integrator (spec §4.6): the block-quantised timestep
// bounds, the Aarseth step-selection coefficient, and whether the
// experimental 4th-order acceleration-correction (KDKDK) path is enabled.
type HermiteManager struct {
	DtMin, DtMax float64
	Eta          float64
	UseAccCorrection bool
}

func (m HermiteManager) Check() error {
	if m.DtMin <= 0 || m.DtMax < m.DtMin {
		return invariantViolation("hermite-config", "HermiteManager requires 0 < dt_min <= dt_max, got %g/%g", m.DtMin, m.DtMax)
	}
	if m.Eta <= 0 {
		return invariantViolation("hermite-config", "HermiteManager.Eta must be >0, got %g", m.Eta)
	}
	return nil
}

// quantiseDt snaps a requested timestep up to the smallest power-of-two
// block division DtMax/2^k that is >= the request, within [DtMin, DtMax]
// (e.g. 0.2 with DtMax=1 gives 0.25), the Aarseth block-timestep scheme:
// every particle's step is some DtMax/2^k, so blocks of particles become
// synchronised in time automatically.
func (m HermiteManager) quantiseDt(want float64) float64 {
	if want >= m.DtMax {
		return m.DtMax
	}
	if want <= m.DtMin {
		return m.DtMin
	}
	dt := m.DtMax
	for dt/2 >= want && dt/2 >= m.DtMin {
		dt /= 2
	}
	return dt
}

// particleState is the Hermite-tracked lifecycle state for one body in the
// block integrator (spec §4.6).
type particleState int

const (
	stateInactive particleState = iota
	stateScheduled
	stateActive
	stateInit
	stateTerminated
)

// HermiteBody is one Hermite-integrated body: either a real single or a
// group's artificial CM, predicted and corrected each block step.
type HermiteBody struct {
	Particle *RealParticle // nil if this body represents a grouped CM
	GroupRef *ARGroup      // non-nil if this body is a group's CM proxy

	Mass             float64
	Pos, Vel         mgl64.Vec3
	Acc, Jerk        mgl64.Vec3
	OldAcc, OldJerk  mgl64.Vec3
	predPos, predVel mgl64.Vec3

	Time, Dt float64
	State    particleState

	Neighbors []int // indices into HermiteSystem.Bodies of current soft-pert neighbours
}

// HermiteSystem is a cluster's Hermite block-integration state.
type HermiteSystem struct {
	Bodies []*HermiteBody
	G      float64
}

// NewHermiteSystem builds a Hermite system from a cluster's ungrouped
// singles plus one CM proxy body per active group (spec §4.6: the Hermite
// layer never sees individual group members, only their CM).
func NewHermiteSystem(g float64, singles []*RealParticle, groups []*ARGroup) *HermiteSystem {
	sys := &HermiteSystem{G: g}
	for _, p := range singles {
		sys.Bodies = append(sys.Bodies, &HermiteBody{
			Particle: p,
			Mass:     p.EffectiveMass(),
			Pos:      p.Pos,
			Vel:      p.Vel,
			State:    stateInit,
		})
	}
	for _, grp := range groups {
		root := grp.Tree
		if root == nil {
			continue
		}
		sys.Bodies = append(sys.Bodies, &HermiteBody{
			GroupRef: grp,
			Mass:     root.Mass,
			Pos:      root.Pos,
			Vel:      root.Vel,
			State:    stateInit,
		})
	}
	return sys
}

// calcAccJerk computes direct-summed acceleration and jerk on body i from
// every other body (spec §4.6 — the Hermite layer's own force sum is
// separate from the soft-tree force evaluated by the outer N-body code;
// this is the within-cluster, within-block direct sum).
func (sys *HermiteSystem) calcAccJerk(i int) (acc, jerk mgl64.Vec3) {
	bi := sys.Bodies[i]
	for j, bj := range sys.Bodies {
		if j == i || bj.State == stateTerminated {
			continue
		}
		diff := bi.Pos.Sub(bj.Pos)
		r2 := diff.LenSqr()
		if r2 == 0 {
			continue
		}
		r := math.Sqrt(r2)
		r3inv := 1 / (r2 * r)
		acc = acc.Sub(diff.Mul(sys.G * bj.Mass * r3inv))

		dv := bi.Vel.Sub(bj.Vel)
		alpha := diff.Dot(dv) / r2
		jerkTerm := dv.Sub(diff.Mul(3 * alpha)).Mul(sys.G * bj.Mass * r3inv)
		jerk = jerk.Sub(jerkTerm)
	}
	return acc, jerk
}

// predict advances body i's predicted position/velocity by a 3rd-order
// Taylor expansion over dt, the Hermite predictor half of the
// predictor-corrector pair (spec §4.6).
func (b *HermiteBody) predict(dt float64) {
	b.predPos = b.Pos.
		Add(b.Vel.Mul(dt)).
		Add(b.Acc.Mul(0.5 * dt * dt)).
		Add(b.Jerk.Mul(dt * dt * dt / 6))
	b.predVel = b.Vel.
		Add(b.Acc.Mul(dt)).
		Add(b.Jerk.Mul(0.5 * dt * dt))
}

// correct applies the standard Hermite 4th-order corrector using the old and
// new acceleration/jerk pair, then re-derives position from the corrected
// velocity via the same Taylor form (Makino & Aarseth 1992).
func (b *HermiteBody) correct(dt float64, newAcc, newJerk mgl64.Vec3) {
	accSum := newAcc.Add(b.OldAcc)
	accDiff := newAcc.Sub(b.OldAcc)
	jerkSum := newJerk.Add(b.OldJerk)

	vel := b.Vel.Add(accSum.Mul(0.5 * dt)).Sub(jerkSum.Mul(dt * dt / 12))
	pos := b.Pos.
		Add(b.Vel.Add(vel).Mul(0.5 * dt)).
		Sub(accDiff.Mul(dt * dt / 12))

	b.Pos = pos
	b.Vel = vel
	b.OldAcc, b.OldJerk = newAcc, newJerk
	b.Acc, b.Jerk = newAcc, newJerk
}

// aarsethDt implements the Aarseth (1985) timestep criterion from
// acceleration, jerk, and their finite-difference higher derivatives
// approximated from the predictor-corrector difference, used to choose each
// body's next block-quantised step.
func aarsethDt(acc, jerk, snapApprox, crackApprox mgl64.Vec3, eta float64) float64 {
	a0 := acc.Len()
	a1 := jerk.Len()
	a2 := snapApprox.Len()
	a3 := crackApprox.Len()
	if a1 == 0 || a3 == 0 {
		if a0 == 0 {
			return math.Inf(1)
		}
		return math.Sqrt(eta)
	}
	num := a0*a2 + a1*a1
	den := a1*a3 + a2*a2
	if den == 0 {
		return math.Inf(1)
	}
	return math.Sqrt(eta * num / den)
}

// addGroups swaps a set of real singles out of the Hermite body list and
// replaces them with one CM proxy body per newly formed group (spec §4.6
// "adjustGroups"). Members are terminated, not removed, so their slots
// remain addressable for later resingling.
func (sys *HermiteSystem) addGroups(groups []*ARGroup) {
	byMemberID := make(map[int64]*ARGroup)
	for _, grp := range groups {
		for _, m := range grp.Members {
			byMemberID[m.ID] = grp
		}
	}
	seen := make(map[*ARGroup]bool)
	var kept []*HermiteBody
	for _, b := range sys.Bodies {
		if b.Particle != nil {
			if grp, ok := byMemberID[b.Particle.ID]; ok {
				b.State = stateTerminated
				kept = append(kept, b)
				if !seen[grp] {
					seen[grp] = true
					root := grp.Tree
					kept = append(kept, &HermiteBody{
						GroupRef: grp,
						Mass:     root.Mass,
						Pos:      root.Pos,
						Vel:      root.Vel,
						State:    stateInit,
					})
				}
				continue
			}
		}
		kept = append(kept, b)
	}
	sys.Bodies = kept
}

// adjustGroups dissolves any group whose AR integration reports Unbound
// back into individual Hermite singles (spec §4.5 termination / §4.6
// adjustGroups). When initial is true, bodies already in stateTerminated
// (member singles swapped out by addGroups) are dropped from the body
// list, matching the first-block initialisation pass.
func (sys *HermiteSystem) adjustGroups(initial bool) {
	var kept []*HermiteBody
	for _, b := range sys.Bodies {
		if b.GroupRef != nil && b.GroupRef.Unbound() {
			for _, m := range b.GroupRef.Members {
				if err := m.Resingle(); err != nil {
					continue
				}
				kept = append(kept, &HermiteBody{
					Particle: m,
					Mass:     m.EffectiveMass(),
					Pos:      m.Pos,
					Vel:      m.Vel,
					State:    stateInit,
				})
			}
			continue
		}
		if initial && b.State == stateTerminated {
			continue
		}
		kept = append(kept, b)
	}
	sys.Bodies = kept
}

// getNInitGroup returns the count of bodies still awaiting their first
// force evaluation (spec §4.6), used by the driver to decide whether a
// fresh initialisation pass over the whole block is still required.
func (sys *HermiteSystem) getNInitGroup() int {
	n := 0
	for _, b := range sys.Bodies {
		if b.State == stateInit {
			n++
		}
	}
	return n
}

// getSortDtIndexGroup returns body indices sorted by ascending next time
// (Time+Dt), the standard block-step selection order: the bodies due
// soonest are advanced first (spec §4.6).
func (sys *HermiteSystem) getSortDtIndexGroup() []int {
	idx := make([]int, len(sys.Bodies))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return sys.Bodies[idx[a]].Time+sys.Bodies[idx[a]].Dt < sys.Bodies[idx[b]].Time+sys.Bodies[idx[b]].Dt
	})
	return idx
}

// neighborRecord converts a Hermite body into the NeighborRecord shape
// ARGroup's perturbation math expects. Mass is already the body's effective
// mass (resolved once in NewHermiteSystem/addGroups), so tagging it as a
// single makes NeighborRecord.effectiveMass() return it unmodified.
func (b *HermiteBody) neighborRecord() NeighborRecord {
	return NeighborRecord{Pos: b.Pos, Mass: b.Mass, Status: SingleStatus()}
}

// findCloseSoftPert returns indices of bodies within rSearch of body i,
// used to build the per-group Perturbers list handed to ARGroup before each
// AR integration call (spec §4.5 perturber contract).
func (sys *HermiteSystem) findCloseSoftPert(i int, rSearch float64) []int {
	var out []int
	bi := sys.Bodies[i]
	for j, bj := range sys.Bodies {
		if j == i || bj.State == stateTerminated {
			continue
		}
		if bi.Pos.Sub(bj.Pos).Len() <= rSearch {
			out = append(out, j)
		}
	}
	return out
}

// initializeBlock performs the first force evaluation for every body still
// in stateInit, assigning an initial Aarseth-criterion timestep (spec §4.6).
func (sys *HermiteSystem) initializeBlock(m HermiteManager) {
	for i, b := range sys.Bodies {
		if b.State != stateInit {
			continue
		}
		acc, jerk := sys.calcAccJerk(i)
		b.Acc, b.Jerk = acc, jerk
		b.OldAcc, b.OldJerk = acc, jerk
		dt := aarsethDt(acc, jerk, mgl64.Vec3{}, mgl64.Vec3{}, m.Eta)
		b.Dt = m.quantiseDt(dt)
		b.State = stateActive
	}
}

// StepBlock advances every body whose (Time+Dt) equals the current block
// time by one Hermite predictor-corrector step, predicting every other
// active body to the same instant first (spec §4.6 block-timestep scheme).
// When UseAccCorrection is set, a second corrector pass re-evaluates acc and
// jerk at the first pass's corrected endpoint and redoes the correction
// from the step's starting state — an experimental refinement the source
// leaves ambiguous; see DESIGN.md.
func (sys *HermiteSystem) StepBlock(m HermiteManager) float64 {
	if sys.getNInitGroup() > 0 {
		sys.initializeBlock(m)
	}

	blockTime := math.Inf(1)
	for _, b := range sys.Bodies {
		if b.State != stateActive {
			continue
		}
		t := b.Time + b.Dt
		if t < blockTime {
			blockTime = t
		}
	}
	if math.IsInf(blockTime, 0) {
		return blockTime
	}

	for _, b := range sys.Bodies {
		if b.State == stateTerminated {
			continue
		}
		b.predict(blockTime - b.Time)
	}

	var active []int
	for _, i := range sys.getSortDtIndexGroup() {
		b := sys.Bodies[i]
		if b.State == stateActive && b.Time+b.Dt == blockTime {
			active = append(active, i)
		}
	}

	for _, i := range active {
		b := sys.Bodies[i]
		newAcc, newJerk := sys.predictedAccJerk(i)
		oldAcc, oldJerk := b.OldAcc, b.OldJerk
		pos0, vel0 := b.Pos, b.Vel
		b.correct(blockTime-b.Time, newAcc, newJerk)

		if m.UseAccCorrection {
			predPos0, predVel0 := b.predPos, b.predVel
			b.predPos, b.predVel = b.Pos, b.Vel
			newAcc2, newJerk2 := sys.predictedAccJerk(i)
			b.predPos, b.predVel = predPos0, predVel0
			b.Pos, b.Vel = pos0, vel0
			b.OldAcc, b.OldJerk = oldAcc, oldJerk
			b.correct(blockTime-b.Time, newAcc2, newJerk2)
		}

		snapApprox := newJerk.Sub(oldJerk).Mul(1 / (blockTime - b.Time + 1e-300))
		h := blockTime - b.Time + 1e-300
		crackApprox := oldAcc.Sub(newAcc).Mul(12).Add(oldJerk.Add(newJerk).Mul(6 * h)).Mul(1 / (h * h * h))
		dt := aarsethDt(newAcc, newJerk, snapApprox, crackApprox, m.Eta)
		b.Dt = m.quantiseDt(dt)
		b.Time = blockTime
	}

	activeSet := make(map[int]bool, len(active))
	for _, i := range active {
		activeSet[i] = true
	}
	for i, b := range sys.Bodies {
		if b.State == stateTerminated || activeSet[i] {
			continue
		}
		// Bodies not due this block keep their predicted state until their
		// own corrector step runs; corrected bodies already hold
		// authoritative Pos/Vel from b.correct above.
		b.Pos, b.Vel = b.predPos, b.predVel
	}

	return blockTime
}

// predictedAccJerk computes acc/jerk for body i against every other body's
// currently predicted state, the force evaluation the Hermite corrector
// needs (spec §4.6).
func (sys *HermiteSystem) predictedAccJerk(i int) (acc, jerk mgl64.Vec3) {
	bi := sys.Bodies[i]
	pos, vel := bi.predPos, bi.predVel
	for j, bj := range sys.Bodies {
		if j == i || bj.State == stateTerminated {
			continue
		}
		opos, ovel := bj.predPos, bj.predVel
		diff := pos.Sub(opos)
		r2 := diff.LenSqr()
		if r2 == 0 {
			continue
		}
		r := math.Sqrt(r2)
		r3inv := 1 / (r2 * r)
		acc = acc.Sub(diff.Mul(sys.G * bj.Mass * r3inv))

		dv := vel.Sub(ovel)
		alpha := diff.Dot(dv) / r2
		jerkTerm := dv.Sub(diff.Mul(3 * alpha)).Mul(sys.G * bj.Mass * r3inv)
		jerk = jerk.Sub(jerkTerm)
	}
	return acc, jerk
}

// writeBack copies Hermite-authoritative state back onto the underlying
// RealParticle / ARGroup root for ungrouped singles and group CMs
// respectively (spec §4.7 "write-back").
func (sys *HermiteSystem) writeBack() {
	for _, b := range sys.Bodies {
		if b.State == stateTerminated {
			continue
		}
		if b.Particle != nil {
			b.Particle.Pos, b.Particle.Vel = b.Pos, b.Vel
			continue
		}
		if b.GroupRef != nil && b.GroupRef.Tree != nil {
			d := b.Pos.Sub(b.GroupRef.Tree.Pos)
			dv := b.Vel.Sub(b.GroupRef.Tree.Vel)
			b.GroupRef.Tree.shiftSubtree(d, dv)
		}
	}
}
