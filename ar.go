package hardstep

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ARManager holds the configuration for the algorithmic-regularisation
// integrator (spec §4.5): integration order, the minimum real timestep
// allowed before a group is considered stiff, the maximum slow-down factor,
// and the step-count ceiling inherited from the original's step_count_max
// (SPEC_FULL §D.3).
type ARManager struct {
	Order            int
	TimeStepRealMin  float64
	TimeErrorMaxReal float64
	KappaMax         float64
	StepCountMax     int
}

func (m ARManager) Check() error {
	if m.Order < 2 || m.Order%2 != 0 {
		return invariantViolation("ar-config", "ARManager.Order must be an even number >=2, got %d", m.Order)
	}
	if m.TimeStepRealMin <= 0 {
		return invariantViolation("ar-config", "ARManager.TimeStepRealMin must be >0, got %g", m.TimeStepRealMin)
	}
	if m.KappaMax < 1 {
		return invariantViolation("ar-config", "ARManager.KappaMax must be >=1, got %g", m.KappaMax)
	}
	if m.StepCountMax <= 0 {
		return invariantViolation("ar-config", "ARManager.StepCountMax must be >0, got %d", m.StepCountMax)
	}
	return nil
}

// BinaryTreeNode is one node of a group's hierarchical pairing (spec §4.5
// "binary tree"). A leaf wraps a single real member; an internal node pairs
// two subtrees treated, for the purposes of its own parent, as a single
// point mass at their combined centre of mass.
type BinaryTreeNode struct {
	Leaf        *RealParticle
	Left, Right *BinaryTreeNode

	Mass     float64
	Pos, Vel mgl64.Vec3

	Semi, Ecc, Period float64
	BreakR            float64
}

func (n *BinaryTreeNode) isLeaf() bool { return n.Leaf != nil }

// syncFromChildren recomputes an internal node's combined mass/COM bottom-up
// from its children's current state.
func (n *BinaryTreeNode) syncFromChildren() {
	if n.isLeaf() {
		n.Mass = n.Leaf.EffectiveMass()
		n.Pos = n.Leaf.Pos
		n.Vel = n.Leaf.Vel
		return
	}
	n.Left.syncFromChildren()
	n.Right.syncFromChildren()
	total := n.Left.Mass + n.Right.Mass
	n.Mass = total
	if total == 0 {
		return
	}
	n.Pos = n.Left.Pos.Mul(n.Left.Mass / total).Add(n.Right.Pos.Mul(n.Right.Mass / total))
	n.Vel = n.Left.Vel.Mul(n.Left.Mass / total).Add(n.Right.Vel.Mul(n.Right.Mass / total))
}

// refreshElements recomputes semi/ecc/period/break-radius for every internal
// node from its children's current relative state.
func (n *BinaryTreeNode) refreshElements(g float64) {
	if n.isLeaf() {
		return
	}
	n.Left.refreshElements(g)
	n.Right.refreshElements(g)
	mu := g * n.Mass
	relPos := n.Left.Pos.Sub(n.Right.Pos)
	relVel := n.Left.Vel.Sub(n.Right.Vel)
	el := ComputeKeplerElements(relPos, relVel, mu)
	n.Semi, n.Ecc, n.Period = el.Semi, el.Ecc, el.Period
	n.BreakR = el.BreakRadius(arBreakRadiusFactor)
}

const arBreakRadiusFactor = 3.0

// shiftSubtree applies a rigid translation in position and velocity to every
// leaf beneath n, keeping the subtree's internal structure intact while
// moving its centre of mass (used to redistribute a node's Kepler-drift
// displacement down to the real particles it ultimately represents).
func (n *BinaryTreeNode) shiftSubtree(dPos, dVel mgl64.Vec3) {
	if n.isLeaf() {
		n.Leaf.Pos = n.Leaf.Pos.Add(dPos)
		n.Leaf.Vel = n.Leaf.Vel.Add(dVel)
		n.Pos = n.Pos.Add(dPos)
		n.Vel = n.Vel.Add(dVel)
		return
	}
	n.Left.shiftSubtree(dPos, dVel)
	n.Right.shiftSubtree(dPos, dVel)
	n.Pos = n.Pos.Add(dPos)
	n.Vel = n.Vel.Add(dVel)
}

// keplerDrift advances every node's relative orbit analytically by dtPhys of
// wall time, slowed by kappa (the inner orbital phase only — the caller's
// kick step still applies perturbation over the full dtPhys). Children are
// drifted before their parent since a pure two-body Kepler step conserves
// its own pair's centre of mass, leaving the parent's relative state
// well-defined from the already-updated children.
func (n *BinaryTreeNode) keplerDrift(g, kappa, dtPhys float64) {
	if n.isLeaf() {
		return
	}
	n.Left.keplerDrift(g, kappa, dtPhys)
	n.Right.keplerDrift(g, kappa, dtPhys)

	total := n.Left.Mass + n.Right.Mass
	if total == 0 {
		return
	}
	relPos := n.Left.Pos.Sub(n.Right.Pos)
	relVel := n.Left.Vel.Sub(n.Right.Vel)
	mu := g * total
	dtKepler := dtPhys / kappa
	newRelPos, newRelVel := keplerPropagate(relPos, relVel, dtKepler, mu)

	dRelPos := newRelPos.Sub(relPos)
	dRelVel := newRelVel.Sub(relVel)
	wLeft := n.Right.Mass / total
	wRight := n.Left.Mass / total

	n.Left.shiftSubtree(dRelPos.Mul(wLeft), dRelVel.Mul(wLeft))
	n.Right.shiftSubtree(dRelPos.Mul(-wRight), dRelVel.Mul(-wRight))
}

// buildBinaryTree constructs a group's hierarchy by repeatedly pairing the
// two most bound bodies (spec §4.5), grounded on the source's use of the
// dominant-pair search already shared with artificial-particle placement
// (artificial.go's dominantBinary) generalised to repeat until one root
// remains — a hierarchical pairing by lowest two-body energy.
func buildBinaryTree(members []*RealParticle, g float64) *BinaryTreeNode {
	nodes := make([]*BinaryTreeNode, len(members))
	for i, p := range members {
		nodes[i] = &BinaryTreeNode{Leaf: p, Mass: p.EffectiveMass(), Pos: p.Pos, Vel: p.Vel}
	}
	for len(nodes) > 1 {
		bestI, bestJ := 0, 1
		bestEnergy := math.Inf(1)
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				r := nodes[i].Pos.Sub(nodes[j].Pos).Len()
				if r == 0 {
					continue
				}
				v2 := nodes[i].Vel.Sub(nodes[j].Vel).LenSqr()
				mu := g * (nodes[i].Mass + nodes[j].Mass)
				e := 0.5*v2 - mu/r
				if e < bestEnergy {
					bestEnergy, bestI, bestJ = e, i, j
				}
			}
		}
		left, right := nodes[bestI], nodes[bestJ]
		parent := &BinaryTreeNode{Left: left, Right: right}
		parent.syncFromChildren()

		next := make([]*BinaryTreeNode, 0, len(nodes)-1)
		for k, node := range nodes {
			if k == bestI || k == bestJ {
				continue
			}
			next = append(next, node)
		}
		next = append(next, parent)
		nodes = next
	}
	if len(nodes) == 0 {
		return nil
	}
	root := nodes[0]
	root.refreshElements(g)
	return root
}

// ARGroup is one bound group's AR integration state: its binary tree, the
// current slow-down factor, and the running slow-down energy bookkeeping
// (spec §4.5, §7 HardEnergy).
type ARGroup struct {
	ClusterID int
	GroupID   int
	Members   []*RealParticle
	Tree      *BinaryTreeNode
	G         float64

	Kappa         float64
	DeSDChangeCum float64
	EnergyRef     float64
	EnergySDRef   float64

	Perturbers []NeighborRecord
	Tidal      TidalTensor

	Time      float64
	stepCount int
}

// NewARGroup constructs a group's AR state and takes an initial energy
// snapshot (spec §4.5/§7): EnergyRef and EnergySDRef both start equal to the
// un-slowed physical energy, since kappa starts at 1.
func NewARGroup(clusterID, groupID int, members []*RealParticle, g float64, tidal TidalTensor) *ARGroup {
	grp := &ARGroup{
		ClusterID: clusterID,
		GroupID:   groupID,
		Members:   members,
		G:         g,
		Kappa:     1,
		Tidal:     tidal,
	}
	grp.Tree = buildBinaryTree(members, g)
	e := grp.computePhysicalEnergy()
	grp.EnergyRef = e
	grp.EnergySDRef = e
	return grp
}

// computePhysicalEnergy returns the group's internal (member-pairwise)
// energy: kinetic plus mutual potential, in the CM frame of the group.
func (grp *ARGroup) computePhysicalEnergy() float64 {
	e := 0.0
	for _, p := range grp.Members {
		e += 0.5 * p.EffectiveMass() * p.Vel.LenSqr()
	}
	for i := 0; i < len(grp.Members); i++ {
		for j := i + 1; j < len(grp.Members); j++ {
			r := grp.Members[i].Pos.Sub(grp.Members[j].Pos).Len()
			if r == 0 {
				continue
			}
			e -= grp.G * grp.Members[i].EffectiveMass() * grp.Members[j].EffectiveMass() / r
		}
	}
	return e
}

// maxMemberRSearch returns the widest r_search among the group's members,
// the natural neighbour-search radius for refreshing this group's
// perturber list (spec §4.5/§4.6 perturber contract).
func (grp *ARGroup) maxMemberRSearch() float64 {
	r := 0.0
	for _, m := range grp.Members {
		if m.RSearch > r {
			r = m.RSearch
		}
	}
	return r
}

// calcSoftPertMin implements the perturber contract of spec §4.5: the
// minimum, over several phases of the root binary's orbit, of the ratio
// between the external (tidal plus neighbour) acceleration and the binary's
// own internal (mutual) acceleration. A small ratio means the pair is
// weakly perturbed and can tolerate a large slow-down factor.
func (grp *ARGroup) calcSoftPertMin() float64 {
	root := grp.Tree
	if root == nil || root.isLeaf() {
		return math.Inf(1)
	}
	mu := grp.G * root.Mass
	const samples = 8
	minRatio := math.Inf(1)
	for s := 0; s < samples; s++ {
		theta := 2 * math.Pi * float64(s) / float64(samples)
		el := ComputeKeplerElements(root.Left.Pos.Sub(root.Right.Pos), root.Left.Vel.Sub(root.Right.Vel), mu)
		r := el.RadiusAtTrueAnomaly(theta)
		if math.IsInf(r, 0) || r <= 0 {
			continue
		}
		internalAcc := mu / (r * r)
		relPos := el.PositionAtTrueAnomaly(theta)
		extAcc := grp.Tidal.AccelerationAt(relPos).Len()
		for _, pert := range grp.Perturbers {
			d := relPos.Add(root.Pos).Sub(pert.Pos)
			dist2 := d.LenSqr()
			if dist2 == 0 {
				continue
			}
			extAcc += grp.G * pert.effectiveMass() / dist2
		}
		if internalAcc == 0 {
			continue
		}
		ratio := extAcc / internalAcc
		if ratio < minRatio {
			minRatio = ratio
		}
	}
	return minRatio
}

// updateSlowDown recomputes kappa from the current perturbation ratio and
// accumulates the bookkeeping energy jump into DeSDChangeCum (spec §4.5,
// §7). Per the source's symplectic requirement, this is only called by the
// caller at a synchronised integration boundary, never mid-step.
func (grp *ARGroup) updateSlowDown(kappaMax float64) {
	ratio := grp.calcSoftPertMin()
	var allowed float64
	switch {
	case math.IsInf(ratio, 0) || ratio <= 0:
		allowed = kappaMax
	default:
		allowed = 1 / ratio
	}
	if allowed > kappaMax {
		allowed = kappaMax
	}
	if allowed < 1 {
		allowed = 1
	}
	if allowed == grp.Kappa {
		return
	}
	// The slow-down corrected energy is defined so that the internal
	// kinetic term of every binary node is scaled by 1/kappa; changing
	// kappa therefore jumps the reference value by the resulting delta in
	// that scaled kinetic term, recorded rather than physically applied.
	oldKinetic := grp.internalKineticEnergy()
	delta := oldKinetic*(1/allowed-1/grp.Kappa)
	grp.DeSDChangeCum += delta
	grp.EnergySDRef += delta
	grp.Kappa = allowed
}

func (grp *ARGroup) internalKineticEnergy() float64 {
	e := 0.0
	for _, p := range grp.Members {
		e += 0.5 * p.EffectiveMass() * p.Vel.LenSqr()
	}
	return e
}

// perturbationKick applies the external acceleration (tidal tensor plus any
// registered perturbers) to every member's velocity for half (or a full, per
// the caller) physical timestep — the "kick" half of the kick-drift-kick map.
func (grp *ARGroup) perturbationKick(dt float64) {
	cm := grp.Tree.Pos
	for _, p := range grp.Members {
		acc := grp.Tidal.AccelerationAt(p.Pos.Sub(cm))
		for _, pert := range grp.Perturbers {
			d := p.Pos.Sub(pert.Pos)
			dist2 := d.LenSqr()
			if dist2 == 0 {
				continue
			}
			dist := math.Sqrt(dist2)
			acc = acc.Sub(d.Mul(grp.G * pert.effectiveMass() / (dist2 * dist)))
		}
		p.Vel = p.Vel.Add(acc.Mul(dt))
	}
	grp.Tree.syncFromChildren()
}

// kdkBase is the elementary second-order symmetric symplectic map: kick
// half, drift the full step analytically (slowed by kappa), kick half
// again. Higher even orders are reached by recursive composition in
// symplecticStep.
func (grp *ARGroup) kdkBase(dt float64) {
	grp.perturbationKick(dt / 2)
	grp.Tree.keplerDrift(grp.G, grp.Kappa, dt)
	grp.Tree.syncFromChildren()
	grp.perturbationKick(dt / 2)
}

// symplecticStep composes kdkBase to the requested even order via the
// standard Suzuki recursive triple-jump construction: S_n built from three
// weighted applications of S_{n-2}, which collapses to kdkBase itself at
// order 2. This is what lets ARManager.Order take the "typically 6 or 8"
// values spec §4.5 calls for without a distinct coefficient table per order.
func (grp *ARGroup) symplecticStep(order int, dt float64) {
	if order <= 2 {
		grp.kdkBase(dt)
		return
	}
	x1 := 1 / (2 - math.Pow(2, 1/float64(order-1)))
	x0 := 1 - 2*x1
	grp.symplecticStep(order-2, x1*dt)
	grp.symplecticStep(order-2, x0*dt)
	grp.symplecticStep(order-2, x1*dt)
}

// calcDsAndStepOption picks the next step: the remaining interval, raised to
// TimeStepRealMin when it is smaller. It does not bound the step from above;
// IntegrateToTime clips it back to the remaining interval, so each call
// there normally covers the remaining interval in one composed step.
func calcDsAndStepOption(remaining, timeStepRealMin float64) float64 {
	ds := remaining
	if ds < timeStepRealMin {
		ds = timeStepRealMin
	}
	return ds
}

// IntegrateToTime advances the group from its current internal time to
// tEnd, recomputing the slow-down factor once per call at the (synchronised)
// boundary to preserve the symplectic map's time-reversibility within a
// single call (spec §4.5: "adjusted only at apocentre or end of integration
// intervals"). Returns an EnergyBudgetExceeded error if StepCountMax would
// be exceeded before reaching tEnd.
func (grp *ARGroup) IntegrateToTime(cfg ARManager, tEnd float64) error {
	grp.updateSlowDown(cfg.KappaMax)
	t := grp.Time
	for t < tEnd {
		remaining := tEnd - t
		ds := calcDsAndStepOption(remaining, cfg.TimeStepRealMin)
		if ds > remaining {
			ds = remaining
		}
		grp.stepCount++
		if grp.stepCount > cfg.StepCountMax {
			grp.Time = t
			return energyBudgetExceeded("step-count-max", "AR group %d exceeded step_count_max=%d before reaching t_end", grp.GroupID, cfg.StepCountMax)
		}
		grp.symplecticStep(cfg.Order, ds)
		t += ds
	}
	grp.Time = t
	return nil
}

// EnergyError returns the current physical energy error used by the hard
// driver's diagnostic-dump trigger (spec §7): the absolute drift between the
// recomputed physical energy and the group's reference at creation. Kepler
// drift conserves the true two-body energy exactly regardless of kappa, so
// DeSDChangeCum (a bookkeeping quantity for EnergySDRef, not a physical
// energy change) plays no part here — folding it in would flag every
// routine slow-down adjustment as a budget violation.
func (grp *ARGroup) EnergyError() float64 {
	phys := grp.computePhysicalEnergy()
	return math.Abs(phys - grp.EnergyRef)
}

// Unbound reports whether the root binary has crossed its break radius
// (spec §4.5 "termination"), signalling the group should be dissolved back
// into Hermite-tracked singles by the caller (hermite.go's adjustGroups).
func (grp *ARGroup) Unbound() bool {
	root := grp.Tree
	if root == nil || root.isLeaf() {
		return false
	}
	r := root.Left.Pos.Sub(root.Right.Pos).Len()
	return r > root.BreakR
}
