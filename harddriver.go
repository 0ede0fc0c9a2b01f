package hardstep

import (
	"context"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// HardEnergy is the per-cluster energy bookkeeping record of SPEC_FULL §D.1
// (grounded on the source's HardEnergy accounting struct): the physical and
// slow-down-corrected reference energies plus their cumulative changes,
// merged additively across clusters at the end of a step.
type HardEnergy struct {
	EtotRef        float64
	EtotSDRef      float64
	DEChangeCum    float64
	DESDChangeCum  float64
}

// Accumulate merges another cluster's energy bookkeeping into this one
// (spec §7, additive across clusters processed in the same step).
func (e *HardEnergy) Accumulate(other HardEnergy) {
	e.EtotRef += other.EtotRef
	e.EtotSDRef += other.EtotSDRef
	e.DEChangeCum += other.DEChangeCum
	e.DESDChangeCum += other.DESDChangeCum
}

// ClusterStepResult is what ProcessCluster hands back to the caller: the
// advanced particles, this cluster's artificial-particle blocks (for the
// tree's next rebuild), and its energy bookkeeping contribution.
type ClusterStepResult struct {
	Particles []RealParticle
	Blocks    []*ArtificialBlock
	Energy    HardEnergy
	Groups    []Group
}

// preprocessCluster validates INV-M and INV-R on every particle before the
// step — a defensive pass that a serialized/reloaded cluster has not
// silently desynced. It changes no particle state.
func preprocessCluster(cluster []RealParticle) error {
	for i := range cluster {
		if err := cluster[i].CheckInvariantM(); err != nil {
			return err
		}
		if err := cluster[i].CheckInvariantR(); err != nil {
			return err
		}
	}
	return nil
}

// ProcessCluster runs the full per-cluster hard algorithm of spec §4.7:
// group search, artificial-particle materialisation, the Hermite block
// integrator driving ungrouped singles and group CM proxies together, AR
// integration of each group's internal dynamics, force-correction, r_search
// update, and CM-frame bookkeeping. It is the single entry point a caller
// (the fork-join driver of spec §5) invokes once per cluster per step.
func (m *HardManager) ProcessCluster(ctx context.Context, clusterID int, cluster []RealParticle, dtTree float64) (ClusterStepResult, error) {
	stepID := uuid.NewString()
	ctx, span := clusterStepSpan(ctx, m.Tracer, stepID, len(cluster), 0)
	defer span.End()

	if err := preprocessCluster(cluster); err != nil {
		return ClusterStepResult{}, err
	}

	groups := FindGroups(cluster)
	span.SetAttributes(attribute.Int("hardstep.group_count", len(groups)))

	ptrs := make([]*RealParticle, len(cluster))
	for i := range cluster {
		ptrs[i] = &cluster[i]
	}

	var blocks []*ArtificialBlock
	var arGroups []*ARGroup
	for _, grp := range groups {
		members := make([]*RealParticle, len(grp.Members))
		for i, idx := range grp.Members {
			members[i] = ptrs[idx]
		}
		for _, mem := range members {
			if !mem.Status.IsGrouped() {
				if err := mem.Group(grp.GroupID); err != nil {
					return ClusterStepResult{}, err
				}
			}
		}

		block, err := m.ArtificialParticle.CreateArtificialParticles(clusterID, grp.GroupID, members, dtTree)
		if err != nil {
			return ClusterStepResult{}, err
		}
		if err := block.checkConsistence(members); err != nil {
			return ClusterStepResult{}, err
		}
		blocks = append(blocks, block)

		arGrp := NewARGroup(clusterID, grp.GroupID, members, m.G, TidalTensor{})
		arGroups = append(arGroups, arGrp)
	}

	// Fit each group's tidal tensor and seed its perturber list from the
	// rest of the cluster before any AR integration begins (spec §4.7 steps
	// 2-3: "fit its tidal tensor; integrate"). Groups that cover the whole
	// cluster naturally end up with a zero tensor and no perturbers, since
	// there is nothing left outside them to perturb the internal dynamics.
	for i, arGrp := range arGroups {
		var otherCMs []*ArtificialParticle
		for j, other := range blocks {
			if j == i {
				continue
			}
			otherCMs = append(otherCMs, other.getCMParticle())
		}
		arGrp.Tidal = blocks[i].fitExternalTidalTensor(ptrs, otherCMs, m.G, m.EpsSq)

		memberIDs := make(map[int64]bool, len(arGrp.Members))
		for _, mem := range arGrp.Members {
			memberIDs[mem.ID] = true
		}
		var perturbers []NeighborRecord
		for _, p := range ptrs {
			if memberIDs[p.ID] {
				continue
			}
			perturbers = append(perturbers, NeighborRecord{Pos: p.Pos, Mass: p.Mass, MassBackup: p.MassBackup, Status: p.Status, Changeover: p.Changeover})
		}
		arGrp.Perturbers = perturbers
	}

	if len(arGroups) == 1 && len(arGroups[0].Members) == len(cluster) {
		// Single-group-covers-cluster fast path (spec §4.7): the whole
		// cluster is one bound group, so there is nothing for the Hermite
		// layer to do. Integrate the group's internal dynamics, then drift
		// its centre of mass linearly over the step and shift the whole
		// subtree back into the (now translated) origin frame — the
		// Hermite CM proxy does this for every other path via writeBack,
		// but an isolated group never touches the Hermite layer at all.
		root := arGroups[0].Tree
		if err := arGroups[0].IntegrateToTime(m.AR, dtTree); err != nil {
			return ClusterStepResult{}, err
		}
		if root != nil {
			root.shiftSubtree(root.Vel.Mul(dtTree), mgl64.Vec3{})
		}
	} else if len(arGroups) > 0 {
		if err := m.runGeneralPath(ctx, ptrs, arGroups, dtTree); err != nil {
			return ClusterStepResult{}, err
		}
	} else {
		sys := NewHermiteSystem(m.G, ptrs, nil)
		sys.adjustGroups(true)
		t := 0.0
		for t < dtTree {
			next := sys.StepBlock(m.Hermite)
			if math.IsInf(next, 0) {
				break
			}
			t = next
		}
		sys.writeBack()
	}

	CorrectForceClusterLocal(ptrs, blocks, m.EpsSq, m.ROutBase)

	var energy HardEnergy
	for _, arGrp := range arGroups {
		energy.DESDChangeCum += arGrp.DeSDChangeCum
		energy.EtotRef += arGrp.EnergyRef
		energy.EtotSDRef += arGrp.EnergySDRef
		errAbs := arGrp.EnergyError()
		m.Metrics.observeEnergyError(errAbs)
		if errAbs > m.EnergyErrorMax {
			dump := NewHardDump(clusterID, stepID, arGrp.Time, dtTree, m.ArtificialParticle.NSplit, cluster, groups, "energy-budget-exceeded", errAbs, time.Now())
			if payload, mErr := dump.MarshalForLog(); mErr == nil {
				m.Logger.Errorf("hard_dump %s", string(payload))
			}
			return ClusterStepResult{}, energyBudgetExceeded("energy-error", "cluster %d group %d slow-down energy error %g exceeds budget %g", clusterID, arGrp.GroupID, errAbs, m.EnergyErrorMax)
		}
	}

	for i := range cluster {
		rSearchCM := 0.0
		if cluster[i].Status.IsGrouped() {
			for _, arGrp := range arGroups {
				if arGrp.GroupID == cluster[i].Status.CMIndex {
					for _, mem := range arGrp.Members {
						if mem.RSearch > rSearchCM {
							rSearchCM = mem.RSearch
						}
					}
				}
			}
			cluster[i].UpdateRSearch(rSearchCM)
		}
	}

	m.Metrics.clusterDone()
	var substeps int64
	for _, arGrp := range arGroups {
		substeps += int64(arGrp.stepCount)
	}
	m.Metrics.addSubsteps(substeps)

	return ClusterStepResult{Particles: cluster, Blocks: blocks, Energy: energy, Groups: groups}, nil
}

// runGeneralPath drives the Hermite block integrator over ungrouped singles
// and group CM proxies together, updating each group's AR internal state
// whenever its CM proxy is advanced (spec §4.7 general path).
func (m *HardManager) runGeneralPath(ctx context.Context, ptrs []*RealParticle, arGroups []*ARGroup, dtTree float64) error {
	groupedIDs := make(map[int64]bool)
	for _, grp := range arGroups {
		for _, mem := range grp.Members {
			groupedIDs[mem.ID] = true
		}
	}
	var singles []*RealParticle
	for _, p := range ptrs {
		if !groupedIDs[p.ID] {
			singles = append(singles, p)
		}
	}

	sys := NewHermiteSystem(m.G, singles, arGroups)
	sys.adjustGroups(true)

	t := 0.0
	for t < dtTree {
		next := sys.StepBlock(m.Hermite)
		if math.IsInf(next, 0) {
			break
		}
		t = next

		for i, b := range sys.Bodies {
			if b.GroupRef == nil || b.State == stateTerminated {
				continue
			}
			// Refresh the group's soft-perturber list from its current
			// Hermite neighbourhood before integrating (spec §4.5/§4.6
			// perturber contract), since the group's CM proxy has just
			// moved relative to everything else in the block.
			neighborIdx := sys.findCloseSoftPert(i, b.GroupRef.maxMemberRSearch())
			perturbers := make([]NeighborRecord, 0, len(neighborIdx))
			for _, j := range neighborIdx {
				perturbers = append(perturbers, sys.Bodies[j].neighborRecord())
			}
			b.GroupRef.Perturbers = perturbers

			if err := b.GroupRef.IntegrateToTime(m.AR, t); err != nil {
				return err
			}
		}
		sys.adjustGroups(false)
	}
	sys.writeBack()
	return nil
}
