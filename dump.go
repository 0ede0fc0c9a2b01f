package hardstep

import (
	"encoding/json"
	"time"
)

// HardDump is the diagnostic record written on a fatal path (spec §6): the
// raw cluster state needed to reproduce a failing step offline, named
// hard_dump after the source's crash-dump struct.
type HardDump struct {
	ClusterID  int              `json:"cluster_id"`
	StepID     string           `json:"step_id"`
	Time       float64          `json:"time"`
	DtTree     float64          `json:"dt_tree"`
	NSplit     int              `json:"n_split"`
	Particles  []RealParticle   `json:"particles"`
	Groups     []Group          `json:"groups"`
	Reason     string           `json:"reason"`
	EnergyErr  float64          `json:"energy_error_abs"`
	CapturedAt time.Time        `json:"captured_at"`
}

// NewHardDump snapshots the inputs needed to replay a failing cluster step.
func NewHardDump(clusterID int, stepID string, t, dtTree float64, nSplit int, particles []RealParticle, groups []Group, reason string, energyErr float64, capturedAt time.Time) HardDump {
	cp := make([]RealParticle, len(particles))
	copy(cp, particles)
	return HardDump{
		ClusterID: clusterID, StepID: stepID, Time: t, DtTree: dtTree, NSplit: nSplit,
		Particles: cp, Groups: groups, Reason: reason, EnergyErr: energyErr, CapturedAt: capturedAt,
	}
}

// MarshalForLog renders the dump as single-line JSON suitable for a log
// sink (spec §6 "dumps are logged, not just written to disk, so they show
// up in the same aggregation pipeline as everything else").
func (d HardDump) MarshalForLog() ([]byte, error) {
	return json.Marshal(d)
}
