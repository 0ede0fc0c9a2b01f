package hardstep

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Role is the explicit tagged-variant replacement for the source's
// sign-and-magnitude-encoded double-valued status field (Design Note
// "Status polymorphism by tagged scalar"). Exactly one role applies to a
// particle at any time.
type Role int

const (
	RoleSingle Role = iota
	RoleMember
	RoleTidalProbe
	RoleOrbitalProbe
	RoleCenterOfMass
)

func (r Role) String() string {
	switch r {
	case RoleSingle:
		return "single"
	case RoleMember:
		return "member"
	case RoleTidalProbe:
		return "tidal_probe"
	case RoleOrbitalProbe:
		return "orbital_probe"
	case RoleCenterOfMass:
		return "center_of_mass"
	default:
		return "unknown"
	}
}

// Status replaces the source's `status` double. CMIndex is only meaningful
// when Role == RoleMember, and holds the index of the owning CM particle in
// whatever array the caller indexes by (global real-particle array for
// real members, artificial-particle block for probes' implicit CM link).
type Status struct {
	Role    Role
	CMIndex int
}

func SingleStatus() Status { return Status{Role: RoleSingle} }

func MemberStatus(cmIndex int) Status { return Status{Role: RoleMember, CMIndex: cmIndex} }

func (s Status) IsGrouped() bool { return s.Role == RoleMember }

// Changeover holds the smooth radial switch's two endpoints plus the
// rescale hint for the next tree step (spec §3).
type Changeover struct {
	RIn         float64
	ROut        float64
	RScaleNext  float64 // 1.0 means "no rescale pending"
}

func NewChangeover(rIn, rOut float64) Changeover {
	return Changeover{RIn: rIn, ROut: rOut, RScaleNext: 1.0}
}

// sameROut reports whether two changeovers agree on r_out to within the
// tight tolerance INV-C requires of a CM and every member of its group.
const rOutTolerance = 1e-10

func (c Changeover) sameROut(other Changeover) bool {
	return math.Abs(c.ROut-other.ROut) < rOutTolerance
}

// rInEqualWithinRoundoff reports whether two changeovers' r_in values agree
// to within 1e-10. It only tests; it does not copy one changeover onto the
// other, and nothing in this package calls it.
const rInSnapTolerance = 1e-10

func (c Changeover) rInEqualWithinRoundoff(other Changeover) bool {
	return math.Abs(c.RIn-other.RIn) < rInSnapTolerance
}

// RealParticle is the real-particle record of spec §3. MassBackup plays the
// role of the source's `mass_bk.d`: while the particle is a bound-group
// member, Mass is zeroed and the pre-group mass lives here (INV-M).
type RealParticle struct {
	ID     int64
	Mass   float64
	MassBackup float64

	Pos mgl64.Vec3
	Vel mgl64.Vec3

	AccSoft mgl64.Vec3
	PotSoft float64

	RSearch    float64
	Changeover Changeover
	Status     Status

	// AdrOrg is the back-index into the external global particle array.
	// Negative means remote / not locally owned (spec §3 Ownership).
	AdrOrg int64

	// stashed CM velocity/mass for the next cluster-search pass (the
	// source's status.f/mass_bk.f cache trick, kept here as a plain
	// auxiliary pair per Design Note "Status polymorphism by tagged scalar").
	stashedCMVel  mgl64.Vec3
	stashedCMMass float64
	hasStash      bool
}

// CheckInvariantM validates INV-M: while grouped, Mass == 0 and
// MassBackup > 0; no member may contribute mass to soft-force sums.
func (p *RealParticle) CheckInvariantM() error {
	if !p.Status.IsGrouped() {
		return nil
	}
	if p.Mass != 0 {
		return invariantViolation("INV-M", "particle %d is grouped but mass=%g (want 0)", p.ID, p.Mass)
	}
	if p.MassBackup <= 0 {
		return invariantViolation("INV-M", "particle %d is grouped but mass_bk=%g (want >0)", p.ID, p.MassBackup)
	}
	return nil
}

// CheckInvariantR validates INV-R: r_search must be strictly greater than
// r_out.
func (p *RealParticle) CheckInvariantR() error {
	if p.RSearch <= p.Changeover.ROut {
		return invariantViolation("INV-R", "particle %d has r_search=%g <= r_out=%g", p.ID, p.RSearch, p.Changeover.ROut)
	}
	return nil
}

// EffectiveMass returns the mass that should be used in force sums: Mass
// when single/CM/artificial, MassBackup when a group member (spec §4.4's
// "substitute m_j with mass_bk.d" rule generalized to any reader).
func (p *RealParticle) EffectiveMass() float64 {
	if p.Status.IsGrouped() {
		return p.MassBackup
	}
	return p.Mass
}

// Group promotes a single particle to a bound-group member: backs up its
// mass, zeros Mass, and records the owning CM index (spec §3 / INV-M).
func (p *RealParticle) Group(cmIndex int) error {
	if p.Status.Role != RoleSingle {
		return invariantViolation("INV-M", "particle %d promoted to member from role %s, want single", p.ID, p.Status.Role)
	}
	p.MassBackup = p.Mass
	p.Mass = 0
	p.Status = MemberStatus(cmIndex)
	return nil
}

// Resingle reverses Group: restores Mass from MassBackup and clears it.
func (p *RealParticle) Resingle() error {
	if err := p.CheckInvariantM(); err != nil {
		return err
	}
	p.Mass = p.MassBackup
	p.MassBackup = 0
	p.Status = SingleStatus()
	return nil
}

// UpdateRSearch implements "for a group member, r_search <- max(r_search,
// r_search_CM)" (spec §3/§4.7).
func (p *RealParticle) UpdateRSearch(rSearchCM float64) {
	if rSearchCM > p.RSearch {
		p.RSearch = rSearchCM
	}
}

// StashCMInfo caches the owning CM's velocity and mass for the next
// cluster-search pass, replacing the source's status.f/mass_bk.f lanes with
// an explicit auxiliary pair (Design Note "Status polymorphism").
func (p *RealParticle) StashCMInfo(cmVel mgl64.Vec3, cmMass float64) {
	p.stashedCMVel = cmVel
	p.stashedCMMass = cmMass
	p.hasStash = true
}

func (p *RealParticle) StashedCMInfo() (vel mgl64.Vec3, mass float64, ok bool) {
	return p.stashedCMVel, p.stashedCMMass, p.hasStash
}

// ArtificialKind distinguishes the three artificial-particle roles within a
// group's block (spec §3/§4.2).
type ArtificialKind int

const (
	ArtificialTidalProbe ArtificialKind = iota
	ArtificialOrbitalProbe
	ArtificialCenterOfMass
)

// ArtificialParticle is a transient probe or CM particle (spec §3). It
// shares the same physical fields as RealParticle so force-correction code
// can treat both uniformly, plus the block-linkage metadata from §4.2.
type ArtificialParticle struct {
	Mass float64
	Pos  mgl64.Vec3
	Vel  mgl64.Vec3

	AccSoft mgl64.Vec3
	PotSoft float64

	Changeover Changeover
	Kind       ArtificialKind

	ClusterID     int
	GroupID       int
	MemberCount   int
	FirstMemberID int64
}

func (a *ArtificialParticle) Status() Status {
	switch a.Kind {
	case ArtificialTidalProbe:
		return Status{Role: RoleTidalProbe}
	case ArtificialOrbitalProbe:
		return Status{Role: RoleOrbitalProbe}
	default:
		return Status{Role: RoleCenterOfMass}
	}
}
