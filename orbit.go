package hardstep

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// KeplerElements is the reduced two-body orbit description shared by the
// artificial-particle manager's orbital-probe placement (C4) and the AR
// binary-tree construction (C7): semi-major axis, eccentricity (vector and
// magnitude), period, and specific angular momentum.
type KeplerElements struct {
	Semi   float64
	Ecc    float64
	Period float64
	EVec   mgl64.Vec3
	HVec   mgl64.Vec3
}

// ComputeKeplerElements derives the orbital elements of a reduced two-body
// problem from the relative position/velocity and mu = G*(m1+m2).
func ComputeKeplerElements(relPos, relVel mgl64.Vec3, mu float64) KeplerElements {
	h := relPos.Cross(relVel)
	r := relPos.Len()
	if r == 0 || mu == 0 {
		return KeplerElements{}
	}
	v2 := relVel.Dot(relVel)
	energy := 0.5*v2 - mu/r
	var semi float64
	if energy != 0 {
		semi = -mu / (2 * energy)
	}
	eVec := relVel.Cross(h).Mul(1 / mu).Sub(relPos.Mul(1 / r))
	ecc := eVec.Len()
	var period float64
	if energy < 0 && semi > 0 {
		period = 2 * math.Pi * math.Sqrt(semi*semi*semi/mu)
	}
	return KeplerElements{Semi: semi, Ecc: ecc, Period: period, EVec: eVec, HVec: h}
}

// planeBasis returns an orthonormal basis (ex, ey) for the orbital plane
// with ex pointing toward periapsis (or an arbitrary direction for a
// circular orbit) and ey completing the right-handed frame with HVec.
func (k KeplerElements) planeBasis() (ex, ey mgl64.Vec3) {
	if k.HVec.Len() == 0 {
		return mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}
	}
	hHat := k.HVec.Normalize()
	if k.Ecc > 1e-8 {
		ex = k.EVec.Normalize()
	} else {
		ex = arbitraryPerpendicular(hHat)
	}
	ey = hHat.Cross(ex).Normalize()
	return ex, ey
}

func arbitraryPerpendicular(v mgl64.Vec3) mgl64.Vec3 {
	ref := mgl64.Vec3{1, 0, 0}
	if math.Abs(v.X()) > 0.9 {
		ref = mgl64.Vec3{0, 1, 0}
	}
	return ref.Sub(v.Mul(v.Dot(ref))).Normalize()
}

// RadiusAtTrueAnomaly evaluates the conic-section radius at true anomaly
// theta.
func (k KeplerElements) RadiusAtTrueAnomaly(theta float64) float64 {
	denom := 1 + k.Ecc*math.Cos(theta)
	if denom == 0 {
		return math.Inf(1)
	}
	return k.Semi * (1 - k.Ecc*k.Ecc) / denom
}

// PositionAtTrueAnomaly returns the relative-frame position at true anomaly
// theta, in the orbital plane.
func (k KeplerElements) PositionAtTrueAnomaly(theta float64) mgl64.Vec3 {
	ex, ey := k.planeBasis()
	r := k.RadiusAtTrueAnomaly(theta)
	return ex.Mul(r * math.Cos(theta)).Add(ey.Mul(r * math.Sin(theta)))
}

// BreakRadius returns the outer-most radius at which the binary is
// considered unbound from its original configuration (spec §4.5
// "termination"): a fixed multiple of the apoapsis distance for a bound
// orbit, or of the semi-major axis magnitude for an unbound one.
func (k KeplerElements) BreakRadius(factor float64) float64 {
	if k.Ecc < 1 && k.Semi > 0 {
		return factor * k.Semi * (1 + k.Ecc)
	}
	return factor * math.Abs(k.Semi)
}
