package hardstep

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// stumpffC and stumpffS are the Stumpff functions used by the universal
// variable Kepler propagator below; they stay well-behaved across
// elliptic/parabolic/hyperbolic regimes, unlike eccentric/hyperbolic
// anomaly formulations that must branch on eccentricity.
func stumpffC(z float64) float64 {
	switch {
	case z > 1e-8:
		sz := math.Sqrt(z)
		return (1 - math.Cos(sz)) / z
	case z < -1e-8:
		sz := math.Sqrt(-z)
		return (math.Cosh(sz) - 1) / (-z)
	default:
		return 0.5 - z/24 + z*z/720
	}
}

func stumpffS(z float64) float64 {
	switch {
	case z > 1e-8:
		sz := math.Sqrt(z)
		return (sz - math.Sin(sz)) / (sz * sz * sz)
	case z < -1e-8:
		sz := math.Sqrt(-z)
		return (math.Sinh(sz) - sz) / (sz * sz * sz)
	default:
		return 1.0/6 - z/120 + z*z/5040
	}
}

// keplerPropagate advances a two-body relative state (relPos, relVel) by
// time dt under mu = G*(m1+m2) using the universal-variable formulation
// (Danby/Vallado f-and-g functions), which is uniformly valid for
// elliptic, parabolic, and hyperbolic orbits and accurate to Newton-Raphson
// convergence — the analytic "drift" half of the AR integrator's
// kick-drift-kick map (ar.go).
func keplerPropagate(relPos, relVel mgl64.Vec3, dt, mu float64) (mgl64.Vec3, mgl64.Vec3) {
	if dt == 0 || mu <= 0 {
		return relPos, relVel
	}
	r0 := relPos.Len()
	if r0 == 0 {
		return relPos, relVel
	}
	v0 := relVel.Len()
	vr0 := relPos.Dot(relVel) / r0
	alpha := 2/r0 - v0*v0/mu // 1/a

	sqrtMu := math.Sqrt(mu)
	// Initial guess for the universal anomaly chi.
	chi := sqrtMu * math.Abs(alpha) * dt
	if chi == 0 {
		chi = sqrtMu * dt / r0
	}

	var chiNext, z, c, s, rNew float64
	const maxIter = 100
	for iter := 0; iter < maxIter; iter++ {
		z = alpha * chi * chi
		c = stumpffC(z)
		s = stumpffS(z)

		f := r0*vr0/sqrtMu*chi*chi*c + (1-alpha*r0)*chi*chi*chi*s + r0*chi - sqrtMu*dt
		fDot := r0*vr0/sqrtMu*chi*(1-alpha*chi*chi*s) + (1-alpha*r0)*chi*chi*c + r0

		if fDot == 0 {
			break
		}
		chiNext = chi - f/fDot
		if math.Abs(chiNext-chi) < 1e-13*(math.Abs(chiNext)+1) {
			chi = chiNext
			break
		}
		chi = chiNext
	}

	z = alpha * chi * chi
	c = stumpffC(z)
	s = stumpffS(z)

	fFunc := 1 - chi*chi/r0*c
	gFunc := dt - chi*chi*chi/sqrtMu*s

	newPos := relPos.Mul(fFunc).Add(relVel.Mul(gFunc))
	rNew = newPos.Len()
	if rNew == 0 {
		return newPos, relVel
	}

	fDotFunc := sqrtMu / (rNew * r0) * (alpha*chi*chi*chi*s - chi)
	gDotFunc := 1 - chi*chi/rNew*c

	newVel := relPos.Mul(fDotFunc).Add(relVel.Mul(gDotFunc))
	return newPos, newVel
}
