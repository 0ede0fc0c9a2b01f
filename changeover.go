package hardstep

// changeoverInactive reports whether a changeover carries no switch at all
// (r_in == r_out == 0), the state used for particles that never soften —
// paired-kernel evaluation collapses onto the other side's kernel in that
// case (spec §4.1, "reproduces the one-sided kernel when either endpoint is
// inactive").
func changeoverInactive(c Changeover) bool {
	return c.RIn == 0 && c.ROut == 0
}

// kernelPoly is the quintic "smootherstep" C² switch: zero value and first
// two derivatives vanish at x=0 and x=1.
func kernelPoly(x float64) float64 {
	return x * x * x * (10 + x*(-15+6*x))
}

// kernelPolyDeriv is d/dx of kernelPoly.
func kernelPolyDeriv(x float64) float64 {
	return 30 * x * x * (1 - x) * (1 - x)
}

// singleSidedWeight evaluates the one-particle switch K(r; r_in, r_out):
// zero for r<=r_in, one for r>=r_out, the quintic smootherstep between.
func singleSidedWeight(rIn, rOut, r float64) float64 {
	if rOut <= rIn {
		// Degenerate / inactive changeover: step function at r_in.
		if r <= rIn {
			return 0
		}
		return 1
	}
	if r <= rIn {
		return 0
	}
	if r >= rOut {
		return 1
	}
	x := (r - rIn) / (rOut - rIn)
	return kernelPoly(x)
}

func singleSidedWeightDeriv(rIn, rOut, r float64) float64 {
	if rOut <= rIn || r <= rIn || r >= rOut {
		return 0
	}
	x := (r - rIn) / (rOut - rIn)
	return kernelPolyDeriv(x) / (rOut - rIn)
}

// pairedEndpoints blends two particles' changeover endpoints into a single
// effective (r_in, r_out) for their pair interaction. The blend takes the
// larger (more conservative) of each endpoint, which is symmetric by
// construction and collapses exactly onto the other side's endpoints when
// one side is inactive (r_in=r_out=0) — satisfying spec §4.1's requirement.
func pairedEndpoints(ci, cj Changeover) (rIn, rOut float64) {
	if changeoverInactive(ci) {
		return cj.RIn, cj.ROut
	}
	if changeoverInactive(cj) {
		return ci.RIn, ci.ROut
	}
	rIn = ci.RIn
	if cj.RIn > rIn {
		rIn = cj.RIn
	}
	rOut = ci.ROut
	if cj.ROut > rOut {
		rOut = cj.ROut
	}
	return rIn, rOut
}

// calcAcc0WTwo returns the pair acceleration weight K(c_i,c_j; r) in [0,1]:
// the fraction of the true (hard) 1/r^2 force that should replace the
// soft-kernel contribution at separation r.
func calcAcc0WTwo(ci, cj Changeover, r float64) float64 {
	rIn, rOut := pairedEndpoints(ci, cj)
	return singleSidedWeight(rIn, rOut, r)
}

// calcAcc1WTwo returns d/dr of calcAcc0WTwo, used by the Hermite 4th-order
// KDKDK acceleration-correction path (spec §4.1, §4.6).
func calcAcc1WTwo(ci, cj Changeover, r float64) float64 {
	rIn, rOut := pairedEndpoints(ci, cj)
	return singleSidedWeightDeriv(rIn, rOut, r)
}

// calcPotWTwo returns the potential weight for the same pair, sharing the
// acceleration weight's switch shape (same endpoints, same quintic) so
// K_pot and K_acc agree at both endpoints to full precision (spec §8 P5).
func calcPotWTwo(ci, cj Changeover, r float64) float64 {
	rIn, rOut := pairedEndpoints(ci, cj)
	return singleSidedWeight(rIn, rOut, r)
}
