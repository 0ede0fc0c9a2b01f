package hardstep

import "github.com/go-gl/mathgl/mgl64"

// TidalTensorStencilSize is the fixed number of tidal-tensor probes per
// group (spec §2 C3, §4.2): the 8 corners of a cube of half-width
// r_tidal_tensor centered on the group CM.
const TidalTensorStencilSize = 8

// TidalTensorStencilOffsets returns the 8 cube-corner offsets from the CM at
// which tidal-tensor probes are placed.
func TidalTensorStencilOffsets(rTidalTensor float64) [TidalTensorStencilSize]mgl64.Vec3 {
	var offsets [TidalTensorStencilSize]mgl64.Vec3
	signs := [2]float64{-1, 1}
	i := 0
	for _, sx := range signs {
		for _, sy := range signs {
			for _, sz := range signs {
				offsets[i] = mgl64.Vec3{sx * rTidalTensor, sy * rTidalTensor, sz * rTidalTensor}
				i++
			}
		}
	}
	return offsets
}

// TidalTensor is the external tidal field approximation fitted at a group's
// CM, applied as an external perturbation inside the AR integrator (spec
// §4.5 "soft_pert").
type TidalTensor struct {
	// Tensor approximates d(a_ext)/d(pos) evaluated at the CM: for a member
	// at relative position r, the tidal acceleration contribution is
	// Tensor * r.
	Tensor mgl64.Mat3
}

// FitTidalTensor performs the 8-point cubic-stencil fit of spec §4.2/§4.3:
// a least-squares gradient fit through the cube-corner probes. Because the
// 8 stencil offsets are exactly the corners of a cube of half-width
// stencilRadius, their outer-product second-moment matrix
// sum(offset ⊗ offset) is the isotropic 8*stencilRadius^2*I, which makes the
// least-squares solve a closed form (no matrix inversion needed):
//
//	T = (1 / (8 * stencilRadius^2)) * sum_k accel_k ⊗ offset_k
//
// probeAccelerations must already have the probe's own CM acceleration
// subtracted (correctArtficialParticleForce, artificial.go) so only the
// external field remains.
func FitTidalTensor(offsets, probeAccelerations [TidalTensorStencilSize]mgl64.Vec3, stencilRadius float64) TidalTensor {
	var tensor mgl64.Mat3
	if stencilRadius <= 0 {
		return TidalTensor{Tensor: tensor}
	}
	norm := 1.0 / (float64(TidalTensorStencilSize) * stencilRadius * stencilRadius)
	for k := 0; k < TidalTensorStencilSize; k++ {
		a := probeAccelerations[k]
		o := offsets[k]
		// Accumulate a ⊗ o (column-major mgl64.Mat3: entry (row,col) at
		// index col*3+row).
		tensor[0] += a.X() * o.X() * norm
		tensor[3] += a.X() * o.Y() * norm
		tensor[6] += a.X() * o.Z() * norm
		tensor[1] += a.Y() * o.X() * norm
		tensor[4] += a.Y() * o.Y() * norm
		tensor[7] += a.Y() * o.Z() * norm
		tensor[2] += a.Z() * o.X() * norm
		tensor[5] += a.Z() * o.Y() * norm
		tensor[8] += a.Z() * o.Z() * norm
	}
	return TidalTensor{Tensor: tensor}
}

// AccelerationAt returns the tidal perturbing acceleration at a position
// relPos relative to the group CM.
func (t TidalTensor) AccelerationAt(relPos mgl64.Vec3) mgl64.Vec3 {
	return t.Tensor.Mul3x1(relPos)
}

// MaxEigenApprox returns a cheap upper bound on the tensor's spectral norm
// (max absolute row sum), a size estimate that needs no full
// eigendecomposition.
func (t TidalTensor) MaxEigenApprox() float64 {
	rowAbsSum := func(r int) float64 {
		a := t.Tensor[r]
		b := t.Tensor[r+3]
		c := t.Tensor[r+6]
		return absf(a) + absf(b) + absf(c)
	}
	m := rowAbsSum(0)
	if v := rowAbsSum(1); v > m {
		m = v
	}
	if v := rowAbsSum(2); v > m {
		m = v
	}
	return m
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
