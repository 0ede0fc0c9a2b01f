package hardstep

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestFitTidalTensorRecoversLinearField(t *testing.T) {
	const r = 1.5
	offsets := TidalTensorStencilOffsets(r)

	// A known linear field a(x) = A*x with A diagonal.
	A := mgl64.Vec3{2, -1, 0.5}
	var accels [TidalTensorStencilSize]mgl64.Vec3
	for i, off := range offsets {
		accels[i] = mgl64.Vec3{A.X() * off.X(), A.Y() * off.Y(), A.Z() * off.Z()}
	}

	tensor := FitTidalTensor(offsets, accels, r)

	probe := mgl64.Vec3{0.3, -0.2, 0.1}
	got := tensor.AccelerationAt(probe)
	want := mgl64.Vec3{A.X() * probe.X(), A.Y() * probe.Y(), A.Z() * probe.Z()}

	assert.InDelta(t, want.X(), got.X(), 1e-9)
	assert.InDelta(t, want.Y(), got.Y(), 1e-9)
	assert.InDelta(t, want.Z(), got.Z(), 1e-9)
}

func TestFitTidalTensorZeroFieldIsZero(t *testing.T) {
	offsets := TidalTensorStencilOffsets(1.0)
	var accels [TidalTensorStencilSize]mgl64.Vec3
	tensor := FitTidalTensor(offsets, accels, 1.0)
	assert.Equal(t, 0.0, tensor.MaxEigenApprox())
}
