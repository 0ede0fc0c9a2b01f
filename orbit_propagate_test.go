package hardstep

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestKeplerPropagateCircularBinaryFullPeriod(t *testing.T) {
	const mu = 1.0
	relPos := mgl64.Vec3{1, 0, 0}
	v := math.Sqrt(mu)
	relVel := mgl64.Vec3{0, v, 0}
	period := 2 * math.Pi * math.Sqrt(1/mu)

	newPos, newVel := keplerPropagate(relPos, relVel, period, mu)

	assert.InDelta(t, relPos.X(), newPos.X(), 1e-8)
	assert.InDelta(t, relPos.Y(), newPos.Y(), 1e-8)
	assert.InDelta(t, relVel.X(), newVel.X(), 1e-8)
	assert.InDelta(t, relVel.Y(), newVel.Y(), 1e-8)
}

func TestKeplerPropagateConservesEnergy(t *testing.T) {
	const mu = 4.0
	relPos := mgl64.Vec3{2, 0.3, 0}
	relVel := mgl64.Vec3{0.1, 1.4, 0.05}

	energyBefore := 0.5*relVel.LenSqr() - mu/relPos.Len()

	newPos, newVel := keplerPropagate(relPos, relVel, 0.37, mu)
	energyAfter := 0.5*newVel.LenSqr() - mu/newPos.Len()

	assert.InDelta(t, energyBefore, energyAfter, 1e-9)
}

func TestKeplerPropagateHyperbolicFlyby(t *testing.T) {
	const mu = 1.0
	relPos := mgl64.Vec3{-10, 2, 0}
	relVel := mgl64.Vec3{1.5, 0, 0}

	el := ComputeKeplerElements(relPos, relVel, mu)
	assert.Greater(t, el.Ecc, 1.0)

	energyBefore := 0.5*relVel.LenSqr() - mu/relPos.Len()
	newPos, newVel := keplerPropagate(relPos, relVel, 20, mu)
	energyAfter := 0.5*newVel.LenSqr() - mu/newPos.Len()
	assert.InDelta(t, energyBefore, energyAfter, 1e-8)
}
