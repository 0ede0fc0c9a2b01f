package hardstep

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestComputeKeplerElementsCircularOrbit(t *testing.T) {
	const mu = 1.0
	relPos := mgl64.Vec3{1, 0, 0}
	relVel := mgl64.Vec3{0, 1, 0}

	el := ComputeKeplerElements(relPos, relVel, mu)
	assert.InDelta(t, 1.0, el.Semi, 1e-9)
	assert.InDelta(t, 0.0, el.Ecc, 1e-9)
	assert.InDelta(t, 2*math.Pi, el.Period, 1e-9)
}

func TestBreakRadiusBoundVsUnbound(t *testing.T) {
	bound := KeplerElements{Semi: 2, Ecc: 0.5}
	unbound := KeplerElements{Semi: -3, Ecc: 1.5}

	assert.InDelta(t, 3*2*1.5, bound.BreakRadius(3), 1e-12)
	assert.InDelta(t, 3*3, unbound.BreakRadius(3), 1e-12)
}

func TestPositionAtTrueAnomalyRoundTripsRadius(t *testing.T) {
	el := KeplerElements{Semi: 2, Ecc: 0.3, HVec: mgl64.Vec3{0, 0, 1}, EVec: mgl64.Vec3{1, 0, 0}}
	for _, theta := range []float64{0, math.Pi / 2, math.Pi, 3 * math.Pi / 2} {
		pos := el.PositionAtTrueAnomaly(theta)
		assert.InDelta(t, el.RadiusAtTrueAnomaly(theta), pos.Len(), 1e-9)
	}
}
