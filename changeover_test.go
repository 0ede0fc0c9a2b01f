package hardstep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleSidedWeightEndpoints(t *testing.T) {
	const rIn, rOut = 1.0, 2.0
	assert.Equal(t, 0.0, singleSidedWeight(rIn, rOut, 0.5))
	assert.Equal(t, 0.0, singleSidedWeight(rIn, rOut, rIn))
	assert.Equal(t, 1.0, singleSidedWeight(rIn, rOut, rOut))
	assert.Equal(t, 1.0, singleSidedWeight(rIn, rOut, 5))
}

func TestSingleSidedWeightMonotone(t *testing.T) {
	const rIn, rOut = 1.0, 3.0
	prev := -1.0
	for r := rIn; r <= rOut; r += 0.1 {
		w := singleSidedWeight(rIn, rOut, r)
		require.GreaterOrEqual(t, w, prev)
		prev = w
	}
}

func TestPairedEndpointsCollapsesToOneSided(t *testing.T) {
	active := NewChangeover(1, 2)
	inactive := Changeover{}
	rIn, rOut := pairedEndpoints(active, inactive)
	assert.Equal(t, active.RIn, rIn)
	assert.Equal(t, active.ROut, rOut)

	rIn2, rOut2 := pairedEndpoints(inactive, active)
	assert.Equal(t, active.RIn, rIn2)
	assert.Equal(t, active.ROut, rOut2)
}

func TestPairedEndpointsSymmetric(t *testing.T) {
	a := NewChangeover(1, 2)
	b := NewChangeover(1.5, 2.5)
	rIn1, rOut1 := pairedEndpoints(a, b)
	rIn2, rOut2 := pairedEndpoints(b, a)
	assert.Equal(t, rIn1, rIn2)
	assert.Equal(t, rOut1, rOut2)
}

func TestAccAndPotWeightAgreeAtEndpoints(t *testing.T) {
	a := NewChangeover(1, 2)
	b := NewChangeover(1, 2)
	assert.InDelta(t, 0.0, calcAcc0WTwo(a, b, 1), 1e-12)
	assert.InDelta(t, 1.0, calcAcc0WTwo(a, b, 2), 1e-12)
	assert.InDelta(t, calcAcc0WTwo(a, b, 1.5), calcPotWTwo(a, b, 1.5), 1e-12)
}
