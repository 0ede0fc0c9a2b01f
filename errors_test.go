package hardstep

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHardErrorKindsRoundTrip(t *testing.T) {
	err := invariantViolation("INV-M", "particle %d bad", 7)
	assert.True(t, IsHardError(err, InvariantViolation))
	assert.False(t, IsHardError(err, CapacityExceeded))
	assert.Contains(t, err.Error(), "INV-M")
}

func TestPersistenceTruncatedCarriesByteCounts(t *testing.T) {
	err := persistenceTruncated("manager-params", 96, 10)
	assert.True(t, IsHardError(err, PersistenceTruncated))
	assert.Contains(t, err.Error(), "96")
	assert.Contains(t, err.Error(), "10")
}
