package hardstep

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadManagerParamsRoundTrip(t *testing.T) {
	m := validManager()
	var buf bytes.Buffer
	require.NoError(t, SaveManagerParams(&buf, m))

	loaded, err := LoadManagerParams(&buf)
	require.NoError(t, err)

	assert.Equal(t, m.ArtificialParticle.NSplit, loaded.ArtificialParticle.NSplit)
	assert.InDelta(t, m.ArtificialParticle.RInBase, loaded.ArtificialParticle.RInBase, 1e-15)
	assert.InDelta(t, m.Hermite.DtMax, loaded.Hermite.DtMax, 1e-15)
	assert.Equal(t, m.AR.Order, loaded.AR.Order)
	assert.Equal(t, m.AR.StepCountMax, loaded.AR.StepCountMax)
}

func TestLoadManagerParamsTruncatedInput(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, 10))
	_, err := LoadManagerParams(buf)
	require.Error(t, err)
	assert.True(t, IsHardError(err, PersistenceTruncated))
}
