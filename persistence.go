package hardstep

import (
	"bytes"
	"encoding/binary"
	"io"
)

// writeFloat64 is the binary.Write wrapper used by SaveManagerParams
// (LoadManagerParams decodes with a local binary.Read closure); grounded on
// the teacher's ecs.go use of encoding/binary for its own fixed-layout
// serialisation.
func writeFloat64(w io.Writer, v float64) error {
	return binary.Write(w, binary.LittleEndian, v)
}

// SaveManagerParams serialises a HardManager's three sub-manager configs in
// the nested order {artificial-particle, hermite, ar} (SPEC_FULL §D.4),
// matching the source's parameter-block persistence layout.
func SaveManagerParams(w io.Writer, m *HardManager) error {
	fields := []float64{
		float64(m.ArtificialParticle.NSplit), m.ArtificialParticle.RInBase, m.ArtificialParticle.ROutBase, m.ArtificialParticle.RTidalTensor,
		m.Hermite.DtMin, m.Hermite.DtMax, m.Hermite.Eta,
		float64(m.AR.Order), m.AR.TimeStepRealMin, m.AR.TimeErrorMaxReal, m.AR.KappaMax, float64(m.AR.StepCountMax),
	}
	for _, f := range fields {
		if err := writeFloat64(w, f); err != nil {
			return err
		}
	}
	return nil
}

// managerParamCount is the fixed number of float64 fields SaveManagerParams
// writes, used by LoadManagerParams to detect truncation up front rather
// than failing deep into a partial decode.
const managerParamCount = 12

// LoadManagerParams reads back a parameter block written by
// SaveManagerParams, in the same {ap, h4, ar} nesting. A short read raises
// PersistenceTruncated rather than a generic io.ErrUnexpectedEOF, so the
// caller's diagnostic dump can distinguish "bad file" from other I/O faults
// (spec §6/§7, SPEC_FULL §D.4).
func LoadManagerParams(r io.Reader) (*HardManager, error) {
	buf := make([]byte, 8*managerParamCount)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	if n < len(buf) {
		return nil, persistenceTruncated("manager-params", len(buf), n)
	}

	reader := bytes.NewReader(buf)
	read := func() float64 {
		var v float64
		_ = binary.Read(reader, binary.LittleEndian, &v)
		return v
	}

	m := NewHardManager()
	m.ArtificialParticle.NSplit = int(read())
	m.ArtificialParticle.RInBase = read()
	m.ArtificialParticle.ROutBase = read()
	m.ArtificialParticle.RTidalTensor = read()

	m.Hermite.DtMin = read()
	m.Hermite.DtMax = read()
	m.Hermite.Eta = read()

	m.AR.Order = int(read())
	m.AR.TimeStepRealMin = read()
	m.AR.TimeErrorMaxReal = read()
	m.AR.KappaMax = read()
	m.AR.StepCountMax = int(read())

	return m, nil
}
