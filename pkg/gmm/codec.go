package gmm

import (
	"bytes"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// FileVersion is the current model file format version.
const FileVersion = 1

// Ext is the file extension of serialized models.
const Ext = ".gmm"

type file struct {
	Version        int            `msgpack:"version"`
	CovarianceType CovarianceType `msgpack:"covariance_type"`
	Weights        []float64      `msgpack:"weights"`
	Means          [][]float64    `msgpack:"means"`
	Covariances    []float64      `msgpack:"covariances"`
}

// Encode writes m to w in the msgpack model format.
func Encode(w io.Writer, m *Model) error {
	return msgpack.NewEncoder(w).Encode(&file{
		Version:        FileVersion,
		CovarianceType: m.CovarianceType,
		Weights:        m.Weights,
		Means:          m.Means,
		Covariances:    m.Covariances,
	})
}

// Marshal returns the msgpack encoding of m.
func Marshal(m *Model) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a model from r and validates it. The returned model is ready
// for scoring.
func Decode(r io.Reader) (*Model, error) {
	var f file
	if err := msgpack.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	if f.Version != FileVersion {
		return nil, fmt.Errorf("%w: unsupported file version %d", ErrInvalidModel, f.Version)
	}
	m := &Model{
		CovarianceType: f.CovarianceType,
		Weights:        f.Weights,
		Means:          f.Means,
		Covariances:    f.Covariances,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Unmarshal decodes and validates a model from data.
func Unmarshal(data []byte) (*Model, error) {
	return Decode(bytes.NewReader(data))
}
