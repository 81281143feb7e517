// Package gmm implements Gaussian mixture models over fixed-length feature
// vectors: validation, log-likelihood scoring, a msgpack file format and an
// offline EM trainer.
//
// A Model is plain data until Validate succeeds. Validation checks every
// structural invariant and precomputes Cholesky factors and log-normalisers;
// afterwards the model is read-only and Score is safe for concurrent use.
package gmm

import (
	"errors"
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidModel is returned when a model violates a structural invariant.
var ErrInvalidModel = errors.New("gmm: invalid model")

// ErrDimension is returned when feature vectors do not match the model.
var ErrDimension = errors.New("gmm: dimension mismatch")

// weightTolerance bounds how far the mixture weights may sum from 1.
const weightTolerance = 1e-4

// CovarianceType selects how component covariances are parameterised.
type CovarianceType string

// Covariance types.
const (
	Full      CovarianceType = "full"      // one D×D matrix per component
	Diag      CovarianceType = "diag"      // one D-vector of variances per component
	Spherical CovarianceType = "spherical" // one variance per component
	Tied      CovarianceType = "tied"      // one D×D matrix shared by all components
)

// IsValid reports whether t is a known covariance type.
func (t CovarianceType) IsValid() bool {
	switch t {
	case Full, Diag, Spherical, Tied:
		return true
	}
	return false
}

// UnmarshalMsgpack implements msgpack.Unmarshaler with validation.
func (t *CovarianceType) UnmarshalMsgpack(data []byte) error {
	var s string
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return err
	}
	ct := CovarianceType(s)
	if !ct.IsValid() {
		return fmt.Errorf("invalid covariance type: %q", s)
	}
	*t = ct
	return nil
}

// covLen returns the expected length of the flat covariance slice.
func (t CovarianceType) covLen(k, d int) int {
	switch t {
	case Full:
		return k * d * d
	case Diag:
		return k * d
	case Spherical:
		return k
	case Tied:
		return d * d
	}
	return -1
}

// Model is a K-component Gaussian mixture over D-dimensional vectors.
//
// Covariances is stored flat in row-major order:
//
//	full      K×D×D
//	diag      K×D
//	spherical K
//	tied      D×D
type Model struct {
	CovarianceType CovarianceType `msgpack:"covariance_type"`
	Weights        []float64      `msgpack:"weights"`
	Means          [][]float64    `msgpack:"means"`
	Covariances    []float64      `msgpack:"covariances"`

	comps []component
}

// component holds the per-component values derived by Validate.
type component struct {
	logWeight float64
	mean      []float64

	// logNorm = -0.5 * (D*log(2π) + log|Σ|)
	logNorm float64

	// Exactly one of these is set: the lower Cholesky factor of Σ (row-major
	// D×D) for full and tied covariances, or the inverse variances for diag
	// and spherical.
	chol   []float64
	invVar []float64
}

// K returns the number of mixture components.
func (m *Model) K() int { return len(m.Weights) }

// Dim returns the feature dimension, or 0 for a model without means.
func (m *Model) Dim() int {
	if len(m.Means) == 0 {
		return 0
	}
	return len(m.Means[0])
}

// Validated reports whether Validate has succeeded on m.
func (m *Model) Validated() bool { return m.comps != nil }

// Validate checks the model's invariants and prepares it for scoring.
// It must be called, and must succeed, before Score. Errors wrap
// ErrInvalidModel.
func (m *Model) Validate() error {
	m.comps = nil

	if !m.CovarianceType.IsValid() {
		return fmt.Errorf("%w: covariance type %q", ErrInvalidModel, m.CovarianceType)
	}
	k := len(m.Weights)
	if k == 0 {
		return fmt.Errorf("%w: no components", ErrInvalidModel)
	}
	if len(m.Means) != k {
		return fmt.Errorf("%w: %d weights but %d means", ErrInvalidModel, k, len(m.Means))
	}
	d := m.Dim()
	if d == 0 {
		return fmt.Errorf("%w: zero-dimensional means", ErrInvalidModel)
	}

	sum := 0.0
	for i, w := range m.Weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weight %d = %v", ErrInvalidModel, i, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %v", ErrInvalidModel, sum)
	}
	for i, mu := range m.Means {
		if len(mu) != d {
			return fmt.Errorf("%w: mean %d has dimension %d, want %d", ErrInvalidModel, i, len(mu), d)
		}
		for _, v := range mu {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: mean %d is not finite", ErrInvalidModel, i)
			}
		}
	}
	if want := m.CovarianceType.covLen(k, d); len(m.Covariances) != want {
		return fmt.Errorf("%w: %s covariances have %d values, want %d",
			ErrInvalidModel, m.CovarianceType, len(m.Covariances), want)
	}

	comps := make([]component, k)
	base := -0.5 * float64(d) * math.Log(2*math.Pi)

	var tied *factor
	if m.CovarianceType == Tied {
		f, err := cholesky(m.Covariances, d)
		if err != nil {
			return fmt.Errorf("%w: tied covariance: %v", ErrInvalidModel, err)
		}
		tied = f
	}

	for i := range comps {
		c := &comps[i]
		c.logWeight = math.Log(m.Weights[i])
		c.mean = m.Means[i]

		switch m.CovarianceType {
		case Full:
			f, err := cholesky(m.Covariances[i*d*d:(i+1)*d*d], d)
			if err != nil {
				return fmt.Errorf("%w: component %d: %v", ErrInvalidModel, i, err)
			}
			c.chol = f.lower
			c.logNorm = base - 0.5*f.logDet
		case Tied:
			c.chol = tied.lower
			c.logNorm = base - 0.5*tied.logDet
		case Diag:
			c.invVar = make([]float64, d)
			logDet := 0.0
			for j := 0; j < d; j++ {
				v := m.Covariances[i*d+j]
				if !(v > 0) || math.IsInf(v, 0) {
					return fmt.Errorf("%w: component %d variance %d = %v", ErrInvalidModel, i, j, v)
				}
				c.invVar[j] = 1 / v
				logDet += math.Log(v)
			}
			c.logNorm = base - 0.5*logDet
		case Spherical:
			v := m.Covariances[i]
			if !(v > 0) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: component %d variance = %v", ErrInvalidModel, i, v)
			}
			c.invVar = make([]float64, d)
			for j := range c.invVar {
				c.invVar[j] = 1 / v
			}
			c.logNorm = base - 0.5*float64(d)*math.Log(v)
		}
	}

	m.comps = comps
	return nil
}

type factor struct {
	lower  []float64
	logDet float64
}

// cholesky factors a row-major symmetric positive definite matrix.
func cholesky(data []float64, d int) (*factor, error) {
	for i := 0; i < d; i++ {
		for j := 0; j < i; j++ {
			a, b := data[i*d+j], data[j*d+i]
			if math.Abs(a-b) > 1e-8*math.Max(1, math.Max(math.Abs(a), math.Abs(b))) {
				return nil, fmt.Errorf("not symmetric at (%d,%d)", i, j)
			}
		}
	}
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("not finite")
		}
	}

	sym := mat.NewSymDense(d, append([]float64(nil), data...))
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, errors.New("not positive definite")
	}
	var l mat.TriDense
	chol.LTo(&l)

	lower := make([]float64, d*d)
	for i := 0; i < d; i++ {
		for j := 0; j <= i; j++ {
			lower[i*d+j] = l.At(i, j)
		}
	}
	return &factor{lower: lower, logDet: chol.LogDet()}, nil
}
