package gmm

import (
	"fmt"
	"math"
)

// Score returns the average per-frame log-likelihood of frames under the
// mixture. An empty frame set scores -Inf.
func (m *Model) Score(frames [][]float64) (float64, error) {
	ll, err := m.ScoreSamples(frames)
	if err != nil {
		return 0, err
	}
	if len(ll) == 0 {
		return math.Inf(-1), nil
	}
	sum := 0.0
	for _, v := range ll {
		sum += v
	}
	return sum / float64(len(ll)), nil
}

// ScoreSamples returns log p(x) for every frame.
func (m *Model) ScoreSamples(frames [][]float64) ([]float64, error) {
	if m.comps == nil {
		return nil, fmt.Errorf("%w: not validated", ErrInvalidModel)
	}
	d := m.Dim()
	out := make([]float64, len(frames))
	diff := make([]float64, d)
	logp := make([]float64, len(m.comps))
	for n, x := range frames {
		if len(x) != d {
			return nil, fmt.Errorf("%w: frame %d has %d values, want %d", ErrDimension, n, len(x), d)
		}
		for k := range m.comps {
			logp[k] = m.comps[k].logWeight + m.comps[k].logPDF(x, diff)
		}
		out[n] = logSumExp(logp)
	}
	return out, nil
}

// logPDF evaluates log N(x; μ, Σ). scratch must have length D.
func (c *component) logPDF(x, scratch []float64) float64 {
	for j := range x {
		scratch[j] = x[j] - c.mean[j]
	}
	return c.logNorm - 0.5*c.mahalanobis(scratch)
}

// mahalanobis returns diffᵀ Σ⁻¹ diff. For Cholesky-factored covariances it
// solves L y = diff in place and returns |y|².
func (c *component) mahalanobis(diff []float64) float64 {
	if c.invVar != nil {
		s := 0.0
		for j, v := range diff {
			s += v * v * c.invVar[j]
		}
		return s
	}
	d := len(diff)
	s := 0.0
	for i := 0; i < d; i++ {
		v := diff[i]
		row := c.chol[i*d : i*d+i]
		for j, l := range row {
			v -= l * diff[j]
		}
		v /= c.chol[i*d+i]
		diff[i] = v
		s += v * v
	}
	return s
}

func logSumExp(v []float64) float64 {
	peak := math.Inf(-1)
	for _, x := range v {
		if x > peak {
			peak = x
		}
	}
	if math.IsInf(peak, 0) {
		return peak
	}
	sum := 0.0
	for _, x := range v {
		sum += math.Exp(x - peak)
	}
	return peak + math.Log(sum)
}
