package gmm

import (
	"errors"
	"fmt"
	"math"
)

// ErrTooFewFrames is returned by Fit when there are fewer frames than
// components.
var ErrTooFewFrames = errors.New("gmm: too few frames")

// FitOptions controls Fit. Zero values select the defaults.
type FitOptions struct {
	// CovarianceType of the trained model. Default: Diag.
	CovarianceType CovarianceType

	// MaxIter bounds the number of EM iterations. Default: 100.
	MaxIter int

	// Tol stops EM once the average log-likelihood improves by less than
	// this. Default: 1e-3.
	Tol float64

	// RegCovar is added to every variance to keep covariances positive
	// definite. Default: 1e-6.
	RegCovar float64

	// KMeansIter bounds the Lloyd iterations used for initialisation.
	// Default: 20.
	KMeansIter int
}

func (o FitOptions) withDefaults() FitOptions {
	if o.CovarianceType == "" {
		o.CovarianceType = Diag
	}
	if o.MaxIter <= 0 {
		o.MaxIter = 100
	}
	if o.Tol <= 0 {
		o.Tol = 1e-3
	}
	if o.RegCovar <= 0 {
		o.RegCovar = 1e-6
	}
	if o.KMeansIter <= 0 {
		o.KMeansIter = 20
	}
	return o
}

// FitResult describes a finished training run.
type FitResult struct {
	Iterations    int
	Converged     bool
	LogLikelihood float64 // average per frame, after the last iteration
}

// Fit trains a k-component mixture on frames with expectation-maximisation.
// Initialisation is deterministic (farthest-point seeding followed by
// k-means), so identical input always yields an identical model. The
// returned model is validated.
func Fit(frames [][]float64, k int, opts FitOptions) (*Model, *FitResult, error) {
	opts = opts.withDefaults()
	if !opts.CovarianceType.IsValid() {
		return nil, nil, fmt.Errorf("gmm: fit: unknown covariance type %q", opts.CovarianceType)
	}
	if k <= 0 {
		return nil, nil, fmt.Errorf("gmm: fit: k = %d", k)
	}
	if len(frames) < k {
		return nil, nil, fmt.Errorf("%w: %d frames for %d components", ErrTooFewFrames, len(frames), k)
	}
	d := len(frames[0])
	if d == 0 {
		return nil, nil, fmt.Errorf("%w: empty frames", ErrDimension)
	}
	for i, x := range frames {
		if len(x) != d {
			return nil, nil, fmt.Errorf("%w: frame %d has %d values, want %d", ErrDimension, i, len(x), d)
		}
	}

	resp := newMatrix(len(frames), k)
	for n, c := range kmeans(frames, k, opts.KMeansIter) {
		resp[n][c] = 1
	}

	m := &Model{CovarianceType: opts.CovarianceType}
	res := &FitResult{LogLikelihood: math.Inf(-1)}
	for iter := 1; iter <= opts.MaxIter; iter++ {
		mStep(m, frames, resp, opts.RegCovar)
		if err := m.Validate(); err != nil {
			return nil, nil, fmt.Errorf("gmm: fit iteration %d: %w", iter, err)
		}
		ll := eStep(m, frames, resp)
		res.Iterations = iter
		if math.Abs(ll-res.LogLikelihood) < opts.Tol {
			res.LogLikelihood = ll
			res.Converged = true
			break
		}
		res.LogLikelihood = ll
	}
	// Parameters from the final responsibilities.
	mStep(m, frames, resp, opts.RegCovar)
	if err := m.Validate(); err != nil {
		return nil, nil, fmt.Errorf("gmm: fit: %w", err)
	}
	return m, res, nil
}

// eStep fills resp with posterior component probabilities and returns the
// average log-likelihood.
func eStep(m *Model, frames, resp [][]float64) float64 {
	diff := make([]float64, m.Dim())
	total := 0.0
	for n, x := range frames {
		r := resp[n]
		for k := range m.comps {
			r[k] = m.comps[k].logWeight + m.comps[k].logPDF(x, diff)
		}
		lse := logSumExp(r)
		for k := range r {
			r[k] = math.Exp(r[k] - lse)
		}
		total += lse
	}
	return total / float64(len(frames))
}

// mStep re-estimates m's parameters from the responsibilities.
func mStep(m *Model, frames, resp [][]float64, reg float64) {
	n, k, d := len(frames), len(resp[0]), len(frames[0])
	const eps = 10 * 2.220446049250313e-16

	nk := make([]float64, k)
	means := newMatrix(k, d)
	for i, x := range frames {
		for c := 0; c < k; c++ {
			r := resp[i][c]
			if r == 0 {
				continue
			}
			nk[c] += r
			for j, v := range x {
				means[c][j] += r * v
			}
		}
	}
	weights := make([]float64, k)
	for c := range nk {
		nk[c] += eps
		weights[c] = nk[c] / (float64(n) + float64(k)*eps)
		for j := range means[c] {
			means[c][j] /= nk[c]
		}
	}

	var cov []float64
	switch m.CovarianceType {
	case Full, Tied:
		size := k
		if m.CovarianceType == Tied {
			size = 1
		}
		cov = make([]float64, size*d*d)
		diff := make([]float64, d)
		for i, x := range frames {
			for c := 0; c < k; c++ {
				r := resp[i][c]
				if r == 0 {
					continue
				}
				for j := range x {
					diff[j] = x[j] - means[c][j]
				}
				block := cov
				if m.CovarianceType == Full {
					block = cov[c*d*d : (c+1)*d*d]
				}
				for a := 0; a < d; a++ {
					for b := 0; b <= a; b++ {
						block[a*d+b] += r * diff[a] * diff[b]
					}
				}
			}
		}
		for s := 0; s < size; s++ {
			block := cov[s*d*d : (s+1)*d*d]
			norm := float64(n)
			if m.CovarianceType == Full {
				norm = nk[s]
			}
			for a := 0; a < d; a++ {
				for b := 0; b <= a; b++ {
					v := block[a*d+b] / norm
					if a == b {
						v += reg
					}
					block[a*d+b] = v
					block[b*d+a] = v
				}
			}
		}
	case Diag, Spherical:
		vars := newMatrix(k, d)
		for i, x := range frames {
			for c := 0; c < k; c++ {
				r := resp[i][c]
				if r == 0 {
					continue
				}
				for j, v := range x {
					dv := v - means[c][j]
					vars[c][j] += r * dv * dv
				}
			}
		}
		if m.CovarianceType == Diag {
			cov = make([]float64, 0, k*d)
			for c := range vars {
				for j := range vars[c] {
					cov = append(cov, vars[c][j]/nk[c]+reg)
				}
			}
		} else {
			cov = make([]float64, k)
			for c := range vars {
				sum := 0.0
				for _, v := range vars[c] {
					sum += v/nk[c] + reg
				}
				cov[c] = sum / float64(d)
			}
		}
	}

	m.Weights = weights
	m.Means = means
	m.Covariances = cov
}

// kmeans returns a cluster index per frame. Seeds are chosen by farthest
// point traversal starting from the frame closest to the global mean.
func kmeans(frames [][]float64, k, iters int) []int {
	d := len(frames[0])
	mean := make([]float64, d)
	for _, x := range frames {
		for j, v := range x {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(frames))
	}

	centers := newMatrix(k, d)
	first, best := 0, math.Inf(1)
	for i, x := range frames {
		if dist := sqDist(x, mean); dist < best {
			first, best = i, dist
		}
	}
	copy(centers[0], frames[first])

	nearest := make([]float64, len(frames))
	for i, x := range frames {
		nearest[i] = sqDist(x, centers[0])
	}
	for c := 1; c < k; c++ {
		far, farDist := 0, -1.0
		for i, dist := range nearest {
			if dist > farDist {
				far, farDist = i, dist
			}
		}
		copy(centers[c], frames[far])
		for i, x := range frames {
			nearest[i] = math.Min(nearest[i], sqDist(x, centers[c]))
		}
	}

	labels := make([]int, len(frames))
	counts := make([]int, k)
	for it := 0; it < iters; it++ {
		changed := false
		for i, x := range frames {
			bestC, bestD := 0, math.Inf(1)
			for c := range centers {
				if dist := sqDist(x, centers[c]); dist < bestD {
					bestC, bestD = c, dist
				}
			}
			if labels[i] != bestC {
				labels[i] = bestC
				changed = true
			}
		}
		if it > 0 && !changed {
			break
		}

		for c := range counts {
			counts[c] = 0
		}
		sums := newMatrix(k, d)
		for i, x := range frames {
			c := labels[i]
			counts[c]++
			for j, v := range x {
				sums[c][j] += v
			}
		}
		for c := range centers {
			// An empty cluster keeps its previous center.
			if counts[c] == 0 {
				continue
			}
			for j := range centers[c] {
				centers[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}
	return labels
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		v := a[i] - b[i]
		s += v * v
	}
	return s
}

func newMatrix(rows, cols int) [][]float64 {
	backing := make([]float64, rows*cols)
	m := make([][]float64, rows)
	for i := range m {
		m[i] = backing[i*cols : (i+1)*cols]
	}
	return m
}
