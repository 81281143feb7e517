package gmm

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func mustValidate(t *testing.T, m *Model) *Model {
	t.Helper()
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return m
}

func standardNormal(d int) *Model {
	cov := make([]float64, d)
	for i := range cov {
		cov[i] = 1
	}
	return &Model{
		CovarianceType: Diag,
		Weights:        []float64{1},
		Means:          [][]float64{make([]float64, d)},
		Covariances:    cov,
	}
}

// blob draws n points around center with unit spread.
func blob(rng *rand.Rand, n int, center []float64) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		x := make([]float64, len(center))
		for j, c := range center {
			x[j] = c + rng.NormFloat64()
		}
		out[i] = x
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Model)
	}{
		{"unknown covariance type", func(m *Model) { m.CovarianceType = "banded" }},
		{"no components", func(m *Model) { m.Weights = nil; m.Means = nil }},
		{"weights do not sum to one", func(m *Model) { m.Weights = []float64{0.7, 0.7} }},
		{"negative weight", func(m *Model) { m.Weights = []float64{1.5, -0.5} }},
		{"nan weight", func(m *Model) { m.Weights = []float64{math.NaN(), 0.5} }},
		{"ragged means", func(m *Model) { m.Means[1] = []float64{0} }},
		{"means count", func(m *Model) { m.Means = m.Means[:1] }},
		{"covariance length", func(m *Model) { m.Covariances = m.Covariances[:3] }},
		{"zero variance", func(m *Model) { m.Covariances[2] = 0 }},
		{"nan variance", func(m *Model) { m.Covariances[0] = math.NaN() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Model{
				CovarianceType: Diag,
				Weights:        []float64{0.5, 0.5},
				Means:          [][]float64{{0, 0}, {1, 1}},
				Covariances:    []float64{1, 1, 1, 1},
			}
			tt.modify(m)
			if err := m.Validate(); !errors.Is(err, ErrInvalidModel) {
				t.Fatalf("Validate() = %v, want ErrInvalidModel", err)
			}
			if m.Validated() {
				t.Fatal("failed model reports Validated")
			}
		})
	}
}

func TestValidateFullCovariance(t *testing.T) {
	tests := []struct {
		name string
		cov  []float64
		ok   bool
	}{
		{"identity", []float64{1, 0, 0, 1}, true},
		{"correlated", []float64{2, 0.5, 0.5, 1}, true},
		{"asymmetric", []float64{2, 0.5, 0.1, 1}, false},
		{"indefinite", []float64{1, 2, 2, 1}, false},
		{"singular", []float64{1, 1, 1, 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Model{
				CovarianceType: Full,
				Weights:        []float64{1},
				Means:          [][]float64{{0, 0}},
				Covariances:    tt.cov,
			}
			err := m.Validate()
			if tt.ok && err != nil {
				t.Fatalf("Validate() = %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidModel) {
				t.Fatalf("Validate() = %v, want ErrInvalidModel", err)
			}
		})
	}
}

func TestScoreStandardNormal(t *testing.T) {
	m := mustValidate(t, standardNormal(1))
	got, err := m.Score([][]float64{{0}})
	if err != nil {
		t.Fatal(err)
	}
	want := -0.5 * math.Log(2*math.Pi)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("Score = %v, want %v", got, want)
	}

	// Average over frames, not sum.
	got, _ = m.Score([][]float64{{0}, {1}})
	want = -0.5*math.Log(2*math.Pi) - 0.25
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("Score = %v, want %v", got, want)
	}
}

func TestScoreFullCovariance(t *testing.T) {
	m := mustValidate(t, &Model{
		CovarianceType: Full,
		Weights:        []float64{1},
		Means:          [][]float64{{0, 0}},
		Covariances:    []float64{2, 0.5, 0.5, 1},
	})
	got, err := m.Score([][]float64{{1, 1}})
	if err != nil {
		t.Fatal(err)
	}
	det := 2*1 - 0.5*0.5
	quad := (1*1 - 0.5*1 - 0.5*1 + 2*1) / det
	want := -math.Log(2*math.Pi) - 0.5*math.Log(det) - 0.5*quad
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("Score = %v, want %v", got, want)
	}
}

func TestCovarianceTypesAgree(t *testing.T) {
	x := [][]float64{{0.3, -1.2, 2}, {1, 1, 1}}
	diag := mustValidate(t, &Model{
		CovarianceType: Diag,
		Weights:        []float64{0.25, 0.75},
		Means:          [][]float64{{0, 0, 0}, {1, 2, 3}},
		Covariances:    []float64{2, 2, 2, 2, 2, 2},
	})
	spherical := mustValidate(t, &Model{
		CovarianceType: Spherical,
		Weights:        diag.Weights,
		Means:          diag.Means,
		Covariances:    []float64{2, 2},
	})
	eye := []float64{2, 0, 0, 0, 2, 0, 0, 0, 2}
	full := mustValidate(t, &Model{
		CovarianceType: Full,
		Weights:        diag.Weights,
		Means:          diag.Means,
		Covariances:    append(append([]float64{}, eye...), eye...),
	})
	tied := mustValidate(t, &Model{
		CovarianceType: Tied,
		Weights:        diag.Weights,
		Means:          diag.Means,
		Covariances:    eye,
	})

	want, _ := diag.Score(x)
	for name, m := range map[string]*Model{"spherical": spherical, "full": full, "tied": tied} {
		got, err := m.Score(x)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("%s Score = %v, diag = %v", name, got, want)
		}
	}
}

func TestScoreEdgeCases(t *testing.T) {
	m := standardNormal(2)
	if _, err := m.Score([][]float64{{0, 0}}); !errors.Is(err, ErrInvalidModel) {
		t.Fatalf("unvalidated Score err = %v, want ErrInvalidModel", err)
	}
	mustValidate(t, m)

	got, err := m.Score(nil)
	if err != nil || !math.IsInf(got, -1) {
		t.Fatalf("empty Score = %v, %v; want -Inf", got, err)
	}
	if _, err := m.Score([][]float64{{0, 0, 0}}); !errors.Is(err, ErrDimension) {
		t.Fatalf("err = %v, want ErrDimension", err)
	}

	// Far from the mean the likelihood underflows in linear space but must
	// stay finite in log space.
	far, err := m.Score([][]float64{{1e3, -1e3}})
	if err != nil || math.IsInf(far, 0) || math.IsNaN(far) {
		t.Fatalf("far Score = %v, %v", far, err)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	m := mustValidate(t, &Model{
		CovarianceType: Full,
		Weights:        []float64{0.4, 0.6},
		Means:          [][]float64{{0, 1}, {2, 3}},
		Covariances:    []float64{1, 0.2, 0.2, 1, 3, 0, 0, 0.5},
	})
	data, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.Validated() || got.K() != 2 || got.Dim() != 2 || got.CovarianceType != Full {
		t.Fatalf("decoded model: k=%d dim=%d type=%s", got.K(), got.Dim(), got.CovarianceType)
	}

	x := [][]float64{{0.5, 0.5}, {2, 2}}
	a, _ := m.Score(x)
	b, _ := got.Score(x)
	if a != b {
		t.Fatalf("score changed after round trip: %v vs %v", a, b)
	}
}

func TestDecodeRejects(t *testing.T) {
	valid := standardNormal(2)

	newer, err := msgpack.Marshal(&file{
		Version:        FileVersion + 1,
		CovarianceType: valid.CovarianceType,
		Weights:        valid.Weights,
		Means:          valid.Means,
		Covariances:    valid.Covariances,
	})
	if err != nil {
		t.Fatal(err)
	}
	badType, err := msgpack.Marshal(map[string]any{
		"version":         FileVersion,
		"covariance_type": "banded",
		"weights":         []float64{1},
		"means":           [][]float64{{0}},
		"covariances":     []float64{1},
	})
	if err != nil {
		t.Fatal(err)
	}
	badWeights, err := msgpack.Marshal(&file{
		Version:        FileVersion,
		CovarianceType: Diag,
		Weights:        []float64{0.2},
		Means:          [][]float64{{0}},
		Covariances:    []float64{1},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"garbage", []byte("not a model")},
		{"empty", nil},
		{"future version", newer},
		{"unknown covariance type", badType},
		{"weights", badWeights},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unmarshal(tt.data); !errors.Is(err, ErrInvalidModel) {
				t.Fatalf("Unmarshal err = %v, want ErrInvalidModel", err)
			}
		})
	}
}

func TestFitSeparatesClusters(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	frames := append(blob(rng, 200, []float64{-5, 0}), blob(rng, 200, []float64{5, 0})...)

	m, res, err := Fit(frames, 2, FitOptions{})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	t.Logf("converged=%v after %d iterations, ll=%.4f", res.Converged, res.Iterations, res.LogLikelihood)
	if !m.Validated() || m.K() != 2 || m.Dim() != 2 {
		t.Fatalf("model k=%d dim=%d", m.K(), m.Dim())
	}

	xs := []float64{m.Means[0][0], m.Means[1][0]}
	if xs[0] > xs[1] {
		xs[0], xs[1] = xs[1], xs[0]
	}
	if math.Abs(xs[0]+5) > 0.5 || math.Abs(xs[1]-5) > 0.5 {
		t.Fatalf("means x = %v, want ~[-5 5]", xs)
	}
	for c, w := range m.Weights {
		if math.Abs(w-0.5) > 0.05 {
			t.Errorf("weight %d = %v, want ~0.5", c, w)
		}
	}
}

func TestFitCovarianceTypes(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	frames := append(blob(rng, 150, []float64{0, 0, 0}), blob(rng, 150, []float64{4, 4, -4})...)
	for _, ct := range []CovarianceType{Full, Diag, Spherical, Tied} {
		t.Run(string(ct), func(t *testing.T) {
			m, _, err := Fit(frames, 2, FitOptions{CovarianceType: ct})
			if err != nil {
				t.Fatalf("Fit: %v", err)
			}
			if m.CovarianceType != ct {
				t.Fatalf("CovarianceType = %s", m.CovarianceType)
			}
			score, err := m.Score(frames)
			if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
				t.Fatalf("Score = %v, %v", score, err)
			}
		})
	}
}

func TestFitDeterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	frames := append(blob(rng, 100, []float64{0, 3}), blob(rng, 100, []float64{3, 0})...)

	a, _, err := Fit(frames, 3, FitOptions{CovarianceType: Full})
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := Fit(frames, 3, FitOptions{CovarianceType: Full})
	if err != nil {
		t.Fatal(err)
	}
	for c := range a.Means {
		for j := range a.Means[c] {
			if a.Means[c][j] != b.Means[c][j] {
				t.Fatalf("mean[%d][%d] differs: %v vs %v", c, j, a.Means[c][j], b.Means[c][j])
			}
		}
	}
	for i := range a.Covariances {
		if a.Covariances[i] != b.Covariances[i] {
			t.Fatalf("covariance %d differs", i)
		}
	}
}

func TestFitSeparation(t *testing.T) {
	rng := rand.New(rand.NewPCG(21, 22))
	trainA := blob(rng, 300, []float64{-2, 1, 0})
	trainB := blob(rng, 300, []float64{2, -1, 1})

	ma, _, err := Fit(trainA, 2, FitOptions{})
	if err != nil {
		t.Fatal(err)
	}
	mb, _, err := Fit(trainB, 2, FitOptions{})
	if err != nil {
		t.Fatal(err)
	}

	testA := blob(rng, 50, []float64{-2, 1, 0})
	sa, _ := ma.Score(testA)
	sb, _ := mb.Score(testA)
	if sa <= sb {
		t.Fatalf("model A scored %v on its own data, model B %v", sa, sb)
	}
}

func TestFitErrors(t *testing.T) {
	if _, _, err := Fit([][]float64{{1}}, 2, FitOptions{}); !errors.Is(err, ErrTooFewFrames) {
		t.Fatalf("err = %v, want ErrTooFewFrames", err)
	}
	if _, _, err := Fit([][]float64{{1, 2}, {1}}, 1, FitOptions{}); !errors.Is(err, ErrDimension) {
		t.Fatalf("err = %v, want ErrDimension", err)
	}
	if _, _, err := Fit([][]float64{{1}}, 1, FitOptions{CovarianceType: "banded"}); err == nil {
		t.Fatal("expected error for unknown covariance type")
	}
}

func BenchmarkScore(b *testing.B) {
	rng := rand.New(rand.NewPCG(5, 6))
	frames := blob(rng, 430, make([]float64, 13))
	m, _, err := Fit(frames, 8, FitOptions{CovarianceType: Full})
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	b.ReportAllocs()
	for range b.N {
		_, _ = m.Score(frames)
	}
}
