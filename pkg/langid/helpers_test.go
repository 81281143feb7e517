package langid

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/haivivi/langid/pkg/audio/codec/wav"
	"github.com/haivivi/langid/pkg/audio/pcm"
	"github.com/haivivi/langid/pkg/gmm"
)

// toneSamples returns a sine at freq with a little seeded noise.
func toneSamples(freq float64, n, rate int, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	s := make([]float64, n)
	for i := range s {
		s[i] = 0.5*math.Sin(2*math.Pi*freq*float64(i)/float64(rate)) + 0.02*rng.NormFloat64()
	}
	return s
}

func writeClip(t *testing.T, dir, name string, samples []float64, rate int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := wav.WriteFile(path, pcm.Waveform{Samples: samples, SampleRate: rate}, 16); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func writeTone(t *testing.T, dir, name string, freq float64, seconds float64, seed uint64) string {
	t.Helper()
	n := int(seconds * 44100)
	return writeClip(t, dir, name, toneSamples(freq, n, 44100, seed), 44100)
}

func newTestExtractor(t *testing.T, opts ...Option) *Extractor {
	t.Helper()
	ext, err := NewExtractor(DefaultExtractorConfig(), opts...)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	return ext
}

// trainModel fits a small diagonal GMM on the features of a synthetic tone.
func trainModel(t *testing.T, ext *Extractor, freq float64, seed uint64) *gmm.Model {
	t.Helper()
	clip := writeTone(t, t.TempDir(), "train.wav", freq, 1, seed)
	frames, err := ext.Extract(context.Background(), clip)
	if err != nil {
		t.Fatalf("extract training clip: %v", err)
	}
	m, _, err := gmm.Fit(frames, 2, gmm.FitOptions{CovarianceType: gmm.Diag, RegCovar: 1e-3})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	return m
}

func saveModel(t *testing.T, dir, label string, m *gmm.Model) {
	t.Helper()
	data, err := gmm.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, label+gmm.Ext), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// captureLogger returns a debug-level logger writing text records to buf.
func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
