package langid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/haivivi/langid/pkg/audio/codec"
	"github.com/haivivi/langid/pkg/audio/mfcc"
	"github.com/haivivi/langid/pkg/audio/pcm"
	"github.com/haivivi/langid/pkg/audio/resampler"
	"github.com/haivivi/langid/pkg/featcache"
)

// ExtractorConfig controls feature extraction.
type ExtractorConfig struct {
	// MaxDuration bounds how much leading audio is analysed. Default: 5s.
	MaxDuration time.Duration

	// SampleRate is the rate clips are resampled to before analysis.
	// Default: 44100.
	SampleRate int

	// MFCC holds the analysis parameters. Its SampleRate is overridden by
	// the field above.
	MFCC mfcc.Config
}

// DefaultExtractorConfig returns the standard configuration: 5 seconds at
// 44.1 kHz, 13 coefficients.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		MaxDuration: 5 * time.Second,
		SampleRate:  44100,
		MFCC:        mfcc.DefaultConfig(),
	}
}

// Extractor turns audio files into MFCC feature matrices. It is safe for
// concurrent use.
type Extractor struct {
	cfg         ExtractorConfig
	mfcc        *mfcc.Extractor
	cache       featcache.Cache
	fingerprint string
	logger      *slog.Logger
}

// NewExtractor validates cfg and builds an Extractor. Out-of-range settings
// return an error wrapping ErrInvalidConfig; no I/O happens here.
func NewExtractor(cfg ExtractorConfig, opts ...Option) (*Extractor, error) {
	if cfg.MaxDuration <= 0 {
		return nil, fmt.Errorf("%w: max duration %v", ErrInvalidConfig, cfg.MaxDuration)
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, cfg.SampleRate)
	}
	cfg.MFCC.SampleRate = cfg.SampleRate
	m, err := mfcc.New(cfg.MFCC)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if (pcm.Waveform{SampleRate: cfg.SampleRate}).SamplesIn(cfg.MaxDuration) < cfg.MFCC.FrameSize {
		return nil, fmt.Errorf("%w: max duration %v is shorter than one analysis window", ErrInvalidConfig, cfg.MaxDuration)
	}

	o := buildOptions(opts)
	return &Extractor{
		cfg:         cfg,
		mfcc:        m,
		cache:       o.cache,
		fingerprint: fingerprint(cfg),
		logger:      o.logger,
	}, nil
}

// Config returns the effective configuration.
func (e *Extractor) Config() ExtractorConfig { return e.cfg }

// Dim returns the number of columns in extracted matrices.
func (e *Extractor) Dim() int { return e.cfg.MFCC.NumCoeffs }

// Extract decodes the audio file at path and returns its feature matrix.
// Any failure to produce at least one frame is reported as an error
// wrapping ErrDecode.
func (e *Extractor) Extract(ctx context.Context, path string) (mfcc.Matrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return e.ExtractBytes(ctx, data)
}

// ExtractBytes is Extract for an in-memory WAV or MP3 file.
func (e *Extractor) ExtractBytes(ctx context.Context, data []byte) (mfcc.Matrix, error) {
	var key featcache.Key
	if e.cache != nil {
		key = featcache.NewKey(data, e.fingerprint)
		m, err := e.cache.Get(ctx, key)
		if err == nil {
			e.logger.Debug("langid: feature cache hit", "key", key.String())
			return m, nil
		}
		if !errors.Is(err, featcache.ErrNotFound) {
			e.logger.Warn("langid: feature cache read failed", "error", err)
		}
	}

	w, format, err := codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	e.logger.Debug("langid: decoded clip",
		"format", format,
		"sampleRate", w.SampleRate,
		"duration", w.Duration(),
	)

	m, err := e.ExtractWaveform(w)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, m); err != nil {
			e.logger.Warn("langid: feature cache write failed", "error", err)
		}
	}
	return m, nil
}

// ExtractWaveform computes features for decoded mono audio: resample to
// the configured rate, keep the leading MaxDuration, then run MFCC
// analysis.
func (e *Extractor) ExtractWaveform(w pcm.Waveform) (mfcc.Matrix, error) {
	if w.Len() == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrDecode)
	}
	w, err := resampler.Resample(w, e.cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	w = w.Truncate(e.cfg.MaxDuration)

	m := e.mfcc.Extract(w.Samples)
	if m == nil {
		return nil, fmt.Errorf("%w: clip of %v is shorter than one analysis window", ErrDecode, w.Duration())
	}
	return m, nil
}

// fingerprint summarises every setting that changes extracted values.
func fingerprint(cfg ExtractorConfig) string {
	c := cfg.MFCC
	return fmt.Sprintf("v1 sr=%d max=%d frame=%d hop=%d fft=%d mels=%d coeffs=%d lo=%g hi=%g pre=%g cmvn=%t",
		cfg.SampleRate, cfg.MaxDuration, c.FrameSize, c.HopSize, c.FFTSize,
		c.NumMels, c.NumCoeffs, c.LowFreq, c.HighFreq, c.PreEmphasis, c.CMVN)
}
