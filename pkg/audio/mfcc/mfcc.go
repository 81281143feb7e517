// Package mfcc computes mel-frequency cepstral coefficients from mono PCM
// audio.
//
// The pipeline per analysis window is: optional pre-emphasis, Hann window,
// zero-padded radix-2 FFT, power spectrum, triangular mel filterbank,
// log compression in decibels, and an orthonormal DCT-II of which the
// leading coefficients are kept. The output is a [T, NumCoeffs] float64
// matrix, one row per window.
//
// Default parameters follow the common speech-analysis convention used for
// language identification models trained on 44.1 kHz clips:
//
//	SampleRate: 44100
//	FrameSize:  2048
//	HopSize:     512
//	FFTSize:    2048
//	NumMels:     128
//	NumCoeffs:    13
//	LowFreq:       0
//	HighFreq:      0 (Nyquist)
//
// Windows are not centred or padded: a signal shorter than FrameSize yields
// no rows, and every row depends only on the samples inside its own window.
package mfcc

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned by New and Config.Validate when a parameter
// is out of range.
var ErrInvalidConfig = errors.New("mfcc: invalid config")

// logFloor keeps the log of silent bands finite.
const logFloor = 1e-10

// Config controls MFCC extraction parameters.
type Config struct {
	SampleRate  int     // audio sample rate in Hz (default 44100)
	FrameSize   int     // analysis window length in samples (default 2048)
	HopSize     int     // hop between windows in samples (default 512)
	FFTSize     int     // FFT size, power of two >= FrameSize (default 2048)
	NumMels     int     // number of mel bands (default 128)
	NumCoeffs   int     // cepstral coefficients kept per window (default 13)
	LowFreq     float64 // lowest filterbank frequency in Hz (default 0)
	HighFreq    float64 // highest filterbank frequency in Hz, 0 means Nyquist
	PreEmphasis float64 // pre-emphasis coefficient, 0 disables (default 0)
	CMVN        bool    // apply per-clip mean/variance normalisation
}

// DefaultConfig returns the standard 13-coefficient configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate: 44100,
		FrameSize:  2048,
		HopSize:    512,
		FFTSize:    2048,
		NumMels:    128,
		NumCoeffs:  13,
	}
}

// Validate reports whether the configuration can drive an Extractor.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, c.SampleRate)
	case c.FrameSize <= 1:
		return fmt.Errorf("%w: frame size %d", ErrInvalidConfig, c.FrameSize)
	case c.HopSize <= 0:
		return fmt.Errorf("%w: hop size %d", ErrInvalidConfig, c.HopSize)
	case c.FFTSize < c.FrameSize || c.FFTSize&(c.FFTSize-1) != 0:
		return fmt.Errorf("%w: fft size %d must be a power of two >= frame size", ErrInvalidConfig, c.FFTSize)
	case c.NumMels <= 0:
		return fmt.Errorf("%w: mel bands %d", ErrInvalidConfig, c.NumMels)
	case c.NumCoeffs <= 0 || c.NumCoeffs > c.NumMels:
		return fmt.Errorf("%w: coefficients %d must be in [1, %d]", ErrInvalidConfig, c.NumCoeffs, c.NumMels)
	case c.LowFreq < 0 || c.HighFreq < 0:
		return fmt.Errorf("%w: negative frequency bound", ErrInvalidConfig)
	case c.HighFreq > float64(c.SampleRate)/2:
		return fmt.Errorf("%w: high frequency %.0f above Nyquist", ErrInvalidConfig, c.HighFreq)
	case c.PreEmphasis < 0 || c.PreEmphasis >= 1:
		return fmt.Errorf("%w: pre-emphasis %.3f", ErrInvalidConfig, c.PreEmphasis)
	}
	if c.LowFreq >= c.highFreq() {
		return fmt.Errorf("%w: low frequency %.0f >= high frequency %.0f", ErrInvalidConfig, c.LowFreq, c.highFreq())
	}
	return nil
}

func (c Config) highFreq() float64 {
	if c.HighFreq == 0 {
		return float64(c.SampleRate) / 2
	}
	return c.HighFreq
}

// Matrix is a feature matrix: one row per analysis window, each row holding
// the cepstral coefficients of that window.
type Matrix [][]float64

// Frames returns the number of rows.
func (m Matrix) Frames() int { return len(m) }

// Dim returns the number of columns, or 0 for an empty matrix.
func (m Matrix) Dim() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Extractor computes MFCC features from PCM samples. It is safe for
// concurrent use; all working buffers are allocated per call.
type Extractor struct {
	cfg     Config
	window  []float64
	melBank [][]float64
	dct     [][]float64
}

// New creates an Extractor with the given config.
func New(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{
		cfg:     cfg,
		window:  hannWindow(cfg.FrameSize),
		melBank: melFilterBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, cfg.LowFreq, cfg.highFreq()),
		dct:     dctMatrix(cfg.NumCoeffs, cfg.NumMels),
	}, nil
}

// Config returns the extractor's configuration.
func (e *Extractor) Config() Config { return e.cfg }

// NumFrames returns how many rows Extract produces for n samples.
func (e *Extractor) NumFrames(n int) int {
	if n < e.cfg.FrameSize {
		return 0
	}
	return (n-e.cfg.FrameSize)/e.cfg.HopSize + 1
}

// Extract computes MFCC features from normalised samples (range [-1, 1]).
// Returns nil when the signal is shorter than one analysis window.
func (e *Extractor) Extract(pcm []float64) Matrix {
	cfg := e.cfg
	numFrames := e.NumFrames(len(pcm))
	if numFrames == 0 {
		return nil
	}

	nfft := cfg.FFTSize
	halfFFT := nfft/2 + 1

	features := make(Matrix, numFrames)

	real := make([]float64, nfft)
	imag := make([]float64, nfft)
	power := make([]float64, halfFFT)
	logMel := make([]float64, cfg.NumMels)

	for t := 0; t < numFrames; t++ {
		start := t * cfg.HopSize

		for i := 0; i < cfg.FrameSize; i++ {
			s := pcm[start+i]
			if cfg.PreEmphasis > 0 && start+i > 0 {
				s -= cfg.PreEmphasis * pcm[start+i-1]
			}
			real[i] = s * e.window[i]
		}
		for i := cfg.FrameSize; i < nfft; i++ {
			real[i] = 0
		}
		for i := range imag {
			imag[i] = 0
		}
		fft(real, imag)

		for i := 0; i < halfFFT; i++ {
			power[i] = real[i]*real[i] + imag[i]*imag[i]
		}

		for m, filter := range e.melBank {
			sum := 0.0
			for k, w := range filter {
				if w != 0 {
					sum += w * power[k]
				}
			}
			if sum < logFloor {
				sum = logFloor
			}
			logMel[m] = 10 * math.Log10(sum)
		}

		row := make([]float64, cfg.NumCoeffs)
		for c, basis := range e.dct {
			sum := 0.0
			for m, b := range basis {
				sum += b * logMel[m]
			}
			row[c] = sum
		}
		features[t] = row
	}

	if cfg.CMVN {
		CMVN(features)
	}
	return features
}

// CMVN applies cepstral mean and variance normalisation in-place: each
// column is shifted to zero mean and scaled to unit standard deviation
// across all rows.
func CMVN(features Matrix) {
	if len(features) == 0 {
		return
	}
	dim := len(features[0])
	n := float64(len(features))

	for d := 0; d < dim; d++ {
		sum := 0.0
		for _, f := range features {
			sum += f[d]
		}
		mean := sum / n

		varSum := 0.0
		for _, f := range features {
			diff := f[d] - mean
			varSum += diff * diff
		}
		std := math.Sqrt(varSum / n)
		if std < logFloor {
			std = logFloor
		}

		for _, f := range features {
			f[d] = (f[d] - mean) / std
		}
	}
}
