package resampler

import (
	"errors"
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/haivivi/langid/pkg/audio/pcm"
)

// ErrInvalidRate is returned when a source or destination rate is not
// positive.
var ErrInvalidRate = errors.New("resampler: invalid sample rate")

// Resample converts w to dstRate using the high-quality preset. When the
// rates already match, the samples are copied unchanged. Otherwise the
// result holds round(n*dstRate/srcRate) samples; whatever the filter
// leaves short at the end is padded with silence.
func Resample(w pcm.Waveform, dstRate int) (pcm.Waveform, error) {
	if w.SampleRate <= 0 {
		return pcm.Waveform{}, fmt.Errorf("%w: source %d", ErrInvalidRate, w.SampleRate)
	}
	if dstRate <= 0 {
		return pcm.Waveform{}, fmt.Errorf("%w: destination %d", ErrInvalidRate, dstRate)
	}

	if w.SampleRate == dstRate {
		out := make([]float64, len(w.Samples))
		copy(out, w.Samples)
		return pcm.Waveform{Samples: out, SampleRate: dstRate}, nil
	}
	if len(w.Samples) == 0 {
		return pcm.Waveform{SampleRate: dstRate}, nil
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(w.SampleRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return pcm.Waveform{}, fmt.Errorf("failed to create resampler: %w", err)
	}

	out, err := rs.Process(w.Samples)
	if err != nil {
		return pcm.Waveform{}, fmt.Errorf("resample error: %w", err)
	}
	// The filter holds back its tail until flushed.
	tail, err := rs.Flush()
	if err != nil {
		return pcm.Waveform{}, fmt.Errorf("resample flush: %w", err)
	}
	out = append(out, tail...)

	want := int((int64(len(w.Samples))*int64(dstRate) + int64(w.SampleRate)/2) / int64(w.SampleRate))
	if len(out) > want {
		out = out[:want]
	}
	for len(out) < want {
		out = append(out, 0)
	}

	// The filter may overshoot slightly; clamp to the normalised range the
	// rest of the pipeline expects.
	for i, s := range out {
		if s > 1 {
			out[i] = 1
		} else if s < -1 {
			out[i] = -1
		}
	}
	return pcm.Waveform{Samples: out, SampleRate: dstRate}, nil
}
