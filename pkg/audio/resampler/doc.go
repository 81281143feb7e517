// Package resampler converts mono waveforms between sample rates using the
// pure Go resampler from github.com/tphakala/go-audio-resampling (no CGO).
//
// Feature extraction needs a fixed spectral resolution regardless of how a
// clip was encoded, so every decoded waveform is brought to one target rate
// before analysis. Resampling is deterministic: the same input always yields
// the same output.
//
// Example usage:
//
//	w := pcm.Waveform{Samples: samples, SampleRate: 48000}
//	out, err := resampler.Resample(w, 44100)
//	if err != nil {
//	    return err
//	}
package resampler
