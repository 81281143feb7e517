// Package pcm provides the decoded-audio representation shared by the
// codecs, the resampler and feature extraction.
//
// Key types and helpers:
//   - Waveform: mono float64 samples in [-1, 1] plus their sample rate
//   - Downmix: average interleaved multichannel samples into mono
//   - FromInt16LE / FromInts: convert integer PCM to normalised floats
//
// Example usage:
//
//	w := pcm.Waveform{Samples: samples, SampleRate: 44100}
//
//	// Keep only the first five seconds
//	w = w.Truncate(5 * time.Second)
//
//	// Samples in 20ms at this rate
//	n := w.SamplesIn(20 * time.Millisecond)
package pcm
