package pcm

import (
	"encoding/binary"
	"time"
)

// Waveform is a mono signal of normalised float64 samples.
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// Len returns the number of samples.
func (w Waveform) Len() int {
	return len(w.Samples)
}

// SamplesIn returns the number of samples in the given duration at this
// waveform's rate.
func (w Waveform) SamplesIn(d time.Duration) int {
	return int(int64(w.SampleRate) * int64(d) / int64(time.Second))
}

// Duration returns the playing time of the waveform.
func (w Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(w.Samples)) * time.Second / time.Duration(w.SampleRate)
}

// Truncate returns the leading d of the waveform. Trailing samples are
// dropped; the result shares the underlying array.
func (w Waveform) Truncate(d time.Duration) Waveform {
	n := w.SamplesIn(d)
	if n < 0 {
		n = 0
	}
	if n < len(w.Samples) {
		w.Samples = w.Samples[:n]
	}
	return w
}

// Downmix averages interleaved multichannel samples into mono.
// A trailing partial frame is dropped.
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}
	n := len(interleaved) / channels
	mono := make([]float64, n)
	for i := range mono {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}

// FromInt16LE converts little-endian signed 16-bit PCM to floats in
// [-1, 1). A trailing odd byte is ignored.
func FromInt16LE(data []byte) []float64 {
	n := len(data) / 2
	out := make([]float64, n)
	for i := range out {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		out[i] = float64(s) / 32768.0
	}
	return out
}

// FromInts converts integer samples of the given bit depth to floats in
// [-1, 1). 8-bit samples are treated as unsigned, as stored in WAV files;
// wider depths are signed.
func FromInts(data []int, bitDepth int) []float64 {
	out := make([]float64, len(data))
	if bitDepth == 8 {
		for i, v := range data {
			out[i] = float64(v-128) / 128.0
		}
		return out
	}
	scale := float64(int64(1) << (bitDepth - 1))
	for i, v := range data {
		out[i] = float64(v) / scale
	}
	return out
}

// ToInts converts normalised floats to signed integers of the given bit
// depth, clipping to the representable range.
func ToInts(samples []float64, bitDepth int) []int {
	limit := float64(int64(1)<<(bitDepth-1)) - 1
	out := make([]int, len(samples))
	for i, s := range samples {
		v := s * (limit + 1)
		if v > limit {
			v = limit
		} else if v < -limit-1 {
			v = -limit - 1
		}
		out[i] = int(v)
	}
	return out
}
