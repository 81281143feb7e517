// Package audio is the umbrella for the audio sub-packages used by
// language identification:
//
//   - pcm: mono float waveforms and integer sample conversion
//   - codec: format sniffing plus the wav and mp3 decoders
//   - resampler: sample rate conversion
//   - mfcc: mel-frequency cepstral coefficients
//
// Example usage:
//
//	import (
//	    "github.com/haivivi/langid/pkg/audio/codec"
//	    "github.com/haivivi/langid/pkg/audio/mfcc"
//	    "github.com/haivivi/langid/pkg/audio/resampler"
//	)
//
//	w, _, err := codec.DecodeFile("clip.mp3")
//	w, err = resampler.Resample(w, 44100)
//	ext, err := mfcc.New(mfcc.DefaultConfig())
//	features := ext.Extract(w.Samples)
package audio
