// Package mp3 decodes MP3 audio into mono waveforms.
//
// Decoding uses github.com/hajimehoshi/go-mp3, a pure Go MPEG-1/2 Layer III
// decoder. It always produces 16-bit little-endian stereo, which is
// downmixed to mono here.
package mp3

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/haivivi/langid/pkg/audio/pcm"
)

// ErrNoAudio is returned when the stream contains no decodable frames.
var ErrNoAudio = errors.New("mp3: no audio decoded")

// decoderChannels is the fixed channel count of go-mp3 output.
const decoderChannels = 2

// Decode reads an entire MP3 stream and returns it as a mono waveform at
// the stream's native sample rate.
func Decode(r io.Reader) (pcm.Waveform, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return pcm.Waveform{}, fmt.Errorf("mp3: %w", err)
	}

	var raw bytes.Buffer
	if n := dec.Length(); n > 0 {
		raw.Grow(int(n))
	}
	if _, err := io.Copy(&raw, dec); err != nil {
		return pcm.Waveform{}, fmt.Errorf("mp3: decode: %w", err)
	}

	// Drop a trailing partial sample frame.
	data := raw.Bytes()
	data = data[:len(data)/(2*decoderChannels)*(2*decoderChannels)]
	if len(data) == 0 {
		return pcm.Waveform{}, ErrNoAudio
	}

	return pcm.Waveform{
		Samples:    pcm.Downmix(pcm.FromInt16LE(data), decoderChannels),
		SampleRate: dec.SampleRate(),
	}, nil
}
