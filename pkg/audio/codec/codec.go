// Package codec detects the container format of an audio file from its
// leading bytes and decodes it into a mono waveform.
//
// Supported formats:
//   - WAV (RIFF/WAVE, linear PCM), via [wav.Decode]
//   - MP3 (with or without an ID3v2 tag), via [mp3.Decode]
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/haivivi/langid/pkg/audio/codec/mp3"
	"github.com/haivivi/langid/pkg/audio/codec/wav"
	"github.com/haivivi/langid/pkg/audio/pcm"
)

// ErrUnsupportedFormat is returned when the leading bytes match no known
// audio container.
var ErrUnsupportedFormat = errors.New("codec: unsupported audio format")

// Format identifies an audio container.
type Format int

const (
	Unknown Format = iota
	WAV
	MP3
)

func (f Format) String() string {
	switch f {
	case WAV:
		return "wav"
	case MP3:
		return "mp3"
	default:
		return "unknown"
	}
}

// Sniff inspects the first bytes of data and reports the container format.
func Sniff(data []byte) Format {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return WAV
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return MP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// MPEG audio frame sync: 11 set bits.
		return MP3
	}
	return Unknown
}

// Decode sniffs data and decodes it with the matching codec.
func Decode(data []byte) (pcm.Waveform, Format, error) {
	format := Sniff(data)
	var (
		w   pcm.Waveform
		err error
	)
	switch format {
	case WAV:
		w, err = wav.Decode(bytes.NewReader(data))
	case MP3:
		w, err = mp3.Decode(bytes.NewReader(data))
	default:
		return pcm.Waveform{}, Unknown, ErrUnsupportedFormat
	}
	if err != nil {
		return pcm.Waveform{}, format, fmt.Errorf("decode %s: %w", format, err)
	}
	return w, format, nil
}

// DecodeFile reads the file at path and decodes it.
func DecodeFile(path string) (pcm.Waveform, Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pcm.Waveform{}, Unknown, err
	}
	return Decode(data)
}
