// Package wav reads and writes RIFF/WAVE files as mono waveforms.
//
// Decoding and encoding are delegated to github.com/go-audio/wav. Linear
// PCM (format tag 1, or WAVE_FORMAT_EXTENSIBLE carrying PCM) at 8, 16, 24
// or 32 bits and 32-bit IEEE float (format tag 3) are accepted;
// multichannel input is averaged to mono.
package wav

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/haivivi/langid/pkg/audio/pcm"
)

const (
	formatPCM        = 1
	formatFloat      = 3
	formatExtensible = 0xFFFE
)

var (
	// ErrInvalidFile is returned when the stream is not a readable WAV file
	// or holds no samples.
	ErrInvalidFile = errors.New("wav: invalid file")

	// ErrUnsupportedEncoding is returned for compressed payloads and for
	// float samples wider than 32 bits.
	ErrUnsupportedEncoding = errors.New("wav: unsupported encoding")
)

// Decode reads a whole WAV stream and returns it as a mono waveform at the
// file's sample rate.
func Decode(r io.ReadSeeker) (pcm.Waveform, error) {
	dec := gowav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return pcm.Waveform{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
		return pcm.Waveform{}, ErrInvalidFile
	}
	isFloat := dec.WavAudioFormat == formatFloat
	switch {
	case isFloat:
		if dec.BitDepth != 32 {
			return pcm.Waveform{}, fmt.Errorf("%w: %d-bit float samples", ErrUnsupportedEncoding, dec.BitDepth)
		}
	case dec.WavAudioFormat != formatPCM && dec.WavAudioFormat != formatExtensible:
		return pcm.Waveform{}, fmt.Errorf("%w: format tag %d", ErrUnsupportedEncoding, dec.WavAudioFormat)
	}
	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return pcm.Waveform{}, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedEncoding, dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return pcm.Waveform{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	channels := int(dec.NumChans)
	if len(buf.Data) < channels {
		return pcm.Waveform{}, fmt.Errorf("%w: no samples", ErrInvalidFile)
	}

	var samples []float64
	if isFloat {
		samples = fromFloat32Bits(buf.Data)
	} else {
		samples = pcm.FromInts(buf.Data, int(dec.BitDepth))
	}
	return pcm.Waveform{
		Samples:    pcm.Downmix(samples, channels),
		SampleRate: int(dec.SampleRate),
	}, nil
}

// fromFloat32Bits reinterprets the 32-bit words go-audio/wav reads as
// signed integers. Out-of-range values are clipped and NaN becomes silence.
func fromFloat32Bits(data []int) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		f := float64(math.Float32frombits(uint32(int32(v))))
		switch {
		case math.IsNaN(f):
			f = 0
		case f > 1:
			f = 1
		case f < -1:
			f = -1
		}
		out[i] = f
	}
	return out
}

// DecodeFile opens and decodes the WAV file at path.
func DecodeFile(path string) (pcm.Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return pcm.Waveform{}, err
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes w as a mono linear PCM WAV stream with the given bit depth.
func Encode(dst io.WriteSeeker, w pcm.Waveform, bitDepth int) error {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("%w: %d-bit samples", ErrUnsupportedEncoding, bitDepth)
	}
	enc := gowav.NewEncoder(dst, w.SampleRate, bitDepth, 1, formatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: w.SampleRate},
		Data:           pcm.ToInts(w.Samples, bitDepth),
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: encode: %w", err)
	}
	return enc.Close()
}

// WriteFile encodes w into a new file at path, replacing any existing file.
func WriteFile(path string, w pcm.Waveform, bitDepth int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, w, bitDepth); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
