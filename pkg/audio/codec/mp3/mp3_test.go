package mp3

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"
	"testing"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// mono22k.mp3 is 60 MPEG-2 Layer III frames (576 samples each) of a
// mono 22.05 kHz, 48 kbit/s stream.
const fixture = "testdata/mono22k.mp3"

func TestDecodeFixture(t *testing.T) {
	f, err := os.Open(fixture)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w, err := Decode(f)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if w.SampleRate != 22050 {
		t.Errorf("SampleRate = %d, want 22050", w.SampleRate)
	}
	if w.Len() == 0 || w.Len() > 60*576 {
		t.Fatalf("got %d samples, want 1..%d", w.Len(), 60*576)
	}

	energy := 0.0
	for i, s := range w.Samples {
		if s < -1 || s >= 1 || math.IsNaN(s) {
			t.Fatalf("sample %d = %v out of range", i, s)
		}
		energy += s * s
	}
	if energy == 0 {
		t.Fatal("decoded audio is silent")
	}
	t.Logf("decoded %d samples (%v)", w.Len(), w.Duration())
}

func TestDecodeDownmixesStereoOutput(t *testing.T) {
	data, err := os.ReadFile(fixture)
	if err != nil {
		t.Fatal(err)
	}
	w, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	// go-mp3 always yields interleaved 16-bit stereo.
	dec, err := gomp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := w.Len(), len(raw)/4; got != want {
		t.Fatalf("mono len = %d, want %d stereo frames", got, want)
	}
	for i := 0; i < w.Len(); i++ {
		l := int16(binary.LittleEndian.Uint16(raw[i*4:]))
		r := int16(binary.LittleEndian.Uint16(raw[i*4+2:]))
		want := (float64(l)/32768 + float64(r)/32768) / 2
		if math.Abs(w.Samples[i]-want) > 1e-12 {
			t.Fatalf("sample %d = %v, want %v", i, w.Samples[i], want)
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"text", []byte("definitely not an mp3 stream")},
		{"truncated id3", []byte("ID3\x03\x00\x00\x00\x00\x00")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(bytes.NewReader(tt.data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
