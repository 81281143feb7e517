package pcm

import (
	"math"
	"testing"
	"time"
)

func TestWaveformDuration(t *testing.T) {
	w := Waveform{Samples: make([]float64, 22050), SampleRate: 44100}
	if got := w.Duration(); got != 500*time.Millisecond {
		t.Errorf("Duration() = %v, want 500ms", got)
	}
	if got := w.SamplesIn(20 * time.Millisecond); got != 882 {
		t.Errorf("SamplesIn(20ms) = %d, want 882", got)
	}
	if got := (Waveform{}).Duration(); got != 0 {
		t.Errorf("zero waveform Duration() = %v, want 0", got)
	}
}

func TestWaveformTruncate(t *testing.T) {
	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = float64(i)
	}
	w := Waveform{Samples: samples, SampleRate: 10}

	got := w.Truncate(3 * time.Second)
	if got.Len() != 30 {
		t.Fatalf("Truncate(3s) len = %d, want 30", got.Len())
	}
	for i, v := range got.Samples {
		if v != float64(i) {
			t.Fatalf("sample %d = %v, leading samples must be kept", i, v)
		}
	}

	if got := w.Truncate(time.Minute); got.Len() != 100 {
		t.Errorf("Truncate beyond length changed len to %d", got.Len())
	}
}

func TestDownmix(t *testing.T) {
	tests := []struct {
		name     string
		in       []float64
		channels int
		want     []float64
	}{
		{"mono passthrough", []float64{0.1, 0.2}, 1, []float64{0.1, 0.2}},
		{"stereo", []float64{1, 0, 0.5, 0.5, -1, 1}, 2, []float64{0.5, 0.5, 0}},
		{"partial frame dropped", []float64{1, 1, 1}, 2, []float64{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Downmix(tt.in, tt.channels)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-12 {
					t.Errorf("got[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFromInt16LE(t *testing.T) {
	data := []byte{0x00, 0x80, 0xff, 0x7f, 0x00, 0x00, 0x01}
	got := FromInt16LE(data)
	want := []float64{-1, 32767.0 / 32768.0, 0}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestIntRoundTrip(t *testing.T) {
	for _, depth := range []int{16, 24, 32} {
		in := []float64{0, 0.5, -0.5, 0.25}
		out := FromInts(ToInts(in, depth), depth)
		for i := range in {
			if math.Abs(out[i]-in[i]) > 1e-4 {
				t.Errorf("depth %d: sample %d = %v, want %v", depth, i, out[i], in[i])
			}
		}
	}
	if got := FromInts([]int{128, 0, 255}, 8); got[0] != 0 || got[1] != -1 {
		t.Errorf("8-bit conversion = %v", got)
	}
}

func TestToIntsClips(t *testing.T) {
	got := ToInts([]float64{2, -2}, 16)
	if got[0] != 32767 || got[1] != -32768 {
		t.Errorf("ToInts clipping = %v, want [32767 -32768]", got)
	}
}
