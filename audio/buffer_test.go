package audio

import (
	"math"
	"testing"
	"time"
)

func TestInterleaveRoundTrip(t *testing.T) {
	b := Buffer{Channels: [][]float64{{1, 2, 3}, {-1, -2, -3}}}
	inter := b.Interleave()
	want := []float64{1, -1, 2, -2, 3, -3}
	for i := range want {
		if inter[i] != want[i] {
			t.Fatalf("Interleave()[%d] = %v, want %v", i, inter[i], want[i])
		}
	}

	back, err := Deinterleave(append(inter, 9), 2)
	if err != nil {
		t.Fatalf("Deinterleave: %v", err)
	}
	if !back.SameLayout(b) {
		t.Fatalf("layout %dx%d, want 2x3", back.NumChannels(), back.Len())
	}
	if back.Channels[1][2] != -3 {
		t.Errorf("sample mismatch: %v", back.Channels[1])
	}
}

func TestDeinterleaveRejectsZeroChannels(t *testing.T) {
	if _, err := Deinterleave([]float64{1}, 0); err == nil {
		t.Error("expected error for zero channels")
	}
}

func TestMonoAndPeak(t *testing.T) {
	b := Buffer{Channels: [][]float64{{1, 0.5}, {0, -1.5}}}
	mono := b.Mono()
	if mono[0] != 0.5 || mono[1] != -0.5 {
		t.Errorf("Mono() = %v", mono)
	}
	if b.Peak() != 1.5 {
		t.Errorf("Peak() = %v", b.Peak())
	}
}

func TestAddScaled(t *testing.T) {
	dst := NewBuffer(1, 3)
	src := FromMono([]float64{1, 2, 3})
	if err := dst.AddScaled(0.5, src); err != nil {
		t.Fatal(err)
	}
	if dst.Channels[0][2] != 1.5 {
		t.Errorf("AddScaled result %v", dst.Channels[0])
	}
	if err := dst.AddScaled(1, NewBuffer(2, 3)); err == nil {
		t.Error("expected layout mismatch error")
	}
}

func TestFitLengthAndClone(t *testing.T) {
	b := FromMono([]float64{1, 2, 3})
	c := b.Clone()
	c.Channels[0][0] = 42
	if b.Channels[0][0] != 1 {
		t.Error("Clone shares storage")
	}

	if got := b.FitLength(5); got.Len() != 5 || got.Channels[0][4] != 0 {
		t.Errorf("pad: %v", got.Channels[0])
	}
	if got := b.FitLength(2); got.Len() != 2 || got.Channels[0][1] != 2 {
		t.Errorf("truncate: %v", got.Channels[0])
	}
}

func TestValidateAndDuration(t *testing.T) {
	if err := (Buffer{}).Validate(); err == nil {
		t.Error("empty buffer should not validate")
	}
	if err := (Buffer{Channels: [][]float64{{1, 2}, {1}}}).Validate(); err == nil {
		t.Error("ragged buffer should not validate")
	}

	b := NewBuffer(2, 44100)
	if d := b.Duration(44100); d != time.Second {
		t.Errorf("Duration = %v", d)
	}
	b.Scale(2)
	if math.Abs(b.Peak()) != 0 {
		t.Error("silence scaled should stay silent")
	}
}

func TestRemix(t *testing.T) {
	stereo := Buffer{Channels: [][]float64{{1, 0}, {0, 1}}}

	mono := stereo.Remix(1)
	if mono.NumChannels() != 1 || mono.Channels[0][0] != 0.5 || mono.Channels[0][1] != 0.5 {
		t.Errorf("Remix(1) = %v", mono.Channels)
	}

	wide := FromMono([]float64{0.25, -0.25}).Remix(2)
	if wide.NumChannels() != 2 || wide.Channels[1][1] != -0.25 {
		t.Errorf("Remix(2) = %v", wide.Channels)
	}

	if same := stereo.Remix(2); &same.Channels[0][0] != &stereo.Channels[0][0] {
		t.Error("Remix with matching count should return the buffer unchanged")
	}
}
