package common

import (
	"math"
	"testing"
)

func TestHzMidiConversion(t *testing.T) {
	tests := []struct {
		hz   float64
		midi float64
	}{
		{440, 69},
		{261.6255653005986, 60},
		{880, 81},
	}
	for _, tt := range tests {
		if got := HzToMidi(tt.hz); math.Abs(got-tt.midi) > 1e-9 {
			t.Errorf("HzToMidi(%v) = %v, want %v", tt.hz, got, tt.midi)
		}
		if got := MidiToHz(tt.midi); math.Abs(got-tt.hz) > 1e-9 {
			t.Errorf("MidiToHz(%v) = %v, want %v", tt.midi, got, tt.hz)
		}
	}
	if !math.IsInf(HzToMidi(0), -1) {
		t.Error("HzToMidi(0) should be -Inf")
	}
}

func TestPitchClass(t *testing.T) {
	tests := map[float64]int{60: 0, 69: 9, 71.4: 11, 71.6: 0, -1: 11}
	for midi, want := range tests {
		if got := PitchClass(midi); got != want {
			t.Errorf("PitchClass(%v) = %d, want %d", midi, got, want)
		}
	}
}

func TestSemitoneRatio(t *testing.T) {
	if r := SemitoneRatio(12); math.Abs(r-2) > 1e-12 {
		t.Errorf("octave ratio = %v", r)
	}
	if r := SemitoneRatio(-7); math.Abs(r-0.6674199270850172) > 1e-12 {
		t.Errorf("fifth below ratio = %v", r)
	}
}

func TestCorrelationConstantInput(t *testing.T) {
	if r := Correlation([]float64{1, 1, 1}, []float64{1, 2, 3}); r != 0 {
		t.Errorf("Correlation with constant series = %v, want 0", r)
	}
	if r := Correlation([]float64{1, 2, 3}, []float64{2, 4, 6}); math.Abs(r-1) > 1e-12 {
		t.Errorf("Correlation of scaled series = %v, want 1", r)
	}
}

func TestWrapPhase(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{3 * math.Pi, math.Pi},
		{-math.Pi / 2, -math.Pi / 2},
		{2*math.Pi + 0.25, 0.25},
	}
	for _, tt := range tests {
		if got := WrapPhase(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("WrapPhase(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSmallHelpers(t *testing.T) {
	if ArgMax(nil) != -1 || ArgMax([]float64{1, 5, 2}) != 1 {
		t.Error("ArgMax")
	}
	if NextPowerOfTwo(1000) != 1024 || NextPowerOfTwo(0) != 1 {
		t.Error("NextPowerOfTwo")
	}
	if Clamp(2, 0, 1) != 1 || Clamp(-1, 0, 1) != 0 {
		t.Error("Clamp")
	}
	if math.Abs(RMS([]float64{1, -1, 1, -1})-1) > 1e-12 {
		t.Error("RMS")
	}
}
