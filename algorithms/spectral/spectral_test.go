package spectral

import (
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-chords/algorithms/windowing"
	"github.com/RyanBlaney/sonido-chords/logging"
)

func init() {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
}

func sine(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return out
}

func TestMagnitudeSpectrumPeak(t *testing.T) {
	const sampleRate, n = 8000, 800
	mags := NewFFT().MagnitudeSpectrum(sine(1000, sampleRate, n))

	peak := 0
	for i, m := range mags {
		if m > mags[peak] {
			peak = i
		}
	}
	if hz := float64(peak) * sampleRate / n; hz != 1000 {
		t.Errorf("peak at %v Hz, want 1000", hz)
	}
}

func TestHermitianInverseRoundTrip(t *testing.T) {
	f := NewFFT()
	for _, size := range []int{16, 15} {
		x := make([]float64, size)
		for i := range x {
			x[i] = float64(i%5) - 2
		}
		spectrum := f.Compute(x)
		back := f.HermitianInverse(spectrum[:size/2+1], size)
		for i := range x {
			if math.Abs(back[i]-x[i]) > 1e-9 {
				t.Fatalf("size %d sample %d: got %v want %v", size, i, back[i], x[i])
			}
		}
	}
}

func TestSTFTInverseReconstructs(t *testing.T) {
	const sampleRate, windowSize, hop = 16000, 512, 128
	signal := sine(300, sampleRate, 8192)

	stft := NewSTFT()
	win := windowing.NewHann(windowSize, false)
	result, err := stft.ComputeWithWindow(signal, windowSize, hop, sampleRate, win)
	if err != nil {
		t.Fatalf("ComputeWithWindow: %v", err)
	}
	if result.FreqBins != windowSize/2+1 {
		t.Fatalf("FreqBins = %d", result.FreqBins)
	}

	out, err := stft.Inverse(result.Complex, windowSize, hop, len(signal), win)
	if err != nil {
		t.Fatalf("Inverse: %v", err)
	}
	if len(out) != len(signal) {
		t.Fatalf("len = %d, want %d", len(out), len(signal))
	}

	// Edges lack full overlap; the interior must match
	for i := windowSize; i < len(signal)-2*windowSize; i++ {
		if math.Abs(out[i]-signal[i]) > 1e-6 {
			t.Fatalf("sample %d: got %v want %v", i, out[i], signal[i])
		}
	}
}

func TestSTFTRejectsShortSignal(t *testing.T) {
	if _, err := NewSTFT().ComputeWithWindow(make([]float64, 100), 512, 128, 16000, nil); err == nil {
		t.Error("expected error for signal shorter than window")
	}
}
