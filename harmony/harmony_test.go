package harmony

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-chords/algorithms/spectral"
	"github.com/RyanBlaney/sonido-chords/algorithms/tonal"
	"github.com/RyanBlaney/sonido-chords/audio"
	apperrors "github.com/RyanBlaney/sonido-chords/errors"
	"github.com/RyanBlaney/sonido-chords/internal/exec"
	"github.com/RyanBlaney/sonido-chords/logging"
)

func init() {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
}

func sine(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// steadyPitch is a 10 ms pitch track with constant frequency and confidence
func steadyPitch(frames int, freq, confidence float64) tonal.PitchData {
	pd := tonal.PitchData{
		Timestamps:  make([]float64, frames),
		Frequencies: make([]float64, frames),
		Confidences: make([]float64, frames),
	}
	for i := range frames {
		pd.Timestamps[i] = float64(i) * 0.01
		pd.Frequencies[i] = freq
		pd.Confidences[i] = confidence
	}
	return pd
}

func TestSemitonesFor(t *testing.T) {
	tests := []struct {
		mode tonal.Mode
		kind Kind
		want int
	}{
		{tonal.Major, Third, 4},
		{tonal.Minor, Third, 3},
		{tonal.Major, Fifth, 7},
		{tonal.Minor, Fifth, 7},
		{tonal.Major, ThirdLower, -4},
		{tonal.Minor, ThirdLower, -3},
		{tonal.Major, FifthLower, -7},
		{tonal.Minor, FifthLower, -7},
	}

	for _, tt := range tests {
		for range 3 {
			got, err := SemitonesFor(tt.mode, tt.kind)
			if err != nil {
				t.Fatalf("%s %s: %v", tt.mode, tt.kind, err)
			}
			if got != tt.want {
				t.Errorf("%s %s = %d, want %d", tt.mode, tt.kind, got, tt.want)
			}
		}
	}

	var cfgErr *apperrors.ConfigurationError
	if _, err := SemitonesFor(tonal.Major, Kind("octave")); !errors.As(err, &cfgErr) {
		t.Errorf("unknown kind: got %v, want ConfigurationError", err)
	}
}

func TestParseKinds(t *testing.T) {
	kinds, err := ParseKinds("fifth, Third")
	if err != nil {
		t.Fatal(err)
	}
	if len(kinds) != 2 || kinds[0] != Fifth || kinds[1] != Third {
		t.Errorf("ParseKinds = %v, want [fifth third]", kinds)
	}

	for _, bad := range []string{"", "third,third", "octave", " , "} {
		var cfgErr *apperrors.ConfigurationError
		if _, err := ParseKinds(bad); !errors.As(err, &cfgErr) {
			t.Errorf("ParseKinds(%q): got %v, want ConfigurationError", bad, err)
		}
	}
}

func TestPlannerThresholdBoundary(t *testing.T) {
	pd := steadyPitch(4, 440, 0)
	pd.Confidences = []float64{0.5, 0.4999, 1, 0}

	plan, err := NewPlanner().Plan(pd, tonal.NewKeyInfo(0, tonal.Major, 1), Request{Kind: Third})
	if err != nil {
		t.Fatal(err)
	}

	want := []bool{true, false, true, false}
	for i := range want {
		if plan.Mask[i] != want[i] {
			t.Errorf("frame %d: mask %v, want %v", i, plan.Mask[i], want[i])
		}
	}
	if plan.VoicedRatio() != 0.5 {
		t.Errorf("voiced ratio %v, want 0.5", plan.VoicedRatio())
	}
}

func TestPlannerErrors(t *testing.T) {
	key := tonal.NewKeyInfo(0, tonal.Major, 1)

	for _, th := range []float64{-0.1, 1.5} {
		p := &Planner{Threshold: th}
		var cfgErr *apperrors.ConfigurationError
		if _, err := p.Plan(steadyPitch(3, 440, 1), key, Request{Kind: Third}); !errors.As(err, &cfgErr) {
			t.Errorf("threshold %v: got %v, want ConfigurationError", th, err)
		}
	}

	bad := steadyPitch(3, 440, 1)
	bad.Confidences = bad.Confidences[:2]
	var anaErr *apperrors.AnalysisError
	if _, err := NewPlanner().Plan(bad, key, Request{Kind: Third}); !errors.As(err, &anaErr) {
		t.Errorf("misaligned pitch data: got %v, want AnalysisError", err)
	}
}

func TestPlanSineInCMajor(t *testing.T) {
	const sr = 16000
	tracker, err := tonal.NewYINTracker(tonal.DefaultYINParams(sr))
	if err != nil {
		t.Fatal(err)
	}
	pd, err := tracker.Track(sine(440, sr, sr/2))
	if err != nil {
		t.Fatal(err)
	}

	key, err := tonal.ParseKey("C major")
	if err != nil {
		t.Fatal(err)
	}

	planner := NewPlanner()
	third, err := planner.Plan(pd, key, Request{Kind: Third})
	if err != nil {
		t.Fatal(err)
	}
	if third.Semitones != 4 {
		t.Errorf("third = %d, want 4", third.Semitones)
	}
	if third.VoicedRatio() < 0.8 {
		t.Errorf("voiced ratio %v, want most frames voiced", third.VoicedRatio())
	}

	lower, err := planner.Plan(pd, key, Request{Kind: FifthLower})
	if err != nil {
		t.Fatal(err)
	}
	if lower.Semitones != -7 {
		t.Errorf("fifth_lower = %d, want -7", lower.Semitones)
	}
}

func TestZeroShiftIsIdentity(t *testing.T) {
	buf := audio.Buffer{Channels: [][]float64{sine(220, 8000, 800), sine(330, 8000, 800)}}

	shifters := []Shifter{
		NewVocoder(),
		NewRubberBand("/nonexistent/rubberband", t.TempDir(), exec.NewRunner(time.Second)),
	}
	for _, s := range shifters {
		out, err := s.Shift(context.Background(), buf, 8000, 0)
		if err != nil {
			t.Fatalf("%s: %v", s.Name(), err)
		}
		if !out.SameLayout(buf) {
			t.Fatalf("%s: layout changed", s.Name())
		}
		for c := range buf.Channels {
			for i := range buf.Channels[c] {
				if out.Channels[c][i] != buf.Channels[c][i] {
					t.Fatalf("%s: sample %d/%d changed", s.Name(), c, i)
				}
			}
		}
	}
}

func TestShiftOutOfRange(t *testing.T) {
	buf := audio.FromMono(sine(220, 8000, 800))
	for _, st := range []int{25, -25} {
		var shiftErr *apperrors.ShiftError
		if _, err := NewVocoder().Shift(context.Background(), buf, 8000, st); !errors.As(err, &shiftErr) {
			t.Errorf("shift %d: got %v, want ShiftError", st, err)
		}
	}
	if _, err := NewVocoder().Shift(context.Background(), buf, 8000, 24); err != nil {
		t.Errorf("shift 24: %v", err)
	}
}

func TestVocoderOctaveUp(t *testing.T) {
	const sr = 16000
	const n = 16384
	buf := audio.Buffer{Channels: [][]float64{sine(440, sr, n), sine(440, sr, n)}}

	out, err := NewVocoder().Shift(context.Background(), buf, sr, 12)
	if err != nil {
		t.Fatal(err)
	}
	if !out.SameLayout(buf) {
		t.Fatalf("layout %dx%d, want %dx%d", out.NumChannels(), out.Len(), buf.NumChannels(), buf.Len())
	}

	// Analyse the middle of the output, away from edge effects
	segment := out.Channels[0][4096 : 4096+8192]
	mags := spectral.NewFFT().MagnitudeSpectrum(segment)
	peak := 1
	for k := 2; k < len(mags); k++ {
		if mags[k] > mags[peak] {
			peak = k
		}
	}
	freq := float64(peak) * sr / 8192
	if math.Abs(freq-880) > 15 {
		t.Errorf("dominant frequency %.1f Hz, want about 880 Hz", freq)
	}
}

type fakeProber struct {
	name string
	err  error
}

func (f *fakeProber) Name() string                        { return f.name }
func (f *fakeProber) Available(ctx context.Context) error { return f.err }
func (f *fakeProber) Shift(ctx context.Context, buf audio.Buffer, sampleRate int, semitones int) (audio.Buffer, error) {
	return buf.Clone(), nil
}

func TestSelectShifter(t *testing.T) {
	ctx := context.Background()
	fallback := NewVocoder()

	tests := []struct {
		name string
		mode string
		hq   Prober
		want string
	}{
		{"auto available", ShifterAuto, &fakeProber{name: ShifterRubberBand}, ShifterRubberBand},
		{"auto missing", ShifterAuto, &fakeProber{name: ShifterRubberBand, err: apperrors.ErrToolNotInstalled}, ShifterFallback},
		{"forced missing", ShifterRubberBand, &fakeProber{name: ShifterRubberBand, err: apperrors.ErrToolNotInstalled}, ShifterFallback},
		{"forced fallback", ShifterFallback, &fakeProber{name: ShifterRubberBand}, ShifterFallback},
		{"no backend", ShifterAuto, nil, ShifterFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectShifter(ctx, tt.mode, tt.hq, fallback)
			if got.Name() != tt.want {
				t.Errorf("selected %s, want %s", got.Name(), tt.want)
			}
		})
	}
}

func TestRenderGate(t *testing.T) {
	const sr = 1000
	buf := audio.FromMono(make([]float64, sr))
	for i := range buf.Channels[0] {
		buf.Channels[0][i] = 1
	}

	// Frames every 10 ms, voiced for the first half only
	pd := steadyPitch(100, 440, 1)
	for i := 50; i < 100; i++ {
		pd.Confidences[i] = 0
	}
	plan, err := NewPlanner().Plan(pd, tonal.NewKeyInfo(0, tonal.Major, 1), Request{Kind: Third})
	if err != nil {
		t.Fatal(err)
	}

	s := NewStrategy(&fakeProber{name: "fake"}, 10*time.Millisecond)
	track, err := s.Render(context.Background(), buf, sr, plan, pd)
	if err != nil {
		t.Fatal(err)
	}

	got := track.Audio.Channels[0]
	if len(got) != sr {
		t.Fatalf("length %d, want %d", len(got), sr)
	}
	if got[100] != 1 {
		t.Errorf("voiced sample = %v, want 1", got[100])
	}
	if got[900] != 0 {
		t.Errorf("unvoiced sample = %v, want 0", got[900])
	}
	// The fade-out spans the 10 samples before the gate closes at 495
	for i := 490; i < 520; i++ {
		if d := got[i] - got[i+1]; d < 0 || d > 0.11 {
			t.Fatalf("step at %d is %v, want a gradual fade", i, d)
		}
	}
	if track.Semitones != 4 || track.Backend != "fake" || track.VoicedRatio != 0.5 {
		t.Errorf("track metadata %+v", track)
	}
}

func TestRenderSilencesIsolatedMaskedFrame(t *testing.T) {
	const sr = 44100
	buf := audio.FromMono(make([]float64, sr/10))
	for i := range buf.Channels[0] {
		buf.Channels[0][i] = 1
	}

	pd := steadyPitch(10, 440, 0.9)
	pd.Confidences[5] = 0.1
	plan, err := NewPlanner().Plan(pd, tonal.NewKeyInfo(0, tonal.Major, 1), Request{Kind: Fifth})
	if err != nil {
		t.Fatal(err)
	}

	track, err := NewStrategy(&fakeProber{name: "fake"}, DefaultRamp).Render(context.Background(), buf, sr, plan, pd)
	if err != nil {
		t.Fatal(err)
	}

	got := track.Audio.Channels[0]
	srf := float64(sr)
	// Frame 5 owns the samples nearest to 50 ms: 45 ms to 55 ms
	start, end := int(0.0455*srf), int(0.0545*srf)
	for i := start; i <= end; i++ {
		if got[i] != 0 {
			t.Fatalf("sample %d inside the masked frame = %v, want 0", i, got[i])
		}
	}

	// Fades sit inside the neighbouring voiced frames
	fadeOut, fadeIn := int(0.030*sr), int(0.070*sr)
	if got[fadeOut] != 1 || got[fadeIn] != 1 {
		t.Errorf("voiced samples outside the fades = %v, %v, want 1", got[fadeOut], got[fadeIn])
	}
	before := int(0.045*srf) - 100
	if got[before] <= 0 || got[before] >= 1 {
		t.Errorf("sample %d in the fade-out = %v, want between 0 and 1", before, got[before])
	}
	for i := fadeOut; i < start; i++ {
		if got[i+1] > got[i] {
			t.Fatalf("fade-out rises at %d: %v -> %v", i, got[i], got[i+1])
		}
	}
}

func TestRenderSilentWithoutPitch(t *testing.T) {
	buf := audio.FromMono(sine(220, 8000, 800))
	plan := Plan{Kind: Fifth, Semitones: 7}

	track, err := NewStrategy(&fakeProber{name: "fake"}, DefaultRamp).Render(context.Background(), buf, 8000, plan, tonal.PitchData{})
	if err != nil {
		t.Fatal(err)
	}
	if track.Audio.Peak() != 0 {
		t.Errorf("peak %v, want silence", track.Audio.Peak())
	}
	if track.Audio.Len() != buf.Len() {
		t.Errorf("length %d, want %d", track.Audio.Len(), buf.Len())
	}
}

func TestRenderRejectsWideShift(t *testing.T) {
	buf := audio.FromMono(sine(220, 8000, 800))
	plan := Plan{Kind: Fifth, Semitones: 25}

	var shiftErr *apperrors.ShiftError
	_, err := NewStrategy(NewVocoder(), DefaultRamp).Render(context.Background(), buf, 8000, plan, tonal.PitchData{})
	if !errors.As(err, &shiftErr) {
		t.Errorf("got %v, want ShiftError", err)
	}
}
