package separation

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/RyanBlaney/sonido-chords/audio"
	"github.com/RyanBlaney/sonido-chords/logging"
	"github.com/RyanBlaney/sonido-chords/transcode"
)

func init() {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
}

func TestPassThrough(t *testing.T) {
	in := audio.Buffer{Channels: [][]float64{{0.1, 0.2, 0.3}, {-0.1, -0.2, -0.3}}}

	stems, err := PassThrough{}.Separate(context.Background(), in, 44100)
	if err != nil {
		t.Fatal(err)
	}
	if !stems.Vocal.SameLayout(in) || !stems.Accompaniment.SameLayout(in) {
		t.Fatal("stems must keep the input layout")
	}
	if stems.Vocal.Channels[1][2] != -0.3 {
		t.Errorf("vocal sample = %v, want -0.3", stems.Vocal.Channels[1][2])
	}
	if stems.Accompaniment.Peak() != 0 {
		t.Error("accompaniment should be silent")
	}

	// The vocal is a copy
	stems.Vocal.Channels[0][0] = 1
	if in.Channels[0][0] != 0.1 {
		t.Error("PassThrough modified its input")
	}
}

func TestPassThroughCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := PassThrough{}.Separate(ctx, audio.FromMono([]float64{0}), 44100)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestReadStemConformsLayout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocals.wav")

	// Demucs always writes stereo and may overshoot by a few samples
	stereo := audio.Buffer{Channels: [][]float64{{0.5, 0.5, 0.5, 0.5, 0.5}, {0.25, 0.25, 0.25, 0.25, 0.25}}}
	if err := transcode.WriteWAV(path, stereo, 44100); err != nil {
		t.Fatal(err)
	}

	like := audio.FromMono(make([]float64, 4))
	stem, err := readStem(path, like, 44100)
	if err != nil {
		t.Fatal(err)
	}
	if !stem.SameLayout(like) {
		t.Fatalf("layout %dx%d, want 1x4", stem.NumChannels(), stem.Len())
	}
	if got := stem.Channels[0][0]; got < 0.374 || got > 0.376 {
		t.Errorf("sample = %v, want 0.375", got)
	}

	if _, err := readStem(path, like, 48000); err == nil {
		t.Error("expected a sample rate mismatch error")
	}
	if _, err := readStem(filepath.Join(dir, "missing.wav"), like, 44100); err == nil {
		t.Error("expected an error for a missing stem")
	}
}

func TestDemucsUnavailable(t *testing.T) {
	d := NewDemucs(DemucsConfig{Python: filepath.Join(t.TempDir(), "no-python")})
	if _, err := d.Separate(context.Background(), audio.FromMono(make([]float64, 10)), 44100); err == nil {
		t.Fatal("expected an error without a python interpreter")
	}
	if d.Available(context.Background()) == nil {
		t.Error("probe result should stay cached as a failure")
	}
}
