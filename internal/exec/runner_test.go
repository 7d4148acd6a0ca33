package exec

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/RyanBlaney/sonido-chords/errors"
)

func TestRunMissingTool(t *testing.T) {
	r := NewRunner(0)
	_, err := r.Run(context.Background(), "crepe", "detect_pitch", nil, "definitely-not-a-real-binary-7f3a")

	var pe *apperrors.ProcessError
	if !errors.As(err, &pe) {
		t.Fatalf("got %v, want ProcessError", err)
	}
	if pe.Tool != "crepe" || pe.Stage != "detect_pitch" {
		t.Errorf("labels = %s/%s", pe.Tool, pe.Stage)
	}
	if !errors.Is(err, apperrors.ErrToolNotInstalled) {
		t.Error("missing binary should wrap ErrToolNotInstalled")
	}
}

func TestLookPathMissing(t *testing.T) {
	if _, err := LookPath("definitely-not-a-real-binary-7f3a"); !errors.Is(err, apperrors.ErrToolNotInstalled) {
		t.Errorf("got %v", err)
	}
}

func TestLastLines(t *testing.T) {
	if got := lastLines("a\nb\nc", 2); got != "b\nc" {
		t.Errorf("lastLines = %q", got)
	}
	if got := lastLines("a", 2); got != "a" {
		t.Errorf("lastLines = %q", got)
	}
}
