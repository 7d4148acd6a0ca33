package harmony

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/RyanBlaney/sonido-chords/audio"
	apperrors "github.com/RyanBlaney/sonido-chords/errors"
	"github.com/RyanBlaney/sonido-chords/internal/exec"
	"github.com/RyanBlaney/sonido-chords/logging"
	"github.com/RyanBlaney/sonido-chords/transcode"
)

// RubberBand is the high quality shifter: the Rubber Band command line tool
// with its fine engine and formant preservation, fed through WAV files
type RubberBand struct {
	path    string
	tempDir string
	runner  *exec.Runner

	probeOnce sync.Once
	probeErr  error
}

// NewRubberBand creates a shifter calling the binary at path ("rubberband"
// when empty). Temporary files go to tempDir, or the system default.
func NewRubberBand(path, tempDir string, runner *exec.Runner) *RubberBand {
	if path == "" {
		path = "rubberband"
	}
	if runner == nil {
		runner = exec.NewRunner(0)
	}
	return &RubberBand{path: path, tempDir: tempDir, runner: runner}
}

func (r *RubberBand) Name() string {
	return ShifterRubberBand
}

// Available runs a test shift once per handle and caches the outcome
func (r *RubberBand) Available(ctx context.Context) error {
	r.probeOnce.Do(func() {
		if _, err := exec.LookPath(r.path); err != nil {
			r.probeErr = err
			return
		}
		probe := audio.NewBuffer(1, 4410)
		_, r.probeErr = r.shift(ctx, probe, 44100, 1)
	})
	return r.probeErr
}

// Shift renders the shift through the external tool
func (r *RubberBand) Shift(ctx context.Context, buf audio.Buffer, sampleRate int, semitones int) (audio.Buffer, error) {
	if err := checkShiftRange(semitones, r.Name()); err != nil {
		return audio.Buffer{}, err
	}
	if semitones == 0 {
		return buf.Clone(), nil
	}
	if err := ctx.Err(); err != nil {
		return audio.Buffer{}, err
	}
	return r.shift(ctx, buf, sampleRate, semitones)
}

func (r *RubberBand) shift(ctx context.Context, buf audio.Buffer, sampleRate int, semitones int) (audio.Buffer, error) {
	dir, err := os.MkdirTemp(r.tempDir, "rubberband-*")
	if err != nil {
		return audio.Buffer{}, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")
	if err := transcode.WriteWAV(in, buf, sampleRate); err != nil {
		return audio.Buffer{}, err
	}

	args := []string{"--fine", "--formant", "-p", strconv.Itoa(semitones), in, out}
	result, err := r.runner.Run(ctx, "rubberband", "generate_harmony", nil, r.path, args...)
	if err != nil {
		return audio.Buffer{}, &apperrors.ShiftError{
			Semitones: semitones,
			Backend:   r.Name(),
			Reason:    "rubberband failed",
			Cause:     err,
		}
	}

	shifted, rate, err := transcode.ReadWAV(out)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("read rubberband output: %w", err)
	}
	if rate != sampleRate || shifted.NumChannels() != buf.NumChannels() {
		return audio.Buffer{}, &apperrors.ShiftError{
			Semitones: semitones,
			Backend:   r.Name(),
			Reason: fmt.Sprintf("unexpected output layout %dch@%dHz, want %dch@%dHz",
				shifted.NumChannels(), rate, buf.NumChannels(), sampleRate),
		}
	}

	logging.WithFields(logging.Fields{
		"component": "rubberband",
	}).Debug("Rubber Band shift complete", logging.Fields{
		"semitones":      semitones,
		"input_samples":  buf.Len(),
		"output_samples": shifted.Len(),
		"elapsed":        result.Duration.Seconds(),
	})

	return shifted.FitLength(buf.Len()), nil
}
