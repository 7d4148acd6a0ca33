package separation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-chords/audio"
	"github.com/RyanBlaney/sonido-chords/internal/exec"
	"github.com/RyanBlaney/sonido-chords/logging"
	"github.com/RyanBlaney/sonido-chords/transcode"
)

// DemucsConfig holds the Demucs invocation settings
type DemucsConfig struct {
	Python  string        `json:"python" yaml:"python"`
	Model   string        `json:"model" yaml:"model"`
	TempDir string        `json:"temp_dir" yaml:"temp_dir"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultDemucsConfig returns the two-stem htdemucs setup
func DefaultDemucsConfig() DemucsConfig {
	return DemucsConfig{
		Python: "python3",
		Model:  "htdemucs",
	}
}

// Demucs runs the Demucs separator as a Python module
type Demucs struct {
	config DemucsConfig
	runner *exec.Runner

	probeOnce sync.Once
	probeErr  error
}

// NewDemucs creates a Demucs engine handle
func NewDemucs(config DemucsConfig) *Demucs {
	if config.Python == "" {
		config.Python = "python3"
	}
	if config.Model == "" {
		config.Model = "htdemucs"
	}
	return &Demucs{config: config, runner: exec.NewRunner(config.Timeout)}
}

func (d *Demucs) Name() string {
	return EngineDemucs
}

// Available checks once that the demucs module can be imported
func (d *Demucs) Available(ctx context.Context) error {
	d.probeOnce.Do(func() {
		d.probeErr = d.runner.CheckPythonModule(ctx, d.config.Python, "demucs")
	})
	return d.probeErr
}

// Separate writes buf to a temporary WAV, runs Demucs on it and reads the
// two stems back
func (d *Demucs) Separate(ctx context.Context, buf audio.Buffer, sampleRate int) (Stems, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "demucs",
		"function":  "Separate",
		"model":     d.config.Model,
	})

	if err := d.Available(ctx); err != nil {
		return Stems{}, err
	}

	dir, err := os.MkdirTemp(d.config.TempDir, "demucs-*")
	if err != nil {
		return Stems{}, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input.wav")
	if err := transcode.WriteWAV(in, buf, sampleRate); err != nil {
		return Stems{}, err
	}

	out := filepath.Join(dir, "separated")
	result, err := d.runner.RunModule(ctx, "demucs", "separate", d.config.Python, "demucs",
		"--two-stems", "vocals", "-n", d.config.Model, "-o", out, in)
	if err != nil {
		return Stems{}, err
	}

	stemDir := filepath.Join(out, d.config.Model, "input")
	vocal, err := readStem(filepath.Join(stemDir, "vocals.wav"), buf, sampleRate)
	if err != nil {
		return Stems{}, err
	}
	accompaniment, err := readStem(filepath.Join(stemDir, "no_vocals.wav"), buf, sampleRate)
	if err != nil {
		return Stems{}, err
	}

	logger.Info("Separation complete", logging.Fields{
		"elapsed": result.Duration.Seconds(),
		"samples": buf.Len(),
	})

	return Stems{Vocal: vocal, Accompaniment: accompaniment}, nil
}

func readStem(path string, like audio.Buffer, sampleRate int) (audio.Buffer, error) {
	stem, rate, err := transcode.ReadWAV(path)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("read stem %s: %w", filepath.Base(path), err)
	}
	if rate != sampleRate {
		return audio.Buffer{}, fmt.Errorf("stem %s is %d Hz, expected %d Hz", filepath.Base(path), rate, sampleRate)
	}
	return conform(stem, like)
}
