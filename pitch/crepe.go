package pitch

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-chords/algorithms/common"
	"github.com/RyanBlaney/sonido-chords/algorithms/tonal"
	"github.com/RyanBlaney/sonido-chords/audio"
	apperrors "github.com/RyanBlaney/sonido-chords/errors"
	"github.com/RyanBlaney/sonido-chords/internal/exec"
	"github.com/RyanBlaney/sonido-chords/logging"
	"github.com/RyanBlaney/sonido-chords/transcode"
)

// CREPEConfig holds the CREPE command line settings
type CREPEConfig struct {
	Path          string        `json:"path" yaml:"path"`
	ModelCapacity string        `json:"model_capacity" yaml:"model_capacity"`
	StepSizeMs    int           `json:"step_size_ms" yaml:"step_size_ms"`
	Viterbi       bool          `json:"viterbi" yaml:"viterbi"`
	TempDir       string        `json:"temp_dir" yaml:"temp_dir"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultCREPEConfig returns the small model at a 10 ms step with
// Viterbi smoothing
func DefaultCREPEConfig() CREPEConfig {
	return CREPEConfig{
		Path:          "crepe",
		ModelCapacity: "small",
		StepSizeMs:    10,
		Viterbi:       true,
	}
}

// CREPE runs the crepe command line tool and parses its f0 CSV
type CREPE struct {
	config CREPEConfig
	runner *exec.Runner

	probeOnce sync.Once
	probeErr  error
}

// NewCREPE creates a CREPE detector handle
func NewCREPE(config CREPEConfig) *CREPE {
	if config.Path == "" {
		config.Path = "crepe"
	}
	if config.ModelCapacity == "" {
		config.ModelCapacity = "small"
	}
	if config.StepSizeMs <= 0 {
		config.StepSizeMs = 10
	}
	return &CREPE{config: config, runner: exec.NewRunner(config.Timeout)}
}

func (c *CREPE) Name() string {
	return EngineCREPE
}

// Available looks the binary up once
func (c *CREPE) Available(ctx context.Context) error {
	c.probeOnce.Do(func() {
		_, c.probeErr = exec.LookPath(c.config.Path)
	})
	return c.probeErr
}

func (c *CREPE) Detect(ctx context.Context, vocal audio.Buffer, sampleRate int) (tonal.PitchData, error) {
	if vocal.IsEmpty() {
		return tonal.PitchData{}, apperrors.ErrEmptyAudio
	}
	if err := c.Available(ctx); err != nil {
		return tonal.PitchData{}, err
	}

	dir, err := os.MkdirTemp(c.config.TempDir, "crepe-*")
	if err != nil {
		return tonal.PitchData{}, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "vocal.wav")
	if err := transcode.WriteWAV(in, audio.FromMono(vocal.Mono()), sampleRate); err != nil {
		return tonal.PitchData{}, err
	}

	args := []string{in,
		"--model-capacity", c.config.ModelCapacity,
		"--step-size", strconv.Itoa(c.config.StepSizeMs),
		"--output", dir,
	}
	if c.config.Viterbi {
		args = append(args, "--viterbi")
	}
	result, err := c.runner.Run(ctx, "crepe", "detect_pitch", nil, c.config.Path, args...)
	if err != nil {
		return tonal.PitchData{}, err
	}

	f, err := os.Open(filepath.Join(dir, "vocal.f0.csv"))
	if err != nil {
		return tonal.PitchData{}, fmt.Errorf("crepe output: %w", err)
	}
	defer f.Close()

	pd, err := ParseF0CSV(f)
	if err != nil {
		return tonal.PitchData{}, err
	}

	logging.WithFields(logging.Fields{
		"component": "crepe",
		"function":  "Detect",
	}).Debug("Pitch track complete", logging.Fields{
		"frames":  pd.Len(),
		"model":   c.config.ModelCapacity,
		"elapsed": result.Duration.Seconds(),
	})
	return pd, nil
}

// ParseF0CSV reads a "time,frequency,confidence" table as written by crepe.
// A header row is skipped and confidences are clamped to [0,1].
func ParseF0CSV(r io.Reader) (tonal.PitchData, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true

	var pd tonal.PitchData
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return tonal.PitchData{}, apperrors.NewAnalysisError("parse f0 csv", err.Error())
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "time") {
			continue
		}

		var values [3]float64
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return tonal.PitchData{}, apperrors.NewAnalysisError("parse f0 csv",
					fmt.Sprintf("line %d: %q is not a number", line, field))
			}
			values[i] = v
		}

		pd.Timestamps = append(pd.Timestamps, values[0])
		pd.Frequencies = append(pd.Frequencies, values[1])
		pd.Confidences = append(pd.Confidences, common.Clamp(values[2], 0, 1))
	}

	if err := pd.Validate(); err != nil {
		return tonal.PitchData{}, err
	}
	return pd, nil
}
