// Package config loads the YAML configuration of a harmony run.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-chords/algorithms/tonal"
	apperrors "github.com/RyanBlaney/sonido-chords/errors"
	"github.com/RyanBlaney/sonido-chords/harmony"
	"github.com/RyanBlaney/sonido-chords/mixer"
	"github.com/RyanBlaney/sonido-chords/pitch"
	"github.com/RyanBlaney/sonido-chords/separation"
	"github.com/RyanBlaney/sonido-chords/transcode"
)

// SeparationConfig selects the vocal separator
type SeparationConfig struct {
	Engine                  string `yaml:"engine"` // demucs or passthrough
	separation.DemucsConfig `yaml:",inline"`
}

// PitchConfig selects the pitch detector
type PitchConfig struct {
	Engine            string  `yaml:"engine"` // auto, crepe or yin
	MinFreq           float64 `yaml:"min_freq"`
	MaxFreq           float64 `yaml:"max_freq"`
	pitch.CREPEConfig `yaml:",inline"`
}

// AnalysisConfig controls key detection
type AnalysisConfig struct {
	Profile string `yaml:"profile"`
	// FallbackKey is used when the vocal carries no tonal content
	FallbackKey string `yaml:"fallback_key,omitempty"`
}

// HarmonyConfig controls which layers are rendered and how
type HarmonyConfig struct {
	Kinds               []string      `yaml:"kinds"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	RampMs              float64       `yaml:"ramp_ms"`
	Workers             int           `yaml:"workers"`
	Shifter             string        `yaml:"shifter"` // auto, rubberband or fallback
	RubberBandPath      string        `yaml:"rubberband_path"`
	Timeout             time.Duration `yaml:"timeout"`
}

// HistoryConfig controls the run journal
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config is the full configuration file
type Config struct {
	Audio      transcode.DecoderConfig `yaml:"audio"`
	Separation SeparationConfig        `yaml:"separation"`
	Pitch      PitchConfig             `yaml:"pitch"`
	Analysis   AnalysisConfig          `yaml:"analysis"`
	Harmony    HarmonyConfig           `yaml:"harmony"`
	Mix        mixer.Settings          `yaml:"mix"`
	History    HistoryConfig           `yaml:"history"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Audio: *transcode.DefaultDecoderConfig(),
		Separation: SeparationConfig{
			Engine:       separation.EngineDemucs,
			DemucsConfig: separation.DefaultDemucsConfig(),
		},
		Pitch: PitchConfig{
			Engine:      pitch.EngineAuto,
			CREPEConfig: pitch.DefaultCREPEConfig(),
		},
		Analysis: AnalysisConfig{
			Profile: tonal.KeyProfileKrumhansl.String(),
		},
		Harmony: HarmonyConfig{
			Kinds:               []string{string(harmony.Third), string(harmony.Fifth)},
			ConfidenceThreshold: harmony.DefaultConfidenceThreshold,
			RampMs:              float64(harmony.DefaultRamp / time.Millisecond),
			Workers:             2,
			Shifter:             harmony.ShifterAuto,
			RubberBandPath:      "rubberband",
		},
		Mix: mixer.DefaultSettings(),
		History: HistoryConfig{
			Enabled: true,
			Path:    DefaultHistoryPath(),
		},
	}
}

// DefaultHistoryPath is the journal location under the user config directory
func DefaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "sonido-chords", "history.db")
	}
	return filepath.Join(dir, "sonido-chords", "history.db")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) normalize() {
	c.Separation.Engine = strings.ToLower(strings.TrimSpace(c.Separation.Engine))
	c.Pitch.Engine = strings.ToLower(strings.TrimSpace(c.Pitch.Engine))
	c.Harmony.Shifter = strings.ToLower(strings.TrimSpace(c.Harmony.Shifter))
	c.Analysis.FallbackKey = strings.TrimSpace(c.Analysis.FallbackKey)
	if c.Harmony.Workers == 0 {
		c.Harmony.Workers = 1
	}
}

// Validate reports the first invalid setting as a ConfigurationError
func (c *Config) Validate() error {
	if c.Audio.TargetSampleRate <= 0 {
		return apperrors.NewConfigurationError("audio.sample_rate", c.Audio.TargetSampleRate, "must be positive")
	}

	switch c.Separation.Engine {
	case separation.EngineDemucs, separation.EnginePassThrough:
	default:
		return apperrors.NewConfigurationError("separation.engine", c.Separation.Engine, "expected demucs or passthrough")
	}

	switch c.Pitch.Engine {
	case pitch.EngineAuto, pitch.EngineCREPE, pitch.EngineYIN:
	default:
		return apperrors.NewConfigurationError("pitch.engine", c.Pitch.Engine, "expected auto, crepe or yin")
	}
	if c.Pitch.MaxFreq > 0 && c.Pitch.MinFreq >= c.Pitch.MaxFreq {
		return apperrors.NewConfigurationError("pitch.min_freq", c.Pitch.MinFreq, "must be below max_freq")
	}

	if _, err := tonal.ParseKeyProfile(c.Analysis.Profile); err != nil {
		return err
	}
	if c.Analysis.FallbackKey != "" {
		if _, err := tonal.ParseKey(c.Analysis.FallbackKey); err != nil {
			return err
		}
	}

	if _, err := c.Requests(); err != nil {
		return err
	}
	h := c.Harmony
	if h.ConfidenceThreshold < 0 || h.ConfidenceThreshold > 1 {
		return apperrors.NewConfigurationError("harmony.confidence_threshold", h.ConfidenceThreshold, "must be within [0,1]")
	}
	if h.RampMs < 0 {
		return apperrors.NewConfigurationError("harmony.ramp_ms", h.RampMs, "must not be negative")
	}
	if h.Workers < 1 {
		return apperrors.NewConfigurationError("harmony.workers", h.Workers, "must be at least 1")
	}
	switch h.Shifter {
	case harmony.ShifterAuto, harmony.ShifterRubberBand, harmony.ShifterFallback:
	default:
		return apperrors.NewConfigurationError("harmony.shifter", h.Shifter, "expected auto, rubberband or fallback")
	}

	for kind := range c.Mix.HarmonyVolumes {
		if _, err := harmony.ParseKind(string(kind)); err != nil {
			return err
		}
	}
	return c.Mix.Validate()
}

// Requests turns the configured kinds into harmony requests carrying their
// mix volume
func (c *Config) Requests() ([]harmony.Request, error) {
	kinds, err := harmony.ParseKinds(strings.Join(c.Harmony.Kinds, ","))
	if err != nil {
		return nil, err
	}
	settings := c.MixSettings()
	requests := make([]harmony.Request, len(kinds))
	for i, kind := range kinds {
		requests[i] = harmony.Request{Kind: kind, Volume: settings.HarmonyVolume(kind)}
	}
	return requests, nil
}

// MixSettings returns a copy of the mix section
func (c *Config) MixSettings() mixer.Settings {
	s := c.Mix
	s.HarmonyVolumes = maps.Clone(c.Mix.HarmonyVolumes)
	return s
}

// Ramp returns the harmony gate ramp as a duration
func (c *Config) Ramp() time.Duration {
	return time.Duration(c.Harmony.RampMs * float64(time.Millisecond))
}
