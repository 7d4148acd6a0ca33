package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/RyanBlaney/sonido-chords/errors"
	"github.com/RyanBlaney/sonido-chords/history"
)

func TestDefaultOutputPath(t *testing.T) {
	tests := map[string]string{
		"song.mp3":            "song_harmony.mp3",
		"dir/take 2.wav":      filepath.Join("dir", "take 2_harmony.wav"),
		"/abs/path/mix.flac":  "/abs/path/mix_harmony.flac",
		"noext":               "noext_harmony",
		"dotted.name.v1.opus": "dotted.name.v1_harmony.opus",
	}
	for in, want := range tests {
		if got := defaultOutputPath(in); got != want {
			t.Errorf("defaultOutputPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func parse(t *testing.T, args ...string) (*options, error) {
	t.Helper()
	opts := &options{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatal(err)
	}
	_, err := loadConfig(cmd, opts)
	return opts, err
}

func TestLoadConfigFlags(t *testing.T) {
	opts := &options{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"-H", "fifth, third_lower", "-v", "0.4", "--no-reverb", "--skip-separation"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		t.Fatal(err)
	}

	if strings.Join(cfg.Harmony.Kinds, ",") != "fifth,third_lower" {
		t.Errorf("kinds = %v", cfg.Harmony.Kinds)
	}
	if cfg.Mix.DefaultHarmonyVolume != 0.4 || cfg.Mix.ReverbEnabled {
		t.Errorf("mix = %+v", cfg.Mix)
	}
	if cfg.Separation.Engine != "passthrough" {
		t.Errorf("separation engine %q", cfg.Separation.Engine)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	var cfgErr *apperrors.ConfigurationError

	if _, err := parse(t, "-v", "1.5"); !errors.As(err, &cfgErr) {
		t.Errorf("volume 1.5: got %v, want ConfigurationError", err)
	}
	if _, err := parse(t, "-H", "third,octave"); !errors.As(err, &cfgErr) {
		t.Errorf("unknown kind: got %v, want ConfigurationError", err)
	}
	if _, err := parse(t, "--key", "Q major"); !errors.As(err, &cfgErr) {
		t.Errorf("bad key: got %v, want ConfigurationError", err)
	}
}

func TestConfigFileKindsKeptWithoutFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chords.yaml")
	if err := os.WriteFile(path, []byte("harmony:\n  kinds: [third_lower]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	opts := &options{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--config", path}); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Harmony.Kinds) != 1 || cfg.Harmony.Kinds[0] != "third_lower" {
		t.Errorf("kinds = %v, want the config file's", cfg.Harmony.Kinds)
	}
}

func TestRenderErrorNamesStage(t *testing.T) {
	err := apperrors.NewStageFailure("separate", errors.New("demucs not installed"))
	out := renderError(err)
	if !strings.Contains(out, "separate") || !strings.Contains(out, "demucs not installed") {
		t.Errorf("render = %q", out)
	}
}

func TestRenderHistory(t *testing.T) {
	out := renderHistory([]history.Run{
		{StartedAt: time.Now(), Input: "a.mp3", Key: "C major", Harmonies: []string{"third"}, Status: "ok"},
		{StartedAt: time.Now(), Input: "b.mp3", Status: "failed", FailedStage: "mix", Error: "boom"},
	})
	for _, want := range []string{"a.mp3", "C major", "b.mp3", "mix: boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("history output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(renderHistory(nil), "No runs") {
		t.Error("empty history should say so")
	}
}

func TestMedianPitch(t *testing.T) {
	if got := medianPitch(220.04); got != "220.0 Hz" {
		t.Errorf("medianPitch = %q", got)
	}
	if got := medianPitch(0); got != "-" {
		t.Errorf("unvoiced medianPitch = %q", got)
	}
}

func TestStageIndex(t *testing.T) {
	if i, label := stageIndex("analyze_key"); i != 3 || label != "Detecting key" {
		t.Errorf("stageIndex = %d, %q", i, label)
	}
}
