package main

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/RyanBlaney/sonido-chords/algorithms/tonal"
	"github.com/RyanBlaney/sonido-chords/config"
	"github.com/RyanBlaney/sonido-chords/harmony"
	"github.com/RyanBlaney/sonido-chords/internal/exec"
	"github.com/RyanBlaney/sonido-chords/mixer"
	"github.com/RyanBlaney/sonido-chords/pipeline"
	"github.com/RyanBlaney/sonido-chords/pitch"
	"github.com/RyanBlaney/sonido-chords/separation"
	"github.com/RyanBlaney/sonido-chords/transcode"
)

// buildOrchestrator wires the engines named in cfg into a pipeline
func buildOrchestrator(ctx context.Context, cfg *config.Config, opts *options, observer pipeline.Observer) (*pipeline.Orchestrator, error) {
	var separator separation.Engine = separation.PassThrough{}
	if cfg.Separation.Engine == separation.EngineDemucs {
		separator = separation.NewDemucs(cfg.Separation.DemucsConfig)
	}

	yin := pitch.YIN{MinFreq: cfg.Pitch.MinFreq, MaxFreq: cfg.Pitch.MaxFreq}
	detector, err := pitch.Select(ctx, cfg.Pitch.Engine, pitch.NewCREPE(cfg.Pitch.CREPEConfig), yin)
	if err != nil {
		return nil, err
	}

	rubberband := harmony.NewRubberBand(cfg.Harmony.RubberBandPath, "", exec.NewRunner(cfg.Harmony.Timeout))
	shifter := harmony.SelectShifter(ctx, cfg.Harmony.Shifter, rubberband, harmony.NewVocoder())

	profile, err := tonal.ParseKeyProfile(cfg.Analysis.Profile)
	if err != nil {
		return nil, err
	}

	requests, err := cfg.Requests()
	if err != nil {
		return nil, err
	}

	popts := pipeline.Options{
		Requests: requests,
		Mix:      cfg.MixSettings(),
		Workers:  cfg.Harmony.Workers,
	}
	if opts.key != "" {
		key, err := tonal.ParseKey(opts.key)
		if err != nil {
			return nil, err
		}
		popts.KeyOverride = &key
	}
	if cfg.Analysis.FallbackKey != "" {
		key, err := tonal.ParseKey(cfg.Analysis.FallbackKey)
		if err != nil {
			return nil, err
		}
		popts.FallbackKey = &key
	}

	encoder := transcode.NewEncoder(&cfg.Audio)
	return pipeline.NewOrchestrator(pipeline.Components{
		Separator:   separator,
		Detector:    detector,
		KeyResolver: tonal.NewKeyResolver(profile),
		Planner:     &harmony.Planner{Threshold: cfg.Harmony.ConfidenceThreshold},
		Strategy:    harmony.NewStrategy(shifter, cfg.Ramp()),
		Mixer:       mixer.NewMixer(encoder),
		Loader:      transcode.NewDecoder(&cfg.Audio),
		Writer:      encoder,
		Tagger:      transcode.NewTagger(),
		Observer:    observer,
	}, popts)
}

// engineStatus is one line of the --info report
type engineStatus struct {
	Name   string
	Role   string
	Err    error
	Needed bool
}

func probeEngines(ctx context.Context, cfg *config.Config) []engineStatus {
	return []engineStatus{
		{
			Name:   "ffmpeg",
			Role:   "decode, encode and harmony effects",
			Err:    transcode.NewDecoder(&cfg.Audio).CheckAvailability(ctx),
			Needed: true,
		},
		{
			Name:   "demucs",
			Role:   "vocal separation",
			Err:    separation.NewDemucs(cfg.Separation.DemucsConfig).Available(ctx),
			Needed: cfg.Separation.Engine == separation.EngineDemucs,
		},
		{
			Name:   "crepe",
			Role:   "neural pitch detection (yin is used otherwise)",
			Err:    pitch.NewCREPE(cfg.Pitch.CREPEConfig).Available(ctx),
			Needed: cfg.Pitch.Engine == pitch.EngineCREPE,
		},
		{
			Name: "rubberband",
			Role: "formant preserving pitch shift (phase vocoder is used otherwise)",
			Err:  harmony.NewRubberBand(cfg.Harmony.RubberBandPath, "", exec.NewRunner(cfg.Harmony.Timeout)).Available(ctx),
		},
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
