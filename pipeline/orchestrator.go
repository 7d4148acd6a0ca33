// Package pipeline runs a song through separation, pitch tracking, key
// analysis, harmony rendering and mixing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-chords/algorithms/chroma"
	"github.com/RyanBlaney/sonido-chords/algorithms/tonal"
	"github.com/RyanBlaney/sonido-chords/audio"
	apperrors "github.com/RyanBlaney/sonido-chords/errors"
	"github.com/RyanBlaney/sonido-chords/harmony"
	"github.com/RyanBlaney/sonido-chords/logging"
	"github.com/RyanBlaney/sonido-chords/mixer"
	"github.com/RyanBlaney/sonido-chords/pitch"
	"github.com/RyanBlaney/sonido-chords/separation"
	"github.com/RyanBlaney/sonido-chords/transcode"
)

// Mixer sums the stems into the output
type Mixer interface {
	Mix(ctx context.Context, accompaniment, vocal audio.Buffer, tracks []harmony.Track, sampleRate int, settings mixer.Settings) (audio.Buffer, error)
}

// Loader decodes an input file
type Loader interface {
	DecodeFile(ctx context.Context, path string) (audio.Buffer, *transcode.AudioMetadata, error)
	SampleRate() int
}

// Writer encodes the output file
type Writer interface {
	EncodeFile(ctx context.Context, path string, buf audio.Buffer, sampleRate int) error
}

// Tagger stores the detected key in the output file's metadata
type Tagger interface {
	Supports(path string) bool
	SaveTags(path string, info transcode.TagInfo) error
}

// Components are the collaborators of a run. Loader, Writer and Tagger are
// only needed by ProcessFile.
type Components struct {
	Separator   separation.Engine
	Detector    pitch.Detector
	KeyResolver *tonal.KeyResolver
	Planner     *harmony.Planner
	Strategy    *harmony.Strategy
	Mixer       Mixer
	Loader      Loader
	Writer      Writer
	Tagger      Tagger
	Observer    Observer
}

// Options shape one run
type Options struct {
	Requests []harmony.Request
	Mix      mixer.Settings
	// Workers bounds how many harmony layers render at once
	Workers int
	// KeyOverride skips key analysis when set
	KeyOverride *tonal.KeyInfo
	// FallbackKey is used when key analysis finds no tonal content
	FallbackKey *tonal.KeyInfo
}

// Orchestrator drives runs through the stage sequence. It holds no per-run
// state and may run several songs concurrently.
type Orchestrator struct {
	c      Components
	opts   Options
	logger logging.Logger
}

// NewOrchestrator checks the components and creates an orchestrator
func NewOrchestrator(c Components, opts Options) (*Orchestrator, error) {
	switch {
	case c.Separator == nil:
		return nil, fmt.Errorf("pipeline: separation engine is required")
	case c.Detector == nil:
		return nil, fmt.Errorf("pipeline: pitch detector is required")
	case c.Strategy == nil:
		return nil, fmt.Errorf("pipeline: pitch shift strategy is required")
	case c.Mixer == nil:
		return nil, fmt.Errorf("pipeline: mixer is required")
	}
	if len(opts.Requests) == 0 {
		return nil, apperrors.NewConfigurationError("harmony.kinds", "", "at least one harmony layer is required")
	}
	for _, req := range opts.Requests {
		if math.IsNaN(req.Volume) || req.Volume < 0 || req.Volume > 1 {
			return nil, apperrors.NewConfigurationError("harmony.volume."+string(req.Kind), req.Volume, "must be within [0,1]")
		}
	}
	if c.KeyResolver == nil {
		c.KeyResolver = tonal.NewKeyResolver(tonal.KeyProfileKrumhansl)
	}
	if c.Planner == nil {
		c.Planner = harmony.NewPlanner()
	}
	if c.Observer == nil {
		c.Observer = nopObserver{}
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	return &Orchestrator{
		c:    c,
		opts: opts,
		logger: logging.WithFields(logging.Fields{
			"component": "pipeline",
		}),
	}, nil
}

// run carries the intermediate products of one song
type run struct {
	state      State
	input      audio.Buffer
	sampleRate int
	stems      separation.Stems
	pitch      tonal.PitchData
	key        tonal.KeyInfo
	tracks     []harmony.Track
	output     audio.Buffer
	diag       Diagnostics
}

type stepFunc func(ctx context.Context, r *run) error

// Run processes an in-memory buffer. On failure the error is a
// *StageFailure naming the stage and no partial result is returned.
func (o *Orchestrator) Run(ctx context.Context, input audio.Buffer, sampleRate int) (*ProcessingResult, error) {
	r := &run{state: Pending}
	start := time.Now()

	steps := map[State]stepFunc{
		Pending: func(ctx context.Context, r *run) error {
			return o.accept(r, input, sampleRate)
		},
	}
	if err := o.execute(ctx, r, steps, Mixed); err != nil {
		return nil, err
	}
	r.state = Done

	return o.finish(r, start), nil
}

// ProcessFile decodes in, runs the pipeline and encodes the result to out.
// MP3 outputs are tagged with the key and the harmony layers.
func (o *Orchestrator) ProcessFile(ctx context.Context, in, out string) (*ProcessingResult, error) {
	if o.c.Loader == nil || o.c.Writer == nil {
		return nil, fmt.Errorf("pipeline: file processing needs a loader and a writer")
	}

	r := &run{state: Pending}
	start := time.Now()

	steps := map[State]stepFunc{
		Pending: func(ctx context.Context, r *run) error {
			buf, meta, err := o.c.Loader.DecodeFile(ctx, in)
			if err != nil {
				return err
			}
			codec := ""
			if meta != nil {
				codec = meta.Codec
			}
			o.logger.Info("Input loaded", logging.Fields{
				"path":     in,
				"codec":    codec,
				"channels": buf.NumChannels(),
				"duration": buf.Duration(o.c.Loader.SampleRate()).Seconds(),
			})
			return o.accept(r, buf, o.c.Loader.SampleRate())
		},
		Mixed: func(ctx context.Context, r *run) error {
			return o.write(ctx, r, out)
		},
	}
	if err := o.execute(ctx, r, steps, Done); err != nil {
		return nil, err
	}

	return o.finish(r, start), nil
}

// execute walks the transition table from r.state until it reaches until.
// overrides replaces the default step of a state.
func (o *Orchestrator) execute(ctx context.Context, r *run, overrides map[State]stepFunc, until State) error {
	for r.state != until {
		stage, next, ok := Transition(r.state)
		if !ok {
			return fmt.Errorf("pipeline: no transition from %s", r.state)
		}

		step, ok := overrides[r.state]
		if !ok {
			step = o.stepFor(r.state)
		}

		if err := ctx.Err(); err != nil {
			return o.fail(r, stage, err)
		}

		o.c.Observer.StageStarted(stage)
		started := time.Now()
		err := step(ctx, r)
		elapsed := time.Since(started)
		o.c.Observer.StageFinished(stage, elapsed, err)

		if err != nil {
			return o.fail(r, stage, err)
		}

		r.diag.Stages = append(r.diag.Stages, StageTiming{Stage: stage, Elapsed: elapsed})
		o.logger.Debug("Stage complete", logging.Fields{
			"stage":   stage,
			"state":   next.String(),
			"elapsed": elapsed.Seconds(),
		})
		r.state = next
	}
	return nil
}

func (o *Orchestrator) stepFor(state State) stepFunc {
	switch state {
	case Loaded:
		return o.separate
	case Separated:
		return o.detectPitch
	case PitchDetected:
		return o.analyzeKey
	case KeyAnalyzed:
		return o.generateHarmony
	case HarmonyGenerated:
		return o.mix
	default:
		return func(context.Context, *run) error {
			return fmt.Errorf("no step defined for state %s", state)
		}
	}
}

func (o *Orchestrator) fail(r *run, stage string, err error) error {
	r.state = Failed
	o.logger.Error(err, "Pipeline failed", logging.Fields{"stage": stage})
	return apperrors.NewStageFailure(stage, err)
}

func (o *Orchestrator) finish(r *run, start time.Time) *ProcessingResult {
	r.diag.Total = time.Since(start)
	o.logger.Info("Pipeline complete", logging.Fields{
		"key":       r.key.Name(),
		"harmonies": len(r.tracks),
		"total":     r.diag.Total.Seconds(),
	})
	return &ProcessingResult{
		Output:        r.output,
		SampleRate:    r.sampleRate,
		Key:           r.key,
		HarmonyTracks: r.tracks,
		Diagnostics:   r.diag,
	}
}

func (o *Orchestrator) accept(r *run, buf audio.Buffer, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if buf.IsEmpty() {
		return apperrors.ErrEmptyAudio
	}
	if err := buf.Validate(); err != nil {
		return err
	}
	r.input = buf
	r.sampleRate = sampleRate
	return nil
}

func (o *Orchestrator) separate(ctx context.Context, r *run) error {
	stems, err := o.c.Separator.Separate(ctx, r.input, r.sampleRate)
	if err != nil {
		return err
	}
	if !stems.Vocal.SameLayout(r.input) || !stems.Accompaniment.SameLayout(r.input) {
		return fmt.Errorf("%s returned stems with a different layout than the input", o.c.Separator.Name())
	}
	r.stems = stems
	r.diag.SeparationEngine = o.c.Separator.Name()
	return nil
}

func (o *Orchestrator) detectPitch(ctx context.Context, r *run) error {
	pd, err := o.c.Detector.Detect(ctx, r.stems.Vocal, r.sampleRate)
	if err != nil {
		return err
	}
	if err := pd.Validate(); err != nil {
		return err
	}

	voiced := 0
	for _, c := range pd.Confidences {
		if c >= o.c.Planner.Threshold {
			voiced++
		}
	}

	r.pitch = pd
	r.diag.PitchEngine = o.c.Detector.Name()
	r.diag.PitchFrames = pd.Len()
	r.diag.MedianPitch = pd.MedianFrequency(o.c.Planner.Threshold)
	if pd.Len() > 0 {
		r.diag.VoicedRatio = float64(voiced) / float64(pd.Len())
	}
	return nil
}

func (o *Orchestrator) analyzeKey(ctx context.Context, r *run) error {
	if o.opts.KeyOverride != nil {
		r.key = *o.opts.KeyOverride
		r.diag.KeySource = KeySourceOverride
		o.logger.Info("Using key override", logging.Fields{"key": r.key.Name()})
		return nil
	}

	key, candidates, err := o.resolveKey(r.stems.Vocal.Mono(), r.sampleRate)
	var analysisErr *apperrors.AnalysisError
	if err != nil && errors.As(err, &analysisErr) && o.opts.FallbackKey != nil {
		r.key = *o.opts.FallbackKey
		r.diag.KeySource = KeySourceFallback
		o.logger.Warn("Key analysis failed, using fallback key", logging.Fields{
			"fallback": r.key.Name(),
			"reason":   err.Error(),
		})
		return nil
	}
	if err != nil {
		return err
	}

	r.key = key
	r.diag.KeySource = KeySourceAnalysis
	r.diag.KeyCandidates = candidates
	o.logger.Info("Key detected", logging.Fields{
		"key":        key.Name(),
		"confidence": key.Confidence,
	})
	return nil
}

// resolveKey returns the key of a mono vocal and the names of the three
// strongest candidates
func (o *Orchestrator) resolveKey(vocal []float64, sampleRate int) (tonal.KeyInfo, []string, error) {
	mean, err := chroma.NewChromaSTFTDefault(sampleRate).MeanChroma(vocal)
	if err != nil {
		return tonal.KeyInfo{}, nil, apperrors.NewAnalysisError("compute chroma", err.Error())
	}

	key, err := o.c.KeyResolver.Resolve(mean)
	if err != nil {
		return tonal.KeyInfo{}, nil, err
	}

	ranked, err := o.c.KeyResolver.Candidates(mean)
	if err != nil {
		return tonal.KeyInfo{}, nil, err
	}
	names := make([]string, 0, 3)
	for _, c := range ranked[:min(3, len(ranked))] {
		names = append(names, c.Name())
	}
	return key, names, nil
}

func (o *Orchestrator) generateHarmony(ctx context.Context, r *run) error {
	requests := o.opts.Requests
	tracks := make([]harmony.Track, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)
	for i, req := range requests {
		g.Go(func() error {
			plan, err := o.c.Planner.Plan(r.pitch, r.key, req)
			if err != nil {
				return fmt.Errorf("%s: %w", req.Kind, err)
			}
			track, err := o.c.Strategy.Render(gctx, r.stems.Vocal, r.sampleRate, plan, r.pitch)
			if err != nil {
				return fmt.Errorf("%s: %w", req.Kind, err)
			}
			tracks[i] = track
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.tracks = tracks
	r.diag.ShifterBackend = o.c.Strategy.Backend()
	return nil
}

func (o *Orchestrator) mix(ctx context.Context, r *run) error {
	settings := o.opts.Mix
	settings.HarmonyVolumes = maps.Clone(settings.HarmonyVolumes)
	if settings.HarmonyVolumes == nil {
		settings.HarmonyVolumes = map[harmony.Kind]float64{}
	}
	for _, req := range o.opts.Requests {
		settings.HarmonyVolumes[req.Kind] = req.Volume
	}

	out, err := o.c.Mixer.Mix(ctx, r.stems.Accompaniment, r.stems.Vocal, r.tracks, r.sampleRate, settings)
	if err != nil {
		return err
	}
	if !out.SameLayout(r.input) {
		return fmt.Errorf("mix changed the layout from %dx%d to %dx%d",
			r.input.NumChannels(), r.input.Len(), out.NumChannels(), out.Len())
	}
	r.output = out
	return nil
}

func (o *Orchestrator) write(ctx context.Context, r *run, path string) error {
	if err := o.c.Writer.EncodeFile(ctx, path, r.output, r.sampleRate); err != nil {
		return err
	}

	if o.c.Tagger == nil || !o.c.Tagger.Supports(path) {
		return nil
	}
	kinds := make([]string, len(r.tracks))
	for i, t := range r.tracks {
		kinds[i] = string(t.Kind)
	}
	info := transcode.TagInfo{
		Key:       transcode.ID3Key(tonal.NoteNames[r.key.Tonic], r.key.Mode == tonal.Minor),
		KeyName:   r.key.Name(),
		Harmonies: kinds,
		Backend:   r.diag.ShifterBackend,
	}
	if err := o.c.Tagger.SaveTags(path, info); err != nil {
		o.logger.Warn("Could not tag output", logging.Fields{"path": path, "reason": err.Error()})
	}
	return nil
}
