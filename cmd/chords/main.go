package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-chords/algorithms/tonal"
	"github.com/RyanBlaney/sonido-chords/config"
	apperrors "github.com/RyanBlaney/sonido-chords/errors"
	"github.com/RyanBlaney/sonido-chords/history"
	"github.com/RyanBlaney/sonido-chords/logging"
	"github.com/RyanBlaney/sonido-chords/pipeline"
)

var version = "0.1.0"

type options struct {
	output         string
	harmonies      string
	harmonyVolume  float64
	noReverb       bool
	info           bool
	key            string
	configPath     string
	verbose        bool
	skipSeparation bool
	historyLimit   int
}

func main() {
	if err := newRootCmd(&options{}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chords <input>",
		Short: "Add key-aware vocal harmonies to a song",
		Long: `chords separates the lead vocal of a song, detects its key and pitch,
renders harmony layers a third or fifth away within the key, and mixes
them back under the original track.

Pipeline: load → separate → detect pitch → analyze key → shift pitch → mix

Examples:
  chords song.mp3
  chords song.mp3 -o duet.mp3 -H third
  chords song.wav -H fifth,third_lower -v 0.4 --no-reverb
  chords song.mp3 --key "A minor"`,
		Args:          cobra.MaximumNArgs(1),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChords(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "output file (default <input>_harmony.<ext>)")
	flags.StringVarP(&opts.harmonies, "harmonies", "H", "third,fifth", "comma separated harmony kinds: third, fifth, third_lower, fifth_lower")
	flags.Float64VarP(&opts.harmonyVolume, "harmony-volume", "v", 0.6, "harmony volume, 0.0-1.0")
	flags.BoolVar(&opts.noReverb, "no-reverb", false, "mix harmonies without compression and reverb")
	flags.BoolVar(&opts.info, "info", false, "show which engines are available and exit")
	flags.StringVar(&opts.key, "key", "", `use this key instead of detecting it, e.g. "A minor"`)
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flags.BoolVar(&opts.verbose, "verbose", false, "debug logging")
	flags.BoolVar(&opts.skipSeparation, "skip-separation", false, "treat the input as a dry vocal")
	_ = flags.MarkHidden("skip-separation")

	cmd.AddCommand(newHistoryCmd(opts))
	return cmd
}

func newHistoryCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previous runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			j, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.List(cmd.Context(), opts.historyLimit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderHistory(runs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.historyLimit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "YAML configuration file")
	return cmd
}

func runChords(cmd *cobra.Command, opts *options, args []string) error {
	out := cmd.OutOrStdout()
	configureLogging(cmd.ErrOrStderr(), opts.verbose)

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), renderError(err))
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(out, renderTitle(version))

	if opts.info {
		fmt.Fprintln(out, renderInfo(probeEngines(ctx, cfg)))
		return nil
	}

	if len(args) == 0 {
		err := errors.New("no input file given (see --help)")
		fmt.Fprintln(cmd.ErrOrStderr(), renderError(err))
		return err
	}
	input := args[0]
	if _, err := os.Stat(input); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), renderError(err))
		return err
	}
	output := opts.output
	if output == "" {
		output = defaultOutputPath(input)
	}

	progress := newProgressObserver(out, isTerminal(out))
	orch, err := buildOrchestrator(ctx, cfg, opts, progress)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), renderError(err))
		return err
	}

	started := time.Now()
	result, runErr := orch.ProcessFile(ctx, input, output)
	progress.Close(runErr)

	record(ctx, cfg, history.Run{
		StartedAt: started,
		Input:     input,
		Output:    output,
		Harmonies: cfg.Harmony.Kinds,
		Elapsed:   time.Since(started),
	}, result, runErr)

	if runErr != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), renderError(runErr))
		return runErr
	}

	fmt.Fprintln(out, renderResult(result, output))
	return nil
}

func configureLogging(w io.Writer, verbose bool) {
	logger := logging.NewWriterLogger(w)
	logger.SetLevel(logging.WarnLevel)
	if verbose {
		logger.SetLevel(logging.DebugLevel)
	}
	logging.SetGlobalLogger(logger)
}

// loadConfig reads the config file and applies the command line on top
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("harmonies") || opts.configPath == "" {
		cfg.Harmony.Kinds = splitKinds(opts.harmonies)
	}
	if flags.Changed("harmony-volume") {
		if opts.harmonyVolume < 0 || opts.harmonyVolume > 1 {
			return nil, apperrors.NewConfigurationError("harmony-volume", opts.harmonyVolume, "must be within [0,1]")
		}
		cfg.Mix.DefaultHarmonyVolume = opts.harmonyVolume
		cfg.Mix.HarmonyVolumes = nil
	}
	if opts.noReverb {
		cfg.Mix.ReverbEnabled = false
	}
	if opts.skipSeparation {
		cfg.Separation.Engine = "passthrough"
	}
	if opts.key != "" {
		if _, err := tonal.ParseKey(opts.key); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitKinds(list string) []string {
	var kinds []string
	for _, k := range strings.Split(list, ",") {
		if k = strings.TrimSpace(k); k != "" {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// defaultOutputPath places <stem>_harmony<ext> next to the input
func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(filepath.Base(input), ext)
	return filepath.Join(filepath.Dir(input), stem+"_harmony"+ext)
}

// record journals the run. Journal errors are logged and never fail the run.
func record(ctx context.Context, cfg *config.Config, run history.Run, result *pipeline.ProcessingResult, runErr error) {
	if !cfg.History.Enabled || cfg.History.Path == "" {
		return
	}

	run.Status = "ok"
	if runErr != nil {
		run.Status = "failed"
		run.FailedStage = apperrors.StageOf(runErr)
		run.Error = runErr.Error()
	}
	if result != nil {
		run.Key = result.Key.Name()
		run.KeyConfidence = result.Key.Confidence
		run.KeySource = result.Diagnostics.KeySource
		run.Harmonies = result.Kinds()
		run.Shifter = result.Diagnostics.ShifterBackend
		run.PitchEngine = result.Diagnostics.PitchEngine
	}

	logger := logging.WithFields(logging.Fields{"component": "history", "path": cfg.History.Path})
	j, err := history.Open(cfg.History.Path)
	if err != nil {
		logger.Warn("Run not journaled", logging.Fields{"reason": err.Error()})
		return
	}
	defer j.Close()

	if _, err := j.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("Run not journaled", logging.Fields{"reason": err.Error()})
	}
}
