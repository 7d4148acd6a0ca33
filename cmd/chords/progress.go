package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// stageLabels are the progress descriptions of the file pipeline stages
var stageLabels = []struct {
	stage string
	label string
}{
	{"load", "Loading audio"},
	{"separate", "Separating vocals (this may take a while)"},
	{"detect_pitch", "Tracking vocal pitch"},
	{"analyze_key", "Detecting key"},
	{"generate_harmony", "Rendering harmonies"},
	{"mix", "Mixing"},
	{"write", "Writing output"},
}

// progressObserver renders pipeline stages as an mpb bar on terminals and
// as numbered lines elsewhere
type progressObserver struct {
	out io.Writer

	mu      sync.Mutex
	current string

	p   *mpb.Progress
	bar *mpb.Bar
}

func newProgressObserver(out io.Writer, interactive bool) *progressObserver {
	o := &progressObserver{out: out}
	if !interactive {
		return o
	}

	o.p = mpb.New(mpb.WithOutput(out), mpb.WithWidth(40))
	o.bar = o.p.AddBar(int64(len(stageLabels)),
		mpb.PrependDecorators(
			decor.Name("chords "),
			decor.CountersNoUnit("[%d/%d] "),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Any(func(decor.Statistics) string {
				return o.label()
			}), "done"),
			decor.Name(" "),
			decor.Elapsed(decor.ET_STYLE_GO),
		),
	)
	return o
}

func (o *progressObserver) label() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

func (o *progressObserver) StageStarted(stage string) {
	index, label := stageIndex(stage)

	o.mu.Lock()
	o.current = label
	o.mu.Unlock()

	if o.bar == nil {
		fmt.Fprintf(o.out, "[%d/%d] %s...\n", index+1, len(stageLabels), label)
	}
}

func (o *progressObserver) StageFinished(stage string, elapsed time.Duration, err error) {
	if err != nil {
		return
	}
	if o.bar != nil {
		o.bar.Increment()
		return
	}
	fmt.Fprintf(o.out, "      done in %.1fs\n", elapsed.Seconds())
}

// Close stops the bar, aborting it when the run failed
func (o *progressObserver) Close(runErr error) {
	if o.p == nil {
		return
	}
	if runErr != nil || !o.bar.Completed() {
		o.bar.Abort(false)
	}
	o.p.Wait()
}

func stageIndex(stage string) (int, string) {
	for i, s := range stageLabels {
		if s.stage == stage {
			return i, s.label
		}
	}
	return len(stageLabels) - 1, stage
}
