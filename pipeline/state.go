package pipeline

import "time"

// State is the position of a run in the pipeline
type State int

const (
	Pending State = iota
	Loaded
	Separated
	PitchDetected
	KeyAnalyzed
	HarmonyGenerated
	Mixed
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loaded:
		return "loaded"
	case Separated:
		return "separated"
	case PitchDetected:
		return "pitch_detected"
	case KeyAnalyzed:
		return "key_analyzed"
	case HarmonyGenerated:
		return "harmony_generated"
	case Mixed:
		return "mixed"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stage names, as reported in StageFailure
const (
	StageLoad            = "load"
	StageSeparate        = "separate"
	StageDetectPitch     = "detect_pitch"
	StageAnalyzeKey      = "analyze_key"
	StageGenerateHarmony = "generate_harmony"
	StageMix             = "mix"
	StageWrite           = "write"
)

// transitions maps each state to the stage that leaves it and the state
// that stage reaches. Mixed leads to Done either directly for in-memory
// runs or through the write stage.
var transitions = map[State]struct {
	stage string
	next  State
}{
	Pending:          {StageLoad, Loaded},
	Loaded:           {StageSeparate, Separated},
	Separated:        {StageDetectPitch, PitchDetected},
	PitchDetected:    {StageAnalyzeKey, KeyAnalyzed},
	KeyAnalyzed:      {StageGenerateHarmony, HarmonyGenerated},
	HarmonyGenerated: {StageMix, Mixed},
	Mixed:            {StageWrite, Done},
}

// Transition returns the stage run from state and the state it leads to.
// ok is false for Done and Failed.
func Transition(from State) (stage string, next State, ok bool) {
	t, ok := transitions[from]
	return t.stage, t.next, ok
}

// Observer is notified around every stage. Calls come from the goroutine
// running the pipeline.
type Observer interface {
	StageStarted(stage string)
	StageFinished(stage string, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) StageStarted(string)                        {}
func (nopObserver) StageFinished(string, time.Duration, error) {}
