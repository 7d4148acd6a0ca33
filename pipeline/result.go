package pipeline

import (
	"time"

	"github.com/RyanBlaney/sonido-chords/algorithms/tonal"
	"github.com/RyanBlaney/sonido-chords/audio"
	"github.com/RyanBlaney/sonido-chords/harmony"
)

// Key sources
const (
	KeySourceAnalysis = "analysis"
	KeySourceOverride = "override"
	KeySourceFallback = "fallback"
)

// StageTiming is the wall time of one stage
type StageTiming struct {
	Stage   string        `json:"stage"`
	Elapsed time.Duration `json:"elapsed"`
}

// Diagnostics describe how a run went
type Diagnostics struct {
	Stages           []StageTiming `json:"stages"`
	Total            time.Duration `json:"total"`
	SeparationEngine string        `json:"separation_engine"`
	PitchEngine      string        `json:"pitch_engine"`
	ShifterBackend   string        `json:"shifter_backend"`
	PitchFrames      int           `json:"pitch_frames"`
	VoicedRatio      float64       `json:"voiced_ratio"`
	MedianPitch      float64       `json:"median_pitch_hz"`
	KeySource        string        `json:"key_source"`
	KeyCandidates    []string      `json:"key_candidates,omitempty"`
}

// StageElapsed returns the recorded time of stage, or 0
func (d Diagnostics) StageElapsed(stage string) time.Duration {
	for _, st := range d.Stages {
		if st.Stage == stage {
			return st.Elapsed
		}
	}
	return 0
}

// ProcessingResult is everything a successful run produces
type ProcessingResult struct {
	Output        audio.Buffer
	SampleRate    int
	Key           tonal.KeyInfo
	HarmonyTracks []harmony.Track
	Diagnostics   Diagnostics
}

// Kinds lists the rendered harmony kinds in request order
func (r *ProcessingResult) Kinds() []string {
	kinds := make([]string, len(r.HarmonyTracks))
	for i, t := range r.HarmonyTracks {
		kinds[i] = string(t.Kind)
	}
	return kinds
}
