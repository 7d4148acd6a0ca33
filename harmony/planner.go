package harmony

import (
	apperrors "github.com/RyanBlaney/sonido-chords/errors"

	"github.com/RyanBlaney/sonido-chords/algorithms/tonal"
)

// DefaultConfidenceThreshold is the minimum pitch confidence for a frame to
// carry harmony
const DefaultConfidenceThreshold = 0.5

// Request asks for one harmony layer at a mix volume
type Request struct {
	Kind   Kind    `json:"kind" yaml:"kind"`
	Volume float64 `json:"volume" yaml:"volume"`
}

// Plan is the decision for one layer: the shift and the frames it applies to.
// Mask is aligned 1:1 with the pitch frames it was planned from.
type Plan struct {
	Kind      Kind
	Semitones int
	Mask      []bool
}

// VoicedRatio returns the fraction of frames that carry harmony
func (p Plan) VoicedRatio() float64 {
	if len(p.Mask) == 0 {
		return 0
	}
	voiced := 0
	for _, m := range p.Mask {
		if m {
			voiced++
		}
	}
	return float64(voiced) / float64(len(p.Mask))
}

// Planner turns a key and a pitch track into harmony plans
type Planner struct {
	Threshold float64
}

// NewPlanner creates a planner with the default threshold
func NewPlanner() *Planner {
	return &Planner{Threshold: DefaultConfidenceThreshold}
}

// Plan computes the shift for req in key and masks frames whose confidence
// is below the threshold. A frame exactly at the threshold is kept.
func (p *Planner) Plan(pd tonal.PitchData, key tonal.KeyInfo, req Request) (Plan, error) {
	if p.Threshold < 0 || p.Threshold > 1 {
		return Plan{}, apperrors.NewConfigurationError("harmony.confidence_threshold", p.Threshold, "must be within [0,1]")
	}
	if err := pd.Validate(); err != nil {
		return Plan{}, err
	}

	semitones, err := SemitonesFor(key.Mode, req.Kind)
	if err != nil {
		return Plan{}, err
	}

	mask := make([]bool, pd.Len())
	for i, c := range pd.Confidences {
		mask[i] = c >= p.Threshold
	}

	return Plan{Kind: req.Kind, Semitones: semitones, Mask: mask}, nil
}
