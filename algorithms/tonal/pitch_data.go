package tonal

import (
	"fmt"
	"math"

	apperrors "github.com/RyanBlaney/sonido-chords/errors"
)

// PitchData is a per-frame pitch track: the three slices are aligned and
// timestamps (seconds) are strictly ascending
type PitchData struct {
	Timestamps  []float64 `json:"timestamps"`
	Frequencies []float64 `json:"frequencies"`
	Confidences []float64 `json:"confidences"`
}

// Len returns the number of frames
func (pd PitchData) Len() int {
	return len(pd.Timestamps)
}

// Validate checks alignment, ordering and ranges
func (pd PitchData) Validate() error {
	n := len(pd.Timestamps)
	if len(pd.Frequencies) != n || len(pd.Confidences) != n {
		return apperrors.NewAnalysisError("validate pitch data",
			fmt.Sprintf("misaligned frames: %d timestamps, %d frequencies, %d confidences",
				n, len(pd.Frequencies), len(pd.Confidences)))
	}

	for i := range n {
		if math.IsNaN(pd.Timestamps[i]) || (i > 0 && pd.Timestamps[i] <= pd.Timestamps[i-1]) {
			return apperrors.NewAnalysisError("validate pitch data",
				fmt.Sprintf("timestamps not strictly ascending at frame %d", i))
		}
		if c := pd.Confidences[i]; math.IsNaN(c) || c < 0 || c > 1 {
			return apperrors.NewAnalysisError("validate pitch data",
				fmt.Sprintf("confidence %v at frame %d outside [0,1]", c, i))
		}
		if f := pd.Frequencies[i]; math.IsNaN(f) || f < 0 {
			return apperrors.NewAnalysisError("validate pitch data",
				fmt.Sprintf("frequency %v at frame %d is invalid", f, i))
		}
	}

	return nil
}

// FrameAt returns the index of the frame whose timestamp is nearest to t,
// or -1 when there are no frames
func (pd PitchData) FrameAt(t float64) int {
	n := len(pd.Timestamps)
	if n == 0 {
		return -1
	}

	lo, hi := 0, n-1
	for lo < hi {
		mid := (lo + hi) / 2
		if pd.Timestamps[mid] < t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo > 0 && t-pd.Timestamps[lo-1] < pd.Timestamps[lo]-t {
		return lo - 1
	}
	return lo
}

// MedianFrequency returns the median frequency of frames at or above the
// confidence threshold, 0 when none qualify
func (pd PitchData) MedianFrequency(threshold float64) float64 {
	voiced := make([]float64, 0, len(pd.Frequencies))
	for i, f := range pd.Frequencies {
		if pd.Confidences[i] >= threshold && f > 0 {
			voiced = append(voiced, f)
		}
	}
	if len(voiced) == 0 {
		return 0
	}
	return median(voiced)
}
