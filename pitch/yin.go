package pitch

import (
	"context"

	"github.com/RyanBlaney/sonido-chords/algorithms/tonal"
	"github.com/RyanBlaney/sonido-chords/audio"
	apperrors "github.com/RyanBlaney/sonido-chords/errors"
)

// YIN runs the in-process YIN tracker on a mono fold of the vocal
type YIN struct {
	// MinFreq and MaxFreq override the tracker's range when positive
	MinFreq float64
	MaxFreq float64
}

func (YIN) Name() string {
	return EngineYIN
}

func (y YIN) Detect(ctx context.Context, vocal audio.Buffer, sampleRate int) (tonal.PitchData, error) {
	if err := ctx.Err(); err != nil {
		return tonal.PitchData{}, err
	}
	if vocal.IsEmpty() {
		return tonal.PitchData{}, apperrors.ErrEmptyAudio
	}

	params := tonal.DefaultYINParams(sampleRate)
	if y.MinFreq > 0 {
		params.MinFreq = y.MinFreq
		params.WindowSize = max(params.WindowSize, 2*int(float64(sampleRate)/y.MinFreq)+2)
	}
	if y.MaxFreq > 0 {
		params.MaxFreq = y.MaxFreq
	}

	tracker, err := tonal.NewYINTracker(params)
	if err != nil {
		return tonal.PitchData{}, apperrors.NewConfigurationError("pitch.yin", params, err.Error())
	}
	return tracker.Track(vocal.Mono())
}
