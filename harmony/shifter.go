package harmony

import (
	"context"
	"strings"

	"github.com/RyanBlaney/sonido-chords/audio"
	apperrors "github.com/RyanBlaney/sonido-chords/errors"
	"github.com/RyanBlaney/sonido-chords/logging"
)

// MaxShiftSemitones bounds the shift any backend is asked to render
const MaxShiftSemitones = 24

// Shifter changes the pitch of a buffer without changing its length or
// channel layout. A shift of 0 returns an unchanged copy.
type Shifter interface {
	Name() string
	Shift(ctx context.Context, buf audio.Buffer, sampleRate int, semitones int) (audio.Buffer, error)
}

// Prober is a Shifter whose availability must be checked before use
type Prober interface {
	Shifter
	Available(ctx context.Context) error
}

// Shifter selection modes
const (
	ShifterAuto       = "auto"
	ShifterRubberBand = "rubberband"
	ShifterFallback   = "fallback"
)

// SelectShifter returns the high quality shifter when it passes its
// availability probe, otherwise the fallback. It never fails: an unusable
// high quality backend is logged and skipped.
func SelectShifter(ctx context.Context, mode string, highQuality Prober, fallback Shifter) Shifter {
	logger := logging.WithFields(logging.Fields{
		"component": "harmony",
		"function":  "SelectShifter",
		"mode":      mode,
	})

	switch strings.ToLower(mode) {
	case ShifterFallback:
		logger.Debug("Using fallback shifter by configuration")
		return fallback
	}

	if highQuality == nil {
		return fallback
	}

	if err := highQuality.Available(ctx); err != nil {
		logger.Warn("High quality pitch shifter unavailable, using fallback", logging.Fields{
			"backend":  highQuality.Name(),
			"fallback": fallback.Name(),
			"reason":   err.Error(),
		})
		return fallback
	}

	logger.Debug("Using high quality pitch shifter", logging.Fields{"backend": highQuality.Name()})
	return highQuality
}

func checkShiftRange(semitones int, backend string) error {
	if semitones > MaxShiftSemitones || semitones < -MaxShiftSemitones {
		return &apperrors.ShiftError{
			Semitones: semitones,
			Backend:   backend,
			Reason:    "exceeds the supported range of ±24 semitones",
		}
	}
	return nil
}
