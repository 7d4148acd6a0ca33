// Package pitch produces frame-level pitch tracks of the separated vocal.
package pitch

import (
	"context"
	"errors"
	"strings"

	"github.com/RyanBlaney/sonido-chords/algorithms/tonal"
	"github.com/RyanBlaney/sonido-chords/audio"
	apperrors "github.com/RyanBlaney/sonido-chords/errors"
	"github.com/RyanBlaney/sonido-chords/logging"
)

// Engine names
const (
	EngineAuto  = "auto"
	EngineCREPE = "crepe"
	EngineYIN   = "yin"
)

// Detector estimates a pitch track from a vocal
type Detector interface {
	Name() string
	Detect(ctx context.Context, vocal audio.Buffer, sampleRate int) (tonal.PitchData, error)
}

// Prober is a Detector backed by an optional external tool
type Prober interface {
	Detector
	Available(ctx context.Context) error
}

// Select picks the detector for engine. With "auto" an unavailable neural
// detector is replaced by yin and a warning is logged. Naming the neural
// detector explicitly keeps it even if it is missing, so the run fails at
// detection time.
func Select(ctx context.Context, engine string, neural Prober, yin Detector) (Detector, error) {
	switch strings.ToLower(engine) {
	case EngineYIN:
		return yin, nil
	case EngineCREPE:
		if neural == nil {
			return nil, apperrors.NewConfigurationError("pitch.engine", engine, "engine not configured")
		}
		return neural, nil
	case EngineAuto, "":
	default:
		return nil, apperrors.NewConfigurationError("pitch.engine", engine, "expected auto, crepe or yin")
	}

	if neural == nil {
		return yin, nil
	}
	if err := neural.Available(ctx); err != nil {
		fields := logging.Fields{"detector": neural.Name(), "fallback": yin.Name()}
		if !errors.Is(err, apperrors.ErrToolNotInstalled) {
			fields["reason"] = err.Error()
		}
		logging.WithFields(logging.Fields{
			"component": "pitch",
			"function":  "Select",
		}).Warn("Neural pitch detector unavailable, using YIN", fields)
		return yin, nil
	}
	return neural, nil
}
