package mixer

import (
	"context"
	"fmt"

	"github.com/RyanBlaney/sonido-chords/audio"
	apperrors "github.com/RyanBlaney/sonido-chords/errors"
	"github.com/RyanBlaney/sonido-chords/harmony"
	"github.com/RyanBlaney/sonido-chords/logging"
)

// NormalizePeak is the level a clipping mix is scaled down to
const NormalizePeak = 0.95

// Filter runs a buffer through an effect graph without changing its length
type Filter interface {
	Filter(ctx context.Context, buf audio.Buffer, sampleRate int, graph string) (audio.Buffer, error)
}

// Mixer sums the stems. Harmony bus effects go through the filter; with a
// nil filter the bus is mixed dry.
type Mixer struct {
	filter Filter
	logger logging.Logger
}

// NewMixer creates a mixer
func NewMixer(filter Filter) *Mixer {
	return &Mixer{
		filter: filter,
		logger: logging.WithFields(logging.Fields{
			"component": "mixer",
		}),
	}
}

// Mix returns vocal*VocalVolume + bus + accompaniment*AccompanimentVolume,
// where bus is the sum of harmony tracks at their volumes, run through the
// bus effects when reverb is enabled. The output has the layout of vocal.
// If the sum exceeds full scale it is normalized to NormalizePeak.
func (m *Mixer) Mix(ctx context.Context, accompaniment, vocal audio.Buffer, tracks []harmony.Track, sampleRate int, settings Settings) (audio.Buffer, error) {
	if err := settings.Validate(); err != nil {
		return audio.Buffer{}, err
	}
	if err := vocal.Validate(); err != nil {
		return audio.Buffer{}, fmt.Errorf("vocal: %w", err)
	}
	if vocal.IsEmpty() {
		return audio.Buffer{}, apperrors.ErrEmptyAudio
	}

	channels, n := vocal.NumChannels(), vocal.Len()
	fit := func(b audio.Buffer) audio.Buffer {
		if b.NumChannels() == 0 {
			return audio.NewBuffer(channels, n)
		}
		return b.Remix(channels).FitLength(n)
	}

	mixed := audio.NewBuffer(channels, n)
	if err := mixed.AddScaled(settings.VocalVolume, vocal); err != nil {
		return audio.Buffer{}, err
	}

	if len(tracks) > 0 {
		bus := audio.NewBuffer(channels, n)
		for _, track := range tracks {
			if err := bus.AddScaled(settings.HarmonyVolume(track.Kind), fit(track.Audio)); err != nil {
				return audio.Buffer{}, err
			}
		}

		if settings.ReverbEnabled {
			processed, err := m.applyBusEffects(ctx, bus, sampleRate, settings)
			if err != nil {
				return audio.Buffer{}, err
			}
			bus = fit(processed)
		}

		if err := mixed.AddScaled(1, bus); err != nil {
			return audio.Buffer{}, err
		}
	}

	if err := mixed.AddScaled(settings.AccompanimentVolume, fit(accompaniment)); err != nil {
		return audio.Buffer{}, err
	}

	if peak := mixed.Peak(); peak > 1 {
		mixed.Scale(NormalizePeak / peak)
		m.logger.Info("Mix normalized", logging.Fields{
			"original_peak": peak,
			"target_peak":   NormalizePeak,
		})
	}

	return mixed, nil
}

func (m *Mixer) applyBusEffects(ctx context.Context, bus audio.Buffer, sampleRate int, settings Settings) (audio.Buffer, error) {
	if m.filter == nil {
		m.logger.Debug("No effects filter configured, harmony bus mixed dry")
		return bus, nil
	}

	graph := settings.busGraph()
	m.logger.Debug("Applying harmony bus effects", logging.Fields{"graph": graph})

	processed, err := m.filter.Filter(ctx, bus, sampleRate, graph)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("harmony bus effects: %w", err)
	}
	return processed, nil
}
