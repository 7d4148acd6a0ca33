package harmony

import (
	"context"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-chords/algorithms/tonal"
	"github.com/RyanBlaney/sonido-chords/audio"
	"github.com/RyanBlaney/sonido-chords/logging"
)

// DefaultRamp is the fade applied where the harmony gate opens or closes
const DefaultRamp = 10 * time.Millisecond

// Track is a rendered harmony layer, same layout as the vocal it came from
type Track struct {
	Audio       audio.Buffer
	Kind        Kind
	Semitones   int
	Backend     string
	VoicedRatio float64
}

// Strategy renders plans with a chosen shifter and gates the result by the
// plan's confidence mask
type Strategy struct {
	shifter Shifter
	ramp    time.Duration
}

// NewStrategy creates a strategy. A non-positive ramp gates hard.
func NewStrategy(shifter Shifter, ramp time.Duration) *Strategy {
	return &Strategy{shifter: shifter, ramp: ramp}
}

// Backend names the shifter in use
func (s *Strategy) Backend() string {
	return s.shifter.Name()
}

// Render shifts vocal by plan.Semitones and silences it over frames the
// plan masks out. Masked frames are mapped to samples by nearest timestamp.
func (s *Strategy) Render(ctx context.Context, vocal audio.Buffer, sampleRate int, plan Plan, pd tonal.PitchData) (Track, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "harmony",
		"function":  "Render",
		"kind":      string(plan.Kind),
		"semitones": plan.Semitones,
	})

	if err := checkShiftRange(plan.Semitones, s.shifter.Name()); err != nil {
		return Track{}, err
	}
	if len(plan.Mask) != pd.Len() {
		return Track{}, fmt.Errorf("plan mask has %d frames, pitch data has %d", len(plan.Mask), pd.Len())
	}
	if sampleRate <= 0 {
		return Track{}, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	start := time.Now()
	shifted, err := s.shifter.Shift(ctx, vocal, sampleRate, plan.Semitones)
	if err != nil {
		return Track{}, err
	}
	if !shifted.SameLayout(vocal) {
		shifted = shifted.FitLength(vocal.Len())
	}

	gain := gateEnvelope(vocal.Len(), sampleRate, plan.Mask, pd,
		int(s.ramp.Seconds()*float64(sampleRate)))
	for _, ch := range shifted.Channels {
		for i := range ch {
			ch[i] *= gain[i]
		}
	}

	logger.Debug("Harmony layer rendered", logging.Fields{
		"backend":      s.shifter.Name(),
		"voiced_ratio": plan.VoicedRatio(),
		"elapsed":      time.Since(start).Seconds(),
	})

	return Track{
		Audio:       shifted,
		Kind:        plan.Kind,
		Semitones:   plan.Semitones,
		Backend:     s.shifter.Name(),
		VoicedRatio: plan.VoicedRatio(),
	}, nil
}

// gateEnvelope builds a per-sample gain that is exactly 0 over masked frames.
// Voiced samples fade linearly over rampSamples toward each masked region, so
// a fade-out ends where a masked frame starts and a fade-in starts where it
// ends.
func gateEnvelope(n, sampleRate int, mask []bool, pd tonal.PitchData, rampSamples int) []float64 {
	gain := make([]float64, n)
	if len(mask) == 0 || n == 0 {
		return gain
	}

	// distance in samples to the nearest masked sample, 0 inside masked frames
	dist := make([]int, n)
	last := -1
	for i := range n {
		frame := pd.FrameAt(float64(i) / float64(sampleRate))
		if !mask[frame] {
			last = i
		}
		dist[i] = n + 1
		if last >= 0 {
			dist[i] = i - last
		}
	}
	next := -1
	for i := n - 1; i >= 0; i-- {
		if dist[i] == 0 {
			next = i
		} else if next >= 0 {
			dist[i] = min(dist[i], next-i)
		}
	}

	for i, d := range dist {
		switch {
		case d == 0:
			gain[i] = 0
		case rampSamples <= 1 || d >= rampSamples:
			gain[i] = 1
		default:
			gain[i] = float64(d) / float64(rampSamples)
		}
	}
	return gain
}
