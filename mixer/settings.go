// Package mixer sums the accompaniment, the lead vocal and the harmony
// layers into the final arrangement.
package mixer

import (
	"fmt"
	"math"

	apperrors "github.com/RyanBlaney/sonido-chords/errors"
	"github.com/RyanBlaney/sonido-chords/harmony"
)

// ReverbParams shapes the harmony bus reverb
type ReverbParams struct {
	RoomSize float64 `json:"room_size" yaml:"room_size"` // 0-1
	Wet      float64 `json:"wet" yaml:"wet"`             // 0-1, dry level is 1-Wet
}

// CompressorParams shapes the harmony bus compressor
type CompressorParams struct {
	ThresholdDB float64 `json:"threshold_db" yaml:"threshold_db"`
	Ratio       float64 `json:"ratio" yaml:"ratio"`
	AttackMs    float64 `json:"attack_ms" yaml:"attack_ms"`
	ReleaseMs   float64 `json:"release_ms" yaml:"release_ms"`
}

// Settings are the gains and effects of one mix
type Settings struct {
	VocalVolume          float64                  `json:"vocal_volume" yaml:"vocal_volume"`
	AccompanimentVolume  float64                  `json:"accompaniment_volume" yaml:"accompaniment_volume"`
	DefaultHarmonyVolume float64                  `json:"harmony_volume" yaml:"harmony_volume"`
	HarmonyVolumes       map[harmony.Kind]float64 `json:"harmony_volumes,omitempty" yaml:"harmony_volumes,omitempty"`
	ReverbEnabled        bool                     `json:"reverb_enabled" yaml:"reverb_enabled"`
	Reverb               ReverbParams             `json:"reverb" yaml:"reverb"`
	Compressor           CompressorParams         `json:"compressor" yaml:"compressor"`
}

// DefaultSettings returns unity vocal and accompaniment, harmonies at 0.6,
// and a light compressor and reverb on the harmony bus
func DefaultSettings() Settings {
	return Settings{
		VocalVolume:          1.0,
		AccompanimentVolume:  1.0,
		DefaultHarmonyVolume: 0.6,
		ReverbEnabled:        true,
		Reverb: ReverbParams{
			RoomSize: 0.3,
			Wet:      0.2,
		},
		Compressor: CompressorParams{
			ThresholdDB: -20,
			Ratio:       3,
			AttackMs:    5,
			ReleaseMs:   100,
		},
	}
}

// HarmonyVolume returns the gain for kind, falling back to the default
func (s Settings) HarmonyVolume(kind harmony.Kind) float64 {
	if v, ok := s.HarmonyVolumes[kind]; ok {
		return v
	}
	return s.DefaultHarmonyVolume
}

// Validate checks gains and effect parameters
func (s Settings) Validate() error {
	gains := map[string]float64{
		"mix.vocal_volume":         s.VocalVolume,
		"mix.accompaniment_volume": s.AccompanimentVolume,
		"mix.harmony_volume":       s.DefaultHarmonyVolume,
		"mix.reverb.room_size":     s.Reverb.RoomSize,
		"mix.reverb.wet":           s.Reverb.Wet,
	}
	for kind, v := range s.HarmonyVolumes {
		gains["mix.harmony_volumes."+string(kind)] = v
	}
	for field, v := range gains {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return apperrors.NewConfigurationError(field, v, "must be within [0,1]")
		}
	}

	if s.ReverbEnabled {
		c := s.Compressor
		if c.Ratio < 1 || c.Ratio > 20 {
			return apperrors.NewConfigurationError("mix.compressor.ratio", c.Ratio, "must be within [1,20]")
		}
		if c.ThresholdDB > 0 || c.ThresholdDB < -60 {
			return apperrors.NewConfigurationError("mix.compressor.threshold_db", c.ThresholdDB, "must be within [-60,0]")
		}
		if c.AttackMs <= 0 || c.ReleaseMs <= 0 {
			return apperrors.NewConfigurationError("mix.compressor",
				fmt.Sprintf("attack=%v release=%v", c.AttackMs, c.ReleaseMs), "times must be positive")
		}
	}
	return nil
}

// busGraph is the FFmpeg filter graph for the harmony bus: a compressor
// followed by a three tap echo standing in for a small room
func (s Settings) busGraph() string {
	c := s.Compressor
	threshold := math.Pow(10, c.ThresholdDB/20)

	base := 20 + s.Reverb.RoomSize*80
	tail := 0.5 + 0.4*s.Reverb.RoomSize
	wet := s.Reverb.Wet

	return fmt.Sprintf(
		"acompressor=threshold=%.6f:ratio=%g:attack=%g:release=%g,"+
			"aecho=in_gain=%.3f:out_gain=1:delays=%.0f|%.0f|%.0f:decays=%.3f|%.3f|%.3f",
		threshold, c.Ratio, c.AttackMs, c.ReleaseMs,
		1-wet, base, base*1.7, base*2.6, wet*tail, wet*tail*tail, wet*tail*tail*tail,
	)
}
