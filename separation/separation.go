// Package separation splits a mix into a vocal stem and an accompaniment
// stem.
package separation

import (
	"context"
	"fmt"

	"github.com/RyanBlaney/sonido-chords/audio"
)

// Engine names
const (
	EngineDemucs      = "demucs"
	EnginePassThrough = "passthrough"
)

// Stems is the output of a separation, both with the layout of the input
type Stems struct {
	Vocal         audio.Buffer
	Accompaniment audio.Buffer
}

// Engine separates vocals from accompaniment
type Engine interface {
	Name() string
	Separate(ctx context.Context, buf audio.Buffer, sampleRate int) (Stems, error)
}

// PassThrough treats the whole input as the vocal and leaves the
// accompaniment silent. Used for dry a cappella input and tests.
type PassThrough struct{}

func (PassThrough) Name() string {
	return EnginePassThrough
}

func (PassThrough) Separate(ctx context.Context, buf audio.Buffer, sampleRate int) (Stems, error) {
	if err := ctx.Err(); err != nil {
		return Stems{}, err
	}
	if err := buf.Validate(); err != nil {
		return Stems{}, err
	}
	return Stems{Vocal: buf.Clone(), Accompaniment: buf.Silence()}, nil
}

// conform fits a stem produced by an external engine to the input layout
func conform(stem audio.Buffer, like audio.Buffer) (audio.Buffer, error) {
	if err := stem.Validate(); err != nil {
		return audio.Buffer{}, fmt.Errorf("invalid stem: %w", err)
	}
	return stem.Remix(like.NumChannels()).FitLength(like.Len()), nil
}
