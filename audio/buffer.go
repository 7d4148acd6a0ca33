// Package audio holds the in-memory sample buffer shared by every stage of
// the harmony pipeline.
package audio

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Buffer is planar floating point audio: Channels[c][i] is sample i of
// channel c. All channels have the same length.
type Buffer struct {
	Channels [][]float64
}

// NewBuffer allocates a silent buffer with the given layout.
func NewBuffer(channels, samples int) Buffer {
	data := make([][]float64, channels)
	for c := range data {
		data[c] = make([]float64, samples)
	}
	return Buffer{Channels: data}
}

// FromMono wraps a single channel.
func FromMono(samples []float64) Buffer {
	return Buffer{Channels: [][]float64{samples}}
}

// NumChannels returns the channel count.
func (b Buffer) NumChannels() int {
	return len(b.Channels)
}

// Len returns the number of samples per channel.
func (b Buffer) Len() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// IsEmpty reports whether the buffer holds no samples.
func (b Buffer) IsEmpty() bool {
	return b.Len() == 0
}

// Duration returns the play time of the buffer at sampleRate.
func (b Buffer) Duration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Len()) * time.Second / time.Duration(sampleRate)
}

// Validate checks that every channel has the same length.
func (b Buffer) Validate() error {
	if len(b.Channels) == 0 {
		return fmt.Errorf("buffer has no channels")
	}
	n := len(b.Channels[0])
	for c, ch := range b.Channels {
		if len(ch) != n {
			return fmt.Errorf("channel %d has %d samples, expected %d", c, len(ch), n)
		}
	}
	return nil
}

// SameLayout reports whether b and other have equal channel count and length.
func (b Buffer) SameLayout(other Buffer) bool {
	return b.NumChannels() == other.NumChannels() && b.Len() == other.Len()
}

// Clone returns a deep copy.
func (b Buffer) Clone() Buffer {
	out := Buffer{Channels: make([][]float64, len(b.Channels))}
	for c, ch := range b.Channels {
		out.Channels[c] = append([]float64(nil), ch...)
	}
	return out
}

// Silence returns a zeroed buffer with the layout of b.
func (b Buffer) Silence() Buffer {
	return NewBuffer(b.NumChannels(), b.Len())
}

// Mono averages all channels into one.
func (b Buffer) Mono() []float64 {
	n := b.Len()
	out := make([]float64, n)
	if len(b.Channels) == 0 {
		return out
	}
	for _, ch := range b.Channels {
		floats.Add(out, ch[:n])
	}
	floats.Scale(1/float64(len(b.Channels)), out)
	return out
}

// Scale multiplies every sample by gain in place.
func (b Buffer) Scale(gain float64) {
	for _, ch := range b.Channels {
		floats.Scale(gain, ch)
	}
}

// AddScaled adds gain*src into b. Layouts must match.
func (b Buffer) AddScaled(gain float64, src Buffer) error {
	if !b.SameLayout(src) {
		return fmt.Errorf("layout mismatch: %dx%d vs %dx%d",
			b.NumChannels(), b.Len(), src.NumChannels(), src.Len())
	}
	for c := range b.Channels {
		floats.AddScaled(b.Channels[c], gain, src.Channels[c])
	}
	return nil
}

// Peak returns the largest absolute sample value.
func (b Buffer) Peak() float64 {
	peak := 0.0
	for _, ch := range b.Channels {
		for _, v := range ch {
			peak = math.Max(peak, math.Abs(v))
		}
	}
	return peak
}

// FitLength returns a copy of b truncated or zero padded to n samples.
func (b Buffer) FitLength(n int) Buffer {
	out := NewBuffer(b.NumChannels(), n)
	for c, ch := range b.Channels {
		copy(out.Channels[c], ch)
	}
	return out
}

// Interleave packs the buffer frame by frame (L R L R ...).
func (b Buffer) Interleave() []float64 {
	channels := b.NumChannels()
	n := b.Len()
	out := make([]float64, channels*n)
	for i := range n {
		for c := range channels {
			out[i*channels+c] = b.Channels[c][i]
		}
	}
	return out
}

// Deinterleave splits frame-ordered samples into a planar buffer. Trailing
// samples that do not form a complete frame are dropped.
func Deinterleave(samples []float64, channels int) (Buffer, error) {
	if channels <= 0 {
		return Buffer{}, fmt.Errorf("invalid channel count: %d", channels)
	}
	n := len(samples) / channels
	out := NewBuffer(channels, n)
	for i := range n {
		for c := range channels {
			out.Channels[c][i] = samples[i*channels+c]
		}
	}
	return out, nil
}

// Remix returns b with the given channel count. Fewer channels are folded
// to mono first; a mono source is copied to every output channel.
func (b Buffer) Remix(channels int) Buffer {
	if channels == b.NumChannels() {
		return b
	}
	mono := b.Mono()
	out := Buffer{Channels: make([][]float64, channels)}
	for c := range out.Channels {
		out.Channels[c] = append([]float64(nil), mono...)
	}
	return out
}
