package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic numeric helpers shared by the analysis and synthesis code, backed by gonum

// ReferenceA4 is the tuning reference used for Hz/MIDI conversion
const ReferenceA4 = 440.0

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Norm(data, 2) / math.Sqrt(float64(len(data)))
}

// Sum returns the sum of all values, 0 for an empty slice
func Sum(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Sum(data)
}

// ArgMax returns the index of the largest value, or -1 for an empty slice
func ArgMax(data []float64) int {
	if len(data) == 0 {
		return -1
	}
	return floats.MaxIdx(data)
}

// Correlation calculates Pearson correlation coefficient between two series.
// Returns 0 when either series is constant.
func Correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0.0
	}

	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0.0
	}
	return r
}

// Clamp constrains a value to a range
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Lerp performs linear interpolation between two values
func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// NextPowerOfTwo finds the next power of 2 >= n
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	power := 1
	for power < n {
		power <<= 1
	}
	return power
}

// HzToMidi converts a frequency to a fractional MIDI note number (A4 = 69)
func HzToMidi(hz float64) float64 {
	if hz <= 0 {
		return math.Inf(-1)
	}
	return 69 + 12*math.Log2(hz/ReferenceA4)
}

// MidiToHz converts a MIDI note number to a frequency
func MidiToHz(midi float64) float64 {
	return ReferenceA4 * math.Pow(2, (midi-69)/12)
}

// PitchClass maps a (possibly fractional) MIDI note to its pitch class 0-11,
// C = 0, rounding to the nearest semitone
func PitchClass(midi float64) int {
	pc := int(math.Round(midi)) % 12
	if pc < 0 {
		pc += 12
	}
	return pc
}

// SemitoneRatio returns the frequency ratio of a shift by n semitones
func SemitoneRatio(semitones float64) float64 {
	return math.Pow(2, semitones/12)
}

// WrapPhase maps a phase to (-pi, pi]
func WrapPhase(phase float64) float64 {
	wrapped := math.Mod(phase+math.Pi, 2*math.Pi)
	if wrapped <= 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}
