package chroma

import (
	"fmt"

	"github.com/RyanBlaney/sonido-chords/algorithms/common"
	"github.com/RyanBlaney/sonido-chords/algorithms/spectral"
	"github.com/RyanBlaney/sonido-chords/algorithms/windowing"
)

// Default analysis frame for key detection, about 93 ms at 44.1 kHz
const (
	DefaultWindowSize = 4096
	DefaultHopSize    = 1024
)

// PitchClassLabels names the chroma bins in order, C = 0
var PitchClassLabels = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// ChromaSTFT computes a chromagram from the STFT magnitude spectrogram.
// Frequencies are octave-folded into 12 semitone bins relative to the tuning
// reference.
type ChromaSTFT struct {
	sampleRate int
	stft       *spectral.STFT
	tuningFreq float64
	minFreq    float64
	maxFreq    float64
}

// NewChromaSTFT creates a new STFT-based chromagram calculator
func NewChromaSTFT(sampleRate int, tuningFreq float64) *ChromaSTFT {
	return &ChromaSTFT{
		sampleRate: sampleRate,
		stft:       spectral.NewSTFT(),
		tuningFreq: tuningFreq,
		minFreq:    80.0,   // Approximate E2
		maxFreq:    8000.0, // High enough for harmonics
	}
}

// NewChromaSTFTDefault creates chromagram with standard A4=440Hz tuning
func NewChromaSTFTDefault(sampleRate int) *ChromaSTFT {
	return NewChromaSTFT(sampleRate, common.ReferenceA4)
}

// ComputeChroma computes a chromagram (time x 12). Each frame is normalized
// to unit sum; silent frames stay zero.
func (cs *ChromaSTFT) ComputeChroma(signal []float64, windowSize, hopSize int, window spectral.Window) ([][]float64, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	// Short clips are zero padded to one full frame
	if len(signal) < windowSize {
		padded := make([]float64, windowSize)
		copy(padded, signal)
		signal = padded
	}

	stftResult, err := cs.stft.ComputeWithWindow(signal, windowSize, hopSize, cs.sampleRate, window)
	if err != nil {
		return nil, err
	}

	return cs.convertSTFTToChroma(stftResult), nil
}

// MeanChroma returns the time-averaged 12-bin chroma vector of signal using
// the default frame layout
func (cs *ChromaSTFT) MeanChroma(signal []float64) ([]float64, error) {
	chromagram, err := cs.ComputeChroma(signal, DefaultWindowSize, DefaultHopSize,
		windowing.NewHann(DefaultWindowSize, false))
	if err != nil {
		return nil, err
	}

	mean := make([]float64, 12)
	for _, frame := range chromagram {
		for bin, v := range frame {
			mean[bin] += v
		}
	}
	for bin := range mean {
		mean[bin] /= float64(len(chromagram))
	}
	return mean, nil
}

func (cs *ChromaSTFT) convertSTFTToChroma(stftResult *spectral.STFTResult) [][]float64 {
	chromagram := make([][]float64, stftResult.TimeFrames)
	chromaMapping := cs.calculateChromaMapping(stftResult.FreqBins, stftResult.FreqResolution)

	for t := range stftResult.TimeFrames {
		chromagram[t] = make([]float64, 12)

		for f := range stftResult.FreqBins {
			bin := chromaMapping[f]
			if bin < 0 {
				continue
			}
			magnitude := stftResult.Magnitude[t][f]
			chromagram[t][bin] += magnitude * magnitude
		}

		normalizeChromaFrame(chromagram[t])
	}

	return chromagram
}

// calculateChromaMapping maps FFT bins to chroma bins, -1 outside the range
func (cs *ChromaSTFT) calculateChromaMapping(freqBins int, freqResolution float64) []int {
	mapping := make([]int, freqBins)

	for f := range freqBins {
		frequency := float64(f) * freqResolution

		if frequency < cs.minFreq || frequency > cs.maxFreq {
			mapping[f] = -1
			continue
		}

		// Shift by the tuning offset so A always lands in bin 9
		midi := common.HzToMidi(frequency * common.ReferenceA4 / cs.tuningFreq)
		mapping[f] = common.PitchClass(midi)
	}

	return mapping
}

func normalizeChromaFrame(chromaFrame []float64) {
	totalEnergy := common.Sum(chromaFrame)
	if totalEnergy > 1e-10 {
		for i := range chromaFrame {
			chromaFrame[i] /= totalEnergy
		}
	} else {
		clear(chromaFrame)
	}
}

// SetFrequencyRange limits the spectrum considered for chroma
func (cs *ChromaSTFT) SetFrequencyRange(minFreq, maxFreq float64) {
	cs.minFreq = minFreq
	cs.maxFreq = maxFreq
}

// SetTuning updates the tuning frequency (A4)
func (cs *ChromaSTFT) SetTuning(tuningFreq float64) {
	cs.tuningFreq = tuningFreq
}

// GetTuning returns the current tuning frequency
func (cs *ChromaSTFT) GetTuning() float64 {
	return cs.tuningFreq
}
