package tonal

import (
	"fmt"
	"math"
	"sort"

	"github.com/RyanBlaney/sonido-chords/algorithms/common"
	"github.com/RyanBlaney/sonido-chords/algorithms/spectral"
	"github.com/RyanBlaney/sonido-chords/logging"
)

// YINParams configures the YIN pitch tracker
type YINParams struct {
	SampleRate int     `json:"sample_rate"`
	WindowSize int     `json:"window_size"` // Analysis frame, at least twice the longest period
	HopSize    int     `json:"hop_size"`
	MinFreq    float64 `json:"min_freq"`
	MaxFreq    float64 `json:"max_freq"`
	Threshold  float64 `json:"threshold"`   // Absolute CMNDF threshold (0.1-0.2)
	SilenceRMS float64 `json:"silence_rms"` // Frames below this RMS are unvoiced
}

// DefaultYINParams returns YIN settings for singing voice with a 10 ms hop
func DefaultYINParams(sampleRate int) YINParams {
	windowSize := common.NextPowerOfTwo(int(2 * float64(sampleRate) / 80.0))
	return YINParams{
		SampleRate: sampleRate,
		WindowSize: windowSize,
		HopSize:    max(1, sampleRate/100),
		MinFreq:    80.0,
		MaxFreq:    1000.0,
		Threshold:  0.15,
		SilenceRMS: 1e-4,
	}
}

// YINTracker estimates a pitch track with the YIN algorithm.
//
// Reference: de Cheveigné, A., Kawahara, H. (2002). "YIN, a fundamental
// frequency estimator for speech and music"
//
// The difference function is computed through FFT cross-correlation so a
// full song stays tractable.
type YINTracker struct {
	params YINParams
	fft    *spectral.FFT
	logger logging.Logger
}

// NewYINTracker creates a tracker
func NewYINTracker(params YINParams) (*YINTracker, error) {
	if params.SampleRate <= 0 || params.HopSize <= 0 {
		return nil, fmt.Errorf("sample rate and hop size must be positive")
	}
	if params.MinFreq <= 0 || params.MaxFreq <= params.MinFreq {
		return nil, fmt.Errorf("invalid frequency range %.1f-%.1f Hz", params.MinFreq, params.MaxFreq)
	}
	if maxTau := int(float64(params.SampleRate) / params.MinFreq); params.WindowSize < 2*maxTau+2 {
		return nil, fmt.Errorf("window size %d too small for %.1f Hz", params.WindowSize, params.MinFreq)
	}

	return &YINTracker{
		params: params,
		fft:    spectral.NewFFT(),
		logger: logging.WithFields(logging.Fields{
			"component": "yin_tracker",
		}),
	}, nil
}

// Track computes one frame per hop. Frames are centered on their timestamp
// (i * hop / sampleRate) with the signal zero padded at both ends.
func (y *YINTracker) Track(signal []float64) (PitchData, error) {
	if len(signal) == 0 {
		return PitchData{}, fmt.Errorf("empty signal")
	}

	w := y.params.WindowSize
	half := w / 2
	padded := make([]float64, len(signal)+w)
	copy(padded[half:], signal)

	numFrames := (len(signal)-1)/y.params.HopSize + 1
	pd := PitchData{
		Timestamps:  make([]float64, numFrames),
		Frequencies: make([]float64, numFrames),
		Confidences: make([]float64, numFrames),
	}

	voiced := 0
	for i := range numFrames {
		start := i * y.params.HopSize
		freq, conf := y.detectFrame(padded[start : start+w])
		pd.Timestamps[i] = float64(start) / float64(y.params.SampleRate)
		pd.Frequencies[i] = freq
		pd.Confidences[i] = conf
		if conf >= 1-y.params.Threshold {
			voiced++
		}
	}

	y.logger.Debug("YIN pitch track computed", logging.Fields{
		"frames":        numFrames,
		"voiced_frames": voiced,
	})

	return pd, nil
}

// detectFrame returns the frequency and confidence (1 - CMNDF) of one frame
func (y *YINTracker) detectFrame(frame []float64) (float64, float64) {
	if common.RMS(frame) < y.params.SilenceRMS {
		return 0, 0
	}

	diff := y.differenceFunction(frame)
	halfN := len(diff)

	cmndf := make([]float64, halfN)
	cmndf[0] = 1.0
	runningSum := 0.0
	for tau := 1; tau < halfN; tau++ {
		runningSum += diff[tau]
		if runningSum <= 0 {
			cmndf[tau] = 1.0
			continue
		}
		cmndf[tau] = diff[tau] / (runningSum / float64(tau))
	}

	minTau := max(2, int(float64(y.params.SampleRate)/y.params.MaxFreq))
	maxTau := min(halfN-2, int(float64(y.params.SampleRate)/y.params.MinFreq))

	// First dip below threshold, followed down to its local minimum
	best := -1
	for tau := minTau; tau <= maxTau; tau++ {
		if cmndf[tau] < y.params.Threshold {
			for tau+1 <= maxTau && cmndf[tau+1] < cmndf[tau] {
				tau++
			}
			best = tau
			break
		}
	}

	// No dip: fall back to the global minimum in range
	if best < 0 {
		best = minTau
		for tau := minTau + 1; tau <= maxTau; tau++ {
			if cmndf[tau] < cmndf[best] {
				best = tau
			}
		}
	}

	period := parabolicInterpolation(cmndf, best)
	if period <= 0 {
		return 0, 0
	}

	frequency := float64(y.params.SampleRate) / period
	confidence := common.Clamp(1.0-cmndf[best], 0, 1)
	if frequency < y.params.MinFreq || frequency > y.params.MaxFreq {
		return frequency, 0
	}
	return frequency, confidence
}

// differenceFunction computes d(tau) = sum_j (x[j] - x[j+tau])^2 over the
// first half of the frame using r(tau) from an FFT cross-correlation
func (y *YINTracker) differenceFunction(frame []float64) []float64 {
	n := len(frame)
	halfN := n / 2

	head := make([]float64, n)
	copy(head, frame[:halfN])

	fx := y.fft.Compute(frame)
	fh := y.fft.Compute(head)
	for k := range fx {
		fx[k] *= complex(real(fh[k]), -imag(fh[k]))
	}
	cross := y.fft.ComputeInverseReal(fx)

	prefix := make([]float64, n+1)
	for i, v := range frame {
		prefix[i+1] = prefix[i] + v*v
	}

	energyHead := prefix[halfN]
	diff := make([]float64, halfN)
	for tau := range halfN {
		energyShift := prefix[tau+halfN] - prefix[tau]
		d := energyHead + energyShift - 2*cross[tau]
		if d < 0 {
			d = 0
		}
		diff[tau] = d
	}
	return diff
}

// parabolicInterpolation refines a minimum location for sub-sample accuracy
func parabolicInterpolation(data []float64, idx int) float64 {
	if idx <= 0 || idx >= len(data)-1 {
		return float64(idx)
	}

	y1 := data[idx-1]
	y2 := data[idx]
	y3 := data[idx+1]

	a := (y1 - 2*y2 + y3) / 2
	b := (y3 - y1) / 2

	if a == 0 {
		return float64(idx)
	}

	offset := -b / (2 * a)
	if math.Abs(offset) > 1 {
		return float64(idx)
	}
	return float64(idx) + offset
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
