package harmony

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/interp"

	"github.com/RyanBlaney/sonido-chords/algorithms/common"
	"github.com/RyanBlaney/sonido-chords/algorithms/spectral"
	"github.com/RyanBlaney/sonido-chords/algorithms/windowing"
	"github.com/RyanBlaney/sonido-chords/audio"
)

// Vocoder is the in-process fallback shifter. Each channel is time
// stretched by the pitch ratio with a phase vocoder, then resampled back to
// its original length, which moves every partial by the ratio.
type Vocoder struct {
	windowSize int
	hopSize    int
	fft        *spectral.FFT
	stft       *spectral.STFT
}

// NewVocoder creates a fallback shifter with a 2048-sample frame and 75% overlap
func NewVocoder() *Vocoder {
	return &Vocoder{
		windowSize: 2048,
		hopSize:    512,
		fft:        spectral.NewFFT(),
		stft:       spectral.NewSTFT(),
	}
}

func (v *Vocoder) Name() string {
	return ShifterFallback
}

// Shift renders the shift in process
func (v *Vocoder) Shift(ctx context.Context, buf audio.Buffer, sampleRate int, semitones int) (audio.Buffer, error) {
	if err := checkShiftRange(semitones, v.Name()); err != nil {
		return audio.Buffer{}, err
	}
	if semitones == 0 || buf.IsEmpty() {
		return buf.Clone(), nil
	}

	ratio := common.SemitoneRatio(float64(semitones))
	out := audio.Buffer{Channels: make([][]float64, buf.NumChannels())}
	for c, ch := range buf.Channels {
		if err := ctx.Err(); err != nil {
			return audio.Buffer{}, err
		}
		shifted, err := v.shiftChannel(ch, ratio)
		if err != nil {
			return audio.Buffer{}, fmt.Errorf("channel %d: %w", c, err)
		}
		out.Channels[c] = shifted
	}
	return out, nil
}

func (v *Vocoder) shiftChannel(x []float64, ratio float64) ([]float64, error) {
	stretched, offset, err := v.stretch(x, ratio)
	if err != nil {
		return nil, err
	}

	xs := make([]float64, len(stretched))
	for i := range xs {
		xs[i] = float64(i)
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, stretched); err != nil {
		return nil, err
	}

	out := make([]float64, len(x))
	for j := range out {
		out[j] = pl.Predict(float64(j)*ratio + float64(offset))
	}
	return out, nil
}

// stretch time-stretches x by ratio. Sample t of x maps to t*ratio+offset
// in the result.
func (v *Vocoder) stretch(x []float64, ratio float64) ([]float64, int, error) {
	n := v.windowSize
	hs := v.hopSize
	pad := n / 2
	bins := n/2 + 1
	ha := float64(hs) / ratio

	needed := int(math.Ceil(float64(len(x)-1)*ratio)) + pad + 2
	frames := max(1, int(math.Ceil(float64(needed-n)/float64(hs)))+1)

	lastPos := int(math.Round(float64(frames-1) * ha))
	xp := make([]float64, max(lastPos+n, len(x)+2*pad))
	copy(xp[pad:], x)

	win := windowing.NewHann(n, false)
	spectra := make([][]complex128, frames)
	prevPhase := make([]float64, bins)
	synthPhase := make([]float64, bins)
	frame := make([]float64, n)
	prevPos := 0

	for i := range frames {
		pos := int(math.Round(float64(i) * ha))
		copy(frame, xp[pos:pos+n])
		if err := win.ApplyInPlace(frame); err != nil {
			return nil, 0, err
		}
		spectrum := v.fft.Compute(frame)

		step := float64(pos - prevPos)
		out := make([]complex128, bins)
		for k := range bins {
			mag := cmplx.Abs(spectrum[k])
			phase := cmplx.Phase(spectrum[k])
			omega := 2 * math.Pi * float64(k) / float64(n)

			switch {
			case i == 0:
				synthPhase[k] = phase
			case step > 0:
				deviation := common.WrapPhase(phase - prevPhase[k] - omega*step)
				synthPhase[k] += (omega + deviation/step) * float64(hs)
			default:
				synthPhase[k] += omega * float64(hs)
			}

			prevPhase[k] = phase
			out[k] = cmplx.Rect(mag, synthPhase[k])
		}
		spectra[i] = out
		prevPos = pos
	}

	y, err := v.stft.Inverse(spectra, n, hs, (frames-1)*hs+n, win)
	if err != nil {
		return nil, 0, err
	}
	return y, pad, nil
}
