package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality backed by mjibson/go-dsp
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the FFT of a real signal.
// go-dsp handles non power of two sizes through Bluestein's algorithm.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	return fft.FFTReal(x)
}

// ComputeInverseReal computes the inverse FFT and returns the real part only
func (f *FFT) ComputeInverseReal(x []complex128) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	result := fft.IFFT(x)
	realResult := make([]float64, len(result))

	for i, val := range result {
		realResult[i] = real(val)
	}

	return realResult
}

// HermitianInverse rebuilds the full spectrum of a real signal from its
// positive half (size/2+1 bins) and returns the real inverse transform
func (f *FFT) HermitianInverse(half []complex128, size int) []float64 {
	if size <= 0 || len(half) == 0 {
		return []float64{}
	}

	full := make([]complex128, size)
	copy(full, half)
	for k := 1; k < size-len(half)+1 && k < len(half); k++ {
		full[size-k] = cmplx.Conj(half[k])
	}

	return f.ComputeInverseReal(full)
}

// MagnitudeSpectrum returns |X[k]| for the positive frequencies of x
func (f *FFT) MagnitudeSpectrum(x []float64) []float64 {
	spectrum := f.Compute(x)
	bins := len(spectrum)/2 + 1
	if len(spectrum) == 0 {
		return []float64{}
	}

	mags := make([]float64, bins)
	for i := range bins {
		mags[i] = cmplx.Abs(spectrum[i])
	}
	return mags
}
