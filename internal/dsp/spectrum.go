package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Hamming returns a Hamming window of length n.
func Hamming(n int) []float64 {
	if n <= 0 {
		return nil
	}
	win := make([]float64, n)
	for i := range win {
		win[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return win
}

// SpectrumDBFS computes the windowed power spectrum of one sample block in
// dBFS, DC-centered. Input samples are expected already normalized to unit
// full scale, so 0 dBFS corresponds to a full-scale tone.
func SpectrumDBFS(samples []complex64) []float64 {
	n := len(samples)
	if n == 0 {
		return nil
	}

	win := Hamming(n)
	winSum := 0.0
	windowed := make([]complex128, n)
	for i, s := range samples {
		windowed[i] = complex(float64(real(s))*win[i], float64(imag(s))*win[i])
		winSum += win[i]
	}

	coeffs := fourier.NewCmplxFFT(n).Coefficients(nil, windowed)

	// normalize by the window sum and shift DC to the center bin
	dbfs := make([]float64, n)
	half := n / 2
	for i, c := range coeffs {
		mag := cmplx.Abs(c) / winSum
		v := math.Inf(-1)
		if mag > 0 {
			v = 20 * math.Log10(mag)
		}
		dbfs[(i+half)%n] = v
	}
	return dbfs
}
