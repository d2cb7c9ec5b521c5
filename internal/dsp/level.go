package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Level summarizes the signal level of a converted sample block.
type Level struct {
	RMS  float64 // root mean square magnitude
	DC   complex128
	Peak float64 // largest sample magnitude
}

// RMSdB returns the RMS level in dB relative to full scale.
func (l Level) RMSdB() float64 {
	if l.RMS == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(l.RMS)
}

// Measure computes RMS, DC offset and peak magnitude over samples.
func Measure(samples []complex64) Level {
	if len(samples) == 0 {
		return Level{}
	}

	re := make([]float64, len(samples))
	im := make([]float64, len(samples))
	peak := 0.0
	for i, s := range samples {
		re[i] = float64(real(s))
		im[i] = float64(imag(s))
		if mag := cmplx.Abs(complex128(complex(real(s), imag(s)))); mag > peak {
			peak = mag
		}
	}

	power := (floats.Dot(re, re) + floats.Dot(im, im)) / float64(len(samples))

	return Level{
		RMS:  math.Sqrt(power),
		DC:   complex(stat.Mean(re, nil), stat.Mean(im, nil)),
		Peak: peak,
	}
}
