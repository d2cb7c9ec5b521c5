package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeasureFullScaleCarrier(t *testing.T) {
	samples := make([]complex64, 256)
	for i := range samples {
		samples[i] = 1
	}
	l := Measure(samples)

	assert.InDelta(t, 1.0, l.RMS, 1e-9)
	assert.InDelta(t, 0.0, l.RMSdB(), 1e-9)
	assert.InDelta(t, 1.0, real(l.DC), 1e-9)
	assert.InDelta(t, 0.0, imag(l.DC), 1e-9)
	assert.InDelta(t, 1.0, l.Peak, 1e-9)
}

func TestMeasureTone(t *testing.T) {
	// unit tone has RMS 1 and no DC component
	const n = 1024
	samples := make([]complex64, n)
	for i := range samples {
		phase := 2 * math.Pi * 8 * float64(i) / n
		samples[i] = complex(float32(math.Cos(phase)), float32(math.Sin(phase)))
	}
	l := Measure(samples)

	assert.InDelta(t, 1.0, l.RMS, 1e-6)
	assert.InDelta(t, 0.0, real(l.DC), 1e-6)
	assert.InDelta(t, 0.0, imag(l.DC), 1e-6)
}

func TestMeasureEmpty(t *testing.T) {
	l := Measure(nil)
	assert.Zero(t, l.RMS)
	assert.Zero(t, l.Peak)
	assert.True(t, math.IsInf(l.RMSdB(), -1))
}
