// Package dsp holds the sample-domain helpers of the receive path:
// fixed-point to complex conversion, channel deinterleaving, and the level
// and spectrum measurements used for stream diagnostics.
package dsp

import "fmt"

// Format selects the fixed-point width of the raw sample stream.
//
// FormatPacked8 matches FPGA images that pack two signed 8-bit components
// into each 16-bit word: word k carries the I components of samples k and
// k+1, word k+1 the matching Q components. FormatSC16Q11 is the
// full-precision mode with one signed Q11 component per word. The width is
// a parameter here because FPGA builds differ on which encoding they ship.
type Format int

const (
	FormatPacked8 Format = iota
	FormatSC16Q11
)

const (
	packed8Scale = 127.0
	sc16Q11Scale = 2048.0
)

func (f Format) String() string {
	switch f {
	case FormatPacked8:
		return "packed8"
	case FormatSC16Q11:
		return "sc16q11"
	default:
		return "unknown"
	}
}

// Words returns how many raw int16 words encode n complex samples.
func (f Format) Words(n int) int {
	if f == FormatPacked8 {
		return n
	}
	return 2 * n
}

// Granularity returns the smallest sample count the format can encode.
// Packed8 word pairs always carry two samples.
func (f Format) Granularity() int {
	if f == FormatPacked8 {
		return 2
	}
	return 1
}

// Convert normalizes raw fixed-point words into complex64 samples, dividing
// each component by the format's maximum representable magnitude. Sample
// ordering is preserved: input sample k maps to out[k]. The pass is flat and
// branch-free per sample; values are not clamped, so the most negative code
// converts to a magnitude slightly above 1.0, matching the hardware.
func Convert(f Format, raw []int16, out []complex64) error {
	switch f {
	case FormatPacked8:
		if len(out)%2 != 0 {
			return fmt.Errorf("convert: packed8 needs an even sample count, got %d", len(out))
		}
		if len(raw) < len(out) {
			return fmt.Errorf("convert: %d raw words cannot hold %d packed8 samples", len(raw), len(out))
		}
		for k := 0; k+1 < len(out); k += 2 {
			w0, w1 := raw[k], raw[k+1]
			out[k] = complex(float32(int8(w0))/packed8Scale, float32(int8(w1))/packed8Scale)
			out[k+1] = complex(float32(int8(w0>>8))/packed8Scale, float32(int8(w1>>8))/packed8Scale)
		}
		return nil
	case FormatSC16Q11:
		if len(raw) < 2*len(out) {
			return fmt.Errorf("convert: %d raw words cannot hold %d sc16q11 samples", len(raw), len(out))
		}
		for k := range out {
			out[k] = complex(float32(raw[2*k])/sc16Q11Scale, float32(raw[2*k+1])/sc16Q11Scale)
		}
		return nil
	default:
		return fmt.Errorf("convert: unknown sample format %d", f)
	}
}
