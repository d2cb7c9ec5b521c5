package dsp

import "fmt"

// Route distributes converted samples to per-channel output buffers. With a
// single channel it is a bulk copy. With more, the input is interleaved
// round-robin (sample 0 to channel 0, sample 1 to channel 1, ...) and is
// demultiplexed into contiguous per-channel runs, preserving per-channel
// ordering.
//
// The output buffer count must equal channels and each buffer must hold
// len(converted)/channels samples; a mismatch is a caller contract violation
// and fails before any sample is moved.
func Route(converted []complex64, channels int, outputs [][]complex64) error {
	if channels <= 0 {
		return fmt.Errorf("route: channel count must be positive, got %d", channels)
	}
	if len(outputs) != channels {
		return fmt.Errorf("route: %d output buffers for %d channels", len(outputs), channels)
	}
	if len(converted)%channels != 0 {
		return fmt.Errorf("route: %d samples not divisible across %d channels", len(converted), channels)
	}
	per := len(converted) / channels
	for n, out := range outputs {
		if len(out) < per {
			return fmt.Errorf("route: output %d holds %d samples, need %d", n, len(out), per)
		}
	}

	if channels == 1 {
		copy(outputs[0], converted)
		return nil
	}

	for i := 0; i < per; i++ {
		base := i * channels
		for n := 0; n < channels; n++ {
			outputs[n][i] = converted[base+n]
		}
	}
	return nil
}
