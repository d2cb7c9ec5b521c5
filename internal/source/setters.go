package source

import (
	"fmt"

	"github.com/sdrforge/gobladerf/bladerf"
	"github.com/sdrforge/gobladerf/internal/logging"
)

// physFor resolves a logical output port to its physical receive channel.
func (s *Source) physFor(port int) (int, error) {
	for ch := 0; ch < s.dev.MaxChannels(); ch++ {
		if s.chanmap[ch] == port {
			return ch, nil
		}
	}
	return 0, fmt.Errorf("no receive channel mapped to output %d", port)
}

// SetSampleRate applies the rate in Hz and returns the value the hardware
// actually settled on.
func (s *Source) SetSampleRate(rate float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev.SetSampleRate(rate)
}

// SampleRate returns the current rate in Hz.
func (s *Source) SampleRate() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev.SampleRate()
}

// SetFrequency tunes the given output port and returns the applied value.
func (s *Source) SetFrequency(port int, hz float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.physFor(port)
	if err != nil {
		return 0, err
	}
	return s.dev.SetFrequency(ch, hz)
}

// Frequency returns the center frequency of the given output port.
func (s *Source) Frequency(port int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.physFor(port)
	if err != nil {
		return 0, err
	}
	return s.dev.Frequency(ch)
}

// SetFrequencyCorrection is not implemented for this hardware.
// TODO: program the VCTCXO trim DAC; the value is shared with the transmit
// path, so a correction here shifts TX as well.
func (s *Source) SetFrequencyCorrection(port int, ppm float64) (float64, error) {
	s.log.Warn("frequency correction is not implemented")
	return 0, nil
}

// SetBandwidth applies the filter bandwidth and returns the applied value.
func (s *Source) SetBandwidth(port int, hz float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.physFor(port)
	if err != nil {
		return 0, err
	}
	return s.dev.SetBandwidth(ch, hz)
}

// Bandwidth returns the current filter bandwidth.
func (s *Source) Bandwidth(port int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.physFor(port)
	if err != nil {
		return 0, err
	}
	return s.dev.Bandwidth(ch)
}

// GainStages lists the named gain stages of the given output port.
func (s *Source) GainStages(port int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.physFor(port)
	if err != nil {
		return nil, err
	}
	return s.dev.GainStages(ch), nil
}

// SetGain applies the overall gain in dB and returns the applied value.
func (s *Source) SetGain(port int, db float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.physFor(port)
	if err != nil {
		return 0, err
	}
	return s.dev.SetGain(ch, db)
}

// SetStageGain applies gain to one named stage and returns the applied value.
func (s *Source) SetStageGain(port int, stage string, db float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.physFor(port)
	if err != nil {
		return 0, err
	}
	return s.dev.SetStageGain(ch, stage, db)
}

// Gain returns the overall gain of the given output port.
func (s *Source) Gain(port int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.physFor(port)
	if err != nil {
		return 0, err
	}
	return s.dev.Gain(ch)
}

// SetAGC switches the port between automatic and manual gain. The automatic
// profile is the one selected by SetAGCMode.
func (s *Source) SetAGC(port int, automatic bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.physFor(port)
	if err != nil {
		return err
	}
	return s.setAGCOnChannel(ch, automatic)
}

// AGC reports whether the port runs automatic gain.
func (s *Source) AGC(port int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.physFor(port)
	if err != nil {
		return false, err
	}
	mode, err := s.dev.GetGainMode(ch)
	if err != nil {
		return false, err
	}
	return mode != bladerf.GainModeManual && mode != bladerf.GainModeDefault, nil
}

// SetAGCMode selects the hardware AGC profile by name. Unknown or
// unsupported names warn and leave the current profile in place.
func (s *Source) SetAGCMode(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setAGCModeLocked(name)
}

// Antennas lists the receive antenna ports.
func (s *Source) Antennas() []string {
	return s.dev.Antennas()
}

// Antenna returns the antenna currently wired to the given output port.
func (s *Source) Antenna(port int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.physFor(port)
	if err != nil {
		return "", err
	}
	antennas := s.dev.Antennas()
	if ch >= len(antennas) {
		return "", fmt.Errorf("channel %d has no antenna", ch)
	}
	return antennas[ch], nil
}

// SetAntenna wires the named antenna's receive channel to the given output
// port. A running stream is paused around the rewiring: Stop, remap, Start,
// all under the session lock so no Work call observes the intermediate
// state. Returns the applied antenna name.
func (s *Source) SetAntenna(port int, antenna string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := -1
	for ch, name := range s.dev.Antennas() {
		if name == antenna {
			target = ch
			break
		}
	}
	if target < 0 {
		return "", fmt.Errorf("unknown antenna %q", antenna)
	}

	wasRunning := s.running
	if wasRunning {
		if err := s.stopLocked(); err != nil {
			return "", fmt.Errorf("pause stream: %w", err)
		}
	}

	for ch := 0; ch < s.dev.MaxChannels(); ch++ {
		if s.chanmap[ch] == port {
			s.chanmap[ch] = -1
		}
	}
	s.chanmap[target] = port

	if wasRunning {
		if err := s.startLocked(); err != nil {
			return "", fmt.Errorf("resume stream: %w", err)
		}
	}
	return antenna, nil
}

// raw trim units per unit of normalized correction
const (
	dcOffsetScale  = 2048
	iqBalanceScale = 4096
)

// SetDCOffsetMode selects the DC offset correction mode for a port. Off
// resets the trims to zero, manual keeps the last applied values, and
// automatic is not implemented by the hardware and only warns.
func (s *Source) SetDCOffsetMode(port int, mode bladerf.CorrectionMode) error {
	switch mode {
	case bladerf.CorrectionModeOff:
		return s.SetDCOffset(port, 0)
	case bladerf.CorrectionModeAutomatic:
		s.log.Warn("automatic dc offset correction is not implemented")
	}
	return nil
}

// SetDCOffset applies a manual DC offset trim. The correction is the complex
// residual to cancel, each component in [-1, 1).
func (s *Source) SetDCOffset(port int, correction complex128) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.physFor(port)
	if err != nil {
		return err
	}
	if err := s.dev.SetCorrection(ch, bladerf.CorrectionDCOffsetI, int16(real(correction)*dcOffsetScale)); err != nil {
		return err
	}
	return s.dev.SetCorrection(ch, bladerf.CorrectionDCOffsetQ, int16(imag(correction)*dcOffsetScale))
}

// SetIQBalanceMode selects the IQ imbalance correction mode for a port, with
// the same off/manual/automatic semantics as SetDCOffsetMode.
func (s *Source) SetIQBalanceMode(port int, mode bladerf.CorrectionMode) error {
	switch mode {
	case bladerf.CorrectionModeOff:
		return s.SetIQBalance(port, 0)
	case bladerf.CorrectionModeAutomatic:
		s.log.Warn("automatic iq imbalance correction is not implemented")
	}
	return nil
}

// SetIQBalance applies a manual IQ imbalance trim: the real part corrects
// relative gain, the imaginary part phase, each in [-1, 1).
func (s *Source) SetIQBalance(port int, balance complex128) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.physFor(port)
	if err != nil {
		return err
	}
	if err := s.dev.SetCorrection(ch, bladerf.CorrectionGain, int16(real(balance)*iqBalanceScale)); err != nil {
		return err
	}
	return s.dev.SetCorrection(ch, bladerf.CorrectionPhase, int16(imag(balance)*iqBalanceScale))
}

// ClockSources lists the selectable sampling clock sources.
func (s *Source) ClockSources() []string {
	return s.dev.ClockSources()
}

// SetClockSource selects the sampling clock source.
func (s *Source) SetClockSource(src string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev.SetClockSource(src)
}

// ClockSource returns the active sampling clock source.
func (s *Source) ClockSource() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev.ClockSource()
}

// SetBiasTee switches the antenna bias-tee supply for the given port.
// Hardware without a bias-tee logs a warning instead of failing.
func (s *Source) SetBiasTee(port int, enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.physFor(port)
	if err != nil {
		return err
	}
	if err := s.dev.SetBiasTee(ch, enable); err != nil {
		if bladerf.IsUnsupported(err) {
			s.log.Warn("bias-tee not supported by device")
			return nil
		}
		return err
	}
	return nil
}

// SetLoopback selects a loopback path by name. Unknown names return a typed
// error; hardware that cannot provide the path logs a warning.
func (s *Source) SetLoopback(name string) error {
	lb, err := bladerf.ParseLoopback(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.dev.SetLoopback(lb); err != nil {
		if bladerf.IsUnsupported(err) {
			s.log.Warn("loopback mode not supported by device", logging.F("mode", lb))
			return nil
		}
		return err
	}
	return nil
}

// SetRxMux selects what feeds the receive stream. Unknown names return a
// typed error; unsupported modes log a warning.
func (s *Source) SetRxMux(name string) error {
	mux, err := bladerf.ParseRxMux(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.dev.SetRxMux(mux); err != nil {
		if bladerf.IsUnsupported(err) {
			s.log.Warn("rx mux mode not supported by device", logging.F("mode", mux))
			return nil
		}
		return err
	}
	return nil
}
