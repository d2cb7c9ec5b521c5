// Package bladerf provides the device access layer for bladeRF receivers:
// the control surface consumed by the streaming source, typed device errors,
// the closed mode enumerations, and a simulated backend for development and
// tests.
package bladerf

import (
	"fmt"
	"time"
)

// SampleFormat selects the wire format of samples returned by SyncRecv.
type SampleFormat int

const (
	// FormatPacked8 packs two signed 8-bit components into each 16-bit word.
	FormatPacked8 SampleFormat = iota
	// FormatSC16Q11 carries one signed 16-bit Q11 component per word.
	FormatSC16Q11
)

func (f SampleFormat) String() string {
	switch f {
	case FormatPacked8:
		return "packed8"
	case FormatSC16Q11:
		return "sc16q11"
	default:
		return "unknown"
	}
}

// ChannelLayout selects how many receive channels share the sample stream.
type ChannelLayout int

const (
	LayoutRxX1 ChannelLayout = 1
	LayoutRxX2 ChannelLayout = 2
)

// Channels returns the number of channels multiplexed in the layout.
func (l ChannelLayout) Channels() int { return int(l) }

// StreamConfig carries the synchronous stream parameters applied once per
// streaming session, before any channel is enabled. It is immutable while a
// session is running.
type StreamConfig struct {
	NumBuffers       int
	SamplesPerBuffer int
	NumTransfers     int
	Timeout          time.Duration
	Format           SampleFormat
	Layout           ChannelLayout
}

// Validate checks the configuration invariants shared by all backends.
func (c StreamConfig) Validate() error {
	if c.NumBuffers <= 0 {
		return fmt.Errorf("stream config: num buffers must be positive, got %d", c.NumBuffers)
	}
	if c.SamplesPerBuffer <= 0 {
		return fmt.Errorf("stream config: samples per buffer must be positive, got %d", c.SamplesPerBuffer)
	}
	if c.NumTransfers <= 0 {
		return fmt.Errorf("stream config: num transfers must be positive, got %d", c.NumTransfers)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("stream config: timeout must be positive, got %s", c.Timeout)
	}
	n := c.Layout.Channels()
	if n != 1 && n != 2 {
		return fmt.Errorf("stream config: unsupported channel layout %d", n)
	}
	if c.SamplesPerBuffer%n != 0 {
		return fmt.Errorf("stream config: samples per buffer (%d) must be a multiple of the channel count (%d)",
			c.SamplesPerBuffer, n)
	}
	return nil
}

// Correction identifies one manual RX correction parameter of the frontend.
type Correction int

const (
	// CorrectionDCOffsetI trims the DC residual of the I component.
	CorrectionDCOffsetI Correction = iota
	// CorrectionDCOffsetQ trims the DC residual of the Q component.
	CorrectionDCOffsetQ
	// CorrectionGain trims the relative I/Q amplitude imbalance.
	CorrectionGain
	// CorrectionPhase trims the I/Q phase imbalance.
	CorrectionPhase
)

func (c Correction) String() string {
	switch c {
	case CorrectionDCOffsetI:
		return "dc offset i"
	case CorrectionDCOffsetQ:
		return "dc offset q"
	case CorrectionGain:
		return "gain"
	case CorrectionPhase:
		return "phase"
	default:
		return "unknown"
	}
}

// MaxCorrection returns the largest accepted magnitude for the parameter's
// raw trim value.
func (c Correction) MaxCorrection() int16 {
	switch c {
	case CorrectionDCOffsetI, CorrectionDCOffsetQ:
		return 2048
	default:
		return 4096
	}
}

// Version identifies a firmware or FPGA image.
type Version struct {
	Major int
	Minor int
	Patch int
}

func (v Version) String() string { return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch) }

// Less reports whether v is older than o.
func (v Version) Less(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor < o.Minor
	}
	return v.Patch < o.Patch
}

// Device is the control surface of a bladeRF receiver. Implementations own
// the underlying peripheral connection exclusively; the streaming source
// acquires a Device at construction and releases it via Close at teardown.
//
// No streaming calls (SyncRecv) are valid before SyncConfig has been applied
// and at least one channel enabled.
type Device interface {
	// Name returns a human-readable device identifier.
	Name() string

	// MaxChannels returns the number of physical receive channels.
	MaxChannels() int

	// Antennas lists the receive antenna ports, ordered by channel index.
	Antennas() []string

	// SyncConfig applies the synchronous stream configuration. Must be
	// called exactly once per streaming session, before enabling channels.
	SyncConfig(cfg StreamConfig) error

	// SyncRecv blocks until up to samples physical samples are available or
	// the timeout elapses, filling raw with interleaved fixed-point I/Q
	// words. On error the buffer contents are undefined.
	SyncRecv(raw []int16, samples int, timeout time.Duration) (int, error)

	// EnableChannel enables or disables a receive channel. Idempotent.
	EnableChannel(ch int, enable bool) error

	// SetSampleRate applies the rate in Hz and returns the actual value
	// after hardware rounding.
	SetSampleRate(rate float64) (float64, error)
	SampleRate() (float64, error)

	// SetFrequency tunes the given channel and returns the applied value.
	SetFrequency(ch int, hz float64) (float64, error)
	Frequency(ch int) (float64, error)

	SetBandwidth(ch int, hz float64) (float64, error)
	Bandwidth(ch int) (float64, error)

	// GainStages lists the named gain stages of a channel.
	GainStages(ch int) []string
	SetGain(ch int, db float64) (float64, error)
	SetStageGain(ch int, stage string, db float64) (float64, error)
	Gain(ch int) (float64, error)

	GainModes(ch int) []GainMode
	SetGainMode(ch int, mode GainMode) error
	GetGainMode(ch int) (GainMode, error)

	ClockSources() []string
	SetClockSource(src string) error
	ClockSource() (string, error)

	SetSampling(s Sampling) error
	SetBiasTee(ch int, enable bool) error
	SetLoopback(lb Loopback) error
	SetRxMux(m RxMux) error

	// SetCorrection applies a manual frontend trim value, bounded by the
	// parameter's MaxCorrection magnitude.
	SetCorrection(ch int, corr Correction, value int16) error
	Correction(ch int, corr Correction) (int16, error)

	// FPGAVersion reports the loaded FPGA image version.
	FPGAVersion() (Version, error)

	// ApplyCalibration runs the backend's RFIC init/calibration sequence.
	// Called once by the source after stream configuration.
	ApplyCalibration() error

	Close() error
}
