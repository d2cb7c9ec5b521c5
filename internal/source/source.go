// Package source implements the bladeRF receive source: it owns the device
// handle, drives the synchronous transfer loop, converts and deinterleaves
// samples, and exposes the Start/Stop/Work contract consumed by a
// cooperative block scheduler.
package source

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sdrforge/gobladerf/bladerf"
	"github.com/sdrforge/gobladerf/internal/dsp"
	"github.com/sdrforge/gobladerf/internal/logging"
	"github.com/sdrforge/gobladerf/internal/telemetry"
)

// maxConsecutiveFailures bounds retry storms from a wedged or disconnected
// device: this many failed transfers in a row shut the stream down.
const maxConsecutiveFailures = 3

// ErrDone signals that no further output will be produced. It is the
// terminal stream signal, not a fault: the scheduler stops calling Work, and
// an explicit Stop/Start cycle is required to resume.
var ErrDone = errors.New("stream done")

// minFPGA is the oldest FPGA image whose sample stream carries no markers.
var minFPGA = bladerf.Version{Major: 0, Minor: 0, Patch: 1}

// Source binds a bladeRF receiver to the pull-based block execution model.
// All session state is guarded by one mutex held for the duration of Start,
// Stop, Work, and every configuration setter.
type Source struct {
	mu    sync.Mutex
	dev   bladerf.Device
	log   logging.Logger
	stats *telemetry.Stats

	streamCfg bladerf.StreamConfig
	format    dsp.Format
	channels  int         // logical output ports
	chanmap   map[int]int // physical channel -> output port, -1 disabled
	quantum   int         // produced counts are multiples of this
	agcMode   bladerf.GainMode

	running  bool
	done     bool
	failures int
	raw      []int16     // one call's interleaved fixed-point samples
	conv     []complex64 // same call, normalized
}

// New builds a Source around an exclusively owned device handle. The
// key-value args come from the device argument string; unrecognized keys are
// ignored and malformed mode values warn and fall back to their defaults.
// The device is reconfigured (sampling, bias-tee, loopback, RX mux, AGC)
// according to the args before the first streaming session.
func New(dev bladerf.Device, args bladerf.Args, log logging.Logger, stats *telemetry.Stats) (*Source, error) {
	if dev == nil {
		return nil, fmt.Errorf("source: device handle is required")
	}
	if log == nil {
		log = logging.Discard()
	}
	if stats == nil {
		stats = telemetry.NewStats()
	}

	s := &Source{
		dev:     dev,
		log:     log.With(logging.F("component", "source")),
		stats:   stats,
		chanmap: make(map[int]int),
		agcMode: bladerf.GainModeDefault,
	}

	if err := s.configureStream(args); err != nil {
		return nil, err
	}
	if err := s.applyArgs(args); err != nil {
		return nil, err
	}

	s.checkFPGA()

	// initial wiring of antennas to output ports
	for ch := 0; ch < dev.MaxChannels(); ch++ {
		s.chanmap[ch] = -1
	}
	for ch := 0; ch < s.channels; ch++ {
		s.chanmap[ch] = ch
	}

	s.log.Debug("initialization complete",
		logging.F("channels", s.channels),
		logging.F("format", s.streamCfg.Format))
	return s, nil
}

// Name returns a human-readable identifier for this source.
func (s *Source) Name() string { return "bladeRF receiver" }

// Channels returns the number of logical output ports.
func (s *Source) Channels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channels
}

// OutputQuantum returns the granularity of produced sample counts.
func (s *Source) OutputQuantum() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quantum
}

// MaxWorkSamples returns the per-call cap on produced samples.
func (s *Source) MaxWorkSamples() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamCfg.SamplesPerBuffer
}

// Start configures the synchronous stream, enables the mapped channels, and
// allocates the session's conversion buffers. Valid only when stopped; a
// failure during any step unwinds so that no partial-start state remains.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

func (s *Source) startLocked() error {
	s.log.Debug("starting source")

	if s.running {
		return fmt.Errorf("source already running")
	}

	if err := s.dev.SyncConfig(s.streamCfg); err != nil {
		return fmt.Errorf("apply stream configuration: %w", err)
	}

	var enabled []int
	for ch := 0; ch < s.dev.MaxChannels(); ch++ {
		if s.chanmap[ch] < 0 {
			continue
		}
		if err := s.dev.EnableChannel(ch, true); err != nil {
			s.disableChannels(enabled)
			return fmt.Errorf("enable channel %d: %w", ch, err)
		}
		enabled = append(enabled, ch)
	}

	s.raw = make([]int16, 2*s.streamCfg.SamplesPerBuffer)
	s.conv = make([]complex64, s.streamCfg.SamplesPerBuffer)

	if err := s.dev.ApplyCalibration(); err != nil {
		s.disableChannels(enabled)
		s.raw, s.conv = nil, nil
		return fmt.Errorf("apply calibration: %w", err)
	}

	s.failures = 0
	s.done = false
	s.running = true
	return nil
}

// Stop disables the channels and releases the session buffers. Idempotent:
// stopping an already stopped source succeeds without side effects.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *Source) stopLocked() error {
	s.log.Debug("stopping source")

	if !s.running {
		s.log.Warn("source already stopped, nothing to do")
		return nil
	}
	s.running = false

	var firstErr error
	for ch := 0; ch < s.dev.MaxChannels(); ch++ {
		if s.chanmap[ch] < 0 {
			continue
		}
		if err := s.dev.EnableChannel(ch, false); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("disable channel %d: %w", ch, err)
		}
	}

	s.raw, s.conv = nil, nil
	return firstErr
}

func (s *Source) disableChannels(channels []int) {
	for _, ch := range channels {
		if err := s.dev.EnableChannel(ch, false); err != nil {
			s.log.Warn("disable channel during unwind failed",
				logging.F("channel", ch), logging.F("err", err))
		}
	}
}

// Work pulls one buffer from the device, converts it, and routes it to the
// per-channel output buffers. n is the requested physical sample count; the
// produced count is a multiple of the output quantum and at most
// min(n, samples per buffer), with count/channels samples landing in each
// output. A source that is not running produces zero. A transient transfer
// failure produces zero and keeps the stream alive; once the consecutive
// failure limit is reached, Work returns ErrDone until Stop and Start run
// again.
func (s *Source) Work(outputs [][]complex64, n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return 0, nil
	}
	if s.done {
		return 0, ErrDone
	}
	if len(outputs) != s.channels {
		return 0, fmt.Errorf("work: %d output buffers for %d channels", len(outputs), s.channels)
	}

	if n > s.streamCfg.SamplesPerBuffer {
		n = s.streamCfg.SamplesPerBuffer
	}
	n -= n % s.quantum
	if n <= 0 {
		return 0, nil
	}

	got, err := s.dev.SyncRecv(s.raw, n, s.streamCfg.Timeout)
	if err != nil {
		// buffer contents are undefined now; count and move on
		s.failures++
		s.stats.TransferFailed()
		s.log.Warn("synchronous receive failed",
			logging.F("err", err), logging.F("consecutive", s.failures))

		if s.failures >= maxConsecutiveFailures {
			s.log.Warn("consecutive failure limit reached, shutting down stream")
			s.stats.StreamShutdown()
			s.done = true
			return 0, ErrDone
		}
		return 0, nil
	}
	s.failures = 0
	s.stats.TransferOK()

	got -= got % s.quantum
	if got <= 0 {
		return 0, nil
	}

	conv := s.conv[:got]
	if err := dsp.Convert(s.format, s.raw[:s.format.Words(got)], conv); err != nil {
		return 0, fmt.Errorf("convert samples: %w", err)
	}
	if err := dsp.Route(conv, s.channels, outputs); err != nil {
		return 0, fmt.Errorf("route samples: %w", err)
	}

	s.stats.AddSamples(got)
	return got, nil
}

// Stats returns the stream health hub.
func (s *Source) Stats() *telemetry.Stats { return s.stats }

// Close stops any running session and releases the device handle.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		if err := s.stopLocked(); err != nil {
			s.log.Warn("stop during close failed", logging.F("err", err))
		}
	}
	return s.dev.Close()
}

func (s *Source) checkFPGA() {
	v, err := s.dev.FPGAVersion()
	if err != nil {
		s.log.Warn("failed to get FPGA version", logging.F("err", err))
		return
	}
	if v.Less(minFPGA) {
		s.log.Warn("FPGA image is older than the minimum supported; samples will carry stream markers and be misinterpreted",
			logging.F("fpga", v), logging.F("minimum", minFPGA))
	}
}
