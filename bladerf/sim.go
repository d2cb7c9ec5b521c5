package bladerf

import (
	"math"
	"sync"
	"time"
)

// SimConfig tunes the simulated device. Zero values fall back to a
// two-channel receiver with bias-tee support and a current FPGA image.
type SimConfig struct {
	Channels  int     // physical receive channels (1 or 2)
	ToneHz    float64 // baseband test tone, as emitted in baseband mux mode
	NoBiasTee bool    // report bias-tee as unsupported, like the original bladeRF
	FPGA      Version
}

// Sim is an in-memory Device used for development and tests. It synthesizes
// a complex tone in baseband mux mode and incrementing counter ramps in the
// counter test modes, honoring the configured sample format, and applies
// hardware-style rounding to rate and tuning requests.
type Sim struct {
	mu sync.Mutex

	cfg      SimConfig
	antennas []string

	streamCfg  *StreamConfig
	enabled    map[int]bool
	calibrated bool
	closed     bool

	rate        float64
	freq        map[int]float64
	bandwidth   map[int]float64
	gain        map[int]float64
	gainMode    map[int]GainMode
	clockSrc    string
	sampling    Sampling
	biasTee     map[int]bool
	loopback    Loopback
	rxMux       RxMux
	corrections map[int]map[Correction]int16

	phase   float64
	counter uint32

	failRemaining int
	failCode      Code

	// call traces inspected by contract tests
	syncConfigCalls int
	enableTrace     []int
}

// NewSim builds a simulated device.
func NewSim(cfg SimConfig) *Sim {
	if cfg.Channels <= 0 {
		cfg.Channels = 2
	}
	if cfg.Channels > 2 {
		cfg.Channels = 2
	}
	if cfg.FPGA == (Version{}) {
		cfg.FPGA = Version{Major: 0, Minor: 15, Patch: 0}
	}
	antennas := []string{"RX1", "RX2"}[:cfg.Channels]

	return &Sim{
		cfg:         cfg,
		antennas:    antennas,
		enabled:     make(map[int]bool),
		rate:        2_000_000,
		freq:        make(map[int]float64),
		bandwidth:   make(map[int]float64),
		gain:        make(map[int]float64),
		gainMode:    make(map[int]GainMode),
		clockSrc:    "internal",
		biasTee:     make(map[int]bool),
		corrections: make(map[int]map[Correction]int16),
		failCode:    CodeTimeout,
	}
}

func (s *Sim) Name() string { return "bladeRF simulator" }

func (s *Sim) MaxChannels() int { return s.cfg.Channels }

func (s *Sim) Antennas() []string {
	out := make([]string, len(s.antennas))
	copy(out, s.antennas)
	return out
}

// FailTransfers makes the next n SyncRecv calls fail with code.
func (s *Sim) FailTransfers(n int, code Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRemaining = n
	s.failCode = code
}

// SyncConfigCalls returns how often SyncConfig has been applied.
func (s *Sim) SyncConfigCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncConfigCalls
}

// EnabledChannels returns the channels currently enabled.
func (s *Sim) EnabledChannels() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for ch := 0; ch < s.cfg.Channels; ch++ {
		if s.enabled[ch] {
			out = append(out, ch)
		}
	}
	return out
}

// Calibrated reports whether ApplyCalibration ran since the last SyncConfig.
func (s *Sim) Calibrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calibrated
}

func (s *Sim) SyncConfig(cfg StreamConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Errf("sync config", CodeNoDevice, "device closed")
	}
	if err := cfg.Validate(); err != nil {
		return Errf("sync config", CodeInvalid, "%v", err)
	}
	if cfg.Layout.Channels() > s.cfg.Channels {
		return Errf("sync config", CodeInvalid, "layout needs %d channels, device has %d",
			cfg.Layout.Channels(), s.cfg.Channels)
	}
	c := cfg
	s.streamCfg = &c
	s.calibrated = false
	s.syncConfigCalls++
	return nil
}

func (s *Sim) EnableChannel(ch int, enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch < 0 || ch >= s.cfg.Channels {
		return Errf("enable channel", CodeInvalid, "channel %d out of range", ch)
	}
	// idempotent: re-enabling or re-disabling is a no-op success
	if s.enabled[ch] == enable {
		return nil
	}
	s.enabled[ch] = enable
	s.enableTrace = append(s.enableTrace, ch)
	return nil
}

func (s *Sim) SyncRecv(raw []int16, samples int, timeout time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streamCfg == nil {
		return 0, Errf("sync recv", CodeInvalid, "stream not configured")
	}
	anyEnabled := false
	for _, on := range s.enabled {
		anyEnabled = anyEnabled || on
	}
	if !anyEnabled {
		return 0, Errf("sync recv", CodeInvalid, "no channel enabled")
	}
	if s.failRemaining > 0 {
		s.failRemaining--
		return 0, Errf("sync recv", s.failCode, "injected transfer failure")
	}
	if samples > s.streamCfg.SamplesPerBuffer {
		samples = s.streamCfg.SamplesPerBuffer
	}

	switch s.streamCfg.Format {
	case FormatPacked8:
		if len(raw) < samples {
			return 0, Errf("sync recv", CodeInvalid, "raw buffer too small")
		}
		s.fillPacked8(raw[:samples], samples)
	default:
		if len(raw) < 2*samples {
			return 0, Errf("sync recv", CodeInvalid, "raw buffer too small")
		}
		s.fillSC16(raw[:2*samples], samples)
	}
	return samples, nil
}

// nextComponents produces one fixed-point sample pair at unit scale
// [-1, 1], advancing the generator state.
func (s *Sim) nextComponents() (i, q float64) {
	switch s.rxMux {
	case RxMux12BitCounter:
		c := float64(s.counter&0xFFF)/0xFFF*2 - 1
		s.counter++
		return c, c
	case RxMux32BitCounter:
		c := float64(s.counter)/float64(math.MaxUint32)*2 - 1
		s.counter++
		return c, c
	default:
		step := 2 * math.Pi * s.cfg.ToneHz / s.rate
		i, q = math.Cos(s.phase), math.Sin(s.phase)
		s.phase += step
		if s.phase > 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
		return i, q
	}
}

func (s *Sim) fillPacked8(raw []int16, samples int) {
	// Word pair layout: word k holds I of samples k (low byte) and k+1
	// (high byte), word k+1 holds the matching Q components.
	for k := 0; k+1 < samples; k += 2 {
		i0, q0 := s.nextComponents()
		i1, q1 := s.nextComponents()
		raw[k] = int16(uint8(int8(i0*100))) | int16(uint8(int8(i1*100)))<<8
		raw[k+1] = int16(uint8(int8(q0*100))) | int16(uint8(int8(q1*100)))<<8
	}
}

func (s *Sim) fillSC16(raw []int16, samples int) {
	for k := 0; k < samples; k++ {
		i, q := s.nextComponents()
		raw[2*k] = int16(i * 1800)
		raw[2*k+1] = int16(q * 1800)
	}
}

func (s *Sim) SetSampleRate(rate float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rate < 520_834 || rate > 61_440_000 {
		return s.rate, Errf("set sample rate", CodeInvalid, "rate %.0f Hz out of range", rate)
	}
	s.rate = math.Round(rate)
	return s.rate, nil
}

func (s *Sim) SampleRate() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate, nil
}

func (s *Sim) SetFrequency(ch int, hz float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch < 0 || ch >= s.cfg.Channels {
		return 0, Errf("set frequency", CodeInvalid, "channel %d out of range", ch)
	}
	if hz < 70e6 || hz > 6e9 {
		return s.freq[ch], Errf("set frequency", CodeInvalid, "%.0f Hz out of tuning range", hz)
	}
	s.freq[ch] = math.Round(hz)
	return s.freq[ch], nil
}

func (s *Sim) Frequency(ch int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.freq[ch], nil
}

// discrete LMS filter bandwidths, in Hz
var simBandwidths = []float64{
	1.5e6, 1.75e6, 2.5e6, 2.75e6, 3e6, 3.84e6, 5e6, 5.5e6,
	6e6, 7e6, 8.75e6, 10e6, 12e6, 14e6, 20e6, 28e6,
}

func (s *Sim) SetBandwidth(ch int, hz float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch < 0 || ch >= s.cfg.Channels {
		return 0, Errf("set bandwidth", CodeInvalid, "channel %d out of range", ch)
	}
	// snap up to the nearest supported filter
	applied := simBandwidths[len(simBandwidths)-1]
	for _, bw := range simBandwidths {
		if hz <= bw {
			applied = bw
			break
		}
	}
	s.bandwidth[ch] = applied
	return applied, nil
}

func (s *Sim) Bandwidth(ch int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bandwidth[ch], nil
}

func (s *Sim) GainStages(ch int) []string { return []string{"full", "frontend"} }

func (s *Sim) SetGain(ch int, db float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch < 0 || ch >= s.cfg.Channels {
		return 0, Errf("set gain", CodeInvalid, "channel %d out of range", ch)
	}
	s.gain[ch] = math.Round(db)
	return s.gain[ch], nil
}

func (s *Sim) SetStageGain(ch int, stage string, db float64) (float64, error) {
	switch stage {
	case "full", "frontend":
		return s.SetGain(ch, db)
	default:
		return 0, Errf("set gain", CodeInvalid, "unknown gain stage %q", stage)
	}
}

func (s *Sim) Gain(ch int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gain[ch], nil
}

func (s *Sim) GainModes(ch int) []GainMode {
	return []GainMode{GainModeDefault, GainModeManual, GainModeFastAttack, GainModeSlowAttack, GainModeHybrid}
}

func (s *Sim) SetGainMode(ch int, mode GainMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch < 0 || ch >= s.cfg.Channels {
		return Errf("set gain mode", CodeInvalid, "channel %d out of range", ch)
	}
	s.gainMode[ch] = mode
	return nil
}

func (s *Sim) GetGainMode(ch int) (GainMode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gainMode[ch], nil
}

func (s *Sim) ClockSources() []string { return []string{"internal", "external"} }

func (s *Sim) SetClockSource(src string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch src {
	case "internal", "external":
		s.clockSrc = src
		return nil
	default:
		return Errf("set clock source", CodeInvalid, "unknown clock source %q", src)
	}
}

func (s *Sim) ClockSource() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clockSrc, nil
}

func (s *Sim) SetSampling(sampling Sampling) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sampling = sampling
	return nil
}

func (s *Sim) SetBiasTee(ch int, enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.NoBiasTee {
		return Errf("set bias tee", CodeUnsupported, "no bias tee on this hardware")
	}
	if ch < 0 || ch >= s.cfg.Channels {
		return Errf("set bias tee", CodeInvalid, "channel %d out of range", ch)
	}
	s.biasTee[ch] = enable
	return nil
}

func (s *Sim) SetLoopback(lb Loopback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loopback = lb
	return nil
}

func (s *Sim) SetRxMux(m RxMux) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rxMux = m
	s.counter = 0
	return nil
}

func (s *Sim) SetCorrection(ch int, corr Correction, value int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch < 0 || ch >= s.cfg.Channels {
		return Errf("set correction", CodeInvalid, "channel %d out of range", ch)
	}
	if max := corr.MaxCorrection(); value < -max || value > max {
		return Errf("set correction", CodeInvalid, "%s trim %d outside [%d, %d]", corr, value, -max, max)
	}
	if s.corrections[ch] == nil {
		s.corrections[ch] = make(map[Correction]int16)
	}
	s.corrections[ch][corr] = value
	return nil
}

func (s *Sim) Correction(ch int, corr Correction) (int16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch < 0 || ch >= s.cfg.Channels {
		return 0, Errf("get correction", CodeInvalid, "channel %d out of range", ch)
	}
	return s.corrections[ch][corr], nil
}

func (s *Sim) FPGAVersion() (Version, error) {
	return s.cfg.FPGA, nil
}

func (s *Sim) ApplyCalibration() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamCfg == nil {
		return Errf("apply calibration", CodeInvalid, "stream not configured")
	}
	s.calibrated = true
	return nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.streamCfg = nil
	return nil
}
