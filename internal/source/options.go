package source

import (
	"fmt"
	"time"

	"github.com/sdrforge/gobladerf/bladerf"
	"github.com/sdrforge/gobladerf/internal/dsp"
	"github.com/sdrforge/gobladerf/internal/logging"
)

// stream configuration defaults, overridable on the device argument string
const (
	defaultNumBuffers   = 512
	defaultBufLen       = 4096
	defaultNumTransfers = 32
	defaultTimeout      = 3 * time.Second
)

// configureStream derives the per-session stream configuration from the
// device arguments: channels, format, buffers, buflen, transfers,
// stream_timeout (ms).
func (s *Source) configureStream(args bladerf.Args) error {
	channels := args.GetInt("channels", 1)
	if channels < 1 {
		channels = 1
	}
	if max := s.dev.MaxChannels(); channels > max {
		s.log.Warn("requested more channels than the device supports, resetting",
			logging.F("requested", channels), logging.F("max", max))
		channels = max
	}
	s.channels = channels

	layout := bladerf.LayoutRxX1
	if channels > 1 {
		layout = bladerf.LayoutRxX2
	}

	var devFormat bladerf.SampleFormat
	switch name := args.Get("format", "packed8"); name {
	case "packed8":
		s.format = dsp.FormatPacked8
		devFormat = bladerf.FormatPacked8
	case "sc16q11":
		s.format = dsp.FormatSC16Q11
		devFormat = bladerf.FormatSC16Q11
	default:
		s.log.Warn("unknown sample format, using packed8", logging.F("format", name))
		s.format = dsp.FormatPacked8
		devFormat = bladerf.FormatPacked8
	}

	// a single conceptual sample spans one slot per channel, and packed
	// words always carry sample pairs
	s.quantum = channels
	if g := s.format.Granularity(); s.quantum%g != 0 {
		s.quantum *= g
	}

	buflen := args.GetInt("buflen", defaultBufLen)
	if rounded := buflen - buflen%s.quantum; rounded != buflen {
		s.log.Warn("rounding samples per buffer down to the output quantum",
			logging.F("requested", buflen), logging.F("applied", rounded))
		buflen = rounded
	}
	if buflen <= 0 {
		return fmt.Errorf("samples per buffer must be at least %d, got %d", s.quantum, buflen)
	}

	timeout := defaultTimeout
	if ms := args.GetInt("stream_timeout", 0); ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}

	s.streamCfg = bladerf.StreamConfig{
		NumBuffers:       args.GetInt("buffers", defaultNumBuffers),
		SamplesPerBuffer: buflen,
		NumTransfers:     args.GetInt("transfers", defaultNumTransfers),
		Timeout:          timeout,
		Format:           devFormat,
		Layout:           layout,
	}
	if err := s.streamCfg.Validate(); err != nil {
		return err
	}
	return nil
}

// applyArgs applies the mode options from the device argument string.
// Unknown enum values and unsupported hardware outcomes warn and fall back;
// other device failures are surfaced.
func (s *Source) applyArgs(args bladerf.Args) error {
	if args.Has("sampling") {
		if sampling, err := bladerf.ParseSampling(args.Get("sampling", "")); err != nil {
			s.log.Warn("invalid sampling mode", logging.F("err", err))
		} else if err := s.dev.SetSampling(sampling); err != nil {
			s.log.Warn("problem while setting sampling mode", logging.F("err", err))
		}
	}

	if args.Has("biastee") {
		enable := bladerf.ParseBiasTee(args.Get("biastee", ""))
		if err := s.dev.SetBiasTee(0, enable); err != nil {
			if !bladerf.IsUnsupported(err) {
				return fmt.Errorf("set bias tee: %w", err)
			}
			s.log.Warn("bias-tee not supported by device")
		}
	}

	lbName := args.Get("loopback", "none")
	lb, err := bladerf.ParseLoopback(lbName)
	if err != nil {
		s.log.Warn("invalid loopback mode, using none", logging.F("err", err))
		lb = bladerf.LoopbackNone
	}
	if err := s.dev.SetLoopback(lb); err != nil {
		if !bladerf.IsUnsupported(err) {
			return fmt.Errorf("set loopback mode: %w", err)
		}
		s.log.Warn("loopback mode not supported by device", logging.F("mode", lb))
	}

	muxName := args.Get("rxmux", "baseband")
	mux, err := bladerf.ParseRxMux(muxName)
	if err != nil {
		s.log.Warn("invalid rx mux mode, using baseband", logging.F("err", err))
		mux = bladerf.RxMuxBaseband
	}
	if err := s.dev.SetRxMux(mux); err != nil {
		if !bladerf.IsUnsupported(err) {
			return fmt.Errorf("set rx mux mode: %w", err)
		}
		s.log.Warn("rx mux mode not supported by device", logging.F("mode", mux))
	}

	if args.Has("agc_mode") {
		s.setAGCModeLocked(args.Get("agc_mode", ""))
	}

	if args.Has("agc") {
		automatic := args.GetBool("agc", false)
		for ch := 0; ch < s.dev.MaxChannels(); ch++ {
			if err := s.setAGCOnChannel(ch, automatic); err != nil {
				s.log.Warn("setting gain mode failed",
					logging.F("channel", ch), logging.F("err", err))
				continue
			}
			mode, _ := s.dev.GetGainMode(ch)
			s.log.Info("gain mode set", logging.F("channel", ch), logging.F("mode", mode))
		}
	}

	return nil
}

// setAGCModeLocked records the preferred AGC profile and refreshes channels
// that already run automatic gain. Unknown names warn and leave the current
// profile in place.
func (s *Source) setAGCModeLocked(name string) {
	mode, err := bladerf.ParseGainMode(name)
	if err != nil {
		s.log.Warn("unknown gain mode", logging.F("mode", name))
		return
	}
	supported := false
	for _, m := range s.dev.GainModes(0) {
		if m == mode {
			supported = true
			break
		}
	}
	if !supported {
		s.log.Warn("gain mode not offered by device", logging.F("mode", mode))
		return
	}

	s.log.Debug("setting gain mode", logging.F("mode", mode))
	s.agcMode = mode

	for ch := 0; ch < s.dev.MaxChannels(); ch++ {
		current, err := s.dev.GetGainMode(ch)
		if err != nil || current == bladerf.GainModeManual {
			continue
		}
		if current != bladerf.GainModeDefault {
			if err := s.dev.SetGainMode(ch, s.agcMode); err != nil {
				s.log.Warn("refreshing gain mode failed",
					logging.F("channel", ch), logging.F("err", err))
			}
		}
	}
}

func (s *Source) setAGCOnChannel(ch int, automatic bool) error {
	mode := bladerf.GainModeManual
	if automatic {
		mode = s.agcMode
		if mode == bladerf.GainModeManual {
			mode = bladerf.GainModeDefault
		}
	}
	return s.dev.SetGainMode(ch, mode)
}
