// Command bladecap captures complex baseband samples from a bladeRF receive
// source into a file, with periodic level and spectrum reports and an
// optional telemetry endpoint. Transfer stalls shut the stream down; bladecap
// recovers with a backed-off stop/start cycle.
package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sdrforge/gobladerf/bladerf"
	"github.com/sdrforge/gobladerf/internal/dsp"
	"github.com/sdrforge/gobladerf/internal/logging"
	"github.com/sdrforge/gobladerf/internal/source"
	"github.com/sdrforge/gobladerf/internal/telemetry"
)

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("parse config: %v", err)
	}

	level, err := logging.ParseLevel(cfg.logLevel)
	if err != nil {
		log.Fatalf("log level: %v", err)
	}
	var logOut io.Writer = os.Stderr
	if cfg.logFile != "" {
		logOut = &lumberjack.Logger{
			Filename:   cfg.logFile,
			MaxSize:    cfg.logMaxSize,
			MaxBackups: cfg.logBackups,
		}
	}
	logger := logging.New(level, cfg.logJSON, logOut)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if cfg.duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.duration)
		defer cancel()
	}

	stats := telemetry.NewStats()
	dev := bladerf.NewSim(bladerf.SimConfig{})
	src, err := source.New(dev, bladerf.ParseArgs(cfg.deviceArgs), logger, stats)
	if err != nil {
		log.Fatalf("open source: %v", err)
	}
	defer src.Close()

	if err := tune(src, cfg, logger); err != nil {
		log.Fatalf("tune: %v", err)
	}

	if cfg.webAddr != "" {
		go telemetry.NewWebServer(cfg.webAddr, stats).Start(ctx)
		logger.Info("telemetry listening", logging.F("addr", cfg.webAddr))
	}

	sink, closeSink, err := openSink(cfg.output)
	if err != nil {
		log.Fatalf("open output: %v", err)
	}
	defer closeSink()

	if err := src.Start(); err != nil {
		log.Fatalf("start stream: %v", err)
	}

	err = capture(ctx, src, stats, cfg, logger, sink)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		log.Fatalf("capture: %v", err)
	}

	if err := src.Stop(); err != nil {
		logger.Warn("stop stream", logging.F("err", err))
	}
	snap := stats.Snapshot()
	logger.Info("capture finished",
		logging.F("samples", snap.SamplesProduced),
		logging.F("transferFailures", snap.TransferFailures),
		logging.F("restarts", snap.Restarts))
}

// tune applies the run parameters to every output port.
func tune(src *source.Source, cfg cliConfig, logger logging.Logger) error {
	rate, err := src.SetSampleRate(cfg.sampleRate)
	if err != nil {
		return err
	}
	logger.Info("sample rate set", logging.F("hz", rate))

	for port := 0; port < src.Channels(); port++ {
		if _, err := src.SetFrequency(port, cfg.frequency); err != nil {
			return err
		}
		if _, err := src.SetBandwidth(port, cfg.bandwidth); err != nil {
			return err
		}
		if err := src.SetAGC(port, cfg.agc); err != nil {
			return err
		}
		if !cfg.agc {
			if _, err := src.SetGain(port, cfg.gain); err != nil {
				return err
			}
		}
	}
	return nil
}

func openSink(path string) (io.Writer, func(), error) {
	if path == "" {
		return io.Discard, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	w := bufio.NewWriterSize(f, 1<<20)
	return w, func() {
		if err := w.Flush(); err != nil {
			log.Printf("flush output: %v", err)
		}
		if err := f.Close(); err != nil {
			log.Printf("close output: %v", err)
		}
	}, nil
}

// capture runs the pull loop: Work fills the per-channel buffers, channel 0
// goes to the sink, and the level of the most recent block is reported on a
// timer. A terminal stream error triggers a backed-off restart.
func capture(ctx context.Context, src *source.Source, stats *telemetry.Stats, cfg cliConfig, logger logging.Logger, sink io.Writer) error {
	outputs := make([][]complex64, src.Channels())
	for i := range outputs {
		outputs[i] = make([]complex64, src.MaxWorkSamples())
	}

	report := time.NewTicker(cfg.report)
	defer report.Stop()
	var lastBlock []complex64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-report.C:
			reportLevel(logger, lastBlock, cfg.spectrumBins)
		default:
		}

		n, err := src.Work(outputs, src.MaxWorkSamples())
		if errors.Is(err, source.ErrDone) {
			logger.Warn("stream shut down, attempting restart")
			if err := restart(ctx, src, stats); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}

		per := n / src.Channels()
		lastBlock = outputs[0][:per]
		if err := binary.Write(sink, binary.LittleEndian, lastBlock); err != nil {
			return err
		}
	}
}

func reportLevel(logger logging.Logger, block []complex64, bins int) {
	if len(block) == 0 {
		return
	}
	lv := dsp.Measure(block)
	fields := []logging.Field{
		logging.F("rmsDB", lv.RMSdB()),
		logging.F("peak", lv.Peak),
		logging.F("dc", lv.DC),
	}
	if len(block) >= bins {
		spectrum := dsp.SpectrumDBFS(block[:bins])
		peakBin, peakDB := 0, spectrum[0]
		for i, v := range spectrum {
			if v > peakDB {
				peakBin, peakDB = i, v
			}
		}
		fields = append(fields,
			logging.F("peakBin", peakBin-bins/2),
			logging.F("peakDBFS", peakDB))
	}
	logger.Info("signal level", fields...)
}

// restart recovers a shut-down stream with exponential backoff. Each cycle is
// a full stop/start so the device is reconfigured from scratch.
func restart(ctx context.Context, src *source.Source, stats *telemetry.Stats) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		if err := src.Stop(); err != nil {
			return err
		}
		stats.Restart()
		return src.Start()
	}, backoff.WithContext(b, ctx))
}
