package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// fileConfig is the YAML capture profile. Flags override whatever the file
// provides, so a profile can hold the stable station setup while frequency
// and gain vary per run.
type fileConfig struct {
	DeviceArgs string  `yaml:"device_args"`
	SampleRate float64 `yaml:"sample_rate"`
	Frequency  float64 `yaml:"frequency"`
	Bandwidth  float64 `yaml:"bandwidth"`
	Gain       float64 `yaml:"gain"`
	AGC        bool    `yaml:"agc"`

	Output        string `yaml:"output"`
	DurationSec   int    `yaml:"duration_sec"`
	ReportSec     int    `yaml:"report_sec"`
	SpectrumBins  int    `yaml:"spectrum_bins"`
	WebAddr       string `yaml:"web_addr"`
	LogLevel      string `yaml:"log_level"`
	LogJSON       bool   `yaml:"log_json"`
	LogFile       string `yaml:"log_file"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`
}

type cliConfig struct {
	deviceArgs string
	sampleRate float64
	frequency  float64
	bandwidth  float64
	gain       float64
	agc        bool

	output       string
	duration     time.Duration
	report       time.Duration
	spectrumBins int
	webAddr      string
	logLevel     string
	logJSON      bool
	logFile      string
	logMaxSize   int
	logBackups   int
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		DeviceArgs:    "channels=1,buflen=4096",
		SampleRate:    2_000_000,
		Frequency:     100_000_000,
		Bandwidth:     1_500_000,
		Gain:          30,
		ReportSec:     5,
		SpectrumBins:  1024,
		LogLevel:      "info",
		LogMaxSizeMB:  20,
		LogMaxBackups: 3,
	}
}

func loadFileConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// configPathFromArgs resolves -config ahead of flag parsing so the profile
// can supply the defaults for every other flag.
func configPathFromArgs(args []string) string {
	path := "bladecap.yaml"
	for i := 0; i < len(args); i++ {
		name := strings.TrimPrefix(strings.TrimPrefix(args[i], "-"), "-")
		if name == args[i] {
			continue
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			path = v
			continue
		}
		if name == "config" && i+1 < len(args) {
			path = args[i+1]
			i++
		}
	}
	return path
}

func parseConfig(args []string) (cliConfig, error) {
	file, err := loadFileConfig(configPathFromArgs(args))
	if err != nil {
		return cliConfig{}, err
	}

	fs := flag.NewFlagSet("bladecap", flag.ContinueOnError)
	fs.String("config", "bladecap.yaml", "YAML capture profile")
	var cfg cliConfig
	fs.StringVar(&cfg.deviceArgs, "args", file.DeviceArgs, "device argument string (key=value,...)")
	fs.Float64Var(&cfg.sampleRate, "rate", file.SampleRate, "sample rate in Hz")
	fs.Float64Var(&cfg.frequency, "freq", file.Frequency, "center frequency in Hz")
	fs.Float64Var(&cfg.bandwidth, "bw", file.Bandwidth, "filter bandwidth in Hz")
	fs.Float64Var(&cfg.gain, "gain", file.Gain, "overall gain in dB")
	fs.BoolVar(&cfg.agc, "agc", file.AGC, "automatic gain control")
	fs.StringVar(&cfg.output, "out", file.Output, "output file for complex64 samples, empty discards")
	duration := fs.Int("duration", file.DurationSec, "capture length in seconds, 0 runs until interrupted")
	report := fs.Int("report", file.ReportSec, "seconds between level reports")
	fs.IntVar(&cfg.spectrumBins, "bins", file.SpectrumBins, "FFT size for the spectrum report")
	fs.StringVar(&cfg.webAddr, "web", file.WebAddr, "telemetry listen address, empty disables")
	fs.StringVar(&cfg.logLevel, "loglevel", file.LogLevel, "debug, info, warn or error")
	fs.BoolVar(&cfg.logJSON, "logjson", file.LogJSON, "log as JSON lines")
	fs.StringVar(&cfg.logFile, "logfile", file.LogFile, "log file with rotation, empty logs to stderr")
	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}

	cfg.duration = time.Duration(*duration) * time.Second
	cfg.report = time.Duration(*report) * time.Second
	cfg.logMaxSize = file.LogMaxSizeMB
	cfg.logBackups = file.LogMaxBackups

	if cfg.sampleRate <= 0 {
		return cliConfig{}, fmt.Errorf("sample rate must be positive")
	}
	if cfg.spectrumBins <= 0 {
		cfg.spectrumBins = 1024
	}
	if cfg.report <= 0 {
		cfg.report = 5 * time.Second
	}
	return cfg, nil
}
