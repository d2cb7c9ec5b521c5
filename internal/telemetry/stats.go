// Package telemetry tracks stream health counters for the receive source
// and exposes them over HTTP as a JSON snapshot and Prometheus metrics.
package telemetry

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stats accumulates stream health counters. All methods are safe for
// concurrent use; the receive path calls them from inside its work loop.
type Stats struct {
	samples   atomic.Uint64
	ok        atomic.Uint64
	failed    atomic.Uint64
	shutdowns atomic.Uint64
	restarts  atomic.Uint64

	reg              *prometheus.Registry
	samplesCtr       prometheus.Counter
	transfersOKCtr   prometheus.Counter
	transfersFailCtr prometheus.Counter
	shutdownsCtr     prometheus.Counter
	restartsCtr      prometheus.Counter
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	SamplesProduced  uint64 `json:"samplesProduced"`
	TransfersOK      uint64 `json:"transfersOk"`
	TransferFailures uint64 `json:"transferFailures"`
	StreamShutdowns  uint64 `json:"streamShutdowns"`
	Restarts         uint64 `json:"restarts"`
}

// NewStats builds a Stats hub with its own Prometheus registry, so multiple
// instances can coexist in one process.
func NewStats() *Stats {
	s := &Stats{reg: prometheus.NewRegistry()}
	s.samplesCtr = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bladerf_samples_produced_total",
		Help: "Complex samples delivered downstream.",
	})
	s.transfersOKCtr = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bladerf_transfers_ok_total",
		Help: "Successful synchronous transfers.",
	})
	s.transfersFailCtr = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bladerf_transfer_failures_total",
		Help: "Failed synchronous transfers.",
	})
	s.shutdownsCtr = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bladerf_stream_shutdowns_total",
		Help: "Streams terminated by the consecutive-failure limit.",
	})
	s.restartsCtr = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bladerf_stream_restarts_total",
		Help: "Stop/start cycles issued to recover a stream.",
	})
	s.reg.MustRegister(s.samplesCtr, s.transfersOKCtr, s.transfersFailCtr, s.shutdownsCtr, s.restartsCtr)
	return s
}

// AddSamples records n samples delivered downstream.
func (s *Stats) AddSamples(n int) {
	if n <= 0 {
		return
	}
	s.samples.Add(uint64(n))
	s.samplesCtr.Add(float64(n))
}

// TransferOK records a successful synchronous transfer.
func (s *Stats) TransferOK() {
	s.ok.Add(1)
	s.transfersOKCtr.Inc()
}

// TransferFailed records a failed synchronous transfer.
func (s *Stats) TransferFailed() {
	s.failed.Add(1)
	s.transfersFailCtr.Inc()
}

// StreamShutdown records a stream terminated by the failure limit.
func (s *Stats) StreamShutdown() {
	s.shutdowns.Add(1)
	s.shutdownsCtr.Inc()
}

// Restart records a recovery stop/start cycle.
func (s *Stats) Restart() {
	s.restarts.Add(1)
	s.restartsCtr.Inc()
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		SamplesProduced:  s.samples.Load(),
		TransfersOK:      s.ok.Load(),
		TransferFailures: s.failed.Load(),
		StreamShutdowns:  s.shutdowns.Load(),
		Restarts:         s.restarts.Load(),
	}
}

// MetricsHandler serves this hub's registry in Prometheus exposition format.
func (s *Stats) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})
}
