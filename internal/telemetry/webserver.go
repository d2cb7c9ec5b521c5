package telemetry

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// WebServer exposes stream health over HTTP.
type WebServer struct {
	srv   *http.Server
	stats *Stats
}

// NewWebServer builds an HTTP server serving the JSON snapshot and the
// Prometheus metrics endpoint.
func NewWebServer(addr string, stats *Stats) *WebServer {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats.Snapshot()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	mux.Handle("/metrics", stats.MetricsHandler())

	return &WebServer{
		stats: stats,
		srv:   &http.Server{Addr: addr, Handler: mux},
	}
}

// Start begins listening and shuts down when the context is canceled.
func (w *WebServer) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := w.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	if err := w.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("telemetry server error: %v", err)
	}
}
