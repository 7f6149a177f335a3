package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/humorloos/feierabend/internal/instrumentation"
)

const (
	// DefaultMetricsAddr is the default address for the metrics server.
	DefaultMetricsAddr = ":9090"

	// DefaultMetricsTimeout bounds reads and writes on the metrics server.
	DefaultMetricsTimeout = 10 * time.Second

	// DefaultShutdownTimeout is the timeout for graceful server shutdown.
	DefaultShutdownTimeout = 30 * time.Second
)

// MetricsServerConfig holds configuration for the metrics server.
type MetricsServerConfig struct {
	// Addr is the address to bind to (e.g. ":9090").
	Addr string

	// Provider supplies the Prometheus exporter; it must be enabled.
	Provider *instrumentation.Provider
}

// MetricsServer serves Prometheus metrics on a dedicated port, keeping
// operational data off the notification listener.
type MetricsServer struct {
	httpServer *http.Server
	addr       string
}

// NewMetricsServer creates a metrics server exposing /metrics.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	if config.Provider == nil || !config.Provider.Enabled() {
		return nil, fmt.Errorf("metrics server requires enabled instrumentation")
	}
	if config.Addr == "" {
		config.Addr = DefaultMetricsAddr
	}

	// The OpenTelemetry prometheus exporter registers with the global
	// Prometheus registry, which promhttp.Handler() exposes.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &MetricsServer{
		addr: config.Addr,
		httpServer: &http.Server{
			Addr:              config.Addr,
			Handler:           mux,
			ReadHeaderTimeout: DefaultMetricsTimeout,
			WriteTimeout:      DefaultMetricsTimeout,
		},
	}, nil
}

// Addr returns the configured address.
func (s *MetricsServer) Addr() string {
	return s.addr
}

// Start serves until the listener fails or Shutdown is called.
func (s *MetricsServer) Start() error {
	slog.Info("Starting metrics server", slog.String("addr", s.addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithReadySignal binds the listener, closes ready once the port is
// held, and then serves. Callers use the signal to fail fast on a port
// clash instead of discovering it on the first scrape.
func (s *MetricsServer) StartWithReadySignal(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	close(ready)

	slog.Info("Starting metrics server", slog.String("addr", s.addr))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down metrics server")
	return s.httpServer.Shutdown(ctx)
}
