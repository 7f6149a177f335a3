package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/humorloos/feierabend/internal/instrumentation"
	"github.com/humorloos/feierabend/internal/logging"
	"github.com/humorloos/feierabend/internal/syncer"
)

const (
	// DefaultAddr is the default address for the notification server.
	DefaultAddr = ":8080"

	// DefaultReadHeaderTimeout bounds how long reading request headers may take.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds how long one notification may be processed.
	// Calendar push delivery retries on its own, so a slow batch is cut off.
	DefaultWriteTimeout = 60 * time.Second

	// DefaultIdleTimeout is the keep-alive idle timeout.
	DefaultIdleTimeout = 60 * time.Second
)

// channelHeader carries the notification channel ID on calendar pushes.
const channelHeader = "X-Goog-Channel-Id"

// NotificationHandler processes one push notification for a channel.
type NotificationHandler interface {
	Handle(ctx context.Context, channelID string) error
}

// Config holds configuration for the notification server.
type Config struct {
	// Addr is the address to bind to (e.g. ":8080").
	Addr string

	// Handler processes recognized notifications.
	Handler NotificationHandler

	// Health, when set, registers /healthz and /readyz on the server.
	Health *HealthChecker

	// Metrics, when set, records per-request metrics.
	Metrics *instrumentation.Metrics
}

// Server accepts calendar push notifications.
type Server struct {
	httpServer *http.Server
	handler    NotificationHandler
	metrics    *instrumentation.Metrics
	addr       string
}

// New creates a notification server.
func New(config Config) (*Server, error) {
	if config.Handler == nil {
		return nil, fmt.Errorf("notification handler is required")
	}
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}

	s := &Server{
		handler: config.Handler,
		metrics: config.Metrics,
		addr:    config.Addr,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleNotification)
	if config.Health != nil {
		config.Health.RegisterEndpoints(mux)
	}

	s.httpServer = &http.Server{
		Addr:              config.Addr,
		Handler:           s.withRequestLogging(mux),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	return s, nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Start serves until the listener fails or Shutdown is called. Call in a
// goroutine for non-blocking operation.
func (s *Server) Start() error {
	slog.Info("Starting notification server", slog.String("addr", s.addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down notification server")
	return s.httpServer.Shutdown(ctx)
}

// handleNotification is the push endpoint. Pings without the channel
// header and notifications for unknown channels are expected benign
// traffic and acknowledged with an empty 200 so the sender does not retry.
func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		fmt.Fprintln(w, "This endpoint receives calendar push notifications.")
	case http.MethodPost:
		channelID := r.Header.Get(channelHeader)
		if channelID == "" {
			w.WriteHeader(http.StatusOK)
			return
		}

		err := s.handler.Handle(r.Context(), channelID)
		switch {
		case errors.Is(err, syncer.ErrUnknownChannel):
			slog.Debug("Ignoring notification for unknown channel", logging.Channel(channelID))
			w.WriteHeader(http.StatusOK)
		case err != nil:
			slog.Error("Notification handling failed", logging.Channel(channelID), logging.Err(err))
			http.Error(w, "notification handling failed", http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusOK)
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		duration := time.Since(started)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, recorder.status, duration)
		slog.Debug("Handled request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", recorder.status),
			logging.Duration(duration))
	})
}
