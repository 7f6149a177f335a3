package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/humorloos/feierabend/internal/calendar"
	"github.com/humorloos/feierabend/internal/instrumentation"
	"github.com/humorloos/feierabend/internal/logging"
	"github.com/humorloos/feierabend/internal/server"
	"github.com/humorloos/feierabend/internal/store"
	"github.com/humorloos/feierabend/internal/syncer"
)

// ServeConfig holds the configuration for the serve command.
type ServeConfig struct {
	Debug    bool
	HTTPAddr string
	DBPath   string
	Account  string

	// Policy knobs
	Feierabend    string
	DayStart      string
	ProjectSuffix string
	SplitColorID  string

	// Metrics server configuration
	MetricsEnabled bool
	MetricsAddr    string
}

func newServeCmd() *cobra.Command {
	var config ServeConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the calendar notification server",
		Long: `Run the HTTP server that receives Google Calendar push notifications
and applies the consistency policies to the watched calendars.

The server needs a stored OAuth token for the account (see "feierabend auth")
and active notification channels (see "feierabend watch").`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loadServeEnvVars(cmd, &config)
			return runServe(config)
		},
	}

	cmd.Flags().BoolVar(&config.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&config.HTTPAddr, "http-addr", server.DefaultAddr, "Notification server address. Can also use HTTP_ADDR env var.")
	cmd.Flags().StringVar(&config.DBPath, "db", "data/feierabend.db", "Path to the subscription database. Can also use FEIERABEND_DB env var.")
	cmd.Flags().StringVar(&config.Account, "account", "default", "Name of the stored OAuth token to use. Can also use FEIERABEND_ACCOUNT env var.")
	cmd.Flags().StringVar(&config.Feierabend, "feierabend", "20:00", "Daily work-end cutoff (HH:MM)")
	cmd.Flags().StringVar(&config.DayStart, "day-start", "09:00", "Earliest time of day for placing rescheduled events (HH:MM)")
	cmd.Flags().StringVar(&config.ProjectSuffix, "project-suffix", "[P]", "Summary suffix marking project series")
	cmd.Flags().StringVar(&config.SplitColorID, "split-color-id", "8", "Event color ID marking split-eligible events")
	cmd.Flags().BoolVar(&config.MetricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&config.MetricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadServeEnvVars fills in configuration from environment variables for
// flags the user did not set explicitly.
func loadServeEnvVars(cmd *cobra.Command, config *ServeConfig) {
	if !cmd.Flags().Changed("http-addr") {
		if addr := os.Getenv("HTTP_ADDR"); addr != "" {
			config.HTTPAddr = addr
		}
	}
	if !cmd.Flags().Changed("db") {
		if path := os.Getenv("FEIERABEND_DB"); path != "" {
			config.DBPath = path
		}
	}
	if !cmd.Flags().Changed("account") {
		if account := os.Getenv("FEIERABEND_ACCOUNT"); account != "" {
			config.Account = account
		}
	}
	if !cmd.Flags().Changed("metrics-enabled") {
		if os.Getenv("METRICS_ENABLED") == "false" {
			config.MetricsEnabled = false
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			config.MetricsAddr = addr
		}
	}
}

func runServe(config ServeConfig) error {
	logging.Setup(config.Debug)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	feierabend, err := calendar.ParseTimeOfDay(config.Feierabend)
	if err != nil {
		return fmt.Errorf("invalid --feierabend: %w", err)
	}
	dayStart, err := calendar.ParseTimeOfDay(config.DayStart)
	if err != nil {
		return fmt.Errorf("invalid --day-start: %w", err)
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			slog.Error("Instrumentation shutdown failed", logging.Err(err))
		}
	}()

	var metricsServer *server.MetricsServer
	if config.MetricsEnabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:     config.MetricsAddr,
			Provider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			metricsErr <- metricsServer.StartWithReadySignal(metricsReady)
		}()

		select {
		case <-metricsReady:
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}
	}

	subs, err := store.Open(config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open subscription store: %w", err)
	}
	defer subs.Close()

	cal, err := calendar.NewServiceForAccount(ctx, config.Account,
		calendar.WithDayStart(dayStart),
		calendar.WithMetrics(provider.Metrics()))
	if err != nil {
		return fmt.Errorf("failed to create calendar service: %w", err)
	}

	coordinator := syncer.New(cal, subs, syncer.Config{
		Feierabend:    feierabend,
		ProjectSuffix: config.ProjectSuffix,
		SplitColorID:  config.SplitColorID,
	}, provider.Metrics())

	health := server.NewHealthChecker()
	srv, err := server.New(server.Config{
		Addr:    config.HTTPAddr,
		Handler: coordinator,
		Health:  health,
		Metrics: provider.Metrics(),
	})
	if err != nil {
		return fmt.Errorf("failed to create notification server: %w", err)
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()
	health.SetReady(true)

	slog.Info("Server ready",
		slog.String("addr", config.HTTPAddr),
		slog.String("cutoff", feierabend.String()),
		slog.String("day_start", dayStart.String()))

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("notification server stopped: %w", err)
		}
		return nil
	}

	health.SetShuttingDown()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down notification server: %w", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Metrics server shutdown failed", logging.Err(err))
		}
	}

	return nil
}
