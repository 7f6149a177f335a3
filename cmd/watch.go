package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/humorloos/feierabend/internal/calendar"
	"github.com/humorloos/feierabend/internal/logging"
	"github.com/humorloos/feierabend/internal/store"
	"github.com/humorloos/feierabend/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var (
		debug   bool
		address string
		dbPath  string
		account string
		ttl     = watch.DefaultTTL
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rotate the push notification channels",
		Long: `Stop all stored notification channels and open a fresh channel for every
calendar on the account, pointing at the given HTTPS address.

Google expires notification channels, so run this periodically (e.g. from a
daily cron job) to keep notifications flowing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("db") {
				if path := os.Getenv("FEIERABEND_DB"); path != "" {
					dbPath = path
				}
			}
			if !cmd.Flags().Changed("account") {
				if a := os.Getenv("FEIERABEND_ACCOUNT"); a != "" {
					account = a
				}
			}
			return runWatch(debug, address, dbPath, account, ttl)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&address, "address", "", "HTTPS address notifications are delivered to (required)")
	cmd.Flags().StringVar(&dbPath, "db", "data/feierabend.db", "Path to the subscription database. Can also use FEIERABEND_DB env var.")
	cmd.Flags().StringVar(&account, "account", "default", "Name of the stored OAuth token to use. Can also use FEIERABEND_ACCOUNT env var.")
	cmd.Flags().DurationVar(&ttl, "ttl", watch.DefaultTTL, "Requested channel lifetime")
	_ = cmd.MarkFlagRequired("address")

	return cmd
}

func runWatch(debug bool, address, dbPath, account string, ttl time.Duration) error {
	logging.Setup(debug)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	subs, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open subscription store: %w", err)
	}
	defer subs.Close()

	cal, err := calendar.NewServiceForAccount(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to create calendar service: %w", err)
	}

	opened, err := watch.NewRotator(cal, subs, address, ttl).Rotate(ctx)
	if err != nil {
		return fmt.Errorf("channel rotation failed: %w", err)
	}

	fmt.Printf("Opened %d notification channel(s) pointing at %s\n", opened, address)
	return nil
}
