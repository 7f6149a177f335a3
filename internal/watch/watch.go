package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/humorloos/feierabend/internal/calendar"
	"github.com/humorloos/feierabend/internal/logging"
	"github.com/humorloos/feierabend/internal/store"
)

// DefaultTTL is the notification channel lifetime requested from the API.
// Channels are rotated well before Google's own expiry.
const DefaultTTL = 30 * time.Hour

// CalendarAPI is the slice of the calendar service the rotator consumes.
type CalendarAPI interface {
	ListCalendars(ctx context.Context) ([]calendar.CalendarInfo, error)
	Watch(ctx context.Context, calendarID, channelID, address string, ttl time.Duration) (string, error)
	StopChannel(ctx context.Context, channelID, resourceID string) error
}

// SubscriptionStore is the subscription table the rotator maintains.
type SubscriptionStore interface {
	All(ctx context.Context) ([]store.Subscription, error)
	Put(ctx context.Context, sub store.Subscription) error
	Delete(ctx context.Context, channelID string) error
}

// Rotator replaces the notification channels for all calendars on the
// account with fresh ones pointing at the given address.
type Rotator struct {
	cal     CalendarAPI
	subs    SubscriptionStore
	address string
	ttl     time.Duration
}

// NewRotator creates a rotator targeting the given notification address.
func NewRotator(cal CalendarAPI, subs SubscriptionStore, address string, ttl time.Duration) *Rotator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Rotator{cal: cal, subs: subs, address: address, ttl: ttl}
}

// Rotate stops all stored channels and opens a fresh channel per calendar
// on the account. A channel that cannot be stopped (typically because it
// already expired) is logged and dropped from the store anyway; a failure
// to open a new channel aborts the rotation.
func (r *Rotator) Rotate(ctx context.Context) (int, error) {
	existing, err := r.subs.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list stored subscriptions: %w", err)
	}

	for _, sub := range existing {
		if err := r.cal.StopChannel(ctx, sub.ChannelID, sub.ResourceID); err != nil {
			slog.Warn("Failed to stop channel, dropping it anyway",
				logging.Channel(sub.ChannelID),
				logging.Calendar(sub.CalendarID),
				logging.Err(err))
		}
		if err := r.subs.Delete(ctx, sub.ChannelID); err != nil {
			return 0, fmt.Errorf("failed to remove subscription %s: %w", sub.ChannelID, err)
		}
	}

	calendars, err := r.cal.ListCalendars(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list calendars: %w", err)
	}

	opened := 0
	for _, cal := range calendars {
		channelID := uuid.NewString()

		resourceID, err := r.cal.Watch(ctx, cal.ID, channelID, r.address, r.ttl)
		if err != nil {
			return opened, fmt.Errorf("failed to open channel for calendar %s: %w", cal.ID, err)
		}

		if err := r.subs.Put(ctx, store.Subscription{
			ChannelID:  channelID,
			CalendarID: cal.ID,
			ResourceID: resourceID,
		}); err != nil {
			return opened, fmt.Errorf("failed to store subscription for calendar %s: %w", cal.ID, err)
		}

		slog.Info("Opened notification channel",
			logging.Channel(channelID),
			logging.Calendar(cal.ID),
			slog.Duration("ttl", r.ttl))
		opened++
	}

	return opened, nil
}
