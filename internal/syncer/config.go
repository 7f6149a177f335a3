package syncer

import (
	"context"
	"time"

	"github.com/humorloos/feierabend/internal/calendar"
	"github.com/humorloos/feierabend/internal/store"
)

// CalendarAPI is the slice of the calendar service the syncer consumes.
type CalendarAPI interface {
	FetchDelta(ctx context.Context, calendarID string, opts calendar.DeltaOptions) (*calendar.Delta, error)
	CreateEvent(ctx context.Context, calendarID string, event calendar.Event) (*calendar.Event, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, event calendar.Event) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
	FindFreeWindow(ctx context.Context, calendarIDs []string, earliest time.Time, duration time.Duration, cutoff calendar.TimeOfDay) (time.Time, error)
}

// SubscriptionStore is the subscription lookup the syncer consumes.
type SubscriptionStore interface {
	Get(ctx context.Context, channelID string) (*store.Subscription, error)
	All(ctx context.Context) ([]store.Subscription, error)
	SetSyncToken(ctx context.Context, channelID, token string) error
}

// Config holds the policy knobs of the decision engine.
type Config struct {
	// Feierabend is the daily work-end cutoff. Flagged events must not run
	// past it and continuations are never placed after it.
	Feierabend calendar.TimeOfDay

	// ProjectSuffix is the summary suffix marking project series whose
	// descriptions are kept in sync.
	ProjectSuffix string

	// SplitColorID is the event color marking events eligible for
	// split/move handling.
	SplitColorID string
}

// DefaultConfig returns the stock policy: 20:00 cutoff, "[P]" project
// marker and color 8 (graphite) as the split flag.
func DefaultConfig() Config {
	return Config{
		Feierabend:    calendar.TimeOfDay{Hour: 20},
		ProjectSuffix: "[P]",
		SplitColorID:  "8",
	}
}
