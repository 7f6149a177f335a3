package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/humorloos/feierabend/internal/calendar"
	"github.com/humorloos/feierabend/internal/instrumentation"
	"github.com/humorloos/feierabend/internal/logging"
	"github.com/humorloos/feierabend/internal/store"
)

// SplitMoveEngine decides whether a flagged event must be truncated at the
// cutoff, split at the first interrupting event, or moved entirely, and
// places the continuation event for the portion cut away.
type SplitMoveEngine struct {
	cal     CalendarAPI
	subs    SubscriptionStore
	cfg     Config
	metrics *instrumentation.Metrics
}

// NewSplitMoveEngine creates a split/move engine.
func NewSplitMoveEngine(cal CalendarAPI, subs SubscriptionStore, cfg Config, metrics *instrumentation.Metrics) *SplitMoveEngine {
	return &SplitMoveEngine{cal: cal, subs: subs, cfg: cfg, metrics: metrics}
}

// SplitOrMove handles one flagged event. It returns the freshest sync
// token observed during its sub-fetches so the coordinator can carry it
// forward. Not every flagged event is acted on: without an overrun past
// the cutoff and without an interrupting event the call is a no-op.
//
// Delete/update of the original always happens before the continuation is
// created, so a failure can leave at most a truncated original behind,
// never a duplicate.
func (e *SplitMoveEngine) SplitOrMove(ctx context.Context, calendarID string, trigger calendar.Event) (string, error) {
	if !trigger.Start.IsTimed() || !trigger.End.IsTimed() {
		// All-day events have no instant to split at.
		slog.Debug("Skipping all-day flagged event",
			logging.Calendar(calendarID), logging.EventID(trigger.ID))
		return "", nil
	}

	start := trigger.Start.DateTime
	end := trigger.End.DateTime
	cutoff := e.cfg.Feierabend.On(end)

	subs, err := e.subs.All(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list subscriptions: %w", err)
	}
	calendarIDs := subscribedCalendarIDs(subs)

	var lastToken string
	var split time.Time

	if end.After(cutoff) {
		split = cutoff
	} else {
		interrupt, token, err := e.earliestInterrupt(ctx, calendarIDs, trigger)
		if token != "" {
			lastToken = token
		}
		if err != nil {
			return lastToken, err
		}
		if interrupt.IsZero() {
			e.metrics.RecordSplitOutcome(ctx, instrumentation.OutcomeNoop)
			return lastToken, nil
		}
		split = interrupt
	}
	if split.Before(start) {
		split = start
	}

	remainder := end.Sub(split)

	outcome := instrumentation.OutcomeTruncate
	if split.Equal(start) {
		// Nothing of the event survives before the split point: move it.
		outcome = instrumentation.OutcomeMove
		if err := e.cal.DeleteEvent(ctx, calendarID, trigger.ID); err != nil {
			return lastToken, fmt.Errorf("failed to delete event %s before relocation: %w", trigger.ID, err)
		}
	} else {
		truncated := trigger
		truncated.End = calendar.Timed(split)
		// Clearing the flag keeps the truncated part out of the next sync.
		truncated.ColorID = ""
		if _, err := e.cal.UpdateEvent(ctx, calendarID, trigger.ID, truncated); err != nil {
			return lastToken, fmt.Errorf("failed to truncate event %s: %w", trigger.ID, err)
		}
	}

	windowStart, err := e.cal.FindFreeWindow(ctx, calendarIDs, split, remainder, e.cfg.Feierabend)
	if err != nil {
		return lastToken, fmt.Errorf("failed to find free window for continuation of %s: %w", trigger.ID, err)
	}

	continuation := calendar.Event{
		Summary:     trigger.Summary,
		Description: trigger.Description,
		Location:    trigger.Location,
		Start:       calendar.Timed(windowStart),
		End:         calendar.Timed(windowStart.Add(remainder)),
	}
	if _, err := e.cal.CreateEvent(ctx, calendarID, continuation); err != nil {
		return lastToken, fmt.Errorf("failed to create continuation for %s: %w", trigger.ID, err)
	}

	e.metrics.RecordSplitOutcome(ctx, outcome)
	slog.Info("Relocated flagged event remainder",
		logging.Calendar(calendarID),
		logging.EventID(trigger.ID),
		slog.String("outcome", outcome),
		slog.Time("split", split),
		slog.Time("continuation_start", windowStart),
		slog.Duration("remainder", remainder))

	return lastToken, nil
}

// earliestInterrupt scans all subscribed calendars for the earliest timed
// event overlapping the trigger's interval. Returns a zero time when no
// interrupting event exists.
func (e *SplitMoveEngine) earliestInterrupt(ctx context.Context, calendarIDs []string, trigger calendar.Event) (time.Time, string, error) {
	start := trigger.Start.DateTime
	end := trigger.End.DateTime

	var earliest time.Time
	var lastToken string

	for _, calID := range calendarIDs {
		delta, err := e.cal.FetchDelta(ctx, calID, calendar.DeltaOptions{
			TimeMin: start,
			TimeMax: end,
		})
		if err != nil {
			return time.Time{}, lastToken, fmt.Errorf("failed to scan calendar %s for interrupting events: %w", calID, err)
		}
		if delta.NextSyncToken != "" {
			lastToken = delta.NextSyncToken
		}

		for _, ev := range delta.Events {
			if ev.ID == trigger.ID || ev.Status != calendar.StatusConfirmed || !ev.Start.IsTimed() {
				continue
			}
			if !overlaps(ev, start, end) {
				continue
			}
			if earliest.IsZero() || ev.Start.DateTime.Before(earliest) {
				earliest = ev.Start.DateTime
			}
		}
	}

	return earliest, lastToken, nil
}

// overlaps reports whether a timed event intersects the half-open
// interval [start, end).
func overlaps(ev calendar.Event, start, end time.Time) bool {
	if !ev.Start.DateTime.Before(end) {
		return false
	}
	if ev.End.IsTimed() {
		return ev.End.DateTime.After(start)
	}
	return true
}

// subscribedCalendarIDs returns the distinct calendar IDs of all
// subscriptions, in store order.
func subscribedCalendarIDs(subs []store.Subscription) []string {
	seen := make(map[string]bool, len(subs))
	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		if seen[sub.CalendarID] {
			continue
		}
		seen[sub.CalendarID] = true
		ids = append(ids, sub.CalendarID)
	}
	return ids
}
