package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/humorloos/feierabend/internal/calendar"
	"github.com/humorloos/feierabend/internal/instrumentation"
	"github.com/humorloos/feierabend/internal/logging"
	"github.com/humorloos/feierabend/internal/store"
)

// ErrUnknownChannel is returned when a notification names a channel that
// has no stored subscription. Callers treat it as a benign no-op; channel
// lifecycle pings arrive on channels that were already rotated away.
var ErrUnknownChannel = errors.New("unknown notification channel")

// Coordinator is the per-notification entry point. It resolves the
// channel, fetches the incremental delta, runs classification and the two
// handlers, and advances the stored sync token.
type Coordinator struct {
	cal        CalendarAPI
	subs       SubscriptionStore
	classifier *Classifier
	propagator *Propagator
	engine     *SplitMoveEngine
	metrics    *instrumentation.Metrics
}

// New wires up a coordinator with the given collaborators and policy.
func New(cal CalendarAPI, subs SubscriptionStore, cfg Config, metrics *instrumentation.Metrics) *Coordinator {
	return &Coordinator{
		cal:        cal,
		subs:       subs,
		classifier: NewClassifier(cfg),
		propagator: NewPropagator(cal, cfg, metrics),
		engine:     NewSplitMoveEngine(cal, subs, cfg, metrics),
		metrics:    metrics,
	}
}

// Handle processes one notification for a channel.
//
// Every trigger in the batch is attempted even when an earlier one fails,
// but the sync token is persisted only when the whole batch succeeded.
// A failed batch keeps the old token so the delta is fetched again on the
// next notification; both handlers are idempotent under that replay.
func (c *Coordinator) Handle(ctx context.Context, channelID string) error {
	started := time.Now()
	err := c.handle(ctx, channelID)

	status := instrumentation.StatusSuccess
	if err != nil && !errors.Is(err, ErrUnknownChannel) {
		status = instrumentation.StatusError
	}
	c.metrics.RecordNotification(ctx, status, time.Since(started))
	slog.Debug("Notification handled",
		logging.Channel(channelID),
		logging.Status(status),
		logging.Duration(time.Since(started)))
	return err
}

func (c *Coordinator) handle(ctx context.Context, channelID string) error {
	sub, err := c.subs.Get(ctx, channelID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUnknownChannel
	}
	if err != nil {
		return fmt.Errorf("failed to look up channel %s: %w", channelID, err)
	}

	delta, err := c.cal.FetchDelta(ctx, sub.CalendarID, calendar.DeltaOptions{SyncToken: sub.SyncToken})
	if err != nil {
		return fmt.Errorf("failed to fetch delta for calendar %s: %w", sub.CalendarID, err)
	}

	// Sub-fetches during propagation and splitting return fresher tokens;
	// the last one observed is the one persisted.
	token := delta.NextSyncToken

	batch := Prepare(delta.Events)
	triggers := c.classifier.Classify(batch)

	slog.Info("Processing notification",
		logging.Channel(channelID),
		logging.Calendar(sub.CalendarID),
		slog.Int("events", len(batch)),
		slog.Int("triggers", len(triggers)))

	var failures []error
	for _, trigger := range triggers {
		if trigger.Propagate {
			tok, err := c.propagator.Propagate(ctx, sub.CalendarID, trigger.Event)
			if tok != "" {
				token = tok
			}
			if err != nil {
				slog.Error("Propagation failed",
					logging.Calendar(sub.CalendarID),
					logging.EventID(trigger.Event.ID),
					logging.Err(err))
				failures = append(failures, err)
			}
		}
		if trigger.Split {
			tok, err := c.engine.SplitOrMove(ctx, sub.CalendarID, trigger.Event)
			if tok != "" {
				token = tok
			}
			if err != nil {
				slog.Error("Split/move failed",
					logging.Calendar(sub.CalendarID),
					logging.EventID(trigger.Event.ID),
					logging.Err(err))
				failures = append(failures, err)
			}
		}
	}

	if len(failures) > 0 {
		// Keep the old token so the delta is re-delivered and replayed.
		return fmt.Errorf("%d of %d triggers failed: %w", len(failures), len(triggers), errors.Join(failures...))
	}

	if token != "" && token != sub.SyncToken {
		if err := c.subs.SetSyncToken(ctx, channelID, token); err != nil {
			return fmt.Errorf("failed to persist sync token for channel %s: %w", channelID, err)
		}
	}

	return nil
}
