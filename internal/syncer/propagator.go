package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/humorloos/feierabend/internal/calendar"
	"github.com/humorloos/feierabend/internal/instrumentation"
	"github.com/humorloos/feierabend/internal/logging"
)

// Propagator copies a changed description to every other instance of the
// same project series.
type Propagator struct {
	cal     CalendarAPI
	cfg     Config
	metrics *instrumentation.Metrics
}

// NewPropagator creates a propagator.
func NewPropagator(cal CalendarAPI, cfg Config, metrics *instrumentation.Metrics) *Propagator {
	return &Propagator{cal: cal, cfg: cfg, metrics: metrics}
}

// Propagate fetches all events matching the trigger's summary (marker
// stripped, free-text query) and rewrites the description of every sibling
// that differs. Siblings already matching are left untouched, so a repeat
// run with no further edits performs zero writes. Returns the sync token
// of the query fetch so the coordinator can carry it forward.
func (p *Propagator) Propagate(ctx context.Context, calendarID string, trigger calendar.Event) (string, error) {
	query := strings.TrimSuffix(trigger.Summary, p.cfg.ProjectSuffix)

	delta, err := p.cal.FetchDelta(ctx, calendarID, calendar.DeltaOptions{Query: query})
	if err != nil {
		return "", fmt.Errorf("failed to fetch project siblings for %q: %w", trigger.Summary, err)
	}

	// Every sibling with the exact summary is rewritten regardless of its
	// status; a non-incremental fetch does not return cancelled events.
	writes := 0
	for _, sibling := range delta.Events {
		if sibling.ID == trigger.ID ||
			sibling.Summary != trigger.Summary ||
			sibling.Description == trigger.Description {
			continue
		}

		sibling.Description = trigger.Description
		if _, err := p.cal.UpdateEvent(ctx, calendarID, sibling.ID, sibling); err != nil {
			return delta.NextSyncToken, fmt.Errorf("failed to propagate description to event %s: %w", sibling.ID, err)
		}
		writes++
	}

	p.metrics.RecordPropagationWrites(ctx, writes)
	slog.Debug("Propagated project description",
		logging.Calendar(calendarID),
		logging.Summary(trigger.Summary),
		slog.Int("writes", writes))

	return delta.NextSyncToken, nil
}
