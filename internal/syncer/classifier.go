package syncer

import (
	"sort"
	"strings"

	"github.com/humorloos/feierabend/internal/calendar"
)

// Trigger is one event from a batch together with the handling it requires.
// Both flags can be set at once; a project event can also carry the split
// color.
type Trigger struct {
	Event     calendar.Event
	Propagate bool
	Split     bool
}

// Classifier partitions a prepared batch into triggers.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a classifier for the given policy.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Prepare filters a raw delta down to confirmed events and orders them by
// descending update time, so the most recent edit of an event wins when a
// batch contains several versions of it.
func Prepare(events []calendar.Event) []calendar.Event {
	batch := make([]calendar.Event, 0, len(events))
	for _, ev := range events {
		if ev.Status == calendar.StatusConfirmed {
			batch = append(batch, ev)
		}
	}

	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Updated.After(batch[j].Updated)
	})
	return batch
}

// Classify walks the prepared batch and returns the events that need
// handling. Within one batch at most one propagation is triggered per
// distinct summary; later events of the same series are skipped so a burst
// of edits does not cause redundant propagation passes.
func (c *Classifier) Classify(batch []calendar.Event) []Trigger {
	handledSummaries := make(map[string]bool)

	var triggers []Trigger
	for _, ev := range batch {
		trigger := Trigger{Event: ev}

		if c.isProjectEvent(ev) && !handledSummaries[ev.Summary] {
			handledSummaries[ev.Summary] = true
			trigger.Propagate = true
		}
		if ev.ColorID == c.cfg.SplitColorID {
			trigger.Split = true
		}

		if trigger.Propagate || trigger.Split {
			triggers = append(triggers, trigger)
		}
	}
	return triggers
}

func (c *Classifier) isProjectEvent(ev calendar.Event) bool {
	return len(ev.Summary) > len(c.cfg.ProjectSuffix) &&
		strings.HasSuffix(ev.Summary, c.cfg.ProjectSuffix)
}
