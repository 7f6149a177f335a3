package calendar

import (
	"fmt"
	"log/slog"
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/humorloos/feierabend/internal/logging"
)

// Event status values as returned by the Calendar API.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusTentative = "tentative"
)

const allDayFormat = "2006-01-02"

// EventTime is either a timed instant or an all-day date.
type EventTime struct {
	DateTime time.Time // zero for all-day events
	Date     string    // "2006-01-02" for all-day events, empty otherwise
}

// IsTimed reports whether the event time carries a concrete instant.
func (t EventTime) IsTimed() bool {
	return !t.DateTime.IsZero()
}

// IsZero reports whether the event time is unset.
func (t EventTime) IsZero() bool {
	return t.DateTime.IsZero() && t.Date == ""
}

// Timed returns an EventTime for a concrete instant.
func Timed(ts time.Time) EventTime {
	return EventTime{DateTime: ts}
}

// AllDay returns an EventTime for an all-day date.
func AllDay(day time.Time) EventTime {
	return EventTime{Date: day.Format(allDayFormat)}
}

// Event is a fixed-shape view of a calendar item. Optional fields
// (Description, Location, ColorID) are empty strings when absent.
type Event struct {
	ID          string
	Summary     string
	Description string
	Location    string
	ColorID     string
	Status      string
	Start       EventTime
	End         EventTime
	Updated     time.Time
}

// Delta is the result of one incremental or query fetch.
type Delta struct {
	Events        []Event
	NextSyncToken string
}

// CalendarInfo identifies one calendar from the user's calendar list.
type CalendarInfo struct {
	ID      string
	Summary string
	Primary bool
}

// TimeRange represents a half-open busy interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// TimeOfDay is a wall-clock time within a day, e.g. the 20:00 cutoff.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// On returns the instant of the time-of-day on the given day, in its location.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

// String formats the time-of-day as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses a HH:MM string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q, expected HH:MM: %w", s, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q, expected HH:MM", s)
	}
	return t, nil
}

// toEventTime converts an API event time to an EventTime.
func toEventTime(edt *calendar.EventDateTime) EventTime {
	if edt == nil {
		return EventTime{}
	}
	if edt.DateTime != "" {
		ts, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			slog.Warn("Dropping unparseable event time",
				slog.String("value", edt.DateTime), logging.Err(err))
			return EventTime{}
		}
		return EventTime{DateTime: ts.Local()}
	}
	return EventTime{Date: edt.Date}
}

// fromEventTime converts an EventTime back to an API event time.
// Returns nil for an unset time so the field is omitted from the body.
func fromEventTime(t EventTime) *calendar.EventDateTime {
	switch {
	case t.IsTimed():
		return &calendar.EventDateTime{DateTime: t.DateTime.Format(time.RFC3339)}
	case t.Date != "":
		return &calendar.EventDateTime{Date: t.Date}
	default:
		return nil
	}
}

// toEvent converts a Google Calendar event to our Event type.
func toEvent(ev *calendar.Event) Event {
	if ev == nil {
		return Event{}
	}

	result := Event{
		ID:          ev.Id,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		ColorID:     ev.ColorId,
		Status:      ev.Status,
		Start:       toEventTime(ev.Start),
		End:         toEventTime(ev.End),
	}

	if ev.Updated != "" {
		if ts, err := time.Parse(time.RFC3339, ev.Updated); err == nil {
			result.Updated = ts
		}
	}

	return result
}

// apiEvent builds a full API event body from our Event type. Calendar
// updates replace the stored resource, so an empty ColorID clears a
// previously set color.
func apiEvent(e Event) *calendar.Event {
	body := &calendar.Event{
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		ColorId:     e.ColorID,
		Start:       fromEventTime(e.Start),
		End:         fromEventTime(e.End),
	}
	if e.Status != "" {
		body.Status = e.Status
	}
	return body
}
