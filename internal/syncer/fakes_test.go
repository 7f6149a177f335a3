package syncer

import (
	"context"
	"time"

	"github.com/humorloos/feierabend/internal/calendar"
	"github.com/humorloos/feierabend/internal/store"
)

type createdEvent struct {
	calendarID string
	event      calendar.Event
}

type updatedEvent struct {
	calendarID string
	eventID    string
	event      calendar.Event
}

type windowQuery struct {
	calendarIDs []string
	earliest    time.Time
	duration    time.Duration
}

// fakeCalendar records every write and serves fetches through a
// test-provided function.
type fakeCalendar struct {
	fetch func(calendarID string, opts calendar.DeltaOptions) (*calendar.Delta, error)

	window    time.Time
	windowErr error

	createErr error
	updateErr error
	deleteErr error

	created       []createdEvent
	updated       []updatedEvent
	deleted       []string
	windowQueries []windowQuery
}

func (f *fakeCalendar) FetchDelta(_ context.Context, calendarID string, opts calendar.DeltaOptions) (*calendar.Delta, error) {
	if f.fetch == nil {
		return &calendar.Delta{}, nil
	}
	return f.fetch(calendarID, opts)
}

func (f *fakeCalendar) CreateEvent(_ context.Context, calendarID string, event calendar.Event) (*calendar.Event, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, createdEvent{calendarID: calendarID, event: event})
	created := event
	created.ID = "created"
	return &created, nil
}

func (f *fakeCalendar) UpdateEvent(_ context.Context, calendarID, eventID string, event calendar.Event) (*calendar.Event, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updated = append(f.updated, updatedEvent{calendarID: calendarID, eventID: eventID, event: event})
	return &event, nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, _, eventID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, eventID)
	return nil
}

func (f *fakeCalendar) FindFreeWindow(_ context.Context, calendarIDs []string, earliest time.Time, duration time.Duration, _ calendar.TimeOfDay) (time.Time, error) {
	f.windowQueries = append(f.windowQueries, windowQuery{calendarIDs: calendarIDs, earliest: earliest, duration: duration})
	if f.windowErr != nil {
		return time.Time{}, f.windowErr
	}
	if f.window.IsZero() {
		return earliest, nil
	}
	return f.window, nil
}

// fakeStore is an in-memory subscription table.
type fakeStore struct {
	subs      []store.Subscription
	setTokens map[string]string
	setErr    error
}

func newFakeStore(subs ...store.Subscription) *fakeStore {
	return &fakeStore{subs: subs, setTokens: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, channelID string) (*store.Subscription, error) {
	for _, sub := range f.subs {
		if sub.ChannelID == channelID {
			copied := sub
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) All(_ context.Context) ([]store.Subscription, error) {
	return f.subs, nil
}

func (f *fakeStore) SetSyncToken(_ context.Context, channelID, token string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.setTokens[channelID] = token
	for i := range f.subs {
		if f.subs[i].ChannelID == channelID {
			f.subs[i].SyncToken = token
		}
	}
	return nil
}
