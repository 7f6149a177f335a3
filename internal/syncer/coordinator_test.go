package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humorloos/feierabend/internal/calendar"
	"github.com/humorloos/feierabend/internal/store"
)

func TestHandle_UnknownChannel(t *testing.T) {
	c := New(&fakeCalendar{}, newFakeStore(), DefaultConfig(), nil)

	err := c.Handle(context.Background(), "stale-channel")

	assert.ErrorIs(t, err, ErrUnknownChannel)
}

func TestHandle_EmptyDeltaAdvancesToken(t *testing.T) {
	subs := newFakeStore(store.Subscription{
		ChannelID:  "chan-1",
		CalendarID: "work@example.com",
		SyncToken:  "tok-old",
	})
	cal := &fakeCalendar{fetch: func(_ string, opts calendar.DeltaOptions) (*calendar.Delta, error) {
		assert.Equal(t, "tok-old", opts.SyncToken)
		return &calendar.Delta{NextSyncToken: "tok-new"}, nil
	}}
	c := New(cal, subs, DefaultConfig(), nil)

	require.NoError(t, c.Handle(context.Background(), "chan-1"))

	assert.Equal(t, "tok-new", subs.setTokens["chan-1"],
		"the fresh token is persisted even for an empty delta")
}

func TestHandle_UnchangedTokenIsNotRewritten(t *testing.T) {
	subs := newFakeStore(store.Subscription{
		ChannelID:  "chan-1",
		CalendarID: "work@example.com",
		SyncToken:  "tok-same",
	})
	cal := &fakeCalendar{fetch: func(_ string, _ calendar.DeltaOptions) (*calendar.Delta, error) {
		return &calendar.Delta{NextSyncToken: "tok-same"}, nil
	}}
	c := New(cal, subs, DefaultConfig(), nil)

	require.NoError(t, c.Handle(context.Background(), "chan-1"))

	assert.Empty(t, subs.setTokens)
}

func TestHandle_SubFetchTokenWins(t *testing.T) {
	trigger := calendar.Event{
		ID:          "e1",
		Summary:     "Thesis[P]",
		Description: "new text",
		Status:      calendar.StatusConfirmed,
		Updated:     time.Now(),
	}

	subs := newFakeStore(store.Subscription{ChannelID: "chan-1", CalendarID: "work@example.com"})
	cal := &fakeCalendar{fetch: func(_ string, opts calendar.DeltaOptions) (*calendar.Delta, error) {
		if opts.Query != "" {
			// The propagation query fetch yields a fresher token.
			return &calendar.Delta{NextSyncToken: "tok-fresh"}, nil
		}
		return &calendar.Delta{Events: []calendar.Event{trigger}, NextSyncToken: "tok-initial"}, nil
	}}
	c := New(cal, subs, DefaultConfig(), nil)

	require.NoError(t, c.Handle(context.Background(), "chan-1"))

	assert.Equal(t, "tok-fresh", subs.setTokens["chan-1"], "last observed token wins")
}

func TestHandle_FailedTriggerKeepsOldToken(t *testing.T) {
	trigger := calendar.Event{
		ID:          "e1",
		Summary:     "Thesis[P]",
		Description: "new text",
		Status:      calendar.StatusConfirmed,
		Updated:     time.Now(),
	}
	sibling := calendar.Event{
		ID:          "s1",
		Summary:     "Thesis[P]",
		Description: "old text",
		Status:      calendar.StatusConfirmed,
	}

	subs := newFakeStore(store.Subscription{
		ChannelID:  "chan-1",
		CalendarID: "work@example.com",
		SyncToken:  "tok-old",
	})
	cal := &fakeCalendar{
		fetch: func(_ string, opts calendar.DeltaOptions) (*calendar.Delta, error) {
			if opts.Query != "" {
				return &calendar.Delta{Events: []calendar.Event{sibling}}, nil
			}
			return &calendar.Delta{Events: []calendar.Event{trigger}, NextSyncToken: "tok-new"}, nil
		},
		updateErr: errors.New("backend unavailable"),
	}
	c := New(cal, subs, DefaultConfig(), nil)

	err := c.Handle(context.Background(), "chan-1")

	assert.Error(t, err)
	assert.Empty(t, subs.setTokens, "failed batches must not advance the stored token")
}

func TestHandle_ProcessesRemainingTriggersAfterFailure(t *testing.T) {
	now := time.Now()
	failing := calendar.Event{ID: "e1", Summary: "Thesis[P]", Description: "v2", Status: calendar.StatusConfirmed, Updated: now}
	flagged := calendar.Event{
		ID:      "e2",
		Summary: "Focus block",
		ColorID: "8",
		Status:  calendar.StatusConfirmed,
		Updated: now.Add(-time.Minute),
		Start:   calendar.Timed(clock(9, 0)),
		End:     calendar.Timed(clock(21, 0)),
	}

	subs := newFakeStore(store.Subscription{ChannelID: "chan-1", CalendarID: "work@example.com"})
	queryErr := errors.New("query exploded")
	cal := &fakeCalendar{
		window: clock(20, 0),
		fetch: func(_ string, opts calendar.DeltaOptions) (*calendar.Delta, error) {
			if opts.Query != "" {
				return nil, queryErr
			}
			return &calendar.Delta{Events: []calendar.Event{failing, flagged}}, nil
		},
	}
	c := New(cal, subs, DefaultConfig(), nil)

	err := c.Handle(context.Background(), "chan-1")

	assert.ErrorIs(t, err, queryErr)
	assert.Len(t, cal.created, 1, "the flagged event is still split despite the earlier failure")
	assert.Empty(t, subs.setTokens)
}

func TestHandle_IgnoresCancelledEvents(t *testing.T) {
	cancelled := calendar.Event{
		ID:      "e1",
		Summary: "Thesis[P]",
		Status:  calendar.StatusCancelled,
		Updated: time.Now(),
	}

	subs := newFakeStore(store.Subscription{ChannelID: "chan-1", CalendarID: "work@example.com"})
	var queries int
	cal := &fakeCalendar{fetch: func(_ string, opts calendar.DeltaOptions) (*calendar.Delta, error) {
		if opts.Query != "" {
			queries++
			return &calendar.Delta{}, nil
		}
		return &calendar.Delta{Events: []calendar.Event{cancelled}, NextSyncToken: "tok"}, nil
	}}
	c := New(cal, subs, DefaultConfig(), nil)

	require.NoError(t, c.Handle(context.Background(), "chan-1"))

	assert.Zero(t, queries, "cancelled events trigger nothing")
	assert.Equal(t, "tok", subs.setTokens["chan-1"])
}
