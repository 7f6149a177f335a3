package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "subscriptions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Subscription{
		ChannelID:  "chan-1",
		CalendarID: "work@example.com",
		ResourceID: "res-1",
		SyncToken:  "tok-1",
	}))

	sub, err := s.Get(ctx, "chan-1")
	require.NoError(t, err)
	assert.Equal(t, "work@example.com", sub.CalendarID)
	assert.Equal(t, "res-1", sub.ResourceID)
	assert.Equal(t, "tok-1", sub.SyncToken)
	assert.False(t, sub.CreatedAt.IsZero())
}

func TestGet_Unknown(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPut_Replaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Subscription{ChannelID: "chan-1", CalendarID: "a@example.com"}))
	require.NoError(t, s.Put(ctx, Subscription{ChannelID: "chan-1", CalendarID: "b@example.com", SyncToken: "tok"}))

	sub, err := s.Get(ctx, "chan-1")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", sub.CalendarID)
	assert.Equal(t, "tok", sub.SyncToken)

	subs, err := s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestAll_OrderedByCalendar(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Subscription{ChannelID: "chan-z", CalendarID: "zebra@example.com"}))
	require.NoError(t, s.Put(ctx, Subscription{ChannelID: "chan-a", CalendarID: "aardvark@example.com"}))

	subs, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "aardvark@example.com", subs[0].CalendarID)
	assert.Equal(t, "zebra@example.com", subs[1].CalendarID)
}

func TestSetSyncToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Subscription{ChannelID: "chan-1", CalendarID: "a@example.com"}))
	require.NoError(t, s.SetSyncToken(ctx, "chan-1", "tok-next"))

	sub, err := s.Get(ctx, "chan-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-next", sub.SyncToken)
}

func TestSetSyncToken_UnknownChannel(t *testing.T) {
	s := newTestStore(t)

	err := s.SetSyncToken(context.Background(), "nope", "tok")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Subscription{ChannelID: "chan-1", CalendarID: "a@example.com"}))
	require.NoError(t, s.Delete(ctx, "chan-1"))

	_, err := s.Get(ctx, "chan-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, s.Delete(ctx, "chan-1"))
}
