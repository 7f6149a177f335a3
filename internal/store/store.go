package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when no subscription matches the given channel ID.
var ErrNotFound = errors.New("subscription not found")

// Subscription maps one notification channel to its calendar and carries
// the sync token for incremental fetches on that calendar.
type Subscription struct {
	ChannelID  string
	CalendarID string
	ResourceID string
	SyncToken  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store persists channel subscriptions in a SQLite database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS subscriptions (
	channel_id  TEXT PRIMARY KEY,
	calendar_id TEXT NOT NULL,
	resource_id TEXT NOT NULL DEFAULT '',
	sync_token  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_subscriptions_calendar ON subscriptions(calendar_id);
`

// Open creates the database file (and its directory) if needed and applies
// the schema. WAL mode keeps concurrent webhook reads cheap.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the subscription for a channel ID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, channelID string) (*Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT channel_id, calendar_id, resource_id, sync_token, created_at, updated_at
		 FROM subscriptions WHERE channel_id = ?`, channelID)

	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying subscription: %w", err)
	}
	return sub, nil
}

// All returns every subscription ordered by calendar ID.
func (s *Store) All(ctx context.Context) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel_id, calendar_id, resource_id, sync_token, created_at, updated_at
		 FROM subscriptions ORDER BY calendar_id, channel_id`)
	if err != nil {
		return nil, fmt.Errorf("querying subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subscriptions: %w", err)
	}
	return subs, nil
}

// Put inserts or replaces a subscription. CreatedAt is preserved on replace.
func (s *Store) Put(ctx context.Context, sub Subscription) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (channel_id, calendar_id, resource_id, sync_token, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(channel_id) DO UPDATE SET
			calendar_id = excluded.calendar_id,
			resource_id = excluded.resource_id,
			sync_token  = excluded.sync_token,
			updated_at  = excluded.updated_at`,
		sub.ChannelID, sub.CalendarID, sub.ResourceID, sub.SyncToken, now, now)
	if err != nil {
		return fmt.Errorf("storing subscription: %w", err)
	}
	return nil
}

// Delete removes the subscription for a channel ID. Deleting a channel
// that is not stored is not an error.
func (s *Store) Delete(ctx context.Context, channelID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE channel_id = ?`, channelID); err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}
	return nil
}

// SetSyncToken updates the stored sync token for a channel.
func (s *Store) SetSyncToken(ctx context.Context, channelID, token string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET sync_token = ?, updated_at = ? WHERE channel_id = ?`,
		token, time.Now().UTC(), channelID)
	if err != nil {
		return fmt.Errorf("updating sync token: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating sync token: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*Subscription, error) {
	var sub Subscription
	if err := row.Scan(&sub.ChannelID, &sub.CalendarID, &sub.ResourceID,
		&sub.SyncToken, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	return &sub, nil
}
