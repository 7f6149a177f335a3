// Package store persists notification channel subscriptions and their
// calendar sync tokens in a local SQLite database.
package store
