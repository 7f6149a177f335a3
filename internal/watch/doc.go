// Package watch rotates the push notification channels that feed the
// notification endpoint, one channel per calendar on the account.
package watch
