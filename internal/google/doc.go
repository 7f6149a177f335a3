// Package google provides OAuth2 credential plumbing for the Google Calendar API.
//
// Tokens are stored per account as "access refresh" pairs in the user's cache
// directory and refreshed on demand through the standard oauth2 token source.
// Client credentials are taken from the GOOGLE_CLIENT_ID and
// GOOGLE_CLIENT_SECRET environment variables.
package google
