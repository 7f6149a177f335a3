// Package cmd implements the feierabend command line interface.
//
// Commands:
//   - serve: run the notification server (default)
//   - watch: rotate the push notification channels
//   - auth: store an OAuth token for a Google account
//   - version: print the version
package cmd
