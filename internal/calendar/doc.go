// Package calendar wraps the Google Calendar API with fixed-shape domain
// types. It provides incremental event fetches with sync tokens, event
// writes, notification channel management and a free/busy based search for
// the earliest open window across multiple calendars.
package calendar
