// Package syncer contains the reactive decision engine behind the
// notification endpoint. For each incremental batch of changed events it
// classifies triggers, propagates description edits across project event
// series and enforces the evening cutoff by truncating or relocating
// flagged events, placing a continuation event in the earliest free window
// across all subscribed calendars.
package syncer
