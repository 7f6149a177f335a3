// Package logging provides structured logging utilities for the feierabend service.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Log with standard attributes:
//
//	slog.Info("notification handled",
//	    logging.Channel(channelID),
//	    logging.Status(logging.StatusSuccess))
//
// Attribute constructors (Channel, Calendar, EventID, Status, Err, ...) keep
// attribute names identical across packages so log queries stay simple.
package logging
