// Package logging constructs the application slog.Logger and provides
// shared attribute helpers plus context-derived structured fields.
package logging
