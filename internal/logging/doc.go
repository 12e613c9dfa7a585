// Package logging wires slog with clipshift conventions: a human console
// handler for foreground runs, a JSON handler for the daemon log file, and
// standardized attribute keys shared across components.
package logging
