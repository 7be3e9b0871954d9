// Package logging assembles the structured slog loggers used across
// qproject components.
//
// It owns the console/JSON handler selection, centralizes level and
// output plumbing, and exposes attr helpers plus a no-op logger so
// components can require an explicit logger without a process-wide
// singleton. Prefer these constructors over hand-rolled slog setup.
package logging
