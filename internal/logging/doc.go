// Package logging builds slog loggers for slate tools.
//
// It provides a compact console handler for interactive sessions, a JSON
// handler for machine consumption, attribute helpers, and the standardized
// field keys (job, entity, task, tag, ver, path) used across the pipeline
// packages so log output stays greppable.
package logging
