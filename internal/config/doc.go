// Package config loads, normalizes, and validates slate configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SLATE_JOBS_ROOT and SLATE_JOBS_FILTER. The Config type centralizes every
// knob the CLI and cache layer need, allowing the jobs root, cache
// directories, and registry settings to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
