// Package registry records publish events in a shared SQLite database.
//
// The registry is an audit trail, not the source of truth: the filesystem
// remains authoritative for what exists, and every query here can be
// rebuilt from a disk scan. A nil *Store (registry disabled) is safe to
// call, so the publish path carries no conditional wiring.
package registry
