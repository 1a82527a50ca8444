// Package settings implements layered key-value configuration for pipeline
// levels (job, sequence, shot).
//
// Each level owns a YAML overrides file under its directory; reads merge
// the parent chain key-by-key so a shot inherits sequence and job values it
// does not override, while writes and deletes touch only their own level.
// Every write snapshots the previous file into a timestamped backup.
package settings
