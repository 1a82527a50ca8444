// Package diskcache persists expensive scan results to per-method cache
// files under the slate cache root.
//
// Each entry records the mtime of the source path it was computed from; a
// read is only trusted while that mtime is unchanged, so entries survive
// process restarts yet never outlive a modification of their source.
// Corrupt or stale entries behave as misses and are recomputed
// transparently. The cache carries no cross-process locking: concurrent
// writers race harmlessly because every reader re-validates against the
// source mtime.
package diskcache
