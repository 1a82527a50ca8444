// Package pipecache layers identity-preserving caching over the pipe
// model.
//
// A Session hands out one canonical instance per identity path, so two
// lookups of the same shot return the same pointer and GUI layers can key
// state off instances directly. Discovery results (job listings, output
// scans) are cached for the life of a generation; Reset starts a new
// generation with a fresh uuid, and UpdateCache force-rescans just the
// entities a publish touched. The jobs listing additionally persists
// through the disk cache keyed on the jobs root mtime.
package pipecache
