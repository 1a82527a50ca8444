// Package host adapts the embedding application (DCC or standalone CLI)
// behind a minimal interface the cache layer can query for the current
// scene.
package host
