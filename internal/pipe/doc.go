// Package pipe models the production filesystem: jobs, entities, work
// files and outputs, all addressed through each job's path templates.
//
// Nothing here is declared in a database. A path either fits a template or
// it does not; objects are discovered by scanning directories and parsing
// what matches. All identity paths are normalized to forward slashes, and
// instances constructed independently compare equal by path. The pipecache
// package layers canonical-instance caching on top.
package pipe
