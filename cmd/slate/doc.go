// Command slate is the standalone CLI for the slate pipeline toolkit.
//
// It lists jobs, entities, works and outputs, versions up and publishes
// work files, and manages layered settings and the disk cache. DCC
// integrations embed the same internal packages; the CLI is just the
// standalone host.
package main
