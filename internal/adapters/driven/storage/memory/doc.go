// Package memory provides in-memory store implementations used as test
// fixtures and for ephemeral single-process runs.
package memory
