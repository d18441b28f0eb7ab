// Package cache keeps persisted tile records in memory, keyed by blob name
// and byte offset.
//
// Records are immutable once written, so entries never go stale while their
// blob exists. Deleting a fragment drops its blob's entries with DropBlob.
// Cached bytes are charged against a resource.Controller and share the
// process memory limit with tile buffers; a record the controller cannot
// admit is simply not cached.
package cache
