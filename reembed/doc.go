// Package reembed recomputes the embedding of every stored chunk.
//
// It is an administrative tool for switching embedding models: chunks are
// read in ordinal order, embedded in batches with retry and exponential
// backoff, normalized and written back. Text, sections and metadata are left
// untouched, so chunk IDs survive the migration.
package reembed
