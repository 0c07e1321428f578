// Package ingestion turns policy files into stored, embedded chunks.
//
// A Pipeline chunks a document with the section-aware chunker, embeds the
// chunks in batches on a bounded worker pool and writes them to the chunk
// repository. Chunks are written only after every batch has embedded, so a
// failed ingest leaves nothing behind.
package ingestion
