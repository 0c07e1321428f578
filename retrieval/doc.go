// Package retrieval turns a question into candidate chunks.
//
// Expand widens a raw question with domain synonyms. A Retriever embeds the
// widened question and runs a maximal marginal relevance search against the
// chunk store. Retrieval failures are fatal for the query: callers receive
// an error wrapping core.ErrUpstreamUnavailable and no partial results.
package retrieval
