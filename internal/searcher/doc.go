// Package searcher is the query engine: it embeds a natural-language query
// with the same engine that indexed the table, runs a nearest-neighbor
// lookup against the vector store and enriches hits from record metadata.
//
// Repeated queries are served from an in-memory LRU cache keyed by the
// query text's digest, with a TTL. The cache hands out copies, and
// InvalidateCache clears it after a reindex.
package searcher
