// Package types defines the shared data model for the semindex core:
// Symbols extracted from source files, the Resources and Edges that form
// the dependency graph, and the EmbeddingRecords persisted in the vector
// store.
//
// Identity conventions:
//   - Symbol ID:   file_path:name:start_line
//   - Resource ID: kind:name
//
// Symbols, Resources and Edges live for the duration of one indexing run
// and are rebuilt (not patched) on re-index. EmbeddingRecords persist in
// the vector store until the next full-table replace.
package types
