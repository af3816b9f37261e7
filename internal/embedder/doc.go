// Package embedder converts source text into fixed-dimension vectors.
//
// Engine is the provider interface; Ollama, OpenAI and a deterministic
// hash-based fallback implement it. New selects a provider from Config and
// wraps it with an LRU cache keyed by the text's digest, so re-indexing an
// unchanged file never re-embeds it.
//
// Inputs longer than MaxInputChars are truncated before embedding, and
// batches are capped at the provider's MaxBatchSize; callers that hit
// ErrBatchTooLarge should split and retry.
package embedder
