// Package pipeline orchestrates an indexing run: discover files, parse and
// extract symbols, resolve dependencies, embed source texts in batches and
// replace the vector store table in one atomic write.
//
// Files parse concurrently on a bounded worker pool; per-file failures are
// recorded on the run Summary and skipped, they never abort the run. A run
// that embeds nothing leaves the existing table untouched.
package pipeline
