// Package mcp exposes the indexing pipeline and query engine as MCP tools
// over stdio: index_codebase, semantic_search and index_status. Stdout
// carries the protocol, so all logging goes through zap to stderr.
//
// At most one indexing run executes at a time; a second index_codebase
// call while one is in flight fails with an indexing-in-progress error
// rather than queueing.
package mcp
