// Package resolver builds the dependency graph for a file: it scans each
// extracted Symbol's span for calls, attribute access and imports, and
// emits Edge and Resource records.
//
// Resolution is lexical, by name, in two passes: pass one maps every
// Symbol name in the file to its id, pass two resolves candidate
// references against that mapping and falls back to Resource creation.
// This is deliberately approximate — two unrelated symbols sharing a name
// will be conflated, and aliased imports are not tracked through renames.
//
// Results accumulate into a Graph, an id-keyed adjacency structure that
// supports reachability, cycle detection (Tarjan) and deterministic DOT
// rendering.
package resolver
