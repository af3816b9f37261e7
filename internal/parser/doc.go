// Package parser turns source files into syntax trees and extracts the
// Symbols defined in them.
//
// Language support is table-driven: each language registers a tree-sitter
// grammar with the Adapter and a matching extractor here. The Adapter is a
// strategy interface, so callers never see toolkit types and a binding
// upgrade is a new implementation, not a branch.
//
// # Basic Usage
//
//	p := parser.New()
//
//	tree, err := p.ParseFile("app.py")
//	if err != nil {
//	    return err
//	}
//	defer tree.Close()
//
//	symbols, err := p.ExtractSymbols(tree, "app.py")
//
// Symbols come back in source order. Nested definitions carry the ID of
// their nearest enclosing definition, and a function nested directly in a
// class is a method.
//
// Parsing is best-effort: syntactically invalid input yields a tree with
// error nodes and extraction recovers whatever definitions remain intact.
// Only a missing grammar is an error (types.ErrUnsupportedLanguage).
package parser
