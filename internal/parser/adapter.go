package parser

import (
	"errors"
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"semindex/pkg/types"
)

// Adapter abstracts the parsing toolkit behind a stable surface. A grammar
// or runtime upgrade becomes a new Adapter implementation instead of
// version checks scattered through the extractors.
type Adapter interface {
	// Supports reports whether a grammar is registered for the language.
	Supports(language string) bool

	// Parse produces a syntax tree for the source. Files with syntax errors
	// still yield a tree; extraction is best-effort over the valid regions.
	Parse(source []byte, language string) (*Tree, error)

	// Languages returns the registered language names.
	Languages() []string
}

// Tree is a parsed source file. Callers must Close it to release the
// underlying native tree.
type Tree struct {
	inner    *sitter.Tree
	source   []byte
	language string
}

// Root returns the root node of the tree.
func (t *Tree) Root() *sitter.Node {
	return t.inner.RootNode()
}

// Source returns the bytes the tree was parsed from.
func (t *Tree) Source() []byte {
	return t.source
}

// Language returns the language the tree was parsed as.
func (t *Tree) Language() string {
	return t.language
}

// Close releases the native tree.
func (t *Tree) Close() {
	if t.inner != nil {
		t.inner.Close()
		t.inner = nil
	}
}

// treeSitterAdapter parses with the tree-sitter runtime and a fixed set of
// compiled-in grammars.
type treeSitterAdapter struct {
	grammars map[string]*sitter.Language
}

// NewTreeSitterAdapter registers the bundled grammars.
func NewTreeSitterAdapter() Adapter {
	return &treeSitterAdapter{
		grammars: map[string]*sitter.Language{
			"python":     sitter.NewLanguage(tree_sitter_python.Language()),
			"go":         sitter.NewLanguage(tree_sitter_go.Language()),
			"javascript": sitter.NewLanguage(tree_sitter_javascript.Language()),
		},
	}
}

func (a *treeSitterAdapter) Supports(language string) bool {
	_, ok := a.grammars[language]
	return ok
}

func (a *treeSitterAdapter) Languages() []string {
	langs := make([]string, 0, len(a.grammars))
	for lang := range a.grammars {
		langs = append(langs, lang)
	}
	return langs
}

func (a *treeSitterAdapter) Parse(source []byte, language string) (*Tree, error) {
	grammar, ok := a.grammars[language]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedLanguage, language)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(grammar); err != nil {
		return nil, fmt.Errorf("set language %s: %w", language, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, errors.New("parse failed")
	}

	return &Tree{inner: tree, source: source, language: language}, nil
}
