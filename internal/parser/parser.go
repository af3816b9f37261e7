package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"semindex/pkg/types"
)

// extractor walks a parsed tree and emits the definitions it declares.
type extractor interface {
	extract(root *sitter.Node, source []byte, filePath string) []types.Symbol
}

// Parser parses files and extracts symbols for every supported language.
type Parser struct {
	adapter    Adapter
	extractors map[string]extractor
}

// New builds a Parser over the bundled tree-sitter grammars.
func New() *Parser {
	return NewWithAdapter(NewTreeSitterAdapter())
}

// NewWithAdapter builds a Parser over a caller-supplied Adapter.
func NewWithAdapter(adapter Adapter) *Parser {
	return &Parser{
		adapter: adapter,
		extractors: map[string]extractor{
			"python":     &pythonExtractor{},
			"go":         &goExtractor{},
			"javascript": &javascriptExtractor{},
		},
	}
}

// DetectLanguage maps a file path to a registered language name, or ""
// when the extension is not recognized.
func DetectLanguage(path string) string {
	switch filepath.Ext(path) {
	case ".py":
		return "python"
	case ".go":
		return "go"
	case ".js", ".mjs", ".cjs":
		return "javascript"
	default:
		return ""
	}
}

// Supports reports whether the parser can handle the file at path.
func (p *Parser) Supports(path string) bool {
	lang := DetectLanguage(path)
	return lang != "" && p.adapter.Supports(lang)
}

// Parse parses source as the given language.
func (p *Parser) Parse(source []byte, language string) (*Tree, error) {
	return p.adapter.Parse(source, language)
}

// ParseFile reads and parses the file at path, detecting its language from
// the extension.
func (p *Parser) ParseFile(path string) (*Tree, error) {
	lang := DetectLanguage(path)
	if lang == "" {
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedLanguage, path)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return p.adapter.Parse(source, lang)
}

// ExtractSymbols walks the tree and returns the definitions it declares, in
// source order. filePath is recorded on each symbol and participates in its
// identity.
func (p *Parser) ExtractSymbols(tree *Tree, filePath string) ([]types.Symbol, error) {
	ext, ok := p.extractors[tree.Language()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedLanguage, tree.Language())
	}

	symbols := ext.extract(tree.Root(), tree.Source(), filePath)

	sort.SliceStable(symbols, func(i, j int) bool {
		return symbols[i].StartLine < symbols[j].StartLine
	})

	return symbols, nil
}

// nodeText returns the source text a node spans.
func nodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// fieldText returns the text of a named field child, or "".
func fieldText(node *sitter.Node, field string, source []byte) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return nodeText(child, source)
}

// startLine and endLine convert tree-sitter's 0-based rows to the 1-based
// inclusive line numbers symbols carry.
func startLine(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

func endLine(node *sitter.Node) int {
	return int(node.EndPosition().Row) + 1
}

// signatureOf returns the declaration text of a definition node: everything
// from its start up to its body, or its first line when it has no body.
func signatureOf(node *sitter.Node, source []byte) string {
	body := node.ChildByFieldName("body")
	if body != nil && body.StartByte() > node.StartByte() {
		return strings.TrimSpace(string(source[node.StartByte():body.StartByte()]))
	}

	text := nodeText(node, source)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// newSymbol fills the identity and location fields common to every
// extracted definition.
func newSymbol(node *sitter.Node, name string, kind types.SymbolKind, filePath string, source []byte, enclosing *types.Symbol) types.Symbol {
	sym := types.Symbol{
		ID:        types.SymbolID(filePath, name, startLine(node)),
		Name:      name,
		Kind:      kind,
		FilePath:  filePath,
		StartLine: startLine(node),
		EndLine:   endLine(node),
		Signature: signatureOf(node, source),
	}
	if enclosing != nil {
		sym.EnclosingID = enclosing.ID
	}
	return sym
}
