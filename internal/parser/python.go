package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"semindex/pkg/types"
)

type pythonExtractor struct{}

func (e *pythonExtractor) extract(root *sitter.Node, source []byte, filePath string) []types.Symbol {
	var symbols []types.Symbol
	e.walkChildren(root, source, filePath, nil, false, &symbols)
	return symbols
}

func (e *pythonExtractor) walkChildren(node *sitter.Node, source []byte, filePath string, enclosing *types.Symbol, inFunction bool, out *[]types.Symbol) {
	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i), source, filePath, enclosing, inFunction, out)
	}
}

func (e *pythonExtractor) walk(node *sitter.Node, source []byte, filePath string, enclosing *types.Symbol, inFunction bool, out *[]types.Symbol) {
	switch node.Kind() {
	case "function_definition":
		name := fieldText(node, "name", source)
		if name == "" {
			return
		}
		kind := types.KindFunction
		if enclosing != nil && enclosing.Kind == types.KindClass {
			kind = types.KindMethod
		}
		sym := newSymbol(node, name, kind, filePath, source, enclosing)
		sym.Docstring = pythonDocstring(node, source)
		*out = append(*out, sym)
		if body := node.ChildByFieldName("body"); body != nil {
			e.walkChildren(body, source, filePath, &sym, true, out)
		}

	case "class_definition":
		name := fieldText(node, "name", source)
		if name == "" {
			return
		}
		sym := newSymbol(node, name, types.KindClass, filePath, source, enclosing)
		sym.Docstring = pythonDocstring(node, source)
		*out = append(*out, sym)
		if body := node.ChildByFieldName("body"); body != nil {
			e.walkChildren(body, source, filePath, &sym, inFunction, out)
		}

	case "expression_statement":
		// Module- and class-level assignments define variables. Assignments
		// inside function bodies are locals and are not indexed.
		if inFunction {
			return
		}
		for i := uint(0); i < node.NamedChildCount(); i++ {
			child := node.NamedChild(i)
			if child.Kind() == "assignment" || child.Kind() == "augmented_assignment" {
				e.extractAssignment(child, source, filePath, enclosing, out)
			}
		}

	default:
		e.walkChildren(node, source, filePath, enclosing, inFunction, out)
	}
}

func (e *pythonExtractor) extractAssignment(node *sitter.Node, source []byte, filePath string, enclosing *types.Symbol, out *[]types.Symbol) {
	left := node.ChildByFieldName("left")
	if left == nil {
		return
	}
	for _, name := range assignedNames(left, source) {
		sym := newSymbol(node, name, types.KindVariable, filePath, source, enclosing)
		*out = append(*out, sym)
	}
}

// assignedNames collects the plain identifiers an assignment target binds.
// Attribute and subscript targets mutate existing objects rather than
// defining names, so they are skipped.
func assignedNames(node *sitter.Node, source []byte) []string {
	switch node.Kind() {
	case "identifier":
		return []string{nodeText(node, source)}
	case "pattern_list", "tuple_pattern", "list_pattern":
		var names []string
		for i := uint(0); i < node.NamedChildCount(); i++ {
			names = append(names, assignedNames(node.NamedChild(i), source)...)
		}
		return names
	default:
		return nil
	}
}

// pythonDocstring returns the leading string literal of a definition body,
// with quote delimiters stripped.
func pythonDocstring(node *sitter.Node, source []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Kind() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Kind() != "string" {
		return ""
	}
	return trimStringQuotes(nodeText(str, source))
}

func trimStringQuotes(s string) string {
	s = strings.TrimLeft(s, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return strings.TrimSpace(s[len(q) : len(s)-len(q)])
		}
	}
	return strings.TrimSpace(s)
}
