package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"semindex/pkg/types"
)

type javascriptExtractor struct{}

func (e *javascriptExtractor) extract(root *sitter.Node, source []byte, filePath string) []types.Symbol {
	var symbols []types.Symbol
	e.walkChildren(root, source, filePath, nil, false, &symbols)
	return symbols
}

func (e *javascriptExtractor) walkChildren(node *sitter.Node, source []byte, filePath string, enclosing *types.Symbol, inFunction bool, out *[]types.Symbol) {
	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i), source, filePath, enclosing, inFunction, out)
	}
}

func (e *javascriptExtractor) walk(node *sitter.Node, source []byte, filePath string, enclosing *types.Symbol, inFunction bool, out *[]types.Symbol) {
	switch node.Kind() {
	case "function_declaration", "generator_function_declaration":
		name := fieldText(node, "name", source)
		if name == "" {
			return
		}
		sym := newSymbol(node, name, types.KindFunction, filePath, source, enclosing)
		*out = append(*out, sym)
		if body := node.ChildByFieldName("body"); body != nil {
			e.walkChildren(body, source, filePath, &sym, true, out)
		}

	case "class_declaration":
		name := fieldText(node, "name", source)
		if name == "" {
			return
		}
		sym := newSymbol(node, name, types.KindClass, filePath, source, enclosing)
		*out = append(*out, sym)
		if body := node.ChildByFieldName("body"); body != nil {
			e.walkChildren(body, source, filePath, &sym, inFunction, out)
		}

	case "method_definition":
		name := fieldText(node, "name", source)
		if name == "" {
			return
		}
		sym := newSymbol(node, name, types.KindMethod, filePath, source, enclosing)
		*out = append(*out, sym)
		if body := node.ChildByFieldName("body"); body != nil {
			e.walkChildren(body, source, filePath, &sym, true, out)
		}

	case "lexical_declaration", "variable_declaration":
		// Top-level declarations only; locals inside functions are skipped.
		if inFunction {
			return
		}
		for i := uint(0); i < node.NamedChildCount(); i++ {
			decl := node.NamedChild(i)
			if decl.Kind() != "variable_declarator" {
				continue
			}
			e.extractDeclarator(decl, source, filePath, enclosing, out)
		}

	case "export_statement":
		e.walkChildren(node, source, filePath, enclosing, inFunction, out)

	default:
		e.walkChildren(node, source, filePath, enclosing, inFunction, out)
	}
}

func (e *javascriptExtractor) extractDeclarator(decl *sitter.Node, source []byte, filePath string, enclosing *types.Symbol, out *[]types.Symbol) {
	nameNode := decl.ChildByFieldName("name")
	if nameNode == nil || nameNode.Kind() != "identifier" {
		return
	}
	name := nodeText(nameNode, source)

	// const f = () => {} declares a function in everything but syntax.
	kind := types.KindVariable
	if value := decl.ChildByFieldName("value"); value != nil {
		switch value.Kind() {
		case "arrow_function", "function_expression", "function", "generator_function":
			kind = types.KindFunction
		}
	}

	sym := newSymbol(decl, name, kind, filePath, source, enclosing)
	*out = append(*out, sym)

	if kind == types.KindFunction {
		if value := decl.ChildByFieldName("value"); value != nil {
			if body := value.ChildByFieldName("body"); body != nil {
				e.walkChildren(body, source, filePath, &sym, true, out)
			}
		}
	}
}
