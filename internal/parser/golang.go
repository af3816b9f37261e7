package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"semindex/pkg/types"
)

type goExtractor struct{}

func (e *goExtractor) extract(root *sitter.Node, source []byte, filePath string) []types.Symbol {
	var symbols []types.Symbol

	for i := uint(0); i < root.ChildCount(); i++ {
		node := root.Child(i)

		switch node.Kind() {
		case "function_declaration":
			name := fieldText(node, "name", source)
			if name == "" {
				continue
			}
			symbols = append(symbols, newSymbol(node, name, types.KindFunction, filePath, source, nil))

		case "method_declaration":
			name := fieldText(node, "name", source)
			if name == "" {
				continue
			}
			symbols = append(symbols, newSymbol(node, name, types.KindMethod, filePath, source, nil))

		case "type_declaration":
			for j := uint(0); j < node.NamedChildCount(); j++ {
				spec := node.NamedChild(j)
				if spec.Kind() != "type_spec" && spec.Kind() != "type_alias" {
					continue
				}
				name := fieldText(spec, "name", source)
				if name == "" {
					continue
				}
				symbols = append(symbols, newSymbol(spec, name, types.KindClass, filePath, source, nil))
			}

		case "var_declaration", "const_declaration":
			symbols = append(symbols, e.extractValueSpecs(node, source, filePath)...)
		}
	}

	return symbols
}

func (e *goExtractor) extractValueSpecs(node *sitter.Node, source []byte, filePath string) []types.Symbol {
	var symbols []types.Symbol
	for i := uint(0); i < node.NamedChildCount(); i++ {
		spec := node.NamedChild(i)
		if spec.Kind() != "var_spec" && spec.Kind() != "const_spec" {
			continue
		}
		// A spec may bind several names: var a, b = 1, 2
		for j := uint(0); j < spec.ChildCount(); j++ {
			child := spec.Child(j)
			if child.Kind() != "identifier" {
				continue
			}
			symbols = append(symbols, newSymbol(spec, nodeText(child, source), types.KindVariable, filePath, source, nil))
		}
	}
	return symbols
}
