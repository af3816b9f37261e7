package resolver

import (
	"regexp"
	"strings"

	"semindex/pkg/types"
)

// Resolver resolves symbol references within single files.
type Resolver struct{}

// New constructs a Resolver.
func New() *Resolver {
	return &Resolver{}
}

// definition keywords: an identifier directly after one of these is being
// declared, not called.
var definitionKeywords = map[string]bool{
	"def": true, "class": true, "func": true, "function": true,
}

var callPattern = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
var attrPattern = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*)`)

// Resolve scans the symbols of one file against its source text and
// returns the dependency edges and external resources found. Symbols must
// come from the same extraction run over source; language selects the
// keyword and import syntax tables.
func (r *Resolver) Resolve(symbols []types.Symbol, source []byte, language string) ([]types.Edge, []types.Resource) {
	lines := strings.Split(string(source), "\n")

	// Pass 1: file-scoped name table. Earliest definition wins a name.
	names := make(map[string]string, len(symbols))
	for _, sym := range symbols {
		if _, ok := names[sym.Name]; !ok {
			names[sym.Name] = sym.ID
		}
	}

	imports := scanImports(lines, language)
	kw := keywordsFor(language)

	acc := newAccumulator()

	// Import statements always materialize their Resource, referenced or
	// not; the graph is allowed to be disconnected.
	for _, imp := range imports {
		acc.addResource(types.ResourceImport, imp.module)
	}

	// Pass 2: resolve candidates per symbol span.
	for _, sym := range symbols {
		if sym.StartLine < 1 || sym.StartLine > len(lines) {
			continue
		}
		end := sym.EndLine
		if end > len(lines) {
			end = len(lines)
		}
		body := strings.Join(lines[sym.StartLine-1:end], "\n")
		locals := localNames(sym.Signature, body)

		r.resolveCalls(sym, body, names, imports, locals, kw, acc)
		r.resolveAttributes(sym, body, names, imports, locals, kw, acc)

		// An import statement inside a symbol's own span (a function-local
		// import) is a direct imports edge.
		for _, imp := range imports {
			if imp.line >= sym.StartLine && imp.line <= end {
				target := acc.addResource(types.ResourceImport, imp.module)
				acc.addEdge(sym.ID, target, types.RelationImports)
			}
		}
	}

	return acc.edges, acc.resources
}

func (r *Resolver) resolveCalls(sym types.Symbol, body string, names map[string]string, imports []importBinding, locals map[string]bool, kw map[string]bool, acc *accumulator) {
	for _, m := range callPattern.FindAllStringSubmatchIndex(body, -1) {
		start, nameEnd := m[2], m[3]
		name := body[start:nameEnd]

		// Method calls resolve through the attribute pass.
		if start > 0 && body[start-1] == '.' {
			continue
		}
		if kw[name] || locals[name] {
			continue
		}
		if definitionKeywords[precedingWord(body, start)] {
			continue
		}

		if targetID, ok := names[name]; ok {
			acc.addEdge(sym.ID, targetID, types.RelationCalls)
			continue
		}
		if module, ok := importedBinding(imports, name); ok {
			target := acc.addResource(types.ResourceImport, module)
			acc.addEdge(sym.ID, target, types.RelationUses)
			continue
		}
		target := acc.addResource(types.ResourceCallTarget, name)
		acc.addEdge(sym.ID, target, types.RelationCalls)
	}
}

func (r *Resolver) resolveAttributes(sym types.Symbol, body string, names map[string]string, imports []importBinding, locals map[string]bool, kw map[string]bool, acc *accumulator) {
	for _, m := range attrPattern.FindAllStringSubmatchIndex(body, -1) {
		baseStart, baseEnd := m[2], m[3]
		attrEnd := m[5]
		base := body[baseStart:baseEnd]
		full := body[baseStart:attrEnd]

		// Skip the tail of a longer dotted path: a.b.c matches twice and
		// only the head (a.b) is a candidate.
		if baseStart > 0 && body[baseStart-1] == '.' {
			continue
		}
		if kw[base] || locals[base] {
			continue
		}

		if module, ok := importedBinding(imports, base); ok {
			target := acc.addResource(types.ResourceImport, module)
			acc.addEdge(sym.ID, target, types.RelationUses)
			continue
		}
		if targetID, ok := names[base]; ok {
			acc.addEdge(sym.ID, targetID, types.RelationUses)
			continue
		}
		target := acc.addResource(types.ResourceAttribute, full)
		acc.addEdge(sym.ID, target, types.RelationUses)
	}
}

// precedingWord returns the identifier immediately before position pos,
// skipping whitespace, or "".
func precedingWord(text string, pos int) string {
	i := pos - 1
	for i >= 0 && (text[i] == ' ' || text[i] == '\t') {
		i--
	}
	end := i + 1
	for i >= 0 && (isWordByte(text[i])) {
		i--
	}
	return text[i+1 : end]
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

var assignPattern = regexp.MustCompile(`(?m)^\s*(?:var\s+|let\s+|const\s+)?([A-Za-z_][A-Za-z0-9_]*)\s*(:?=)`)
var forPattern = regexp.MustCompile(`\bfor\s+([A-Za-z_][A-Za-z0-9_]*)`)

// localNames collects names bound locally within a symbol: parameters from
// the signature plus simple assignment and loop targets in the body.
// References to local names are neither edges nor resources.
func localNames(signature, body string) map[string]bool {
	locals := map[string]bool{"self": true, "cls": true, "this": true}

	if open := strings.IndexByte(signature, '('); open >= 0 {
		if close := strings.LastIndexByte(signature, ')'); close > open {
			for _, param := range strings.Split(signature[open+1:close], ",") {
				param = strings.TrimLeft(strings.TrimSpace(param), "*&.")
				end := 0
				for end < len(param) && isWordByte(param[end]) {
					end++
				}
				if end > 0 {
					locals[param[:end]] = true
				}
			}
		}
	}

	for _, m := range assignPattern.FindAllStringSubmatchIndex(body, -1) {
		// Reject == comparisons.
		opEnd := m[5]
		if opEnd < len(body) && body[opEnd] == '=' {
			continue
		}
		locals[body[m[2]:m[3]]] = true
	}
	for _, m := range forPattern.FindAllStringSubmatch(body, -1) {
		locals[m[1]] = true
	}

	return locals
}

// accumulator dedupes edges by (source, target, relation) and resources by
// (kind, name) while preserving first-seen order.
type accumulator struct {
	edges     []types.Edge
	resources []types.Resource
	edgeSeen  map[types.Edge]bool
	resSeen   map[string]bool
}

func newAccumulator() *accumulator {
	return &accumulator{
		edgeSeen: make(map[types.Edge]bool),
		resSeen:  make(map[string]bool),
	}
}

func (a *accumulator) addResource(kind types.ResourceKind, name string) string {
	id := types.ResourceID(kind, name)
	if !a.resSeen[id] {
		a.resSeen[id] = true
		a.resources = append(a.resources, types.Resource{ID: id, Name: name, Kind: kind})
	}
	return id
}

func (a *accumulator) addEdge(sourceID, targetID string, relation types.Relation) {
	edge := types.Edge{SourceID: sourceID, TargetID: targetID, Relation: relation}
	if !a.edgeSeen[edge] {
		a.edgeSeen[edge] = true
		a.edges = append(a.edges, edge)
	}
}
