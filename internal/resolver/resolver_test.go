package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semindex/internal/parser"
	"semindex/pkg/types"
)

func extract(t *testing.T, source, language, filePath string) ([]types.Symbol, []byte) {
	t.Helper()

	p := parser.New()
	tree, err := p.Parse([]byte(source), language)
	require.NoError(t, err)
	defer tree.Close()

	symbols, err := p.ExtractSymbols(tree, filePath)
	require.NoError(t, err)
	return symbols, []byte(source)
}

func TestResolveLocalCall(t *testing.T) {
	source := `def login(user):
    return check(user)

def check(user):
    return user.active
`
	symbols, src := extract(t, source, "python", "auth.py")
	require.Len(t, symbols, 2)

	edges, resources := New().Resolve(symbols, src, "python")

	// Both names resolve to symbols in the same file: one call edge, no
	// resources. The parameter attribute user.active is a local access.
	require.Len(t, edges, 1)
	assert.Equal(t, symbols[0].ID, edges[0].SourceID)
	assert.Equal(t, symbols[1].ID, edges[0].TargetID)
	assert.Equal(t, types.RelationCalls, edges[0].Relation)
	assert.Empty(t, resources)
}

func TestResolveImportedModule(t *testing.T) {
	source := `import requests

def fetch(url):
    return requests.get(url)
`
	symbols, src := extract(t, source, "python", "client.py")
	require.Len(t, symbols, 1)

	edges, resources := New().Resolve(symbols, src, "python")

	require.Len(t, resources, 1)
	assert.Equal(t, "requests", resources[0].Name)
	assert.Equal(t, types.ResourceImport, resources[0].Kind)

	require.Len(t, edges, 1)
	assert.Equal(t, symbols[0].ID, edges[0].SourceID)
	assert.Equal(t, resources[0].ID, edges[0].TargetID)
	assert.Equal(t, types.RelationUses, edges[0].Relation)
}

func TestResolveForwardReference(t *testing.T) {
	source := `def first():
    return second()

def second():
    return 1
`
	symbols, src := extract(t, source, "python", "fwd.py")
	edges, _ := New().Resolve(symbols, src, "python")

	require.Len(t, edges, 1)
	assert.Equal(t, symbols[0].ID, edges[0].SourceID)
	assert.Equal(t, symbols[1].ID, edges[0].TargetID)
}

func TestResolveMutualRecursion(t *testing.T) {
	source := `def ping():
    return pong()

def pong():
    return ping()
`
	symbols, src := extract(t, source, "python", "cycle.py")
	edges, resources := New().Resolve(symbols, src, "python")

	require.Len(t, edges, 2)
	assert.Empty(t, resources)

	g := NewGraph()
	g.AddSymbols(symbols)
	g.AddEdges(edges)

	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	assert.Len(t, cycles[0], 2)
}

func TestResolveDirectRecursion(t *testing.T) {
	source := `def fact(n):
    return n * fact(n)
`
	symbols, src := extract(t, source, "python", "fact.py")
	edges, _ := New().Resolve(symbols, src, "python")

	require.Len(t, edges, 1)
	assert.Equal(t, edges[0].SourceID, edges[0].TargetID)

	g := NewGraph()
	g.AddSymbols(symbols)
	g.AddEdges(edges)
	require.Len(t, g.Cycles(), 1)
}

func TestResolveUnknownCallTarget(t *testing.T) {
	source := `def run(job):
    return dispatch(job)
`
	symbols, src := extract(t, source, "python", "run.py")
	edges, resources := New().Resolve(symbols, src, "python")

	require.Len(t, resources, 1)
	assert.Equal(t, "dispatch", resources[0].Name)
	assert.Equal(t, types.ResourceCallTarget, resources[0].Kind)

	require.Len(t, edges, 1)
	assert.Equal(t, types.RelationCalls, edges[0].Relation)
	assert.Equal(t, resources[0].ID, edges[0].TargetID)
}

func TestResolveFunctionLocalImport(t *testing.T) {
	source := `def lazy():
    import json
    return json.dumps({})
`
	symbols, src := extract(t, source, "python", "lazy.py")
	edges, resources := New().Resolve(symbols, src, "python")

	require.Len(t, resources, 1)
	assert.Equal(t, "json", resources[0].Name)

	relations := make(map[types.Relation]bool)
	for _, e := range edges {
		relations[e.Relation] = true
		assert.Equal(t, symbols[0].ID, e.SourceID)
	}
	assert.True(t, relations[types.RelationImports])
	assert.True(t, relations[types.RelationUses])
}

func TestResolveEdgeSourcesAreSymbols(t *testing.T) {
	source := `import os

def walk(root):
    return os.listdir(root)

def count(root):
    return len(walk(root))
`
	symbols, src := extract(t, source, "python", "fs.py")
	edges, _ := New().Resolve(symbols, src, "python")

	ids := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		ids[s.ID] = true
	}
	for _, e := range edges {
		assert.True(t, ids[e.SourceID], "edge source %s must be a symbol from this run", e.SourceID)
		assert.NoError(t, e.Validate())
	}
}

func TestResolveDeduplicatesEdges(t *testing.T) {
	source := `def caller():
    helper()
    helper()
    return helper()

def helper():
    return 1
`
	symbols, src := extract(t, source, "python", "dup.py")
	edges, _ := New().Resolve(symbols, src, "python")
	require.Len(t, edges, 1)
}

func TestScanGoImports(t *testing.T) {
	source := `package main

import (
	"fmt"
	urls "net/url"
)

func main() {
	fmt.Println(urls.QueryEscape("x"))
}
`
	symbols, src := extract(t, source, "go", "main.go")
	edges, resources := New().Resolve(symbols, src, "go")

	names := make(map[string]types.ResourceKind, len(resources))
	for _, r := range resources {
		names[r.Name] = r.Kind
	}
	assert.Equal(t, types.ResourceImport, names["fmt"])
	assert.Equal(t, types.ResourceImport, names["net/url"])

	require.NotEmpty(t, edges)
	targets := make(map[string]bool)
	for _, e := range edges {
		targets[e.TargetID] = true
	}
	assert.True(t, targets[types.ResourceID(types.ResourceImport, "fmt")])
	assert.True(t, targets[types.ResourceID(types.ResourceImport, "net/url")])
}

func TestScanJavaScriptImports(t *testing.T) {
	source := `import axios from 'axios';
const path = require('path');

function load(url) {
  return axios.get(path.join(url));
}
`
	symbols, src := extract(t, source, "javascript", "load.js")
	_, resources := New().Resolve(symbols, src, "javascript")

	names := make(map[string]bool, len(resources))
	for _, r := range resources {
		names[r.Name] = true
	}
	assert.True(t, names["axios"])
	assert.True(t, names["path"])
}

func TestGraphReachableTerminatesOnCycle(t *testing.T) {
	g := NewGraph()
	g.AddEdges([]types.Edge{
		{SourceID: "a", TargetID: "b", Relation: types.RelationCalls},
		{SourceID: "b", TargetID: "a", Relation: types.RelationCalls},
		{SourceID: "b", TargetID: "c", Relation: types.RelationCalls},
	})

	reachable := g.Reachable("a")
	assert.ElementsMatch(t, []string{"b", "c"}, reachable)
}

func TestGraphDOT(t *testing.T) {
	source := `import requests

def fetch(url):
    return requests.get(url)
`
	symbols, src := extract(t, source, "python", "client.py")
	edges, resources := New().Resolve(symbols, src, "python")

	g := NewGraph()
	g.AddSymbols(symbols)
	g.AddResources(resources)
	g.AddEdges(edges)

	dot := g.DOT()
	assert.Contains(t, dot, "digraph dependencies")
	assert.Contains(t, dot, `label="fetch", shape=box`)
	assert.Contains(t, dot, `label="requests", shape=ellipse`)
	assert.Contains(t, dot, `[label="uses"]`)

	// Deterministic output.
	assert.Equal(t, dot, g.DOT())
}
