package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semindex/internal/embedder"
	"semindex/internal/store"
	"semindex/pkg/types"
)

func newTestPipeline(t *testing.T) (*Pipeline, *store.SQLiteStore, embedder.Engine) {
	t.Helper()

	engine, err := embedder.NewHashProvider(embedder.NewCache(1000))
	require.NoError(t, err)

	vs, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = vs.Close() })

	return New(engine, vs, nil, Config{Workers: 2}), vs, engine
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestIndexCallGraphAndRanking(t *testing.T) {
	p, vs, engine := newTestPipeline(t)
	dir := t.TempDir()

	writeFile(t, dir, "auth.py", `def login(user):
    return check(user)

def check(user):
    return user.active
`)
	writeFile(t, dir, "fmtutil.py", `def pad(text):
    return text.ljust(80)
`)

	ctx := context.Background()
	summary, err := p.Index(ctx, dir, "")
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.FilesProcessed)
	assert.Equal(t, 3, summary.SymbolsIndexed)
	assert.Empty(t, summary.Errors)

	// login -> check is the only edge; both names resolve in-file so no
	// resources appear.
	assert.Equal(t, 1, summary.EdgesResolved)
	assert.Equal(t, 0, summary.ResourcesFound)
	assert.Equal(t, 1, summary.Graph.EdgeCount())

	count, err := vs.Count(ctx, p.Table())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Querying for authentication ranks the auth functions above the
	// unrelated formatting helper.
	queryVec, err := engine.Embed(ctx, "authentication check")
	require.NoError(t, err)

	results, err := vs.Query(ctx, p.Table(), queryVec, 3, store.MetricCosine)
	require.NoError(t, err)
	require.Len(t, results, 3)

	top := []string{results[0].Record.SymbolID, results[1].Record.SymbolID}
	for _, id := range top {
		assert.NotContains(t, id, "pad", "formatting helper must rank last, got %v", top)
	}
	assert.Contains(t, results[2].Record.SymbolID, "pad")
}

func TestIndexImportScenario(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	dir := t.TempDir()

	writeFile(t, dir, "client.py", `import requests

def fetch(url):
    return requests.get(url)
`)

	summary, err := p.Index(context.Background(), dir, "")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ResourcesFound)
	assert.Equal(t, 1, summary.EdgesResolved)

	dot := summary.Graph.DOT()
	assert.Contains(t, dot, `label="requests"`)
	assert.Contains(t, dot, `[label="uses"]`)
}

func TestReindexDropsDeletedSymbols(t *testing.T) {
	p, vs, _ := newTestPipeline(t)
	dir := t.TempDir()
	ctx := context.Background()

	writeFile(t, dir, "app.py", `def login(user):
    return check(user)

def check(user):
    return user.active
`)

	_, err := p.Index(ctx, dir, "")
	require.NoError(t, err)

	count, err := vs.Count(ctx, p.Table())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Delete one function and re-index: the stale record must be gone.
	writeFile(t, dir, "app.py", `def login(user):
    return True
`)

	_, err = p.Index(ctx, dir, "")
	require.NoError(t, err)

	count, err = vs.Count(ctx, p.Table())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := vs.Query(ctx, p.Table(), make([]float32, 256), 10, store.MetricCosine)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Record.SymbolID, "login")
}

func TestIndexEmptyRoot(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	summary, err := p.Index(context.Background(), t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.FilesProcessed)
	assert.Equal(t, 0, summary.SymbolsIndexed)
	assert.Empty(t, summary.Errors)
}

func TestDiscoverSkipsIgnoredAndHidden(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	dir := t.TempDir()

	writeFile(t, dir, "keep.py", "def a():\n    pass\n")
	writeFile(t, dir, "ignored.py", "def b():\n    pass\n")
	writeFile(t, dir, "node_modules/dep.py", "def c():\n    pass\n")
	writeFile(t, dir, ".hidden/secret.py", "def d():\n    pass\n")
	writeFile(t, dir, "notes.txt", "not source")
	writeFile(t, dir, ".gitignore", "ignored.py\n")

	files, err := p.discoverFiles(dir, "")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, strings.HasSuffix(files[0], "keep.py"))
}

func TestDiscoverAppliesFilterGlob(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	dir := t.TempDir()

	writeFile(t, dir, "top.py", "def a():\n    pass\n")
	writeFile(t, dir, "sub/inner.py", "def b():\n    pass\n")
	writeFile(t, dir, "sub/inner.go", "package sub\n\nfunc B() {}\n")

	files, err := p.discoverFiles(dir, "sub/*.py")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, strings.HasSuffix(files[0], filepath.Join("sub", "inner.py")))

	_, err = p.discoverFiles(dir, "[")
	assert.Error(t, err)
}

func TestBuildSourceTextPolicy(t *testing.T) {
	lines := make([]string, 100)
	lines[0] = "def big():"
	for i := 1; i < 100; i++ {
		lines[i] = "    pass"
	}

	sym := types.Symbol{
		ID:        "f.py:big:1",
		Name:      "big",
		Kind:      types.KindFunction,
		FilePath:  "f.py",
		StartLine: 1,
		EndLine:   100,
		Signature: "def big():",
		Docstring: "A very long function.",
	}

	text := buildSourceText(sym, lines)
	got := strings.Split(text, "\n")
	// signature + docstring + capped body lines
	assert.Len(t, got, 2+SourceTextBodyLines)
	assert.Equal(t, "def big():", got[0])
	assert.Equal(t, "A very long function.", got[1])
}

type shrinkingEngine struct {
	*embedder.HashProvider
	maxAccepted int
	calls       int
}

func (s *shrinkingEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if len(texts) > s.maxAccepted {
		return nil, embedder.ErrBatchTooLarge
	}
	return s.HashProvider.EmbedBatch(ctx, texts)
}

func (s *shrinkingEngine) MaxBatchSize() int { return 64 }

func TestEmbedAllHalvesOversizedBatches(t *testing.T) {
	hash, err := embedder.NewHashProvider(nil)
	require.NoError(t, err)
	engine := &shrinkingEngine{HashProvider: hash, maxAccepted: 8}

	vs, err := store.Open(filepath.Join(t.TempDir(), "s.db"))
	require.NoError(t, err)
	defer func() { _ = vs.Close() }()

	p := New(engine, vs, nil, Config{})

	texts := make([]string, 20)
	for i := range texts {
		texts[i] = "text number " + strings.Repeat("x", i+1)
	}

	vectors, err := p.embedAll(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vectors, 20)
}

func TestEmbedAllSurfacesFatalErrors(t *testing.T) {
	hash, err := embedder.NewHashProvider(nil)
	require.NoError(t, err)
	engine := &failingEngine{HashProvider: hash}

	vs, err := store.Open(filepath.Join(t.TempDir(), "s.db"))
	require.NoError(t, err)
	defer func() { _ = vs.Close() }()

	p := New(engine, vs, nil, Config{})

	_, err = p.embedAll(context.Background(), []string{"a", "b"})
	assert.True(t, errors.Is(err, embedder.ErrUnavailable))
}

type failingEngine struct {
	*embedder.HashProvider
}

func (f *failingEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, embedder.ErrUnavailable
}
