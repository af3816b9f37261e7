package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	gitignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"semindex/internal/embedder"
	"semindex/internal/parser"
	"semindex/internal/resolver"
	"semindex/internal/store"
	"semindex/pkg/types"
)

// SourceTextBodyLines is the fixed source-text policy: each symbol is
// embedded as its signature, docstring and at most this many body lines.
const SourceTextBodyLines = 30

// DefaultTable is the store table indexing runs write to.
const DefaultTable = "code"

// Directories never worth indexing.
var skipDirs = map[string]bool{
	"vendor":       true,
	"node_modules": true,
	"__pycache__":  true,
}

// Config tunes an indexing run.
type Config struct {
	Workers int    // concurrent file workers, default runtime.NumCPU()
	Table   string // store table name, default DefaultTable
}

// Summary reports what one indexing run did. Per-file failures land in
// Errors; they never abort the run.
type Summary struct {
	RunID          string
	FilesProcessed int
	FilesSkipped   int
	SymbolsIndexed int
	EdgesResolved  int
	ResourcesFound int
	Errors         []string
	Duration       time.Duration

	// Graph holds the dependency graph assembled during the run, ready
	// for traversal or DOT export.
	Graph *resolver.Graph
}

// Pipeline wires the parser, resolver, embedding engine and vector store
// together.
type Pipeline struct {
	parser   *parser.Parser
	resolver *resolver.Resolver
	engine   embedder.Engine
	store    store.VectorStore
	log      *zap.Logger
	workers  int
	table    string
}

// New creates a Pipeline. A nil logger disables logging.
func New(engine embedder.Engine, vs store.VectorStore, logger *zap.Logger, cfg Config) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	return &Pipeline{
		parser:   parser.New(),
		resolver: resolver.New(),
		engine:   engine,
		store:    vs,
		log:      logger,
		workers:  workers,
		table:    table,
	}
}

// Table returns the store table this pipeline writes to.
func (p *Pipeline) Table() string {
	return p.table
}

// fileResult is the per-file output of the parse/extract/resolve stage.
type fileResult struct {
	path      string
	symbols   []types.Symbol
	edges     []types.Edge
	resources []types.Resource
	texts     map[string]string // symbol id -> source text
}

// Index processes every supported file under root that matches filter (a
// glob over root-relative paths, "" for all), and replaces the store table
// with the run's records. One malformed file is recorded and skipped; an
// unusable embedding engine fails the run.
func (p *Pipeline) Index(ctx context.Context, root string, filter string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{
		RunID: uuid.NewString(),
		Graph: resolver.NewGraph(),
	}

	files, err := p.discoverFiles(root, filter)
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}

	p.log.Info("indexing run started",
		zap.String("run_id", summary.RunID),
		zap.String("root", root),
		zap.Int("files", len(files)),
		zap.Int("workers", p.workers))

	results, fileErrors := p.processFiles(ctx, files)
	summary.Errors = fileErrors
	summary.FilesSkipped = len(fileErrors)

	// Deterministic assembly order regardless of worker completion.
	sort.Slice(results, func(i, j int) bool { return results[i].path < results[j].path })

	var records []types.EmbeddingRecord
	var texts []string
	for _, res := range results {
		summary.FilesProcessed++
		summary.Graph.AddSymbols(res.symbols)
		summary.Graph.AddResources(res.resources)
		summary.Graph.AddEdges(res.edges)
		summary.EdgesResolved += len(res.edges)
		summary.ResourcesFound += len(res.resources)

		for _, sym := range res.symbols {
			records = append(records, types.EmbeddingRecord{
				SymbolID:   sym.ID,
				SourceText: res.texts[sym.ID],
				Metadata: types.RecordMetadata{
					FilePath:  sym.FilePath,
					Kind:      string(sym.Kind),
					StartLine: sym.StartLine,
					EndLine:   sym.EndLine,
				},
			})
			texts = append(texts, res.texts[sym.ID])
		}
	}

	vectors, err := p.embedAll(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding run failed: %w", err)
	}
	for i := range records {
		records[i].Vector = vectors[i]
	}
	summary.SymbolsIndexed = len(records)

	// One atomic swap per run: stale records from deleted or renamed
	// symbols cannot survive.
	if err := p.store.ReplaceTable(ctx, p.table, records); err != nil {
		return nil, fmt.Errorf("replace table %s: %w", p.table, err)
	}

	summary.Duration = time.Since(start)
	p.log.Info("indexing run finished",
		zap.String("run_id", summary.RunID),
		zap.Int("files_processed", summary.FilesProcessed),
		zap.Int("symbols_indexed", summary.SymbolsIndexed),
		zap.Int("edges", summary.EdgesResolved),
		zap.Int("file_errors", len(summary.Errors)),
		zap.Duration("duration", summary.Duration))

	return summary, nil
}

// discoverFiles walks root collecting supported source files, honoring
// .gitignore, the skip list, hidden directories and the filter glob.
func (p *Pipeline) discoverFiles(root string, filter string) ([]string, error) {
	var matcher glob.Glob
	if filter != "" {
		var err error
		matcher, err = glob.Compile(filter, '/')
		if err != nil {
			return nil, fmt.Errorf("bad filter %q: %w", filter, err)
		}
	}

	var ignore *gitignore.GitIgnore
	if gi, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		ignore = gi
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if ignore != nil && ignore.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !p.parser.Supports(path) {
			return nil
		}
		if ignore != nil && ignore.MatchesPath(rel) {
			return nil
		}
		if matcher != nil && !matcher.Match(filepath.ToSlash(rel)) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// processFiles runs the parse/extract/resolve stage over a bounded worker
// pool. Files are independent until the final store write.
func (p *Pipeline) processFiles(ctx context.Context, files []string) ([]fileResult, []string) {
	semaphore := make(chan struct{}, p.workers)

	var mu sync.Mutex
	var results []fileResult
	var fileErrors []string

	g, gctx := errgroup.WithContext(ctx)
	for _, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			res, err := p.processFile(path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.log.Warn("file skipped", zap.String("path", path), zap.Error(err))
				fileErrors = append(fileErrors, fmt.Sprintf("%s: %v", path, err))
				return nil // per-file failures never abort the run
			}
			results = append(results, res)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		mu.Lock()
		fileErrors = append(fileErrors, err.Error())
		mu.Unlock()
	}

	return results, fileErrors
}

// processFile parses one file and produces its symbols, dependency graph
// slice and per-symbol source texts.
func (p *Pipeline) processFile(path string) (fileResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return fileResult{}, fmt.Errorf("read: %w", err)
	}

	language := parser.DetectLanguage(path)
	tree, err := p.parser.Parse(source, language)
	if err != nil {
		return fileResult{}, fmt.Errorf("parse: %w", err)
	}
	defer tree.Close()

	symbols, err := p.parser.ExtractSymbols(tree, path)
	if err != nil {
		return fileResult{}, fmt.Errorf("extract: %w", err)
	}

	edges, resources := p.resolver.Resolve(symbols, source, language)

	lines := strings.Split(string(source), "\n")
	texts := make(map[string]string, len(symbols))
	for _, sym := range symbols {
		texts[sym.ID] = buildSourceText(sym, lines)
	}

	return fileResult{
		path:      path,
		symbols:   symbols,
		edges:     edges,
		resources: resources,
		texts:     texts,
	}, nil
}

// buildSourceText assembles the text embedded for one symbol: signature,
// docstring, then at most SourceTextBodyLines lines of its span.
func buildSourceText(sym types.Symbol, lines []string) string {
	parts := []string{sym.Signature}
	if sym.Docstring != "" {
		parts = append(parts, sym.Docstring)
	}

	end := sym.EndLine
	if max := sym.StartLine + SourceTextBodyLines - 1; end > max {
		end = max
	}
	if end > len(lines) {
		end = len(lines)
	}
	if sym.StartLine >= 1 && sym.StartLine <= end {
		parts = append(parts, lines[sym.StartLine-1:end]...)
	}

	return strings.Join(parts, "\n")
}

// embedAll embeds texts in batches bounded by the engine's ceiling,
// halving the batch and retrying when the engine reports it as too large.
func (p *Pipeline) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	batchSize := p.engine.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = 1
	}

	for start := 0; start < len(texts); {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := p.engine.EmbedBatch(ctx, texts[start:end])
		if errors.Is(err, embedder.ErrBatchTooLarge) && batchSize > 1 {
			batchSize /= 2
			p.log.Debug("batch too large, halving", zap.Int("batch_size", batchSize))
			continue
		}
		if err != nil {
			return nil, err
		}

		vectors = append(vectors, batch...)
		start = end
	}

	return vectors, nil
}
