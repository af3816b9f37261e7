package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"semindex/internal/embedder"
	"semindex/internal/store"
)

// ErrEmptyQuery is returned for a blank query string.
var ErrEmptyQuery = errors.New("query cannot be empty")

const (
	// DefaultLimit applies when the caller passes topK <= 0.
	DefaultLimit = 10

	// MaxLimit caps topK; larger requests are clamped, not rejected.
	MaxLimit = 100

	// SnippetLines bounds the source-text excerpt attached to each hit.
	SnippetLines = 8

	defaultCacheSize = 1000
	defaultCacheTTL  = time.Hour
)

// Result is one search hit: the symbol's identity and location plus its
// similarity score and a source snippet.
type Result struct {
	SymbolID  string
	FilePath  string
	StartLine int
	EndLine   int
	Kind      string
	Score     float64
	Snippet   string
}

// Config tunes the query cache.
type Config struct {
	CacheSize int           // entries, default 1000
	CacheTTL  time.Duration // default 1 hour
}

// cacheEntry holds cached results with an expiration time.
type cacheEntry struct {
	results   []Result
	expiresAt time.Time
}

// Searcher runs semantic queries against an indexed table.
type Searcher struct {
	store  store.VectorStore
	engine embedder.Engine
	log    *zap.Logger

	ttl     time.Duration
	cacheMu sync.RWMutex
	cache   *lru.Cache[[32]byte, *cacheEntry]
}

// New creates a Searcher. A nil logger disables logging.
func New(vs store.VectorStore, engine embedder.Engine, logger *zap.Logger, cfg Config) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	cache, err := lru.New[[32]byte, *cacheEntry](size)
	if err != nil {
		// Unreachable with a positive size.
		cache, _ = lru.New[[32]byte, *cacheEntry](defaultCacheSize)
	}

	return &Searcher{
		store:  vs,
		engine: engine,
		log:    logger,
		ttl:    ttl,
		cache:  cache,
	}
}

// Search embeds query and returns the topK most similar symbols in table,
// scores descending. Store or embedding failures surface to the caller;
// an empty result set is only ever a genuinely empty table.
func (s *Searcher) Search(ctx context.Context, table, query string, topK int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultLimit
	}
	if topK > MaxLimit {
		topK = MaxLimit
	}

	key := queryKey(table, query, topK)
	if cached, ok := s.fromCache(key); ok {
		s.log.Debug("query cache hit", zap.String("table", table), zap.String("query", query))
		return cached, nil
	}

	start := time.Now()
	vector, err := s.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.store.Query(ctx, table, vector, topK, store.MetricCosine)
	if err != nil {
		return nil, fmt.Errorf("query table %s: %w", table, err)
	}

	results := make([]Result, len(hits))
	for i, hit := range hits {
		results[i] = Result{
			SymbolID:  hit.Record.SymbolID,
			FilePath:  hit.Record.Metadata.FilePath,
			StartLine: hit.Record.Metadata.StartLine,
			EndLine:   hit.Record.Metadata.EndLine,
			Kind:      hit.Record.Metadata.Kind,
			Score:     hit.Score,
			Snippet:   snippet(hit.Record.SourceText),
		}
	}

	s.toCache(key, results)
	s.log.Debug("query served",
		zap.String("table", table),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)))

	return results, nil
}

// InvalidateCache drops all cached queries. Called after a re-index, so a
// full purge is the right granularity.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

func (s *Searcher) fromCache(key [32]byte) ([]Result, bool) {
	s.cacheMu.RLock()
	entry, ok := s.cache.Get(key)
	if !ok {
		s.cacheMu.RUnlock()
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		s.cacheMu.RUnlock()
		s.cacheMu.Lock()
		s.cache.Remove(key)
		s.cacheMu.Unlock()
		return nil, false
	}
	results := copyResults(entry.results)
	s.cacheMu.RUnlock()
	return results, true
}

func (s *Searcher) toCache(key [32]byte, results []Result) {
	entry := &cacheEntry{
		results:   copyResults(results),
		expiresAt: time.Now().Add(s.ttl),
	}
	s.cacheMu.Lock()
	s.cache.Add(key, entry)
	s.cacheMu.Unlock()
}

// copyResults guards cached slices against caller mutation.
func copyResults(results []Result) []Result {
	cp := make([]Result, len(results))
	copy(cp, results)
	return cp
}

func queryKey(table, query string, topK int) [32]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", table, query, topK)))
}

// snippet trims source text to its first SnippetLines lines.
func snippet(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= SnippetLines {
		return text
	}
	return strings.Join(lines[:SnippetLines], "\n")
}
