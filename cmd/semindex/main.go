package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"semindex/internal/config"
	"semindex/internal/embedder"
	"semindex/internal/mcp"
	"semindex/internal/pipeline"
	"semindex/internal/searcher"
	"semindex/internal/store"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	flagConfig string
	flagDB     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "semindex",
	Short:         "Semantic source-tree indexing and search",
	Long:          "semindex parses source trees with tree-sitter, embeds each symbol and writes a SQLite vector index for semantic queries.",
	SilenceErrors: true,
	SilenceUsage:  true,
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "semindex.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (overrides config)")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.Storage.DatabasePath = flagDB
	}
	return cfg, nil
}

// newLogger builds a stderr logger; stdout stays free for command output
// and the MCP protocol.
func newLogger(debug bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if debug {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	if dir := filepath.Dir(cfg.Storage.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return store.Open(cfg.Storage.DatabasePath)
}

func newEngine(cfg *config.Config) (embedder.Engine, error) {
	return embedder.New(embedder.Config{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		CacheSize: cfg.Embedding.CacheSize,
	})
}

var (
	flagFilter string
	flagDOT    string
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a source tree for semantic search",
	Long:  "Parses supported source files, resolves dependencies, embeds each symbol and replaces the vector index in one atomic write.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&flagFilter, "filter", "", "glob over root-relative paths (e.g. 'src/**/*.py')")
	indexCmd.Flags().StringVar(&flagDOT, "dot", "", "write the dependency graph in Graphviz dot format to this file")
}

func runIndex(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	vs, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = vs.Close() }()

	engine, err := newEngine(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer func() { _ = engine.Close() }()

	p := pipeline.New(engine, vs, logger, pipeline.Config{
		Workers: cfg.Index.Workers,
		Table:   cfg.Index.Table,
	})

	summary, err := p.Index(context.Background(), targetDir, flagFilter)
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	if flagDOT != "" {
		if err := os.WriteFile(flagDOT, []byte(summary.Graph.DOT()), 0o644); err != nil {
			return fmt.Errorf("writing dot file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Dependency graph: %s\n", flagDOT)
	}

	fmt.Fprintf(os.Stderr, "Indexed %s in %s: %d files, %d symbols, %d edges, %d resources\n",
		targetDir,
		summary.Duration.Round(time.Millisecond),
		summary.FilesProcessed,
		summary.SymbolsIndexed,
		summary.EdgesResolved,
		summary.ResourcesFound,
	)
	for _, msg := range summary.Errors {
		fmt.Fprintf(os.Stderr, "  skipped: %s\n", msg)
	}
	fmt.Fprintf(os.Stderr, "Database: %s\n", cfg.Storage.DatabasePath)

	return nil
}

var (
	flagLimit int
	flagTable string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the index with a natural language query",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&flagLimit, "limit", 10, "maximum number of results (1-100)")
	searchCmd.Flags().StringVar(&flagTable, "table", "", "index table to query (default from config)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	vs, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = vs.Close() }()

	engine, err := newEngine(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer func() { _ = engine.Close() }()

	table := flagTable
	if table == "" {
		table = cfg.Index.Table
	}

	s := searcher.New(vs, engine, logger, searcher.Config{
		CacheSize: cfg.Search.CacheSize,
		CacheTTL:  cfg.Search.CacheTTL(),
	})

	results, err := s.Search(context.Background(), table, args[0], flagLimit)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%2d. %.3f  %s:%d-%d  [%s]\n", i+1, r.Score, r.FilePath, r.StartLine, r.EndLine, r.Kind)
		fmt.Printf("    %s\n", firstLine(r.Snippet))
	}

	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting MCP server",
		zap.String("version", version),
		zap.String("build_mode", store.BuildMode),
		zap.String("driver", store.DriverName),
		zap.Bool("vector_extension", store.VectorExtensionAvailable))

	server, err := mcp.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	return server.Serve()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("semindex\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", store.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", store.DriverName)
		fmt.Printf("Vector Extension: %v\n", store.VectorExtensionAvailable)
	},
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
