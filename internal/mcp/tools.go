package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"semindex/internal/store"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // No index exists yet
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// handleIndexCodebase handles the index_codebase tool invocation
func (s *Server) handleIndexCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	filter := getStringDefault(args, "filter", "")

	if !s.indexMu.TryLock() {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "an indexing run is already in progress", nil)
	}
	defer s.indexMu.Unlock()

	summary, err := s.pipeline.Index(ctx, path, filter)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// The table was replaced; cached queries are stale.
	s.searcher.InvalidateCache()
	s.lastRun = summary

	response := map[string]interface{}{
		"indexed":         true,
		"run_id":          summary.RunID,
		"files_processed": summary.FilesProcessed,
		"files_skipped":   summary.FilesSkipped,
		"symbols_indexed": summary.SymbolsIndexed,
		"edges_resolved":  summary.EdgesResolved,
		"resources_found": summary.ResourcesFound,
		"duration_ms":     summary.Duration.Milliseconds(),
	}
	if len(summary.Errors) > 0 {
		errorCount := len(summary.Errors)
		if errorCount > 5 {
			response["errors"] = summary.Errors[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = summary.Errors
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSemanticSearch handles the semantic_search tool invocation
func (s *Server) handleSemanticSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	results, err := s.searcher.Search(ctx, s.table, query, limit)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotIndexed, "no index exists; run index_codebase first", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	hits := make([]map[string]interface{}, len(results))
	for i, r := range results {
		hits[i] = map[string]interface{}{
			"symbol_id":  r.SymbolID,
			"file_path":  r.FilePath,
			"start_line": r.StartLine,
			"end_line":   r.EndLine,
			"kind":       r.Kind,
			"score":      r.Score,
			"snippet":    r.Snippet,
		}
	}

	s.log.Debug("semantic_search served", zap.String("query", query), zap.Int("results", len(hits)))

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":   query,
		"results": hits,
	})), nil
}

// handleIndexStatus handles the index_status tool invocation
func (s *Server) handleIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count, err := s.store.Count(ctx, s.table)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read index", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"table":        s.table,
		"record_count": count,
		"embedding": map[string]interface{}{
			"provider":  s.engine.Provider(),
			"model":     s.engine.Model(),
			"dimension": s.engine.Dimension(),
		},
		"build": map[string]interface{}{
			"mode":             store.BuildMode,
			"driver":           store.DriverName,
			"vector_extension": store.VectorExtensionAvailable,
		},
	}

	dimension, err := s.store.TableDimension(ctx, s.table)
	switch {
	case errors.Is(err, store.ErrNotFound):
		response["indexed"] = false
		response["message"] = "No index exists. Use the index_codebase tool to build one."
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "failed to read index", map[string]interface{}{
			"error": err.Error(),
		})
	default:
		response["indexed"] = true
		response["dimension"] = dimension
	}

	if s.lastRun != nil {
		response["last_run"] = map[string]interface{}{
			"run_id":          s.lastRun.RunID,
			"files_processed": s.lastRun.FilesProcessed,
			"symbols_indexed": s.lastRun.SymbolsIndexed,
			"edges_resolved":  s.lastRun.EdgesResolved,
			"resources_found": s.lastRun.ResourcesFound,
			"error_count":     len(s.lastRun.Errors),
			"duration_ms":     s.lastRun.Duration.Milliseconds(),
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that path is an absolute, readable directory.
func validatePath(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
