package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semindex/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "index.db")
	cfg.Embedding.Provider = "hash"

	s, err := NewServer(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func toolRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &parsed))
	return parsed
}

func writeSource(t *testing.T, dir string) {
	t.Helper()
	content := `def login(user):
    return check(user)

def check(user):
    return user.active
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.py"), []byte(content), 0644))
}

func TestIndexCodebaseTool(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	writeSource(t, dir)

	res, err := s.handleIndexCodebase(context.Background(), toolRequest(map[string]interface{}{
		"path": dir,
	}))
	require.NoError(t, err)

	parsed := resultJSON(t, res)
	assert.Equal(t, true, parsed["indexed"])
	assert.Equal(t, float64(1), parsed["files_processed"])
	assert.Equal(t, float64(2), parsed["symbols_indexed"])
	assert.NotEmpty(t, parsed["run_id"])
}

func TestIndexCodebaseRequiresPath(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleIndexCodebase(context.Background(), toolRequest(map[string]interface{}{}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestIndexCodebaseRejectsRelativePath(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleIndexCodebase(context.Background(), toolRequest(map[string]interface{}{
		"path": "relative/dir",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestSemanticSearchTool(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	writeSource(t, dir)
	ctx := context.Background()

	_, err := s.handleIndexCodebase(ctx, toolRequest(map[string]interface{}{"path": dir}))
	require.NoError(t, err)

	res, err := s.handleSemanticSearch(ctx, toolRequest(map[string]interface{}{
		"query": "authentication check",
		"limit": float64(5),
	}))
	require.NoError(t, err)

	parsed := resultJSON(t, res)
	hits, ok := parsed["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, hits, 2)

	first := hits[0].(map[string]interface{})
	assert.NotEmpty(t, first["symbol_id"])
	assert.Equal(t, "function", first["kind"])
	assert.NotEmpty(t, first["snippet"])
}

func TestSemanticSearchRequiresQuery(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleSemanticSearch(context.Background(), toolRequest(map[string]interface{}{}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeEmptyQuery, mcpErr.Code)
}

func TestSemanticSearchLimitBounds(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleSemanticSearch(context.Background(), toolRequest(map[string]interface{}{
		"query": "anything",
		"limit": float64(500),
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestSemanticSearchBeforeIndexing(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleSemanticSearch(context.Background(), toolRequest(map[string]interface{}{
		"query": "anything",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeNotIndexed, mcpErr.Code)
}

func TestIndexStatusTool(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	// Before any run: not indexed, but build info is reported.
	res, err := s.handleIndexStatus(ctx, toolRequest(map[string]interface{}{}))
	require.NoError(t, err)
	parsed := resultJSON(t, res)
	assert.Equal(t, false, parsed["indexed"])
	assert.NotNil(t, parsed["build"])

	dir := t.TempDir()
	writeSource(t, dir)
	_, err = s.handleIndexCodebase(ctx, toolRequest(map[string]interface{}{"path": dir}))
	require.NoError(t, err)

	res, err = s.handleIndexStatus(ctx, toolRequest(map[string]interface{}{}))
	require.NoError(t, err)
	parsed = resultJSON(t, res)
	assert.Equal(t, true, parsed["indexed"])
	assert.Equal(t, float64(2), parsed["record_count"])

	lastRun, ok := parsed["last_run"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), lastRun["symbols_indexed"])
}

func TestServerComponentsInitialized(t *testing.T) {
	s := newTestServer(t)

	assert.NotNil(t, s.mcp)
	assert.NotNil(t, s.store)
	assert.NotNil(t, s.pipeline)
	assert.NotNil(t, s.searcher)
	assert.NotNil(t, s.engine)
}
