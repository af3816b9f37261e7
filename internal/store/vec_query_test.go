//go:build sqlite_vec
// +build sqlite_vec

package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semindex/pkg/types"
)

// thresholdRecords builds enough records to cross VecIndexThreshold, with
// similarity to the query vector strictly decreasing in record order.
func thresholdRecords(n int) []types.EmbeddingRecord {
	records := make([]types.EmbeddingRecord, n)
	for i := range records {
		r := record(fmt.Sprintf("app.py:sym%04d:%d", i, i+1), []float32{1, float32(i), 0, 0})
		r.Metadata.StartLine = i + 1
		r.Metadata.EndLine = i + 2
		records[i] = r
	}
	return records
}

func TestQueryAboveVecIndexThreshold(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n := VecIndexThreshold + 16
	require.NoError(t, s.ReplaceTable(ctx, "code", thresholdRecords(n)))

	count, err := s.Count(ctx, "code")
	require.NoError(t, err)
	require.GreaterOrEqual(t, count, VecIndexThreshold)

	// Above the threshold this routes through the SQL-side distance path;
	// it must work and rank exactly like the in-process scorer.
	results, err := s.Query(ctx, "code", []float32{1, 0, 0, 0}, 5, MetricCosine)
	require.NoError(t, err)
	require.Len(t, results, 5)

	fallback, err := s.queryFallback(ctx, "code", []float32{1, 0, 0, 0}, 5, MetricCosine)
	require.NoError(t, err)
	require.Len(t, fallback, 5)

	for i := range results {
		assert.Equal(t, fallback[i].Record.SymbolID, results[i].Record.SymbolID)
		assert.InDelta(t, fallback[i].Score, results[i].Score, 1e-5)
	}
	assert.Equal(t, "app.py:sym0000:1", results[0].Record.SymbolID)
}

func TestQueryBelowVecIndexThresholdUsesSameSemantics(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceTable(ctx, "code", thresholdRecords(8)))

	results, err := s.Query(ctx, "code", []float32{1, 0, 0, 0}, 3, MetricCosine)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "app.py:sym0000:1", results[0].Record.SymbolID)
	assert.Equal(t, "app.py:sym0001:2", results[1].Record.SymbolID)
}
