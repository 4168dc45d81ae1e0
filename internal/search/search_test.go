package search

import (
	"context"
	"testing"

	"github.com/please-dev/please-gateway/internal/embedding"
	"github.com/please-dev/please-gateway/internal/index"
	"github.com/please-dev/please-gateway/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildCorpus(t *testing.T, withEmbeddings bool) []index.IndexedTool {
	t.Helper()
	defs := []registry.ToolDefinition{
		{Name: "readFile", Description: "Reads a file from disk"},
		{Name: "writeFile", Description: "Writes a file to disk"},
		{Name: "listPullRequests", Description: "Lists open pull requests in a repository"},
	}

	var provider embedding.Provider
	if withEmbeddings {
		provider = embedding.NewLocalGeneralProvider(embedding.QuantFP32)
	}

	tools, _, err := index.Build(context.Background(), defs, index.BuildOptions{Provider: provider})
	require.NoError(t, err)
	return tools
}

func TestRegexStrategy_MatchesAndScores(t *testing.T) {
	tools := buildCorpus(t, false)
	s := NewRegexStrategy()
	require.NoError(t, s.Initialize(context.Background()))

	results, err := s.Search(context.Background(), "file", tools, Options{TopK: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.LessOrEqual(t, r.Score, 1.0)
		assert.Equal(t, MatchRegex, r.MatchType)
	}
}

func TestRegexStrategy_InvalidPatternFallsBackToLiteral(t *testing.T) {
	tools := buildCorpus(t, false)
	s := NewRegexStrategy()
	// unbalanced group is invalid regex syntax
	results, err := s.Search(context.Background(), "file(", tools, Options{TopK: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBM25Strategy_RanksRelevantHigher(t *testing.T) {
	tools := buildCorpus(t, false)
	s := NewBM25Strategy()

	results, err := s.Search(context.Background(), "pull requests", tools, Options{TopK: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "listPullRequests", results[0].Name)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestBM25Strategy_NoMatchesReturnsEmpty(t *testing.T) {
	tools := buildCorpus(t, false)
	s := NewBM25Strategy()
	results, err := s.Search(context.Background(), "zzz nonexistent", tools, Options{TopK: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEmbeddingStrategy_RequiresEmbeddings(t *testing.T) {
	tools := buildCorpus(t, false)
	provider := embedding.NewLocalGeneralProvider(embedding.QuantFP32)
	s := NewEmbeddingStrategy(provider)

	_, err := s.Search(context.Background(), "file", tools, Options{TopK: 10})
	assert.Error(t, err)
}

func TestEmbeddingStrategy_ScoresInUnitRange(t *testing.T) {
	tools := buildCorpus(t, true)
	provider := embedding.NewLocalGeneralProvider(embedding.QuantFP32)
	s := NewEmbeddingStrategy(provider)
	defer s.Dispose()

	results, err := s.Search(context.Background(), "read a file", tools, Options{TopK: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestHybridStrategy_FailsFastWithoutEmbeddings(t *testing.T) {
	tools := buildCorpus(t, false)
	bm25 := NewBM25Strategy()
	emb := NewEmbeddingStrategy(embedding.NewLocalGeneralProvider(embedding.QuantFP32))
	hybrid := NewHybridStrategy(bm25, emb)

	_, err := hybrid.Search(context.Background(), "file", tools, Options{TopK: 5})
	assert.Error(t, err)
}

func TestHybridStrategy_FusesAndNormalizes(t *testing.T) {
	tools := buildCorpus(t, true)
	bm25 := NewBM25Strategy()
	emb := NewEmbeddingStrategy(embedding.NewLocalGeneralProvider(embedding.QuantFP32))
	hybrid := NewHybridStrategy(bm25, emb)
	require.NoError(t, hybrid.Initialize(context.Background()))
	defer hybrid.Dispose()

	results, err := hybrid.Search(context.Background(), "read file from disk", tools, Options{TopK: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, 1.0, results[0].Score)
	for _, r := range results {
		assert.Equal(t, MatchHybrid, r.MatchType)
	}
}

func TestReciprocalRankFusion_AccumulatesBothLists(t *testing.T) {
	a := []Result{{Name: "x"}, {Name: "y"}}
	b := []Result{{Name: "y"}, {Name: "x"}}
	fused := reciprocalRankFusion(60, a, b)

	scores := map[string]float64{}
	for _, r := range fused {
		scores[r.Name] = r.Score
	}
	assert.InDelta(t, 1.0/61+1.0/62, scores["x"], 1e-9)
	assert.InDelta(t, 1.0/62+1.0/61, scores["y"], 1e-9)
}

func TestOrchestrator_UnknownModeIsError(t *testing.T) {
	o := NewOrchestrator("bm25", 10)
	o.Register("bm25", NewBM25Strategy())
	require.NoError(t, o.Initialize(context.Background()))

	_, err := o.Search(context.Background(), Request{Query: "file", Mode: "nonexistent"}, buildCorpus(t, false))
	assert.Error(t, err)
}

func TestOrchestrator_DefaultsAndTiming(t *testing.T) {
	o := NewOrchestrator("bm25", 2)
	o.Register("bm25", NewBM25Strategy())
	require.NoError(t, o.Initialize(context.Background()))

	resp, err := o.Search(context.Background(), Request{Query: "file"}, buildCorpus(t, false))
	require.NoError(t, err)
	assert.Equal(t, "bm25", resp.Mode)
	assert.LessOrEqual(t, len(resp.Tools), 2)
	assert.GreaterOrEqual(t, resp.SearchTimeMs, 0.0)
}
