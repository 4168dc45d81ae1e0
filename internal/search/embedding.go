package search

import (
	"context"
	"fmt"
	"math"

	"github.com/please-dev/please-gateway/internal/embedding"
	"github.com/please-dev/please-gateway/internal/index"
)

// EmbeddingStrategy scores documents by cosine similarity between the
// query's embedding and each document's stored embedding.
type EmbeddingStrategy struct {
	provider embedding.Provider

	initialized bool
}

func NewEmbeddingStrategy(provider embedding.Provider) *EmbeddingStrategy {
	return &EmbeddingStrategy{provider: provider}
}

func (s *EmbeddingStrategy) Initialize(ctx context.Context) error {
	if s.initialized {
		return nil
	}
	if err := s.provider.Initialize(ctx); err != nil {
		return err
	}
	s.initialized = true
	return nil
}

func (s *EmbeddingStrategy) Dispose() error {
	return s.provider.Dispose()
}

func (s *EmbeddingStrategy) Search(ctx context.Context, query string, tools []index.IndexedTool, opts Options) ([]Result, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}

	candidates := make([]index.IndexedTool, 0, len(tools))
	for _, t := range tools {
		if len(t.Embedding) > 0 {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("embedding search: No tools with embeddings are indexed")
	}

	queryVec, err := s.provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding search: embed query: %w", err)
	}

	var results []Result
	for _, t := range candidates {
		if len(t.Embedding) != len(queryVec) {
			return nil, fmt.Errorf("embedding search: dimension mismatch: query has %d, tool %q has %d", len(queryVec), t.Tool.Name, len(t.Embedding))
		}
		cos := cosineSimilarity(queryVec, t.Embedding)
		score := (cos + 1) / 2

		results = append(results, Result{
			Name:        t.Tool.Name,
			Title:       t.Tool.Title,
			Description: t.Tool.Description,
			Score:       score,
			MatchType:   MatchEmbedding,
		})
	}

	return applyTopKAndThreshold(results, opts), nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
