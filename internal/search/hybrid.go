package search

import (
	"context"
	"fmt"
	"math"

	"github.com/please-dev/please-gateway/internal/index"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRRFK              = 60
	defaultTopKMultiplier    = 3
)

// HybridStrategy composes BM25 and Embedding via Reciprocal Rank Fusion.
type HybridStrategy struct {
	bm25          *BM25Strategy
	embedding     *EmbeddingStrategy
	rrfK          float64
	topKMultiplier int
}

// NewHybridStrategy builds a hybrid strategy over an already-constructed
// BM25 and embedding sub-strategy, using the default RRF constant (60)
// and topK expansion multiplier (3).
func NewHybridStrategy(bm25 *BM25Strategy, emb *EmbeddingStrategy) *HybridStrategy {
	return &HybridStrategy{bm25: bm25, embedding: emb, rrfK: defaultRRFK, topKMultiplier: defaultTopKMultiplier}
}

// WithRRFK overrides the RRF constant (default 60).
func (s *HybridStrategy) WithRRFK(k float64) *HybridStrategy {
	s.rrfK = k
	return s
}

func (s *HybridStrategy) Initialize(ctx context.Context) error {
	if err := s.bm25.Initialize(ctx); err != nil {
		return err
	}
	return s.embedding.Initialize(ctx)
}

func (s *HybridStrategy) Dispose() error {
	if err := s.bm25.Dispose(); err != nil {
		return err
	}
	return s.embedding.Dispose()
}

func (s *HybridStrategy) Search(ctx context.Context, query string, tools []index.IndexedTool, opts Options) ([]Result, error) {
	hasEmbedding := false
	for _, t := range tools {
		if len(t.Embedding) > 0 {
			hasEmbedding = true
			break
		}
	}
	if !hasEmbedding {
		return nil, fmt.Errorf("hybrid search: no indexed tools carry an embedding; build the index with an embedding provider first")
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = len(tools)
	}
	expanded := Options{TopK: topK * s.topKMultiplier, Threshold: 0}

	var bm25Results, embResults []Result
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		res, err := s.bm25.Search(gctx, query, tools, expanded)
		if err != nil {
			return fmt.Errorf("hybrid search: bm25 side failed: %w", err)
		}
		bm25Results = res
		return nil
	})
	group.Go(func() error {
		res, err := s.embedding.Search(gctx, query, tools, expanded)
		if err != nil {
			return fmt.Errorf("hybrid search: embedding side failed: %w", err)
		}
		embResults = res
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	fused := reciprocalRankFusion(s.rrfK, bm25Results, embResults)
	normalizeByMax(fused)
	for i := range fused {
		fused[i].Score = math.Round(fused[i].Score*1000) / 1000
		fused[i].MatchType = MatchHybrid
	}

	return applyTopKAndThreshold(fused, opts), nil
}

// reciprocalRankFusion merges ranked result lists: each sub-result at
// zero-based rank r contributes 1/(k+r+1) to its document's fused score.
// A document present in more than one list accumulates every
// contribution.
func reciprocalRankFusion(k float64, lists ...[]Result) []Result {
	fused := make(map[string]*Result)
	order := make([]string, 0)

	for _, list := range lists {
		for r, res := range list {
			contribution := 1 / (k + float64(r) + 1)
			if existing, ok := fused[res.Name]; ok {
				existing.Score += contribution
				continue
			}
			c := res
			c.Score = contribution
			fused[res.Name] = &c
			order = append(order, res.Name)
		}
	}

	out := make([]Result, 0, len(order))
	for _, name := range order {
		out = append(out, *fused[name])
	}
	return out
}
