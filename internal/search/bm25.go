package search

import (
	"context"
	"math"

	"github.com/please-dev/please-gateway/internal/index"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// BM25Strategy is standard Okapi BM25 scoring. If corpus statistics are
// not injected up front via NewBM25StrategyWithStats, they are computed
// from the documents passed to Search.
type BM25Strategy struct {
	stats    *index.BM25Stats
	hasStats bool
}

func NewBM25Strategy() *BM25Strategy { return &BM25Strategy{} }

// NewBM25StrategyWithStats pins the corpus statistics up front, matching
// what a persisted index already carries.
func NewBM25StrategyWithStats(stats index.BM25Stats) *BM25Strategy {
	return &BM25Strategy{stats: &stats, hasStats: true}
}

func (s *BM25Strategy) Initialize(ctx context.Context) error { return nil }
func (s *BM25Strategy) Dispose() error                       { return nil }

func (s *BM25Strategy) Search(ctx context.Context, query string, tools []index.IndexedTool, opts Options) ([]Result, error) {
	stats := s.stats
	if !s.hasStats {
		computed := index.ComputeBM25Stats(tools)
		stats = &computed
	}

	queryTokens := index.Tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	var results []Result
	for _, t := range tools {
		score := scoreBM25(queryTokens, t.Tokens, *stats)
		if score <= 0 {
			continue
		}
		results = append(results, Result{
			Name:        t.Tool.Name,
			Title:       t.Tool.Title,
			Description: t.Tool.Description,
			Score:       score,
			MatchType:   MatchBM25,
		})
	}

	normalizeByMax(results)
	return applyTopKAndThreshold(results, opts), nil
}

func scoreBM25(queryTokens, docTokens []string, stats index.BM25Stats) float64 {
	if stats.TotalDocuments == 0 || stats.AvgDocLength == 0 {
		return 0
	}

	termFreq := make(map[string]int, len(docTokens))
	for _, tok := range docTokens {
		termFreq[tok]++
	}
	docLen := float64(len(docTokens))

	var score float64
	for _, term := range queryTokens {
		tf, ok := termFreq[term]
		if !ok {
			continue
		}
		df := stats.DocumentFrequencies[term]
		idf := math.Log((float64(stats.TotalDocuments-df)+0.5)/(float64(df)+0.5) + 1)
		tfNorm := float64(tf) * (bm25K1 + 1) / (float64(tf) + bm25K1*(1-bm25B+bm25B*docLen/stats.AvgDocLength))
		score += idf * tfNorm
	}
	return score
}

// normalizeByMax divides every score by the maximum observed score, so
// the top result has score 1.0. A no-op on an empty or all-zero set.
func normalizeByMax(results []Result) {
	if len(results) == 0 {
		return
	}
	max := 0.0
	for _, r := range results {
		if r.Score > max {
			max = r.Score
		}
	}
	if max == 0 {
		return
	}
	for i := range results {
		results[i].Score = results[i].Score / max
	}
}
