// Package search implements the four ranking strategies the gateway can
// run over an indexed tool corpus (regex, BM25, embedding similarity,
// and a reciprocal-rank-fusion hybrid of the latter two) behind one
// shared contract.
package search

import (
	"context"
	"sort"

	"github.com/please-dev/please-gateway/internal/index"
)

// MatchType names which strategy produced a Result.
type MatchType string

const (
	MatchRegex    MatchType = "regex"
	MatchBM25     MatchType = "bm25"
	MatchEmbedding MatchType = "embedding"
	MatchHybrid   MatchType = "hybrid"
)

// Result is a single ranked hit.
type Result struct {
	Name        string    `json:"name"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description"`
	Score       float64   `json:"score"`
	MatchType   MatchType `json:"matchType"`
}

// Options controls a single search invocation.
type Options struct {
	TopK      int
	Threshold float64 // results scoring below this are dropped; 0 disables the filter
}

// Strategy is the contract every ranking algorithm implements.
type Strategy interface {
	Initialize(ctx context.Context) error
	Search(ctx context.Context, query string, tools []index.IndexedTool, opts Options) ([]Result, error)
	Dispose() error
}

// applyTopKAndThreshold sorts results descending by score, drops anything
// under threshold, and truncates to topK. It is shared by every strategy
// so the final shaping rule never drifts between implementations.
func applyTopKAndThreshold(results []Result, opts Options) []Result {
	filtered := results
	if opts.Threshold > 0 {
		filtered = filtered[:0]
		for _, r := range results {
			if r.Score >= opts.Threshold {
				filtered = append(filtered, r)
			}
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Score > filtered[j].Score })

	if opts.TopK > 0 && len(filtered) > opts.TopK {
		filtered = filtered[:opts.TopK]
	}
	return filtered
}
