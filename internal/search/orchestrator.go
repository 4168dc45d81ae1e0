package search

import (
	"context"
	"fmt"
	"time"

	"github.com/please-dev/please-gateway/internal/index"
)

// Request is a single search invocation as seen by the orchestrator.
type Request struct {
	Query     string
	Mode      string // empty selects the orchestrator's default mode
	TopK      int    // 0 selects the orchestrator's default topK
	Threshold float64
}

// Response is what the orchestrator hands back to the gateway.
type Response struct {
	Tools        []Result  `json:"tools"`
	Query        string    `json:"query"`
	Mode         string    `json:"mode"`
	TotalIndexed int       `json:"totalIndexed"`
	SearchTimeMs float64   `json:"searchTimeMs"`
}

// Orchestrator holds every registered strategy by mode name and applies
// request-level defaults.
type Orchestrator struct {
	strategies  map[string]Strategy
	defaultMode string
	defaultTopK int
}

// NewOrchestrator builds an orchestrator with no strategies registered.
// Use Register to add each mode.
func NewOrchestrator(defaultMode string, defaultTopK int) *Orchestrator {
	return &Orchestrator{
		strategies:  make(map[string]Strategy),
		defaultMode: defaultMode,
		defaultTopK: defaultTopK,
	}
}

// Register adds a strategy under mode.
func (o *Orchestrator) Register(mode string, strategy Strategy) {
	o.strategies[mode] = strategy
}

// Initialize propagates initialization to every registered strategy.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	for mode, s := range o.strategies {
		if err := s.Initialize(ctx); err != nil {
			return fmt.Errorf("initialize %s strategy: %w", mode, err)
		}
	}
	return nil
}

// Dispose releases every registered strategy's resources.
func (o *Orchestrator) Dispose() error {
	for mode, s := range o.strategies {
		if err := s.Dispose(); err != nil {
			return fmt.Errorf("dispose %s strategy: %w", mode, err)
		}
	}
	return nil
}

// Search resolves the mode, times the underlying strategy call, and
// shapes the result into a Response.
func (o *Orchestrator) Search(ctx context.Context, req Request, tools []index.IndexedTool) (*Response, error) {
	mode := req.Mode
	if mode == "" {
		mode = o.defaultMode
	}
	strategy, ok := o.strategies[mode]
	if !ok {
		if mode == "embedding" || mode == "hybrid" {
			return nil, fmt.Errorf("search: No tools with embeddings are indexed, so mode %q is unavailable", mode)
		}
		return nil, fmt.Errorf("search: unknown mode %q", mode)
	}

	topK := req.TopK
	if topK <= 0 {
		topK = o.defaultTopK
	}

	start := time.Now()
	results, err := strategy.Search(ctx, req.Query, tools, Options{TopK: topK, Threshold: req.Threshold})
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}

	return &Response{
		Tools:        results,
		Query:        req.Query,
		Mode:         mode,
		TotalIndexed: len(tools),
		SearchTimeMs: float64(elapsed.Microseconds()) / 1000.0,
	}, nil
}
