// Package embedding provides the pluggable text-embedding providers used
// by the Index Builder and the Embedding/Hybrid search strategies. A
// provider is identified by a "location:model" tag and declares a fixed
// output dimension.
package embedding

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// Provider is the contract every embedding backend implements, local or
// remote.
type Provider interface {
	// Initialize is idempotent; it may lazy-load a model or verify
	// credentials, and fails if required credentials are absent.
	Initialize(ctx context.Context) error
	// Embed returns a unit-norm vector of Dimension() length.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch is order-preserving; implementations may fall back to
	// sequential embedding.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dispose releases loaded resources. Safe to call multiple times.
	Dispose() error
	// Dimension is the fixed length of every vector this provider returns.
	Dimension() int
	// Tag is the provider's "location:model" identity, e.g. "local:general".
	Tag() string
}

// Quantization is a hint accepted by local providers and ignored by
// remote ones.
type Quantization string

const (
	QuantFP32 Quantization = "fp32"
	QuantFP16 Quantization = "fp16"
	QuantQ8   Quantization = "q8"
	QuantQ4   Quantization = "q4"
	QuantQ4F16 Quantization = "q4f16"
)

// Factory constructs a Provider from a quantization hint.
type Factory func(quant Quantization) Provider

// Registry maps provider tags to factories. The zero value is not usable;
// use NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a Registry pre-populated with the four built-in
// providers.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("local:general", func(q Quantization) Provider { return NewLocalGeneralProvider(q) })
	r.Register("local:retrieval", func(q Quantization) Provider { return NewLocalRetrievalProvider(q) })
	r.Register("openai:text-embedding-3-small", func(q Quantization) Provider { return NewOpenAIProvider() })
	r.Register("voyage:voyage-3", func(q Quantization) Provider { return NewVoyageProvider() })
	return r
}

// Register adds or overwrites a factory for tag. This is the extension
// point a custom provider (for example a scripted one) plugs into at
// runtime.
func (r *Registry) Register(tag string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[tag] = factory
}

// New constructs the provider registered for tag, or an error if none is
// registered.
func (r *Registry) New(tag string, quant Quantization) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("embedding: no provider registered for tag %q", tag)
	}
	return factory(quant), nil
}

// Tags returns every registered provider tag.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.factories))
	for t := range r.factories {
		tags = append(tags, t)
	}
	return tags
}

// l2Normalize divides every component by the vector's L2 norm in place,
// skipping vectors whose norm is zero.
func l2Normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

// truncateAndRenormalize implements the Matryoshka Representation
// Learning truncation used by the retrieval-tuned local provider: slice
// to the first dim components, then re-normalize.
func truncateAndRenormalize(v []float32, dim int) []float32 {
	if dim > len(v) {
		dim = len(v)
	}
	out := make([]float32, dim)
	copy(out, v[:dim])
	l2Normalize(out)
	return out
}

// embedSequentially is the fallback EmbedBatch implementation shared by
// providers with no native batch API.
func embedSequentially(ctx context.Context, p Provider, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
