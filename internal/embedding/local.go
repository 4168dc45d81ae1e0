package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
)

const localGeneralDimension = 384
const localRetrievalDimension = 256

// LocalGeneralProvider is the 384-dimension general-purpose local
// provider. It has no external dependencies and works fully offline: it
// derives a deterministic vector for each text by feature-hashing its
// tokens through a wazero-sandboxed bit-mixing kernel, then L2-normalizes
// the result.
type LocalGeneralProvider struct {
	quant Quantization

	mu     sync.Mutex
	kernel *wasmKernel
}

// NewLocalGeneralProvider constructs the provider. quant is accepted for
// interface parity with remote providers but does not change the
// computation: local providers already run at full precision.
func NewLocalGeneralProvider(quant Quantization) *LocalGeneralProvider {
	return &LocalGeneralProvider{quant: quant}
}

func (p *LocalGeneralProvider) Tag() string { return "local:general" }

func (p *LocalGeneralProvider) Dimension() int { return localGeneralDimension }

func (p *LocalGeneralProvider) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.kernel != nil {
		return nil
	}
	k, err := newWASMKernel(ctx)
	if err != nil {
		return err
	}
	p.kernel = k
	return nil
}

func (p *LocalGeneralProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := p.Initialize(ctx); err != nil {
		return nil, err
	}
	return p.embedHashed(ctx, text, localGeneralDimension)
}

func (p *LocalGeneralProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedSequentially(ctx, p, texts)
}

func (p *LocalGeneralProvider) Dispose() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.kernel == nil {
		return nil
	}
	err := p.kernel.Close(context.Background())
	p.kernel = nil
	return err
}

// embedHashed implements the deterministic feature-hashing kernel shared
// by both local providers: every token adds +1 or -1 to every
// dimension, the sign chosen by running the token's FNV-1a seed (XORed
// with the dimension index) through the sandboxed mix kernel once per
// dimension. The accumulated vector is L2-normalized at the end.
func (p *LocalGeneralProvider) embedHashed(ctx context.Context, text string, dim int) ([]float32, error) {
	tokens := hashTokenize(text)
	vec := make([]float32, dim)
	if len(tokens) == 0 {
		return vec, nil
	}

	p.mu.Lock()
	kernel := p.kernel
	p.mu.Unlock()

	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		seed := int32(h.Sum32())

		for d := 0; d < dim; d++ {
			mixed, err := kernel.mix(ctx, seed^int32(d))
			if err != nil {
				return nil, err
			}
			if mixed&1 == 0 {
				vec[d]++
			} else {
				vec[d]--
			}
		}
	}

	l2Normalize(vec)
	return vec, nil
}

// hashTokenize is a small independent tokenizer: the embedding package
// does not depend on internal/index to avoid an import cycle, so it
// applies the same lowercase/split-on-non-alphanumeric rule directly.
func hashTokenize(s string) []string {
	lower := strings.ToLower(s)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}

// LocalRetrievalProvider is the 256-dimension retrieval-tuned local
// provider. It wraps LocalGeneralProvider and applies Matryoshka
// Representation Learning truncation: slice to the first 256 components
// of the 384-dimension base embedding, then re-normalize.
type LocalRetrievalProvider struct {
	base *LocalGeneralProvider
}

func NewLocalRetrievalProvider(quant Quantization) *LocalRetrievalProvider {
	return &LocalRetrievalProvider{base: NewLocalGeneralProvider(quant)}
}

func (p *LocalRetrievalProvider) Tag() string { return "local:retrieval" }

func (p *LocalRetrievalProvider) Dimension() int { return localRetrievalDimension }

func (p *LocalRetrievalProvider) Initialize(ctx context.Context) error {
	return p.base.Initialize(ctx)
}

func (p *LocalRetrievalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	full, err := p.base.embedHashed(ctx, text, localGeneralDimension)
	if err != nil {
		return nil, err
	}
	return truncateAndRenormalize(full, localRetrievalDimension), nil
}

func (p *LocalRetrievalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedSequentially(ctx, p, texts)
}

func (p *LocalRetrievalProvider) Dispose() error {
	return p.base.Dispose()
}
