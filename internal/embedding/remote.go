package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// httpEmbeddingProvider is the shared shape of both remote providers: an
// OpenAI-style POST /embeddings endpoint that accepts a batch of inputs
// and returns one vector per input, in order.
type httpEmbeddingProvider struct {
	tag        string
	baseURL    string
	model      string
	apiKeyEnv  string
	dimension  int
	authHeader func(apiKey string) (name, value string)

	apiKey string
	client *http.Client
}

func (p *httpEmbeddingProvider) Tag() string    { return p.tag }
func (p *httpEmbeddingProvider) Dimension() int { return p.dimension }

func (p *httpEmbeddingProvider) Initialize(ctx context.Context) error {
	if p.apiKey != "" {
		return nil
	}
	key := os.Getenv(p.apiKeyEnv)
	if key == "" {
		return fmt.Errorf("embedding: %s requires %s to be set", p.tag, p.apiKeyEnv)
	}
	p.apiKey = key
	if p.client == nil {
		p.client = &http.Client{Timeout: 30 * time.Second}
	}
	return nil
}

func (p *httpEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

type embeddingRequestBody struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponseBody struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (p *httpEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.Initialize(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(embeddingRequestBody{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	name, value := p.authHeader(p.apiKey)
	req.Header.Set(name, value)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", p.tag, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", p.tag, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: embedding request failed with status %d: %s", p.tag, resp.StatusCode, string(body))
	}

	var parsed embeddingResponseBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%s: parse response: %w", p.tag, err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("%s: expected %d embeddings, got %d", p.tag, len(texts), len(parsed.Data))
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("%s: embedding index %d out of range", p.tag, d.Index)
		}
		vec := d.Embedding
		l2Normalize(vec)
		out[d.Index] = vec
	}
	return out, nil
}

func (p *httpEmbeddingProvider) Dispose() error {
	return nil
}

// NewOpenAIProvider returns the openai:text-embedding-3-small remote
// provider. It reads its API key from OPENAI_API_KEY at Initialize time.
func NewOpenAIProvider() Provider {
	return &httpEmbeddingProvider{
		tag:       "openai:text-embedding-3-small",
		baseURL:   "https://api.openai.com/v1",
		model:     "text-embedding-3-small",
		apiKeyEnv: "OPENAI_API_KEY",
		dimension: 1536,
		authHeader: func(apiKey string) (string, string) {
			return "Authorization", "Bearer " + apiKey
		},
	}
}

// NewVoyageProvider returns the voyage:voyage-3 remote provider. It reads
// its API key from VOYAGE_API_KEY at Initialize time.
func NewVoyageProvider() Provider {
	return &httpEmbeddingProvider{
		tag:       "voyage:voyage-3",
		baseURL:   "https://api.voyageai.com/v1",
		model:     "voyage-3",
		apiKeyEnv: "VOYAGE_API_KEY",
		dimension: 1024,
		authHeader: func(apiKey string) (string, string) {
			return "Authorization", "Bearer " + apiKey
		},
	}
}
