package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/dshills/webcontext-mcp/pkg/types"
)

// Provider names and defaults.
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"

	JinaDimension   = 1024
	OpenAIDimension = 1536
	LocalDimension  = 384

	DefaultBatchSize = 50
	MaxBatchSize     = 100
)

// Environment variables for API credentials.
const (
	EnvJinaAPIKey   = "JINA_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// apiSpec describes one hosted embedding API. Jina and OpenAI share the
// same request and response shape, so a single HTTP provider serves both.
type apiSpec struct {
	name      string
	endpoint  string
	model     string
	dimension int
	batchSize int
}

var jinaSpec = apiSpec{
	name:      ProviderJina,
	endpoint:  "https://api.jina.ai/v1/embeddings",
	model:     DefaultJinaModel,
	dimension: JinaDimension,
	batchSize: MaxBatchSize,
}

var openAISpec = apiSpec{
	name:      ProviderOpenAI,
	endpoint:  "https://api.openai.com/v1/embeddings",
	model:     DefaultOpenAIModel,
	dimension: OpenAIDimension,
	batchSize: MaxBatchSize,
}

// HTTPProvider implements Embedder against a hosted embeddings API.
type HTTPProvider struct {
	spec       apiSpec
	apiKey     string
	httpClient *http.Client
	cache      *Cache
	retry      RetryConfig
}

// NewJinaProvider creates an embedder backed by the Jina AI API. An empty
// apiKey falls back to the JINA_API_KEY environment variable.
func NewJinaProvider(apiKey string, cache *Cache) (*HTTPProvider, error) {
	return newHTTPProvider(jinaSpec, apiKey, EnvJinaAPIKey, cache)
}

// NewOpenAIProvider creates an embedder backed by the OpenAI API. An empty
// apiKey falls back to the OPENAI_API_KEY environment variable.
func NewOpenAIProvider(apiKey string, cache *Cache) (*HTTPProvider, error) {
	return newHTTPProvider(openAISpec, apiKey, EnvOpenAIAPIKey, cache)
}

func newHTTPProvider(spec apiSpec, apiKey, envKey string, cache *Cache) (*HTTPProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(envKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, envKey)
	}

	return &HTTPProvider{
		spec:   spec,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
		retry: DefaultRetryConfig(),
	}, nil
}

func (p *HTTPProvider) Embed(ctx context.Context, text string) (*Embedding, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	hash := ComputeHash(text)
	if p.cache != nil {
		if emb, ok := p.cache.Get(hash); ok {
			return emb, nil
		}
	}

	embeddings, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", types.ErrEmbeddingService)
	}
	return embeddings[0], nil
}

func (p *HTTPProvider) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	if err := validateBatch(texts, p.spec.batchSize); err != nil {
		return nil, err
	}

	embeddings, err := retryWithBackoff(ctx, p.retry, func() ([]*Embedding, error) {
		return p.callAPI(ctx, texts)
	})
	if err != nil {
		return nil, err
	}

	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
			types.ErrEmbeddingService, len(embeddings), len(texts))
	}

	if p.cache != nil {
		for i, emb := range embeddings {
			hash := ComputeHash(texts[i])
			emb.Hash = hash
			p.cache.Set(hash, emb)
		}
	}

	return embeddings, nil
}

func (p *HTTPProvider) callAPI(ctx context.Context, texts []string) ([]*Embedding, error) {
	reqBody := map[string]any{
		"input": texts,
		"model": p.spec.model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.spec.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrEmbeddingService, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(resp)
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", types.ErrEmbeddingService, err)
	}

	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		embeddings[i] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  p.spec.name,
			Model:     apiResp.Model,
		}
	}
	return embeddings, nil
}

// classifyHTTPError maps a non-200 API response to the failure taxonomy:
// 429 becomes a rate-limit error carrying the Retry-After hint, everything
// else an embedding service error.
func classifyHTTPError(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Second
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return &types.RateLimitError{
			RetryAfter: retryAfter,
			Err:        fmt.Errorf("api error 429: %s", string(bodyBytes)),
		}
	}

	return fmt.Errorf("%w: api error %d: %s", types.ErrEmbeddingService, resp.StatusCode, string(bodyBytes))
}

func (p *HTTPProvider) Dimension() int {
	return p.spec.dimension
}

func (p *HTTPProvider) Provider() string {
	return p.spec.name
}

func (p *HTTPProvider) Model() string {
	return p.spec.model
}

func (p *HTTPProvider) BatchSize() int {
	return p.spec.batchSize
}

func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
