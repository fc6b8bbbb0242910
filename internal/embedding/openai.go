package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/config"
)

// OpenAIProvider calls an OpenAI-compatible /embeddings endpoint. Pointing
// BaseURL at a local Ollama server's /v1 API serves open models such as
// nomic-embed-text without a hosted account.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	dim    int
}

func NewOpenAIProvider(cfg config.EmbeddingConfig) (*OpenAIProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{
		client: &client,
		model:  cfg.Model,
		dim:    cfg.Dimension,
	}, nil
}

// NewOpenAILoader returns a Loader that builds the provider and issues one
// warm-up request, so an unreachable endpoint surfaces as a load failure.
func NewOpenAILoader(cfg config.EmbeddingConfig) Loader {
	return func(ctx context.Context) (Provider, error) {
		p, err := NewOpenAIProvider(cfg)
		if err != nil {
			return nil, err
		}
		vec, err := EmbedOne(ctx, p, "warm up")
		if err != nil {
			return nil, fmt.Errorf("warm-up request to %s: %w", cfg.BaseURL, err)
		}
		p.dim = len(vec)
		return p, nil
	}
}

func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		i := int(d.Index)
		if i < 0 || i >= len(out) {
			return nil, fmt.Errorf("embedding response index %d out of range", i)
		}
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}

func (p *OpenAIProvider) Dimension() int { return p.dim }
func (p *OpenAIProvider) Model() string  { return p.model }

// IsRetryable reports whether an embedding error is worth retrying:
// rate limits, server errors and transport failures are; other API
// rejections (bad model name, bad key) are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}
