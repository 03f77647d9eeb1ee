package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/helixml/kodit/internal/config"
)

// OpenAIProvider implements Embedder against an OpenAI-compatible
// embeddings endpoint.
type OpenAIProvider struct {
	client         *openai.Client
	embeddingModel string
	maxRetries     int
	initialDelay   time.Duration
	backoffFactor  float64
}

// OpenAIProviderOption is a functional option for OpenAIProvider.
type OpenAIProviderOption func(*OpenAIProvider)

// WithEmbeddingModel sets the embedding model.
func WithEmbeddingModel(model string) OpenAIProviderOption {
	return func(p *OpenAIProvider) { p.embeddingModel = model }
}

// WithOpenAIMaxRetries sets the maximum retry count.
func WithOpenAIMaxRetries(n int) OpenAIProviderOption {
	return func(p *OpenAIProvider) { p.maxRetries = n }
}

// WithOpenAIInitialDelay sets the initial retry delay.
func WithOpenAIInitialDelay(d time.Duration) OpenAIProviderOption {
	return func(p *OpenAIProvider) { p.initialDelay = d }
}

// WithOpenAIBackoffFactor sets the backoff multiplier.
func WithOpenAIBackoffFactor(f float64) OpenAIProviderOption {
	return func(p *OpenAIProvider) { p.backoffFactor = f }
}

// NewOpenAIProvider creates a new OpenAI embedding provider.
func NewOpenAIProvider(apiKey string, opts ...OpenAIProviderOption) *OpenAIProvider {
	p := &OpenAIProvider{
		client:         openai.NewClient(apiKey),
		embeddingModel: "text-embedding-3-small",
		maxRetries:     5,
		initialDelay:   2 * time.Second,
		backoffFactor:  2.0,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// NewOpenAIProviderFromEndpoint creates a provider from endpoint configuration.
func NewOpenAIProviderFromEndpoint(endpoint config.Endpoint) *OpenAIProvider {
	cfg := openai.DefaultConfig(endpoint.APIKey())

	if endpoint.BaseURL() != "" {
		cfg.BaseURL = endpoint.BaseURL()
	}

	if endpoint.Timeout() > 0 {
		cfg.HTTPClient = &http.Client{
			Timeout: endpoint.Timeout(),
		}
	}

	return &OpenAIProvider{
		client:         openai.NewClientWithConfig(cfg),
		embeddingModel: endpoint.Model(),
		maxRetries:     endpoint.MaxRetries(),
		initialDelay:   endpoint.InitialDelay(),
		backoffFactor:  endpoint.BackoffFactor(),
	}
}

// Embed generates embeddings for the given texts.
func (p *OpenAIProvider) Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	texts := req.Texts()
	if len(texts) == 0 {
		return NewEmbeddingResponse([][]float64{}, NewUsage(0, 0)), nil
	}

	openaiReq := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.embeddingModel),
		Input: texts,
	}

	var resp openai.EmbeddingResponse
	var err error

	err = p.withRetry(ctx, func() error {
		resp, err = p.client.CreateEmbeddings(ctx, openaiReq)
		return err
	})

	if err != nil {
		return EmbeddingResponse{}, p.wrapError("embedding", err)
	}

	embeddings := make([][]float64, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = make([]float64, len(data.Embedding))
		for j, v := range data.Embedding {
			embeddings[i][j] = float64(v)
		}
	}

	usage := NewUsage(resp.Usage.PromptTokens, resp.Usage.TotalTokens)

	return NewEmbeddingResponse(embeddings, usage), nil
}

// withRetry executes the function with exponential backoff retry.
func (p *OpenAIProvider) withRetry(ctx context.Context, fn func() error) error {
	delay := p.initialDelay
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !p.isRetryable(lastErr) {
			return lastErr
		}

		if attempt < p.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * p.backoffFactor)
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryable determines if an error should be retried.
func (p *OpenAIProvider) isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		// Network errors are retryable
		return true
	}

	return false
}

// wrapError wraps an OpenAI error into a ProviderError.
func (p *OpenAIProvider) wrapError(operation string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewProviderError(operation, apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewProviderError(operation, reqErr.HTTPStatusCode, reqErr.Error(), err)
	}

	return NewProviderError(operation, 0, err.Error(), err)
}

var _ Embedder = (*OpenAIProvider)(nil)
