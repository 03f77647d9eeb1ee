package provider

import (
	"context"
	"testing"
	"time"

	"github.com/helixml/kodit/internal/config"
)

func TestNewOpenAIProvider_Defaults(t *testing.T) {
	p := NewOpenAIProvider("test-api-key")

	if p.embeddingModel != "text-embedding-3-small" {
		t.Errorf("embeddingModel = %v, want 'text-embedding-3-small'", p.embeddingModel)
	}
	if p.maxRetries != 5 {
		t.Errorf("maxRetries = %v, want 5", p.maxRetries)
	}
}

func TestNewOpenAIProvider_WithOptions(t *testing.T) {
	p := NewOpenAIProvider("test-api-key",
		WithEmbeddingModel("text-embedding-ada-002"),
		WithOpenAIMaxRetries(3),
		WithOpenAIInitialDelay(1*time.Second),
		WithOpenAIBackoffFactor(1.5),
	)

	if p.embeddingModel != "text-embedding-ada-002" {
		t.Errorf("embeddingModel = %v, want 'text-embedding-ada-002'", p.embeddingModel)
	}
	if p.maxRetries != 3 {
		t.Errorf("maxRetries = %v, want 3", p.maxRetries)
	}
	if p.initialDelay != 1*time.Second {
		t.Errorf("initialDelay = %v, want 1s", p.initialDelay)
	}
	if p.backoffFactor != 1.5 {
		t.Errorf("backoffFactor = %v, want 1.5", p.backoffFactor)
	}
}

func TestNewOpenAIProviderFromEndpoint(t *testing.T) {
	endpoint := config.NewEndpoint(
		config.WithAPIKey("test-key"),
		config.WithModel("text-embedding-3-large"),
		config.WithBaseURL("https://custom.openai.com/v1"),
		config.WithMaxRetries(3),
		config.WithInitialDelay(1*time.Second),
		config.WithBackoffFactor(1.5),
		config.WithTimeout(30*time.Second),
	)

	p := NewOpenAIProviderFromEndpoint(endpoint)

	if p.embeddingModel != "text-embedding-3-large" {
		t.Errorf("embeddingModel = %v, want 'text-embedding-3-large'", p.embeddingModel)
	}
	if p.maxRetries != 3 {
		t.Errorf("maxRetries = %v, want 3", p.maxRetries)
	}
}

func TestOpenAIProvider_InterfaceCompliance(t *testing.T) {
	var _ Embedder = (*OpenAIProvider)(nil)
}

func TestOpenAIProvider_Embed_EmptyInput(t *testing.T) {
	p := NewOpenAIProvider("test-api-key")

	req := NewEmbeddingRequest([]string{})
	resp, err := p.Embed(context.Background(), req)

	if err != nil {
		t.Errorf("Embed() with empty input should not error: %v", err)
	}
	if len(resp.Embeddings()) != 0 {
		t.Errorf("Embed() with empty input should return empty embeddings")
	}
}

// FakeOpenAIProvider is a test double for OpenAIProvider.
type FakeOpenAIProvider struct {
	EmbedFunc func(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error)
}

func (f *FakeOpenAIProvider) Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	if f.EmbedFunc != nil {
		return f.EmbedFunc(ctx, req)
	}
	embeddings := make([][]float64, len(req.Texts()))
	for i := range embeddings {
		embeddings[i] = []float64{0.1, 0.2, 0.3}
	}
	return NewEmbeddingResponse(embeddings, NewUsage(10, 10)), nil
}

var _ Embedder = (*FakeOpenAIProvider)(nil)

func TestFakeOpenAIProvider(t *testing.T) {
	fake := &FakeOpenAIProvider{}

	embResp, err := fake.Embed(context.Background(), NewEmbeddingRequest([]string{"test"}))
	if err != nil {
		t.Errorf("Embed() error: %v", err)
	}
	if len(embResp.Embeddings()) != 1 {
		t.Errorf("Embeddings() length = %v, want 1", len(embResp.Embeddings()))
	}
}

func TestFakeOpenAIProvider_CustomFunctions(t *testing.T) {
	fake := &FakeOpenAIProvider{
		EmbedFunc: func(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
			return NewEmbeddingResponse([][]float64{{1, 2, 3}}, NewUsage(0, 0)), nil
		},
	}

	embResp, _ := fake.Embed(context.Background(), NewEmbeddingRequest([]string{"test"}))
	if embResp.Embeddings()[0][0] != 1 {
		t.Errorf("Embeddings()[0][0] = %v, want 1", embResp.Embeddings()[0][0])
	}
}
