package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/helixml/kodit/internal/domain"
)

// HTTPReranker posts to an OpenAI-compatible /rerank endpoint.
type HTTPReranker struct {
	client        *http.Client
	baseURL       string
	apiKey        string
	model         string
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	logger        *slog.Logger
}

// HTTPRerankerOption is a functional option for HTTPReranker.
type HTTPRerankerOption func(*HTTPReranker)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(client *http.Client) HTTPRerankerOption {
	return func(r *HTTPReranker) { r.client = client }
}

// WithMaxRetries sets the maximum retry count for transient failures.
func WithMaxRetries(n int) HTTPRerankerOption {
	return func(r *HTTPReranker) { r.maxRetries = n }
}

// WithInitialDelay sets the initial retry backoff delay.
func WithInitialDelay(d time.Duration) HTTPRerankerOption {
	return func(r *HTTPReranker) { r.initialDelay = d }
}

// WithBackoffFactor sets the retry backoff multiplier.
func WithBackoffFactor(f float64) HTTPRerankerOption {
	return func(r *HTTPReranker) { r.backoffFactor = f }
}

// WithLogger overrides the default slog.Logger.
func WithLogger(logger *slog.Logger) HTTPRerankerOption {
	return func(r *HTTPReranker) { r.logger = logger }
}

// NewHTTPReranker creates an HTTPReranker against baseURL using model,
// authenticating with a bearer apiKey.
func NewHTTPReranker(baseURL, apiKey, model string, opts ...HTTPRerankerOption) *HTTPReranker {
	r := &HTTPReranker{
		client:        &http.Client{Timeout: 30 * time.Second},
		baseURL:       baseURL,
		apiKey:        apiKey,
		model:         model,
		maxRetries:    3,
		initialDelay:  time.Second,
		backoffFactor: 2.0,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type rerankRequestBody struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n,omitempty"`
	ReturnDocuments bool     `json:"return_documents"`
}

type rerankResponseBody struct {
	Data []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"data"`
}

// ProviderName identifies this reranker as the generic HTTP provider.
func (r *HTTPReranker) ProviderName() string { return "http" }

// ModelName returns the configured model identifier.
func (r *HTTPReranker) ModelName() string { return r.model }

// Rerank posts query and documents' content to the configured endpoint
// and maps the response back onto the original Document values.
func (r *HTTPReranker) Rerank(ctx context.Context, query string, documents []Document, opts Options) ([]Result, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, ErrEmptyQuery)
	}
	if len(documents) == 0 {
		return nil, nil
	}

	texts := make([]string, len(documents))
	for i, d := range documents {
		texts[i] = d.Content()
	}

	body := rerankRequestBody{
		Model:           r.model,
		Query:           query,
		Documents:       texts,
		TopN:            opts.TopN,
		ReturnDocuments: false,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding rerank request: %w", domain.ErrInvalidArgument, err)
	}

	var parsed rerankResponseBody
	if err := r.withRetry(ctx, func() error {
		resp, err := r.doRequest(ctx, payload)
		if err != nil {
			return err
		}
		parsed = resp
		return nil
	}); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(parsed.Data))
	for _, entry := range parsed.Data {
		if entry.Index < 0 || entry.Index >= len(documents) {
			continue
		}
		if opts.Threshold > 0 && entry.RelevanceScore < opts.Threshold {
			continue
		}
		results = append(results, NewResult(documents[entry.Index], entry.RelevanceScore, entry.Index))
	}

	return results, nil
}

func (r *HTTPReranker) doRequest(ctx context.Context, payload []byte) (rerankResponseBody, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(payload))
	if err != nil {
		return rerankResponseBody{}, fmt.Errorf("%w: building rerank request: %w", domain.ErrBackendUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return rerankResponseBody{}, domain.ErrCanceled
		}
		return rerankResponseBody{}, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return rerankResponseBody{}, fmt.Errorf("%w: reading rerank response: %w", domain.ErrBackendUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return rerankResponseBody{}, &domain.BackendRejectedError{
			Operation:  "rerank",
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	var parsed rerankResponseBody
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return rerankResponseBody{}, fmt.Errorf("%w: decoding rerank response: %w", domain.ErrBackendUnavailable, err)
	}
	return parsed, nil
}

// withRetry retries transient BackendUnavailable failures with
// exponential backoff, honoring ctx cancellation between attempts.
// BackendRejectedError (a non-2xx response) is never retried.
func (r *HTTPReranker) withRetry(ctx context.Context, fn func() error) error {
	delay := r.initialDelay
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.ErrCanceled
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var rejected *domain.BackendRejectedError
		if errors.As(lastErr, &rejected) || errors.Is(lastErr, domain.ErrCanceled) {
			return lastErr
		}

		if attempt < r.maxRetries {
			r.logger.Warn("rerank request failed, retrying", "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return domain.ErrCanceled
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * r.backoffFactor)
			}
		}
	}

	return fmt.Errorf("rerank: max retries exceeded: %w", lastErr)
}

var _ Reranker = (*HTTPReranker)(nil)
