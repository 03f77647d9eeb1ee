package config

import "time"

// Endpoint holds the connection settings for an HTTP-based AI service:
// the dense embedding provider or the reranker. It is immutable once
// built, following the teacher's options-builder style.
type Endpoint struct {
	baseURL       string
	apiKey        string
	model         string
	timeout       time.Duration
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

// EndpointOption is a functional option for Endpoint.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the endpoint's base URL.
func WithBaseURL(url string) EndpointOption { return func(e *Endpoint) { e.baseURL = url } }

// WithAPIKey sets the endpoint's bearer API key.
func WithAPIKey(key string) EndpointOption { return func(e *Endpoint) { e.apiKey = key } }

// WithModel sets the model identifier the endpoint serves.
func WithModel(model string) EndpointOption { return func(e *Endpoint) { e.model = model } }

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) EndpointOption { return func(e *Endpoint) { e.timeout = d } }

// WithMaxRetries sets the maximum retry count on transient failures.
func WithMaxRetries(n int) EndpointOption { return func(e *Endpoint) { e.maxRetries = n } }

// WithInitialDelay sets the first retry's backoff delay.
func WithInitialDelay(d time.Duration) EndpointOption { return func(e *Endpoint) { e.initialDelay = d } }

// WithBackoffFactor sets the retry delay's growth multiplier.
func WithBackoffFactor(f float64) EndpointOption { return func(e *Endpoint) { e.backoffFactor = f } }

// NewEndpoint builds an Endpoint from the documented defaults, overridden
// by opts.
func NewEndpoint(opts ...EndpointOption) Endpoint {
	e := Endpoint{
		timeout:       60 * time.Second,
		maxRetries:    5,
		initialDelay:  2 * time.Second,
		backoffFactor: 2.0,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// BaseURL returns the endpoint's base URL, empty when the provider's
// own default should apply.
func (e Endpoint) BaseURL() string { return e.baseURL }

// APIKey returns the endpoint's bearer API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// Model returns the model identifier the endpoint serves.
func (e Endpoint) Model() string { return e.model }

// Timeout returns the per-request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the maximum retry count on transient failures.
func (e Endpoint) MaxRetries() int { return e.maxRetries }

// InitialDelay returns the first retry's backoff delay.
func (e Endpoint) InitialDelay() time.Duration { return e.initialDelay }

// BackoffFactor returns the retry delay's growth multiplier.
func (e Endpoint) BackoffFactor() float64 { return e.backoffFactor }

// IsConfigured reports whether a model has been set, the signal the
// teacher's EnvConfig used to decide whether an optional endpoint should
// be wired up at all.
func (e Endpoint) IsConfigured() bool { return e.model != "" }
