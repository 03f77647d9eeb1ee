// Package config provides environment-driven configuration for the
// sparse encoder, the fusion strategy, and the HTTP-based reranker,
// dense-embedding, and vector-store endpoints.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/helixml/kodit/internal/fusion"
	"github.com/helixml/kodit/internal/sparse"
	"github.com/helixml/kodit/internal/tokenizer"
)

// LogFormat selects the slog handler the CLI installs at startup.
type LogFormat string

const (
	// LogFormatText selects slog.NewTextHandler.
	LogFormatText LogFormat = "text"
	// LogFormatJSON selects slog.NewJSONHandler.
	LogFormatJSON LogFormat = "json"
)

// EnvConfig holds all environment-based configuration. Field names map
// to environment variables with the KODIT_ prefix removed; nested
// structs use an underscore delimiter, matching the teacher's envconfig
// convention.
type EnvConfig struct {
	// LogLevel is the log verbosity level (DEBUG, INFO, WARN, ERROR).
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (text or json).
	// Env: LOG_FORMAT (default: text)
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// EmbeddingEndpoint configures the dense embedding provider.
	EmbeddingEndpoint EndpointEnv `envconfig:"EMBEDDING_ENDPOINT"`

	// Rerank configures the HTTP reranker.
	Rerank EndpointEnv `envconfig:"RERANK"`

	// VectorStore configures the vector store backend.
	VectorStore VectorStoreEnv `envconfig:"VECTORSTORE"`

	// Sparse configures the BM25 sparse encoder.
	Sparse SparseEnv `envconfig:"SPARSE"`

	// Fusion configures the hybrid-search fusion strategy.
	Fusion FusionEnv `envconfig:"FUSION"`
}

// EndpointEnv holds environment configuration for an HTTP AI endpoint
// (dense embedding provider or reranker).
type EndpointEnv struct {
	BaseURL       string  `envconfig:"BASE_URL"`
	Model         string  `envconfig:"MODEL"`
	APIKey        string  `envconfig:"API_KEY"`
	TimeoutSecs   float64 `envconfig:"TIMEOUT" default:"60"`
	MaxRetries    int     `envconfig:"MAX_RETRIES" default:"5"`
	InitialDelay  float64 `envconfig:"INITIAL_DELAY" default:"2.0"`
	BackoffFactor float64 `envconfig:"BACKOFF_FACTOR" default:"2.0"`
}

// IsConfigured reports whether a model has been set, the signal used
// to decide whether an optional endpoint should be wired up at all.
func (e EndpointEnv) IsConfigured() bool { return e.Model != "" }

// VectorStoreEnv holds environment configuration for the vector store
// backend.
type VectorStoreEnv struct {
	BaseURL string `envconfig:"BASE_URL"`
	APIKey  string `envconfig:"API_KEY"`
}

// SparseEnv holds environment configuration for the BM25 sparse
// encoder.
type SparseEnv struct {
	K1          float64 `envconfig:"K1" default:"1.2"`
	B           float64 `envconfig:"B" default:"0.75"`
	MinDF       int     `envconfig:"MIN_DF" default:"1"`
	MaxDFRatio  float64 `envconfig:"MAX_DF_RATIO" default:"0.85"`
	SublinearTF bool    `envconfig:"SUBLINEAR_TF" default:"false"`
	TokenMode   string  `envconfig:"TOKEN_MODE" default:"code"`
}

// FusionEnv holds environment configuration for the hybrid-search
// fusion strategy.
type FusionEnv struct {
	Strategy string `envconfig:"STRATEGY" default:"rrf"`
	K        int    `envconfig:"K" default:"60"`
	Weights  string `envconfig:"WEIGHTS"`
}

// LoadFromEnv loads configuration from environment variables prefixed
// KODIT_.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("KODIT", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToEndpoint converts EndpointEnv to an Endpoint.
func (e EndpointEnv) ToEndpoint() Endpoint {
	opts := []EndpointOption{
		WithModel(e.Model),
		WithMaxRetries(e.MaxRetries),
		WithInitialDelay(durationFromSeconds(e.InitialDelay)),
		WithBackoffFactor(e.BackoffFactor),
	}
	if e.BaseURL != "" {
		opts = append(opts, WithBaseURL(e.BaseURL))
	}
	if e.APIKey != "" {
		opts = append(opts, WithAPIKey(e.APIKey))
	}
	if e.TimeoutSecs > 0 {
		opts = append(opts, WithTimeout(durationFromSeconds(e.TimeoutSecs)))
	}
	return NewEndpoint(opts...)
}

// ToSparseConfig converts SparseEnv to a sparse.Config.
func (s SparseEnv) ToSparseConfig() sparse.Config {
	mode := tokenizer.ModeCode
	if strings.EqualFold(s.TokenMode, "simple") {
		mode = tokenizer.ModeSimple
	}
	return sparse.NewConfig(
		sparse.WithK1(s.K1),
		sparse.WithB(s.B),
		sparse.WithMinDF(s.MinDF),
		sparse.WithMaxDFRatio(s.MaxDFRatio),
		sparse.WithSublinearTF(s.SublinearTF),
		sparse.WithTokenMode(mode),
	)
}

// ToFusionConfig converts FusionEnv to a fusion.Config.
func (f FusionEnv) ToFusionConfig() fusion.Config {
	strategy := fusion.StrategyRRF
	switch strings.ToLower(f.Strategy) {
	case "weighted":
		strategy = fusion.StrategyWeighted
	case "average":
		strategy = fusion.StrategyAverage
	}
	return fusion.Config{
		Strategy: strategy,
		K:        float64(f.K),
		Weights:  parseWeights(f.Weights),
	}
}

func parseWeights(s string) []float64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	weights := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			continue
		}
		weights = append(weights, v)
	}
	return weights
}

func durationFromSeconds(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
