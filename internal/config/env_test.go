package config

import (
	"testing"
	"time"

	"github.com/helixml/kodit/internal/fusion"
	"github.com/helixml/kodit/internal/tokenizer"
	"github.com/stretchr/testify/assert"
)

func TestEndpointEnv_ToEndpoint_Defaults(t *testing.T) {
	e := EndpointEnv{Model: "text-embedding-3-small", MaxRetries: 5, InitialDelay: 2.0, BackoffFactor: 2.0, TimeoutSecs: 60}
	endpoint := e.ToEndpoint()

	assert.Equal(t, "text-embedding-3-small", endpoint.Model())
	assert.Equal(t, 5, endpoint.MaxRetries())
	assert.Equal(t, 2*time.Second, endpoint.InitialDelay())
	assert.Equal(t, 60*time.Second, endpoint.Timeout())
	assert.True(t, endpoint.IsConfigured())
}

func TestEndpointEnv_ToEndpoint_UnconfiguredHasEmptyModel(t *testing.T) {
	e := EndpointEnv{}
	assert.False(t, e.ToEndpoint().IsConfigured())
}

func TestEndpointEnv_IsConfigured(t *testing.T) {
	assert.False(t, EndpointEnv{}.IsConfigured())
	assert.True(t, EndpointEnv{Model: "text-embedding-3-small"}.IsConfigured())
}

func TestSparseEnv_ToSparseConfig(t *testing.T) {
	s := SparseEnv{K1: 1.5, B: 0.8, MinDF: 2, MaxDFRatio: 0.9, SublinearTF: true, TokenMode: "simple"}
	cfg := s.ToSparseConfig()

	assert.Equal(t, 1.5, cfg.K1)
	assert.Equal(t, 0.8, cfg.B)
	assert.Equal(t, 2, cfg.MinDF)
	assert.True(t, cfg.SublinearTF)
	assert.Equal(t, tokenizer.ModeSimple, cfg.TokenMode)
}

func TestSparseEnv_ToSparseConfig_DefaultTokenModeIsCode(t *testing.T) {
	s := SparseEnv{TokenMode: ""}
	assert.Equal(t, tokenizer.ModeCode, s.ToSparseConfig().TokenMode)
}

func TestFusionEnv_ToFusionConfig_RecognizesStrategies(t *testing.T) {
	cases := map[string]fusion.Strategy{
		"rrf":      fusion.StrategyRRF,
		"weighted": fusion.StrategyWeighted,
		"average":  fusion.StrategyAverage,
		"bogus":    fusion.StrategyRRF,
	}
	for raw, want := range cases {
		cfg := FusionEnv{Strategy: raw, K: 60}.ToFusionConfig()
		assert.Equal(t, want, cfg.Strategy)
	}
}

func TestFusionEnv_ToFusionConfig_ParsesWeights(t *testing.T) {
	cfg := FusionEnv{Strategy: "weighted", Weights: "0.7, 0.3"}.ToFusionConfig()
	assert.Equal(t, []float64{0.7, 0.3}, cfg.Weights)
}

func TestFusionEnv_ToFusionConfig_EmptyWeightsIsNil(t *testing.T) {
	cfg := FusionEnv{Strategy: "rrf"}.ToFusionConfig()
	assert.Nil(t, cfg.Weights)
}

func TestFusionEnv_ToFusionConfig_SkipsUnparseableWeight(t *testing.T) {
	cfg := FusionEnv{Weights: "0.5,notanumber,0.5"}.ToFusionConfig()
	assert.Equal(t, []float64{0.5, 0.5}, cfg.Weights)
}
