package reranker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/helixml/kodit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPReranker_RerankReturnsProviderOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
		var body rerankRequestBody
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "query text", body.Query)
		assert.Equal(t, []string{"a content", "b content"}, body.Documents)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rerankResponseBody{
			Data: []struct {
				Index          int     `json:"index"`
				RelevanceScore float64 `json:"relevance_score"`
			}{
				{Index: 1, RelevanceScore: 0.9},
				{Index: 0, RelevanceScore: 0.2},
			},
		})
	}))
	defer server.Close()

	r := NewHTTPReranker(server.URL, "secret", "rerank-model")
	docs := []Document{
		NewDocument("a", "a content", nil),
		NewDocument("b", "b content", nil),
	}

	results, err := r.Rerank(context.Background(), "query text", docs, Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].Document().ID())
	assert.Equal(t, 0.9, results[0].RelevanceScore())
	assert.Equal(t, 1, results[0].OriginalIndex())
}

func TestHTTPReranker_ProviderAndModelName(t *testing.T) {
	r := NewHTTPReranker("http://example.invalid", "secret", "rerank-model")
	assert.Equal(t, "http", r.ProviderName())
	assert.Equal(t, "rerank-model", r.ModelName())
}

func TestHTTPReranker_ThresholdDropsLowScores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rerankResponseBody{
			Data: []struct {
				Index          int     `json:"index"`
				RelevanceScore float64 `json:"relevance_score"`
			}{
				{Index: 0, RelevanceScore: 0.9},
				{Index: 1, RelevanceScore: 0.1},
			},
		})
	}))
	defer server.Close()

	r := NewHTTPReranker(server.URL, "secret", "rerank-model")
	docs := []Document{NewDocument("a", "a", nil), NewDocument("b", "b", nil)}

	results, err := r.Rerank(context.Background(), "q", docs, Options{Threshold: 0.5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Document().ID())
}

func TestHTTPReranker_NonSuccessStatusSurfacesBackendRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	r := NewHTTPReranker(server.URL, "secret", "rerank-model", WithMaxRetries(0))
	docs := []Document{NewDocument("a", "a", nil)}

	_, err := r.Rerank(context.Background(), "q", docs, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackendRejected)
}

func TestHTTPReranker_EmptyQueryIsInvalidArgument(t *testing.T) {
	r := NewHTTPReranker("http://unused", "secret", "m")
	_, err := r.Rerank(context.Background(), "", []Document{NewDocument("a", "a", nil)}, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestHTTPReranker_EmptyDocumentsReturnsNilWithoutCallingServer(t *testing.T) {
	r := NewHTTPReranker("http://127.0.0.1:1", "secret", "m")
	results, err := r.Rerank(context.Background(), "q", nil, Options{})
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestHTTPReranker_CanceledContextPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewHTTPReranker(server.URL, "secret", "m")
	_, err := r.Rerank(ctx, "q", []Document{NewDocument("a", "a", nil)}, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCanceled)
}
