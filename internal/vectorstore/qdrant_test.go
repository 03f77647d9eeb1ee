package vectorstore

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

func TestMapID_DeterministicAcrossCalls(t *testing.T) {
	a := mapID("snippet-123")
	b := mapID("snippet-123")
	c := mapID("snippet-124")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestHasCollection_404IsFalseNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store := NewQdrantStore(server.URL, "")
	exists, err := store.HasCollection(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestHasCollection_200IsTrue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := NewQdrantStore(server.URL, "")
	exists, err := store.HasCollection(context.Background(), "present")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestIsHybrid_DistinguishesNamedFromSingleVector(t *testing.T) {
	hybridServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"config": map[string]any{
					"params": map[string]any{
						"vectors": map[string]any{
							"dense":  map[string]any{"size": 4, "distance": "Cosine"},
							"sparse": map[string]any{},
						},
					},
				},
			},
		})
	}))
	defer hybridServer.Close()

	singleServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"config": map[string]any{
					"params": map[string]any{
						"vectors": map[string]any{"size": 4, "distance": "Cosine"},
					},
				},
			},
		})
	}))
	defer singleServer.Close()

	hybridStore := NewQdrantStore(hybridServer.URL, "")
	single := NewQdrantStore(singleServer.URL, "")

	isHybrid, err := hybridStore.IsHybrid(context.Background(), "c")
	require.NoError(t, err)
	assert.True(t, isHybrid)

	isHybrid, err = single.IsHybrid(context.Background(), "c")
	require.NoError(t, err)
	assert.False(t, isHybrid)
}

func TestInsert_BatchesAtHundredPoints(t *testing.T) {
	var batchSizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body upsertRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		batchSizes = append(batchSizes, len(body.Points))
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{}})
	}))
	defer server.Close()

	store := NewQdrantStore(server.URL, "")
	docs := make([]domain.VectorDocument, 150)
	for i := range docs {
		docs[i] = domain.NewVectorDocument("id", []float32{0.1, 0.2}, "c", "p", 1, 2, ".go", nil)
	}

	err := store.Insert(context.Background(), "coll", docs)
	require.NoError(t, err)
	assert.Equal(t, []int{100, 50}, batchSizes)
}

func TestInsert_FailedBatchNamesItsIndex(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{}})
	}))
	defer server.Close()

	store := NewQdrantStore(server.URL, "")
	docs := make([]domain.VectorDocument, 150)
	for i := range docs {
		docs[i] = domain.NewVectorDocument("id", []float32{0.1}, "c", "p", 1, 2, ".go", nil)
	}

	err := store.Insert(context.Background(), "coll", docs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch 1")
}

func TestDelete_MapsIDsDeterministically(t *testing.T) {
	var captured deleteRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{}})
	}))
	defer server.Close()

	store := NewQdrantStore(server.URL, "")
	err := store.Delete(context.Background(), "coll", []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, captured.Points, 2)
	assert.Equal(t, mapID("a"), captured.Points[0])
	assert.Equal(t, mapID("b"), captured.Points[1])
}

func TestTranslateFilter_Forms(t *testing.T) {
	assert.Nil(t, translateFilter(nil))

	must := translateFilter(domain.MustFilter{Predicate: domain.EqualsFilter{Field: "lang", Value: "go"}})
	assert.Contains(t, must, "must")

	mustNot := translateFilter(domain.MustNotFilter{Predicate: domain.EqualsFilter{Field: "lang", Value: "go"}})
	assert.Contains(t, mustNot, "must_not")

	anyFilter := translateFilter(domain.AnyFilter{Predicates: []domain.EqualsFilter{{Field: "ext", Value: ".go"}, {Field: "ext", Value: ".py"}}})
	assert.Contains(t, anyFilter, "should")
}

func TestCanonicalizePayload_StringsPassThroughObjectsCanonicalized(t *testing.T) {
	out := canonicalizePayload(map[string]any{
		"content": "hello",
		"nested":  map[string]any{"b": 1, "a": "x"},
	})
	assert.Equal(t, "hello", out["content"])
	assert.Equal(t, `{"a":"x","b":1}`, out["nested"])
}

func TestSearch_NonHybridCollectionUsesUnnamedVector(t *testing.T) {
	var captured searchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{
					"config": map[string]any{
						"params": map[string]any{"vectors": map[string]any{"size": 3, "distance": "Cosine"}},
					},
				},
			})
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{"result": []any{}})
	}))
	defer server.Close()

	store := NewQdrantStore(server.URL, "")
	_, err := store.Search(context.Background(), "coll", domain.NewDenseSearchRequest([]float32{0.1, 0.2, 0.3}, 5), nil)
	require.NoError(t, err)

	if vec, ok := captured.Vector.([]any); ok {
		assert.Len(t, vec, 3)
	}
}
