package vectorstore

import (
	"context"
	"testing"

	"github.com/helixml/kodit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_InsertAndSearchDense(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateHybridCollection(ctx, "coll", 3))

	docs := []domain.VectorDocument{
		domain.NewVectorDocument("a", []float32{1, 0, 0}, "a", "a.go", 1, 1, ".go", nil),
		domain.NewVectorDocument("b", []float32{0, 1, 0}, "b", "b.go", 1, 1, ".go", nil),
	}
	require.NoError(t, store.InsertHybrid(ctx, "coll", docs))

	results, err := store.Search(ctx, "coll", domain.NewDenseSearchRequest([]float32{1, 0, 0}, 10), nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Document().ID())
	assert.InDelta(t, 1.0, results[0].Score(), 1e-9)
}

func TestMemoryStore_SearchRespectsLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	docs := []domain.VectorDocument{
		domain.NewVectorDocument("a", []float32{1, 0}, "a", "a.go", 1, 1, ".go", nil),
		domain.NewVectorDocument("b", []float32{1, 0}, "b", "b.go", 1, 1, ".go", nil),
		domain.NewVectorDocument("c", []float32{1, 0}, "c", "c.go", 1, 1, ".go", nil),
	}
	require.NoError(t, store.InsertHybrid(ctx, "coll", docs))

	results, err := store.Search(ctx, "coll", domain.NewDenseSearchRequest([]float32{1, 0}, 2), nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestMemoryStore_SearchSparse(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a := domain.NewVectorDocument("a", nil, "a", "a.go", 1, 1, ".go", nil).
		WithSparse(domain.NewSparseVector([]int32{1, 2}, []float64{1.0, 2.0}))
	b := domain.NewVectorDocument("b", nil, "b", "b.go", 1, 1, ".go", nil).
		WithSparse(domain.NewSparseVector([]int32{3}, []float64{1.0}))
	require.NoError(t, store.InsertHybrid(ctx, "coll", []domain.VectorDocument{a, b}))

	results, err := store.Search(ctx, "coll",
		domain.NewSparseSearchRequest(domain.NewSparseVector([]int32{2}, []float64{1.0}), 10), nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Document().ID())
	assert.InDelta(t, 2.0, results[0].Score(), 1e-9)
}

func TestMemoryStore_DeleteRemovesDocument(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	doc := domain.NewVectorDocument("a", []float32{1, 0}, "a", "a.go", 1, 1, ".go", nil)
	require.NoError(t, store.InsertHybrid(ctx, "coll", []domain.VectorDocument{doc}))

	require.NoError(t, store.Delete(ctx, "coll", []string{"a"}))

	results, err := store.Search(ctx, "coll", domain.NewDenseSearchRequest([]float32{1, 0}, 10), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryStore_FilterByMetadata(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	a := domain.NewVectorDocument("a", []float32{1, 0}, "a", "a.go", 1, 1, ".go", map[string]string{"lang": "go"})
	b := domain.NewVectorDocument("b", []float32{1, 0}, "b", "b.go", 1, 1, ".go", map[string]string{"lang": "py"})
	require.NoError(t, store.InsertHybrid(ctx, "coll", []domain.VectorDocument{a, b}))

	results, err := store.Search(ctx, "coll", domain.NewDenseSearchRequest([]float32{1, 0}, 10),
		domain.MustFilter{Predicate: domain.EqualsFilter{Field: "lang", Value: "go"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Document().ID())
}

func TestMemoryStore_HasCollectionAndDrop(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateHybridCollection(ctx, "coll", 3))

	has, err := store.HasCollection(ctx, "coll")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, store.DropCollection(ctx, "coll"))
	has, err = store.HasCollection(ctx, "coll")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestMemoryStore_ScrollReturnsRequestedFields(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	doc := domain.NewVectorDocument("a", []float32{1, 0}, "hello", "a.go", 1, 1, ".go", nil)
	require.NoError(t, store.InsertHybrid(ctx, "coll", []domain.VectorDocument{doc}))

	rows, err := store.Scroll(ctx, "coll", nil, []string{"content"}, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "hello", rows[0].Fields["content"])
	_, hasPath := rows[0].Fields["relative_path"]
	assert.False(t, hasPath)
}
