// Package vectorstore defines the backend-neutral VectorStore port the
// HybridDispatcher and Indexer depend on, plus a Qdrant-shaped HTTP
// adapter implementing it. Callers that need a different backend (the
// Milvus path the teacher's Python sibling carries) implement the same
// Store interface.
package vectorstore

import (
	"context"

	"github.com/helixml/kodit/internal/domain"
)

// ScrollResult is one row returned by Scroll: the document id plus the
// requested payload fields, serialized to strings (object-valued
// payload fields are canonicalized to a deterministic string form by
// the adapter, for cross-backend compatibility).
type ScrollResult struct {
	ID     string
	Fields map[string]string
}

// Store is the set of backend-neutral operations the HybridDispatcher
// and Indexer need from a vector database. Implementations are assumed
// safe for concurrent use once constructed.
type Store interface {
	// HasCollection reports whether name already exists.
	HasCollection(ctx context.Context, name string) (bool, error)

	// CreateCollection creates a single-vector (non-hybrid) collection
	// of the given dense dimension, using cosine distance.
	CreateCollection(ctx context.Context, name string, dim int) error

	// CreateHybridCollection creates a collection with two named
	// vectors: "dense" (cosine distance, dim) and "sparse".
	CreateHybridCollection(ctx context.Context, name string, dim int) error

	// Insert upserts documents into a single-vector collection using
	// their dense vector only, batched 100 points per request, awaited
	// synchronously. If a batch fails, the error names its index;
	// previously succeeded batches are not rolled back.
	Insert(ctx context.Context, name string, documents []domain.VectorDocument) error

	// InsertHybrid upserts documents carrying both dense and sparse
	// vectors into a hybrid collection, with the same batching contract
	// as Insert.
	InsertHybrid(ctx context.Context, name string, documents []domain.VectorDocument) error

	// Search runs one channel query and returns results ordered by the
	// backend's own relevance score (not yet fused - the dispatcher
	// owns fusion across channels).
	Search(ctx context.Context, name string, req domain.HybridSearchRequest, filter domain.Filter) ([]domain.HybridSearchResult, error)

	// Scroll returns up to limit documents matching filter, with only
	// the requested payload fields populated (besides ID). A nil
	// fields slice returns every payload field.
	Scroll(ctx context.Context, name string, filter domain.Filter, fields []string, limit int) ([]ScrollResult, error)

	// Delete removes documents by their caller-supplied (pre-mapping)
	// ids.
	Delete(ctx context.Context, name string, ids []string) error

	// DropCollection deletes a collection and every document in it.
	DropCollection(ctx context.Context, name string) error

	// IsHybrid reports whether name is a hybrid (named-vector)
	// collection. Result is safe to cache for the process lifetime:
	// collection mode never changes without a backend schema change.
	IsHybrid(ctx context.Context, name string) (bool, error)
}
