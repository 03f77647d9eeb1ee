// Package indexing turns raw (id, text, metadata) input into
// domain.VectorDocuments and upserts them through a VectorStore,
// attaching a sparse vector from a SparseEncoder and, if an embedder is
// configured, a dense vector from it.
package indexing

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/helixml/kodit/internal/domain"
	"github.com/helixml/kodit/internal/provider"
	"github.com/helixml/kodit/internal/sparse"
	"github.com/helixml/kodit/internal/vectorstore"
)

// ErrEmptyInput describes an Index call with no candidate documents
// after validation. Index itself does not return it: that case is a
// no-op that returns nil.
var ErrEmptyInput = errors.New("indexing: no valid documents to index")

// Input is one raw candidate document handed to Indexer.Index.
type Input struct {
	ID            string
	Content       string
	RelativePath  string
	StartLine     int
	EndLine       int
	FileExtension string
	Metadata      map[string]string
}

// Indexer composes a sparse.Encoder, an optional dense provider.Embedder,
// and a vectorstore.Store into the pipeline that turns raw text into
// inserted VectorDocuments.
type Indexer struct {
	encoder    *sparse.Encoder
	embedder   provider.Embedder
	store      vectorstore.Store
	collection string
	logger     *slog.Logger
}

// IndexerOption is a functional option for Indexer.
type IndexerOption func(*Indexer)

// WithEmbedder attaches a dense embedding provider. Without one, the
// indexer runs sparse-only: dense embedding providers are external
// collaborators, not this core's concern.
func WithEmbedder(embedder provider.Embedder) IndexerOption {
	return func(idx *Indexer) { idx.embedder = embedder }
}

// WithIndexerLogger overrides the default slog.Logger.
func WithIndexerLogger(logger *slog.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = logger }
}

// NewIndexer creates an Indexer targeting collection.
func NewIndexer(encoder *sparse.Encoder, store vectorstore.Store, collection string, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		encoder:    encoder,
		store:      store,
		collection: collection,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Index validates each input, attaches a sparse vector (and a dense
// vector, if an embedder is configured), and upserts through the
// store. Documents with an empty ID or blank content are dropped,
// mirroring the teacher's validate-then-delegate services.
func (idx *Indexer) Index(ctx context.Context, inputs []Input) error {
	valid := make([]Input, 0, len(inputs))
	for _, in := range inputs {
		if in.ID != "" && strings.TrimSpace(in.Content) != "" {
			valid = append(valid, in)
		}
	}

	if len(valid) == 0 {
		return nil
	}

	documents := make([]domain.VectorDocument, len(valid))
	for i, in := range valid {
		documents[i] = domain.NewVectorDocument(
			in.ID, nil, in.Content, in.RelativePath, in.StartLine, in.EndLine, in.FileExtension, in.Metadata,
		)
	}

	if idx.embedder == nil {
		return idx.indexSparseOnly(ctx, documents, valid)
	}
	return idx.indexHybrid(ctx, documents, valid)
}

func (idx *Indexer) indexSparseOnly(ctx context.Context, documents []domain.VectorDocument, inputs []Input) error {
	for i, in := range inputs {
		documents[i] = documents[i].WithSparse(idx.encoder.EmbedDocument(in.Content))
	}
	// Every document here carries a sparse vector and no dense one, so
	// it still goes through the hybrid collection shape with "dense"
	// left unset - there is no dense-only case for InsertHybrid's
	// single-vector sibling (store.Insert) to serve.
	return idx.store.InsertHybrid(ctx, idx.collection, documents)
}

func (idx *Indexer) indexHybrid(ctx context.Context, documents []domain.VectorDocument, inputs []Input) error {
	texts := make([]string, len(inputs))
	for i, in := range inputs {
		texts[i] = in.Content
	}

	resp, err := idx.embedder.Embed(ctx, provider.NewEmbeddingRequest(texts))
	if err != nil {
		return err
	}

	embeddings := resp.Embeddings()
	if len(embeddings) != len(documents) {
		return errors.New("indexing: embedding count mismatch")
	}

	for i, in := range inputs {
		dense := make([]float32, len(embeddings[i]))
		for j, v := range embeddings[i] {
			dense[j] = float32(v)
		}
		documents[i] = domain.NewVectorDocument(
			in.ID, dense, in.Content, in.RelativePath, in.StartLine, in.EndLine, in.FileExtension, in.Metadata,
		).WithSparse(idx.encoder.EmbedDocument(in.Content))
	}

	return idx.store.InsertHybrid(ctx, idx.collection, documents)
}

// Delete removes documents by their caller-supplied ids.
func (idx *Indexer) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return idx.store.Delete(ctx, idx.collection, ids)
}

// EnsureCollection creates the collection if absent, always as a
// hybrid collection whose "dense" vector has the caller's denseDim,
// whether or not an embedder is configured (the CLI passes 0 when it
// runs sparse-only). Qdrant's hybrid collection shape always declares
// both named vectors, so a sparse-only indexer still needs the hybrid
// collection kind, just with an unused "dense" channel.
func (idx *Indexer) EnsureCollection(ctx context.Context, denseDim int) error {
	exists, err := idx.store.HasCollection(ctx, idx.collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return idx.store.CreateHybridCollection(ctx, idx.collection, denseDim)
}
