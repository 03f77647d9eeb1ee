// Package search coordinates multi-channel hybrid retrieval: it
// normalizes channel addressing against a vectorstore.Store, fuses
// per-channel results, and optionally hands the fused top results to a
// Reranker.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/helixml/kodit/internal/domain"
	"github.com/helixml/kodit/internal/fusion"
	"github.com/helixml/kodit/internal/reranker"
	"github.com/helixml/kodit/internal/vectorstore"
)

// Query is one channel's query against a collection: a dense or sparse
// vector, with an optional explicit channel override.
type Query = domain.HybridSearchRequest

// Request describes one hybridSearch call.
type Request struct {
	Collection string
	Queries    []Query
	Filter     domain.Filter
	Limit      int
	// QueryText is forwarded to the Reranker, if one is configured and
	// Rerank is non-nil. It is otherwise unused.
	QueryText string
}

// RerankOptions requests a reranker hand-off for the fused top results.
type RerankOptions struct {
	TopN      int
	Threshold float64
}

// Dispatcher coordinates multi-channel search against a Store, applies
// RankFusion, and optionally hands the top results to a Reranker.
type Dispatcher struct {
	store    vectorstore.Store
	reranker reranker.Reranker
	fuser    fusion.Fuser
	logger   *slog.Logger

	mu          sync.RWMutex
	hybridCache map[string]bool
}

// DispatcherOption is a functional option for Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithReranker attaches a Reranker for optional second-stage scoring.
func WithReranker(r reranker.Reranker) DispatcherOption {
	return func(d *Dispatcher) { d.reranker = r }
}

// WithFusionConfig overrides the default RRF fusion strategy.
func WithFusionConfig(config fusion.Config) DispatcherOption {
	return func(d *Dispatcher) { d.fuser = fusion.NewFuser(config) }
}

// WithDispatcherLogger overrides the default slog.Logger.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// NewDispatcher creates a Dispatcher against store, defaulting to RRF
// fusion and no reranker.
func NewDispatcher(store vectorstore.Store, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:       store,
		fuser:       fusion.NewFuser(fusion.DefaultConfig()),
		logger:      slog.Default(),
		hybridCache: map[string]bool{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// isHybrid resolves and caches whether a collection is hybrid. The
// cache is monotonic for the process lifetime: last-writer-wins with
// identical values, tolerating idempotent concurrent writes.
func (d *Dispatcher) isHybrid(ctx context.Context, collection string) (bool, error) {
	d.mu.RLock()
	hybrid, ok := d.hybridCache[collection]
	d.mu.RUnlock()
	if ok {
		return hybrid, nil
	}

	hybrid, err := d.store.IsHybrid(ctx, collection)
	if err != nil {
		return false, err
	}

	d.mu.Lock()
	d.hybridCache[collection] = hybrid
	d.mu.Unlock()
	return hybrid, nil
}

// channelFor resolves which named channel a query routes to, given
// whether the collection is hybrid. A non-hybrid collection always
// uses the unnamed channel: the query keeps ChannelUnspecified, and the
// adapter resolves the addressing itself (QdrantStore probes IsHybrid
// again for such a query).
func channelFor(hybrid bool, q Query) domain.Channel {
	if !hybrid {
		return domain.ChannelUnspecified
	}
	if q.IsSparse() || q.Channel() == domain.ChannelSparse {
		return domain.ChannelSparse
	}
	return domain.ChannelDense
}

// HybridSearch runs every query in req.Queries against req.Collection,
// fuses the per-channel results, and (if rerank is non-nil and a
// Reranker is configured) hands the fused top results to the
// Reranker. limit truncation and fusion ordering follow RankFusion's
// contract (descending fused score, ties broken by channel iteration
// order).
func (d *Dispatcher) HybridSearch(ctx context.Context, req Request, rerank *RerankOptions) ([]domain.HybridSearchResult, error) {
	hybrid, err := d.isHybrid(ctx, req.Collection)
	if err != nil {
		return nil, err
	}

	channels := make([][]domain.FusionRequest, 0, len(req.Queries))
	documents := map[string]domain.VectorDocument{}

	for i, q := range req.Queries {
		if q.IsSparse() && q.Sparse().IsEmpty() {
			continue
		}

		routed := q.WithChannel(channelFor(hybrid, q))
		results, err := d.store.Search(ctx, req.Collection, routed, req.Filter)
		if err != nil {
			return nil, fmt.Errorf("hybrid search: channel %d: %w", i, err)
		}

		channel := make([]domain.FusionRequest, 0, len(results))
		for _, r := range results {
			id := r.Document().ID()
			documents[id] = r.Document()
			channel = append(channel, domain.NewFusionRequest(id, r.Score()))
		}
		channels = append(channels, channel)
	}

	fused := d.fuser.Fuse(req.Limit, channels...)

	results := make([]domain.HybridSearchResult, 0, len(fused))
	for _, f := range fused {
		doc, ok := documents[f.ID()]
		if !ok {
			continue
		}
		results = append(results, domain.NewHybridSearchResult(doc, f.Score()))
	}

	if rerank == nil || d.reranker == nil {
		return results, nil
	}
	return d.rerankResults(ctx, req.QueryText, results, *rerank)
}

func (d *Dispatcher) rerankResults(ctx context.Context, queryText string, results []domain.HybridSearchResult, opts RerankOptions) ([]domain.HybridSearchResult, error) {
	candidates := results
	if opts.TopN > 0 && opts.TopN < len(candidates) {
		candidates = candidates[:opts.TopN]
	}

	docs := make([]reranker.Document, len(candidates))
	for i, r := range candidates {
		docs[i] = reranker.NewDocument(r.Document().ID(), r.Document().Content(), r.Document().Metadata())
	}

	reranked, err := d.reranker.Rerank(ctx, queryText, docs, reranker.Options{TopN: opts.TopN, Threshold: opts.Threshold})
	if err != nil {
		return nil, fmt.Errorf("hybrid search: reranker hand-off: %w", err)
	}

	out := make([]domain.HybridSearchResult, 0, len(reranked))
	for _, r := range reranked {
		out = append(out, domain.NewHybridSearchResult(candidates[r.OriginalIndex()].Document(), r.RelevanceScore()))
	}
	return out, nil
}
