// Package reranker defines the second-stage relevance-scoring contract
// and its HTTP-based provider implementation. Rerankers are stateless:
// they take a query and a batch of documents and return a
// provider-ranked subset.
package reranker

import (
	"context"
	"errors"
)

// ErrEmptyQuery is InvalidArgument: rerank was called with empty query text.
var ErrEmptyQuery = errors.New("rerank: query text is empty")

// Document is one candidate handed to a Reranker: enough payload to let
// the remote model judge relevance, plus the caller's id. Results map
// back to the caller's ordering through Result.OriginalIndex, the
// document's position in the submitted slice.
type Document struct {
	id       string
	content  string
	metadata map[string]string
}

// NewDocument creates a Document.
func NewDocument(id, content string, metadata map[string]string) Document {
	m := make(map[string]string, len(metadata))
	for k, v := range metadata {
		m[k] = v
	}
	return Document{id: id, content: content, metadata: m}
}

// ID returns the document identifier.
func (d Document) ID() string { return d.id }

// Content returns the document's text payload.
func (d Document) Content() string { return d.content }

// Metadata returns a copy of the document's metadata.
func (d Document) Metadata() map[string]string {
	m := make(map[string]string, len(d.metadata))
	for k, v := range d.metadata {
		m[k] = v
	}
	return m
}

// Options configures a single rerank call.
type Options struct {
	// TopN limits how many ranked results the provider returns. Zero
	// means "provider default".
	TopN int
	// Threshold drops results with RelevanceScore below it when > 0.
	Threshold float64
}

// Result is one reranked document: its relevance score and its index
// into the slice of Documents the caller originally submitted.
type Result struct {
	document       Document
	relevanceScore float64
	originalIndex  int
}

// NewResult creates a Result.
func NewResult(document Document, relevanceScore float64, originalIndex int) Result {
	return Result{document: document, relevanceScore: relevanceScore, originalIndex: originalIndex}
}

// Document returns the reranked document.
func (r Result) Document() Document { return r.document }

// RelevanceScore returns the provider's relevance score.
func (r Result) RelevanceScore() float64 { return r.relevanceScore }

// OriginalIndex returns the document's position in the caller's
// original submission order.
func (r Result) OriginalIndex() int { return r.originalIndex }

// Reranker is the core's only dependency on a learned relevance model.
// Implementations are asynchronous, stateless second-stage scorers.
type Reranker interface {
	// Rerank scores documents against query and returns results in the
	// provider's own ranking order, already filtered/truncated per
	// opts. Failures are never suppressed: the caller sees them.
	Rerank(ctx context.Context, query string, documents []Document, opts Options) ([]Result, error)

	// ProviderName identifies the backing service (e.g. "cohere", "http").
	ProviderName() string

	// ModelName identifies the specific model the provider calls.
	ModelName() string
}
