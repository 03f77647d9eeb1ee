package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/helixml/kodit/internal/domain"
)

// MemoryStore is an in-process Store backed by brute-force cosine (dense)
// and dot-product (sparse) scoring. It exists for the CLI's zero-dependency
// mode and for tests that want a real Store instead of a hand-rolled fake.
// Every collection MemoryStore creates is hybrid: there is no cost to
// carrying both named vectors in memory, so CreateCollection and
// CreateHybridCollection behave identically here.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	dim       int
	documents map[string]domain.VectorDocument
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: map[string]*memoryCollection{}}
}

func (s *MemoryStore) HasCollection(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *MemoryStore) CreateCollection(ctx context.Context, name string, dim int) error {
	return s.createCollection(name, dim)
}

func (s *MemoryStore) CreateHybridCollection(ctx context.Context, name string, dim int) error {
	return s.createCollection(name, dim)
}

func (s *MemoryStore) createCollection(name string, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return nil
	}
	s.collections[name] = &memoryCollection{dim: dim, documents: map[string]domain.VectorDocument{}}
	return nil
}

func (s *MemoryStore) Insert(ctx context.Context, name string, documents []domain.VectorDocument) error {
	return s.upsert(name, documents)
}

func (s *MemoryStore) InsertHybrid(ctx context.Context, name string, documents []domain.VectorDocument) error {
	return s.upsert(name, documents)
}

func (s *MemoryStore) upsert(name string, documents []domain.VectorDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[name]
	if !ok {
		coll = &memoryCollection{documents: map[string]domain.VectorDocument{}}
		s.collections[name] = coll
	}
	for _, doc := range documents {
		coll.documents[doc.ID()] = doc
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, name string, req domain.HybridSearchRequest, filter domain.Filter) ([]domain.HybridSearchResult, error) {
	s.mu.RLock()
	coll, ok := s.collections[name]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	type scored struct {
		doc   domain.VectorDocument
		score float64
	}
	candidates := make([]scored, 0, len(coll.documents))

	for _, doc := range coll.documents {
		if !matchesFilter(doc, filter) {
			continue
		}
		var score float64
		var match bool
		if req.IsSparse() {
			if sparse, ok := doc.Sparse(); ok {
				score = sparseDot(req.Sparse(), sparse)
				match = true
			}
		} else if dense := doc.Dense(); dense != nil {
			score = cosine(req.Dense(), dense)
			match = true
		}
		if match {
			candidates = append(candidates, scored{doc: doc, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	limit := req.Limit()
	if limit > 0 && limit < len(candidates) {
		candidates = candidates[:limit]
	}

	results := make([]domain.HybridSearchResult, len(candidates))
	for i, c := range candidates {
		results[i] = domain.NewHybridSearchResult(c.doc, c.score)
	}
	return results, nil
}

func (s *MemoryStore) Scroll(ctx context.Context, name string, filter domain.Filter, fields []string, limit int) ([]ScrollResult, error) {
	s.mu.RLock()
	coll, ok := s.collections[name]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var ids []string
	for id := range coll.documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]ScrollResult, 0, len(ids))
	for _, id := range ids {
		doc := coll.documents[id]
		if !matchesFilter(doc, filter) {
			continue
		}
		out = append(out, ScrollResult{ID: id, Fields: scrollFields(doc, fields)})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, name string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[name]
	if !ok {
		return nil
	}
	for _, id := range ids {
		delete(coll.documents, id)
	}
	return nil
}

func (s *MemoryStore) DropCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

// IsHybrid always reports true: MemoryStore carries both named vectors
// on every document regardless of how the collection was created.
func (s *MemoryStore) IsHybrid(ctx context.Context, name string) (bool, error) {
	return true, nil
}

func matchesFilter(doc domain.VectorDocument, filter domain.Filter) bool {
	if filter == nil {
		return true
	}
	field := func(name string) string {
		switch name {
		case "relative_path":
			return doc.RelativePath()
		case "file_extension":
			return doc.FileExtension()
		case "content":
			return doc.Content()
		case "id":
			return doc.ID()
		default:
			return doc.Metadata()[name]
		}
	}

	switch f := filter.(type) {
	case domain.MustFilter:
		return field(f.Predicate.Field) == f.Predicate.Value
	case domain.MustNotFilter:
		return field(f.Predicate.Field) != f.Predicate.Value
	case domain.AnyFilter:
		for _, p := range f.Predicates {
			if field(p.Field) == p.Value {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func scrollFields(doc domain.VectorDocument, fields []string) map[string]string {
	all := map[string]string{
		"id":             doc.ID(),
		"relative_path":  doc.RelativePath(),
		"content":        doc.Content(),
		"file_extension": doc.FileExtension(),
	}
	if fields == nil {
		return all
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v, ok := all[f]; ok {
			out[f] = v
		}
	}
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func sparseDot(a, b domain.SparseVector) float64 {
	bIndex := make(map[int32]float64, b.Len())
	bIndices, bValues := b.Indices(), b.Values()
	for i, idx := range bIndices {
		bIndex[idx] = bValues[i]
	}
	var sum float64
	aIndices, aValues := a.Indices(), a.Values()
	for i, idx := range aIndices {
		if v, ok := bIndex[idx]; ok {
			sum += aValues[i] * v
		}
	}
	return sum
}

var _ Store = (*MemoryStore)(nil)
