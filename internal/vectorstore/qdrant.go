package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/helixml/kodit/internal/domain"
)

// insertBatchSize is the fixed upsert chunk size the spec mandates.
const insertBatchSize = 100

// QdrantStore implements Store against a Qdrant-shaped REST API over
// HTTP. The http.Client is assumed safe for concurrent use, matching
// every other backend client in this codebase.
type QdrantStore struct {
	client  *http.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// QdrantStoreOption is a functional option for QdrantStore.
type QdrantStoreOption func(*QdrantStore)

// WithQdrantHTTPClient overrides the default http.Client.
func WithQdrantHTTPClient(client *http.Client) QdrantStoreOption {
	return func(s *QdrantStore) { s.client = client }
}

// WithQdrantLogger overrides the default slog.Logger.
func WithQdrantLogger(logger *slog.Logger) QdrantStoreOption {
	return func(s *QdrantStore) { s.logger = logger }
}

// NewQdrantStore creates a QdrantStore against baseURL. apiKey may be
// empty for unauthenticated deployments.
func NewQdrantStore(baseURL, apiKey string, opts ...QdrantStoreOption) *QdrantStore {
	s := &QdrantStore{
		client:  http.DefaultClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *QdrantStore) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding request: %w", domain.ErrInvalidArgument, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", domain.ErrBackendUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.ErrCanceled
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}
	return resp, nil
}

// decode reads and JSON-decodes resp.Body, surfacing non-2xx status as
// BackendRejectedError. The caller owns closing resp.Body via this
// call: decode always closes it.
func decode(resp *http.Response, operation string, out any) error {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", domain.ErrBackendUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.BackendRejectedError{Operation: operation, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decoding response: %w", domain.ErrBackendUnavailable, err)
	}
	return nil
}

// HasCollection reports whether name exists, treating a 404 as "no"
// rather than an error.
func (s *QdrantStore) HasCollection(ctx context.Context, name string) (bool, error) {
	resp, err := s.do(ctx, http.MethodGet, "/collections/"+name, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return false, &domain.BackendRejectedError{Operation: "has_collection", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return true, nil
}

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type createCollectionRequest struct {
	Vectors any `json:"vectors"`
}

// CreateCollection creates a single unnamed dense vector of dim, using
// cosine distance.
func (s *QdrantStore) CreateCollection(ctx context.Context, name string, dim int) error {
	resp, err := s.do(ctx, http.MethodPut, "/collections/"+name, createCollectionRequest{
		Vectors: vectorParams{Size: dim, Distance: "Cosine"},
	})
	if err != nil {
		return err
	}
	return decode(resp, "create_collection", nil)
}

// CreateHybridCollection creates a collection with a named "dense"
// vector (cosine, dim) and a named "sparse" vector.
func (s *QdrantStore) CreateHybridCollection(ctx context.Context, name string, dim int) error {
	resp, err := s.do(ctx, http.MethodPut, "/collections/"+name, struct {
		Vectors       map[string]vectorParams `json:"vectors"`
		SparseVectors map[string]struct{}     `json:"sparse_vectors"`
	}{
		Vectors:       map[string]vectorParams{"dense": {Size: dim, Distance: "Cosine"}},
		SparseVectors: map[string]struct{}{"sparse": {}},
	})
	if err != nil {
		return err
	}
	return decode(resp, "create_hybrid_collection", nil)
}

func payloadFor(doc domain.VectorDocument) map[string]any {
	return map[string]any{
		"id":             doc.ID(),
		"relative_path":  doc.RelativePath(),
		"content":        doc.Content(),
		"start_line":     doc.StartLine(),
		"end_line":       doc.EndLine(),
		"file_extension": doc.FileExtension(),
		"metadata":       doc.Metadata(),
	}
}

type upsertRequest struct {
	Points []point `json:"points"`
}

type point struct {
	ID      string         `json:"id"`
	Vector  any            `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// Insert upserts documents using their dense vector only, chunked into
// batches of 100, awaited synchronously per batch.
func (s *QdrantStore) Insert(ctx context.Context, name string, documents []domain.VectorDocument) error {
	return s.upsert(ctx, name, documents, false)
}

// InsertHybrid upserts documents carrying both dense and sparse
// vectors, chunked the same way as Insert.
func (s *QdrantStore) InsertHybrid(ctx context.Context, name string, documents []domain.VectorDocument) error {
	return s.upsert(ctx, name, documents, true)
}

func (s *QdrantStore) upsert(ctx context.Context, name string, documents []domain.VectorDocument, hybrid bool) error {
	for batchStart := 0; batchStart < len(documents); batchStart += insertBatchSize {
		if err := ctx.Err(); err != nil {
			return domain.ErrCanceled
		}

		end := batchStart + insertBatchSize
		if end > len(documents) {
			end = len(documents)
		}
		batch := documents[batchStart:end]

		points := make([]point, len(batch))
		for i, doc := range batch {
			points[i] = point{ID: mapID(doc.ID()), Payload: payloadFor(doc)}
			if hybrid {
				vec := map[string]any{}
				if dense := doc.Dense(); dense != nil {
					vec["dense"] = dense
				}
				if sparse, ok := doc.Sparse(); ok {
					vec["sparse"] = map[string]any{"indices": sparse.Indices(), "values": sparse.Values()}
				}
				points[i].Vector = vec
			} else {
				points[i].Vector = doc.Dense()
			}
		}

		resp, err := s.do(ctx, http.MethodPut, "/collections/"+name+"/points?wait=true", upsertRequest{Points: points})
		if err != nil {
			return err
		}
		if err := decode(resp, "insert", nil); err != nil {
			return fmt.Errorf("insert batch %d: %w", batchStart/insertBatchSize, err)
		}
	}
	return nil
}

type searchRequest struct {
	Vector      any            `json:"vector"`
	Limit       int            `json:"limit"`
	WithPayload bool           `json:"with_payload"`
	Filter      map[string]any `json:"filter,omitempty"`
}

type searchResponse struct {
	Result []struct {
		ID      any             `json:"id"`
		Score   float64         `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Search runs one channel query against name. If req already names an
// explicit Channel (as the dispatcher does for a collection its cache
// marks hybrid), named-vector addressing is used directly with no extra
// round trip. A request with no channel (a direct caller, or a
// dispatcher query against a non-hybrid collection) triggers a fresh
// is_hybrid probe.
func (s *QdrantStore) Search(ctx context.Context, name string, req domain.HybridSearchRequest, filter domain.Filter) ([]domain.HybridSearchResult, error) {
	hybrid := req.Channel() != domain.ChannelUnspecified
	if !hybrid {
		var err error
		hybrid, err = s.IsHybrid(ctx, name)
		if err != nil {
			return nil, err
		}
	}

	var vector any
	switch {
	case req.IsSparse():
		sparse := map[string]any{"indices": req.Sparse().Indices(), "values": req.Sparse().Values()}
		if hybrid {
			vector = map[string]any{"name": "sparse", "vector": sparse}
		} else {
			vector = sparse
		}
	default:
		if hybrid {
			vector = map[string]any{"name": "dense", "vector": req.Dense()}
		} else {
			vector = req.Dense()
		}
	}

	limit := req.Limit()
	if limit <= 0 {
		limit = 10
	}

	body := searchRequest{Vector: vector, Limit: limit, WithPayload: true, Filter: translateFilter(filter)}
	resp, err := s.do(ctx, http.MethodPost, "/collections/"+name+"/points/search", body)
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := decode(resp, "search", &parsed); err != nil {
		return nil, err
	}

	results := make([]domain.HybridSearchResult, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		doc := documentFromPayload(r.Payload)
		results = append(results, domain.NewHybridSearchResult(doc, r.Score))
	}
	return results, nil
}

type scrollRequest struct {
	Filter      map[string]any `json:"filter,omitempty"`
	Limit       int            `json:"limit"`
	WithPayload any            `json:"with_payload"`
}

type scrollResponse struct {
	Result struct {
		Points []struct {
			ID      any             `json:"id"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	} `json:"result"`
}

// Scroll returns up to limit documents matching filter. A nil fields
// slice requests the full payload; otherwise only the named fields are
// requested from the backend.
func (s *QdrantStore) Scroll(ctx context.Context, name string, filter domain.Filter, fields []string, limit int) ([]ScrollResult, error) {
	var withPayload any = true
	requestedID := fields == nil
	if fields != nil {
		// "id" is always fetched so ScrollResult.ID can be filled in.
		withPayload = append(append([]string{}, fields...), "id")
		for _, f := range fields {
			if f == "id" {
				requestedID = true
			}
		}
	}

	resp, err := s.do(ctx, http.MethodPost, "/collections/"+name+"/points/scroll", scrollRequest{
		Filter: translateFilter(filter), Limit: limit, WithPayload: withPayload,
	})
	if err != nil {
		return nil, err
	}

	var parsed scrollResponse
	if err := decode(resp, "scroll", &parsed); err != nil {
		return nil, err
	}

	out := make([]ScrollResult, 0, len(parsed.Result.Points))
	for _, p := range parsed.Result.Points {
		id, _ := p.Payload["id"].(string)
		if !requestedID {
			delete(p.Payload, "id")
		}
		out = append(out, ScrollResult{ID: id, Fields: canonicalizePayload(p.Payload)})
	}
	return out, nil
}

// canonicalizePayload serializes every payload value to a canonical
// string form: strings pass through, everything else is rendered via a
// sorted-key JSON encoding so cross-backend output is stable.
func canonicalizePayload(payload map[string]any) map[string]string {
	out := make(map[string]string, len(payload))
	for k, v := range payload {
		if str, ok := v.(string); ok {
			out[k] = str
			continue
		}
		out[k] = canonicalString(v)
	}
	return out
}

func canonicalString(v any) string {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			b.WriteString(canonicalString(val[k]))
		}
		b.WriteByte('}')
		return b.String()
	case []any:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = canonicalString(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(raw)
	}
}

type deleteRequest struct {
	Points []string `json:"points"`
}

// Delete removes documents by their caller-supplied ids, mapping each
// through the same deterministic function used on insert.
func (s *QdrantStore) Delete(ctx context.Context, name string, ids []string) error {
	mapped := make([]string, len(ids))
	for i, id := range ids {
		mapped[i] = mapID(id)
	}

	resp, err := s.do(ctx, http.MethodPost, "/collections/"+name+"/points/delete", deleteRequest{Points: mapped})
	if err != nil {
		return err
	}
	return decode(resp, "delete", nil)
}

// DropCollection deletes a collection and every document in it.
func (s *QdrantStore) DropCollection(ctx context.Context, name string) error {
	resp, err := s.do(ctx, http.MethodDelete, "/collections/"+name, nil)
	if err != nil {
		return err
	}
	return decode(resp, "drop_collection", nil)
}

type collectionInfoResponse struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors json.RawMessage `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// IsHybrid reports whether name declares named vectors (an object) as
// opposed to a single unnamed vector (an object with "size"/"distance"
// at the top level). Qdrant represents both as JSON objects, so the
// distinguishing signal is whether "size" appears directly under
// vectors.
func (s *QdrantStore) IsHybrid(ctx context.Context, name string) (bool, error) {
	resp, err := s.do(ctx, http.MethodGet, "/collections/"+name, nil)
	if err != nil {
		return false, err
	}

	var parsed collectionInfoResponse
	if err := decode(resp, "is_hybrid", &parsed); err != nil {
		return false, err
	}

	var probe struct {
		Size *int `json:"size"`
	}
	if err := json.Unmarshal(parsed.Result.Config.Params.Vectors, &probe); err != nil {
		return false, fmt.Errorf("%w: decoding collection vectors config: %w", domain.ErrBackendUnavailable, err)
	}
	return probe.Size == nil, nil
}

// translateFilter converts a domain.Filter into a Qdrant-shaped filter
// object. A nil filter yields a nil map, which the JSON encoder omits
// entirely from the request.
func translateFilter(filter domain.Filter) map[string]any {
	if filter == nil {
		return nil
	}

	condition := func(f domain.EqualsFilter) map[string]any {
		return map[string]any{"key": f.Field, "match": map[string]any{"value": f.Value}}
	}

	switch f := filter.(type) {
	case domain.MustFilter:
		return map[string]any{"must": []map[string]any{condition(f.Predicate)}}
	case domain.MustNotFilter:
		return map[string]any{"must_not": []map[string]any{condition(f.Predicate)}}
	case domain.AnyFilter:
		conditions := make([]map[string]any, 0, len(f.Predicates))
		for _, p := range f.Predicates {
			conditions = append(conditions, condition(p))
		}
		return map[string]any{"should": conditions}
	default:
		return nil
	}
}

// documentFromPayload reconstructs a VectorDocument's payload fields
// (never its vector, which a search response does not echo back) from
// a decoded search-result payload.
func documentFromPayload(payload map[string]any) domain.VectorDocument {
	str := func(key string) string {
		v, _ := payload[key].(string)
		return v
	}
	intOf := func(key string) int {
		v, _ := payload[key].(float64)
		return int(v)
	}
	metadata := map[string]string{}
	if raw, ok := payload["metadata"].(map[string]any); ok {
		for k, v := range raw {
			if s, ok := v.(string); ok {
				metadata[k] = s
			}
		}
	}

	return domain.NewVectorDocument(
		str("id"), nil, str("content"), str("relative_path"),
		intOf("start_line"), intOf("end_line"), str("file_extension"), metadata,
	)
}

var _ Store = (*QdrantStore)(nil)
