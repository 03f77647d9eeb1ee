package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/helixml/kodit/internal/config"
	"github.com/helixml/kodit/internal/domain"
	"github.com/helixml/kodit/internal/filter"
	"github.com/helixml/kodit/internal/provider"
	"github.com/helixml/kodit/internal/reranker"
	"github.com/helixml/kodit/internal/search"
	"github.com/helixml/kodit/internal/sparse"
)

func searchCmd() *cobra.Command {
	var (
		query      string
		collection string
		vocabFile  string
		filterExpr string
		limit      int
		topN       int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a hybrid query and print fused results",
		Long: `search runs query against both the sparse and (if configured) dense
channels of a collection, fuses the two ranked lists, optionally
reranks the top results through KODIT_RERANK_BASE_URL, and prints the
final ranking as JSON.

--vocab-file must point at a state file written by "kodit index
--vocab-file", so the sparse query vector is encoded against the same
vocabulary the documents were indexed with.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(query, collection, vocabFile, filterExpr, limit, topN)
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Query text")
	cmd.Flags().StringVar(&collection, "collection", "default", "Collection name")
	cmd.Flags().StringVar(&vocabFile, "vocab-file", "", "Path to a vocabulary state file written by \"index --vocab-file\"")
	cmd.Flags().StringVar(&filterExpr, "filter", "", `Filter expression, e.g. file_extension == ".go"`)
	cmd.Flags().IntVar(&limit, "limit", 10, "Results per channel before fusion")
	cmd.Flags().IntVar(&topN, "top-n", 0, "Rerank and keep the top N fused results (0 disables reranking)")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

func runSearch(query, collection, vocabFile, filterExpr string, limit, topN int) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	store, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}

	queries, err := buildQueries(cfg, query, vocabFile, limit)
	if err != nil {
		return err
	}

	var dispatcherOpts []search.DispatcherOption
	dispatcherOpts = append(dispatcherOpts, search.WithFusionConfig(cfg.Fusion.ToFusionConfig()))
	dispatcherOpts = append(dispatcherOpts, search.WithDispatcherLogger(logger))

	var rerankOpts *search.RerankOptions
	if topN > 0 && cfg.Rerank.IsConfigured() {
		endpoint := cfg.Rerank.ToEndpoint()
		rr := reranker.NewHTTPReranker(endpoint.BaseURL(), endpoint.APIKey(), endpoint.Model(),
			reranker.WithMaxRetries(endpoint.MaxRetries()),
			reranker.WithInitialDelay(endpoint.InitialDelay()),
			reranker.WithBackoffFactor(endpoint.BackoffFactor()),
			reranker.WithLogger(logger),
		)
		dispatcherOpts = append(dispatcherOpts, search.WithReranker(rr))
		rerankOpts = &search.RerankOptions{TopN: topN}
	}

	dispatcher := search.NewDispatcher(store, dispatcherOpts...)

	req := search.Request{
		Collection: collection,
		Queries:    queries,
		Filter:     filter.Parse(filterExpr, logger),
		Limit:      limit,
		QueryText:  query,
	}

	results, err := dispatcher.HybridSearch(context.Background(), req, rerankOpts)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	return printResults(results)
}

func buildQueries(cfg config.EnvConfig, query, vocabFile string, limit int) ([]search.Query, error) {
	var queries []search.Query

	if cfg.EmbeddingEndpoint.IsConfigured() {
		endpoint := cfg.EmbeddingEndpoint.ToEndpoint()
		embedder := provider.NewOpenAIProviderFromEndpoint(endpoint)
		resp, err := embedder.Embed(context.Background(), provider.NewEmbeddingRequest([]string{query}))
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		embeddings := resp.Embeddings()
		if len(embeddings) != 1 {
			return nil, fmt.Errorf("embed query: expected 1 embedding, got %d", len(embeddings))
		}
		dense := make([]float32, len(embeddings[0]))
		for i, v := range embeddings[0] {
			dense[i] = float32(v)
		}
		queries = append(queries, domain.NewDenseSearchRequest(dense, limit))
	}

	if vocabFile != "" {
		encoder, err := loadEncoder(vocabFile)
		if err != nil {
			return nil, fmt.Errorf("load vocabulary state: %w", err)
		}
		sparseVector := encoder.EmbedQuery(query)
		if !sparseVector.IsEmpty() {
			queries = append(queries, domain.NewSparseSearchRequest(sparseVector, limit))
		}
	}

	if len(queries) == 0 {
		return nil, fmt.Errorf("no query channel available: configure KODIT_EMBEDDING_ENDPOINT_* or pass --vocab-file")
	}
	return queries, nil
}

func loadEncoder(path string) (*sparse.Encoder, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state sparse.VocabularyState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	encoder := sparse.NewEncoder(state.Config, nil)
	encoder.ImportState(state)
	return encoder, nil
}

func printResults(results []domain.HybridSearchResult) error {
	type row struct {
		ID    string  `json:"id"`
		Path  string  `json:"path"`
		Score float64 `json:"score"`
	}
	rows := make([]row, len(results))
	for i, r := range results {
		rows[i] = row{ID: r.Document().ID(), Path: r.Document().RelativePath(), Score: r.Score()}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
