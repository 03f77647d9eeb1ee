package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helixml/kodit/internal/config"
	"github.com/helixml/kodit/internal/indexing"
	"github.com/helixml/kodit/internal/provider"
	"github.com/helixml/kodit/internal/sparse"
	"github.com/helixml/kodit/internal/vectorstore"
)

func indexCmd() *cobra.Command {
	var (
		dir        string
		collection string
		vocabFile  string
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build a vocabulary and index a directory of files",
		Long: `index walks a directory, builds a BM25 vocabulary over every
file it finds, embeds each file as a sparse vector (and, if
KODIT_EMBEDDING_ENDPOINT_* is configured, a dense vector), and upserts
the result into the configured vector store.

Configuration is read from the environment:
  KODIT_VECTORSTORE_BASE_URL, KODIT_VECTORSTORE_API_KEY   Qdrant-shaped backend (omit for an in-process store)
  KODIT_EMBEDDING_ENDPOINT_BASE_URL/_MODEL/_API_KEY        dense embedding provider (omit to run sparse-only)
  KODIT_SPARSE_K1, _B, _MIN_DF, _MAX_DF_RATIO, ...          sparse encoder tuning
  KODIT_LOG_LEVEL, KODIT_LOG_FORMAT                         logging`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(dir, collection, vocabFile)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to index")
	cmd.Flags().StringVar(&collection, "collection", "default", "Collection name")
	cmd.Flags().StringVar(&vocabFile, "vocab-file", "", "Path to write the exported vocabulary state (optional)")

	return cmd
}

func runIndex(dir, collection, vocabFile string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	inputs, err := collectInputs(dir)
	if err != nil {
		return fmt.Errorf("collect inputs: %w", err)
	}
	if len(inputs) == 0 {
		logger.Warn("no files found to index", "dir", dir)
		return nil
	}

	texts := make([]string, len(inputs))
	for i, in := range inputs {
		texts[i] = in.Content
	}

	encoder := sparse.NewEncoder(cfg.Sparse.ToSparseConfig(), logger)
	encoder.BuildVocabulary(texts)

	store, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}

	var opts []indexing.IndexerOption
	denseDim := 0
	if cfg.EmbeddingEndpoint.IsConfigured() {
		endpoint := cfg.EmbeddingEndpoint.ToEndpoint()
		embedder := provider.NewOpenAIProviderFromEndpoint(endpoint)
		opts = append(opts, indexing.WithEmbedder(embedder))
		probe, err := embedder.Embed(context.Background(), provider.NewEmbeddingRequest([]string{texts[0]}))
		if err != nil {
			return fmt.Errorf("probe embedding dimension: %w", err)
		}
		if embeddings := probe.Embeddings(); len(embeddings) > 0 {
			denseDim = len(embeddings[0])
		}
	}
	opts = append(opts, indexing.WithIndexerLogger(logger))

	idx := indexing.NewIndexer(encoder, store, collection, opts...)

	ctx := context.Background()
	if err := idx.EnsureCollection(ctx, denseDim); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	if err := idx.Index(ctx, inputs); err != nil {
		return fmt.Errorf("index: %w", err)
	}

	logger.Info("indexed documents", "count", len(inputs), "collection", collection)

	if vocabFile != "" {
		if err := writeVocabState(encoder, vocabFile); err != nil {
			return fmt.Errorf("write vocabulary state: %w", err)
		}
		logger.Info("wrote vocabulary state", "path", vocabFile)
	}

	return nil
}

func collectInputs(dir string) ([]indexing.Input, error) {
	var inputs []indexing.Input
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		inputs = append(inputs, indexing.Input{
			ID:            rel,
			Content:       string(content),
			RelativePath:  rel,
			FileExtension: filepath.Ext(path),
		})
		return nil
	})
	return inputs, err
}

func buildStore(cfg config.EnvConfig, logger *slog.Logger) (vectorstore.Store, error) {
	if cfg.VectorStore.BaseURL == "" {
		logger.Info("no KODIT_VECTORSTORE_BASE_URL configured, using in-process store")
		return vectorstore.NewMemoryStore(), nil
	}
	return vectorstore.NewQdrantStore(cfg.VectorStore.BaseURL, cfg.VectorStore.APIKey,
		vectorstore.WithQdrantLogger(logger)), nil
}

func writeVocabState(encoder *sparse.Encoder, path string) error {
	raw, err := json.MarshalIndent(encoder.ExportState(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
