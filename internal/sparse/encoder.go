// Package sparse implements a code-aware BM25 sparse encoder: it owns a
// vocabulary, a document-frequency table, and cached IDF scores, and
// turns text into domain.SparseVector values.
package sparse

import (
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/helixml/kodit/internal/domain"
	"github.com/helixml/kodit/internal/tokenizer"
)

// Encoder is a stateful BM25 sparse encoder. Concurrent embed calls
// against an immutable, already-built state are safe; BuildVocabulary,
// ImportState, and Clear require external synchronization per the
// caller (the encoder mutex only protects against torn reads of its own
// internal maps, it does not serialize logical operations for callers
// that need atomic build-then-embed sequences).
type Encoder struct {
	mu sync.RWMutex

	config      Config
	initialized bool

	vocabulary        map[string]int32
	documentFrequency map[string]int
	idfCache          map[string]float64
	totalDocuments    int
	avgDocumentLength float64

	logger *slog.Logger
}

// NewEncoder creates an Encoder with the given configuration. A nil
// logger defaults to slog.Default(), matching every constructor in this
// module.
func NewEncoder(config Config, logger *slog.Logger) *Encoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Encoder{
		config:            config,
		vocabulary:        map[string]int32{},
		documentFrequency: map[string]int{},
		idfCache:          map[string]float64{},
		logger:            logger,
	}
}

// Initialized reports whether the encoder has a usable vocabulary,
// either from BuildVocabulary or ImportState.
func (e *Encoder) Initialized() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.initialized
}

// Config returns the encoder's current parameter block.
func (e *Encoder) Config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.config
}

// SetConfig mutates the encoder's parameters independently of a
// rebuild. If the encoder is initialized, cached IDFs become
// inconsistent with the new parameters until the next BuildVocabulary,
// so a warning is logged - rebuild is never triggered implicitly,
// since its cost is corpus-proportional.
func (e *Encoder) SetConfig(config Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		e.logger.Warn("sparse encoder parameters changed while initialized; cached IDFs are now stale until BuildVocabulary is called again")
	}
	e.config = config
}

// BuildVocabulary performs a single pass over documents: tokenizes each,
// accumulates document frequencies, computes average document length,
// and assigns dense vocabulary indices to terms surviving the
// min_df/max_df_ratio filter. An empty corpus is legal and produces an
// empty vocabulary. Replacing an existing vocabulary is atomic: no
// partial state is observable by a concurrent reader holding the lock.
func (e *Encoder) BuildVocabulary(documents []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(documents)
	df := map[string]int{}
	totalTokens := 0

	for _, doc := range documents {
		tokens := tokenizer.Tokenize(doc, e.config.TokenMode)
		totalTokens += len(tokens)

		seen := map[string]struct{}{}
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	avgLen := 0.0
	if n > 0 {
		avgLen = float64(totalTokens) / float64(n)
	}
	maxDF := int(math.Ceil(e.config.MaxDFRatio * float64(n)))

	vocabulary := map[string]int32{}
	documentFrequency := map[string]int{}
	idfCache := map[string]float64{}

	var nextIndex int32
	for term, count := range df {
		if count < e.config.MinDF || count > maxDF {
			continue
		}
		vocabulary[term] = nextIndex
		nextIndex++
		documentFrequency[term] = count
		idfCache[term] = bm25PlusIDF(n, count)
	}

	e.vocabulary = vocabulary
	e.documentFrequency = documentFrequency
	e.idfCache = idfCache
	e.totalDocuments = n
	e.avgDocumentLength = avgLen
	e.initialized = true
}

// bm25PlusIDF computes the BM25+ inverse-document-frequency weight,
// which stays non-negative even for terms appearing in most documents.
func bm25PlusIDF(totalDocuments, documentFrequency int) float64 {
	n := float64(totalDocuments)
	df := float64(documentFrequency)
	return math.Log((n-df+0.5)/(df+0.5) + 1)
}

// EmbedDocument tokenizes text and produces its sparse vector using the
// BM25 scoring formula. Calling this on an uninitialized encoder
// auto-initializes it from text alone (degraded mode) and logs a
// warning; this is never silent and never recommended for production
// use - call BuildVocabulary with the full corpus first.
func (e *Encoder) EmbedDocument(text string) domain.SparseVector {
	return e.embed(text)
}

// EmbedQuery tokenizes text and produces its sparse vector. Queries use
// the identical BM25 formula as documents today; this is a separate
// entry point so a future revision can diverge without touching
// EmbedDocument's callers.
func (e *Encoder) EmbedQuery(text string) domain.SparseVector {
	return e.embed(text)
}

func (e *Encoder) embed(text string) domain.SparseVector {
	if !e.Initialized() {
		e.logger.Warn("sparse encoder used before BuildVocabulary/ImportState; auto-initializing from a single document (degraded mode)")
		e.BuildVocabulary([]string{text})
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	tokens := tokenizer.Tokenize(text, e.config.TokenMode)
	docLen := len(tokens)
	if docLen == 0 {
		return domain.SparseVector{}
	}

	tf := map[string]int{}
	for _, tok := range tokens {
		if _, ok := e.vocabulary[tok]; !ok {
			continue
		}
		tf[tok]++
	}

	avgLen := e.avgDocumentLength
	if avgLen < 1 {
		avgLen = 1
	}

	// Visit terms in sorted order so the same input always yields the
	// same entry order.
	terms := make([]string, 0, len(tf))
	for term := range tf {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	indices := make([]int32, 0, len(tf))
	values := make([]float64, 0, len(tf))
	for _, term := range terms {
		freq := tf[term]
		adjustedTF := float64(freq)
		if e.config.SublinearTF {
			adjustedTF = 1 + math.Log(float64(freq))
		}

		denom := adjustedTF + e.config.K1*(1-e.config.B+e.config.B*float64(docLen)/avgLen)
		idf := e.idfCache[term]
		score := idf * adjustedTF * (e.config.K1 + 1) / denom

		if score > 0 {
			indices = append(indices, e.vocabulary[term])
			values = append(values, score)
		}
	}

	return domain.NewSparseVector(indices, values)
}

// ExportState snapshots the encoder's vocabulary, frequency/IDF tables,
// scalars, and parameters into a language-neutral container.
func (e *Encoder) ExportState() VocabularyState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	vocab := make([]TermIndex, 0, len(e.vocabulary))
	for term, idx := range e.vocabulary {
		vocab = append(vocab, TermIndex{Term: term, Index: idx})
	}

	df := make([]TermCount, 0, len(e.documentFrequency))
	for term, count := range e.documentFrequency {
		df = append(df, TermCount{Term: term, DF: count})
	}

	idf := make([]TermScore, 0, len(e.idfCache))
	for term, score := range e.idfCache {
		idf = append(idf, TermScore{Term: term, Score: score})
	}

	return VocabularyState{
		Vocabulary:        vocab,
		DocumentFrequency: df,
		IDFCache:          idf,
		TotalDocuments:    e.totalDocuments,
		AvgDocumentLength: e.avgDocumentLength,
		Config:            e.config,
	}
}

// ImportState replaces the encoder's state with a previously exported
// snapshot, atomically, and marks the encoder initialized.
func (e *Encoder) ImportState(state VocabularyState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	vocabulary := make(map[string]int32, len(state.Vocabulary))
	for _, ti := range state.Vocabulary {
		vocabulary[ti.Term] = ti.Index
	}

	documentFrequency := make(map[string]int, len(state.DocumentFrequency))
	for _, tc := range state.DocumentFrequency {
		documentFrequency[tc.Term] = tc.DF
	}

	idfCache := make(map[string]float64, len(state.IDFCache))
	for _, ts := range state.IDFCache {
		idfCache[ts.Term] = ts.Score
	}

	e.vocabulary = vocabulary
	e.documentFrequency = documentFrequency
	e.idfCache = idfCache
	e.totalDocuments = state.TotalDocuments
	e.avgDocumentLength = state.AvgDocumentLength
	e.config = state.Config
	e.initialized = true
}

// Clear zeroes all tables and resets the encoder to its fresh state.
func (e *Encoder) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.vocabulary = map[string]int32{}
	e.documentFrequency = map[string]int{}
	e.idfCache = map[string]float64{}
	e.totalDocuments = 0
	e.avgDocumentLength = 0
	e.initialized = false
}

// VocabularySize returns the number of terms currently in the
// vocabulary.
func (e *Encoder) VocabularySize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.vocabulary)
}
