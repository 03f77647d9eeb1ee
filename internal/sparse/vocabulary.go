package sparse

import (
	"encoding/json"
	"fmt"
)

// TermIndex pairs a vocabulary term with its dense, contiguous index.
// It marshals as a `[term, index]` tuple rather than a `{"Term":...}`
// object, so the exported state is a language-neutral wire format
// rather than a Go-shaped one.
type TermIndex struct {
	Term  string
	Index int32
}

// MarshalJSON encodes the pair as a two-element array.
func (t TermIndex) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{t.Term, t.Index})
}

// UnmarshalJSON decodes a two-element array into the pair.
func (t *TermIndex) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("sparse: decoding TermIndex tuple: %w", err)
	}
	if err := json.Unmarshal(pair[0], &t.Term); err != nil {
		return fmt.Errorf("sparse: decoding TermIndex term: %w", err)
	}
	if err := json.Unmarshal(pair[1], &t.Index); err != nil {
		return fmt.Errorf("sparse: decoding TermIndex index: %w", err)
	}
	return nil
}

// TermCount pairs a vocabulary term with a document frequency. Same
// tuple encoding as TermIndex.
type TermCount struct {
	Term string
	DF   int
}

// MarshalJSON encodes the pair as a two-element array.
func (t TermCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{t.Term, t.DF})
}

// UnmarshalJSON decodes a two-element array into the pair.
func (t *TermCount) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("sparse: decoding TermCount tuple: %w", err)
	}
	if err := json.Unmarshal(pair[0], &t.Term); err != nil {
		return fmt.Errorf("sparse: decoding TermCount term: %w", err)
	}
	if err := json.Unmarshal(pair[1], &t.DF); err != nil {
		return fmt.Errorf("sparse: decoding TermCount df: %w", err)
	}
	return nil
}

// TermScore pairs a vocabulary term with a cached score (IDF). Same
// tuple encoding as TermIndex.
type TermScore struct {
	Term  string
	Score float64
}

// MarshalJSON encodes the pair as a two-element array.
func (t TermScore) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{t.Term, t.Score})
}

// UnmarshalJSON decodes a two-element array into the pair.
func (t *TermScore) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("sparse: decoding TermScore tuple: %w", err)
	}
	if err := json.Unmarshal(pair[0], &t.Term); err != nil {
		return fmt.Errorf("sparse: decoding TermScore term: %w", err)
	}
	if err := json.Unmarshal(pair[1], &t.Score); err != nil {
		return fmt.Errorf("sparse: decoding TermScore score: %w", err)
	}
	return nil
}

// VocabularyState is the encoder's persistable state: a language-neutral
// container of two-column tables plus the scalars and parameters needed
// to reconstruct an encoder byte-for-byte via ImportState.
type VocabularyState struct {
	Vocabulary        []TermIndex `json:"vocabulary"`
	DocumentFrequency []TermCount `json:"documentFrequency"`
	IDFCache          []TermScore `json:"idfCache"`
	TotalDocuments    int         `json:"totalDocuments"`
	AvgDocumentLength float64     `json:"avgDocumentLength"`
	Config            Config      `json:"config"`
}
