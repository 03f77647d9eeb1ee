package sparse

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVocabularyState_JSONShape(t *testing.T) {
	state := VocabularyState{
		Vocabulary:        []TermIndex{{Term: "red", Index: 0}, {Term: "blue", Index: 1}},
		DocumentFrequency: []TermCount{{Term: "red", DF: 2}, {Term: "blue", DF: 1}},
		IDFCache:          []TermScore{{Term: "red", Score: 0.5}, {Term: "blue", Score: 1.1}},
		TotalDocuments:    2,
		AvgDocumentLength: 1.5,
		Config:            DefaultConfig(),
	}

	raw, err := json.Marshal(state)
	assert.NoError(t, err)

	var generic map[string]any
	assert.NoError(t, json.Unmarshal(raw, &generic))

	for _, key := range []string{"vocabulary", "documentFrequency", "idfCache", "totalDocuments", "avgDocumentLength", "config"} {
		_, ok := generic[key]
		assert.True(t, ok, "missing key %q", key)
	}

	vocab, ok := generic["vocabulary"].([]any)
	assert.True(t, ok)
	first, ok := vocab[0].([]any)
	assert.True(t, ok, "vocabulary entries should encode as tuples, not objects")
	assert.Equal(t, "red", first[0])
	assert.Equal(t, float64(0), first[1])
}

func TestVocabularyState_JSONRoundTrip(t *testing.T) {
	state := VocabularyState{
		Vocabulary:        []TermIndex{{Term: "red", Index: 0}, {Term: "blue", Index: 1}},
		DocumentFrequency: []TermCount{{Term: "red", DF: 2}, {Term: "blue", DF: 1}},
		IDFCache:          []TermScore{{Term: "red", Score: 0.5}, {Term: "blue", Score: 1.1}},
		TotalDocuments:    2,
		AvgDocumentLength: 1.5,
		Config:            DefaultConfig(),
	}

	raw, err := json.Marshal(state)
	assert.NoError(t, err)

	var decoded VocabularyState
	assert.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, state, decoded)
}
