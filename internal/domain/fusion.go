package domain

// FusionRequest is one ranked entry from a single search channel, fed
// into RankFusion.
type FusionRequest struct {
	id    string
	score float64
}

// NewFusionRequest creates a FusionRequest.
func NewFusionRequest(id string, score float64) FusionRequest {
	return FusionRequest{id: id, score: score}
}

// ID returns the document identifier.
func (f FusionRequest) ID() string { return f.id }

// Score returns the channel's raw relevance score for this document.
func (f FusionRequest) Score() float64 { return f.score }

// FusionResult is one document's fused score after RankFusion, plus the
// raw per-channel scores that fed into it (in channel-iteration order).
type FusionResult struct {
	id             string
	score          float64
	originalScores []float64
}

// NewFusionResult creates a FusionResult.
func NewFusionResult(id string, score float64, originalScores []float64) FusionResult {
	scores := make([]float64, len(originalScores))
	copy(scores, originalScores)
	return FusionResult{id: id, score: score, originalScores: scores}
}

// ID returns the document identifier.
func (f FusionResult) ID() string { return f.id }

// Score returns the fused score.
func (f FusionResult) Score() float64 { return f.score }

// OriginalScores returns the raw per-channel scores, in the order the
// channels were queried. A missing channel contributes 0.
func (f FusionResult) OriginalScores() []float64 {
	out := make([]float64, len(f.originalScores))
	copy(out, f.originalScores)
	return out
}
