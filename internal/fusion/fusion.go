// Package fusion combines per-channel ranked result lists into a
// single fused ranking, via Reciprocal Rank Fusion, weighted sum, or a
// plain average fallback. It is a pure function of its inputs: no
// suspension points, no shared state.
package fusion

import (
	"sort"

	"github.com/helixml/kodit/internal/domain"
)

// Strategy names a fusion algorithm.
type Strategy string

// Strategy values.
const (
	StrategyRRF      Strategy = "rrf"
	StrategyWeighted Strategy = "weighted"
	// StrategyAverage is used whenever Strategy is unrecognized.
	StrategyAverage Strategy = "average"
)

// Config configures a Fuser.
type Config struct {
	Strategy Strategy
	// K is the RRF constant. Defaults to 60 if <= 0.
	K float64
	// Weights are per-channel weights for StrategyWeighted, in the
	// order channels are queried. A missing weight for a channel falls
	// back to 1/n_channels, as does the whole slice when nil.
	Weights []float64
}

// DefaultConfig returns RRF with k=60.
func DefaultConfig() Config {
	return Config{Strategy: StrategyRRF, K: 60}
}

// Fuser fuses ranked lists per Config.
type Fuser struct {
	config Config
}

// NewFuser creates a Fuser. A zero-value K is normalized to 60.
func NewFuser(config Config) Fuser {
	if config.K <= 0 {
		config.K = 60
	}
	return Fuser{config: config}
}

// Fuse combines one ranked list per channel (each pre-sorted by
// descending relevance) into a single fused ranking, sorted by
// descending fused score with ties broken by insertion order (the
// order documents first appear across the channel lists), then
// truncated to limit. limit <= 0 means "no truncation".
func (f Fuser) Fuse(limit int, channels ...[]domain.FusionRequest) []domain.FusionResult {
	switch f.config.Strategy {
	case StrategyWeighted:
		return f.fuseWeighted(limit, channels)
	case StrategyRRF:
		return f.fuseRRF(limit, channels)
	default:
		return f.fuseAverage(limit, channels)
	}
}

// order tracks first-seen insertion order per document id, used as the
// tie-break for equal fused scores across all strategies.
type order struct {
	ids    []string
	scores map[string][]float64
	seen   map[string]int
}

func newOrder() *order {
	return &order{scores: map[string][]float64{}, seen: map[string]int{}}
}

func (o *order) touch(id string, nChannels int) {
	if _, ok := o.seen[id]; ok {
		return
	}
	o.seen[id] = len(o.ids)
	o.ids = append(o.ids, id)
	o.scores[id] = make([]float64, nChannels)
}

func (f Fuser) fuseRRF(limit int, channels [][]domain.FusionRequest) []domain.FusionResult {
	o := newOrder()
	fused := map[string]float64{}

	for ci, channel := range channels {
		for rank, req := range channel {
			o.touch(req.ID(), len(channels))
			fused[req.ID()] += 1.0 / (f.config.K + float64(rank+1))
			o.scores[req.ID()][ci] = req.Score()
		}
	}

	return f.assemble(fused, o, limit)
}

func (f Fuser) fuseWeighted(limit int, channels [][]domain.FusionRequest) []domain.FusionResult {
	o := newOrder()
	fused := map[string]float64{}
	n := len(channels)
	uniform := 0.0
	if n > 0 {
		uniform = 1.0 / float64(n)
	}

	for ci, channel := range channels {
		weight := uniform
		if ci < len(f.config.Weights) {
			weight = f.config.Weights[ci]
		}
		for _, req := range channel {
			o.touch(req.ID(), n)
			fused[req.ID()] += weight * req.Score()
			o.scores[req.ID()][ci] = req.Score()
		}
	}

	return f.assemble(fused, o, limit)
}

func (f Fuser) fuseAverage(limit int, channels [][]domain.FusionRequest) []domain.FusionResult {
	o := newOrder()
	sum := map[string]float64{}
	count := map[string]int{}

	for ci, channel := range channels {
		for _, req := range channel {
			o.touch(req.ID(), len(channels))
			sum[req.ID()] += req.Score()
			count[req.ID()]++
			o.scores[req.ID()][ci] = req.Score()
		}
	}

	fused := map[string]float64{}
	for id, total := range sum {
		fused[id] = total / float64(count[id])
	}

	return f.assemble(fused, o, limit)
}

func (f Fuser) assemble(fused map[string]float64, o *order, limit int) []domain.FusionResult {
	results := make([]domain.FusionResult, 0, len(fused))
	for _, id := range o.ids {
		results = append(results, domain.NewFusionResult(id, fused[id], o.scores[id]))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score() > results[j].Score()
	})

	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}
