// Package matching scores a FactMap against rule nodes across the six
// logical dimensions and ranks the nodes that clear a threshold.
package matching

import (
	"fmt"
	"math"
	"sort"

	"legalcosts-backend/models"
)

const (
	// DefaultThreshold is the minimum confidence for a node to be returned.
	DefaultThreshold = 0.60

	// weightTolerance bounds floating-point drift in the weight sum.
	weightTolerance = 1e-6

	// scoreTolerance absorbs rounding in the weighted sum so that, e.g.,
	// 0.25+0.20+0.15 clears a 0.60 threshold.
	scoreTolerance = 1e-9
)

// Weights maps each dimension to its share of the aggregate confidence.
type Weights map[models.Dimension]float64

// DefaultWeights returns the standard dimension weight table.
func DefaultWeights() Weights {
	return Weights{
		models.DimensionWhat:     0.25,
		models.DimensionWhich:    0.20,
		models.DimensionIfThen:   0.25,
		models.DimensionModality: 0.15,
		models.DimensionGiven:    0.10,
		models.DimensionWhy:      0.05,
	}
}

// Validate checks that every dimension has a weight in [0,1] and that the
// weights sum to 1.
func (w Weights) Validate() error {
	known := make(map[models.Dimension]bool, len(models.Dimensions))
	for _, d := range models.Dimensions {
		known[d] = true
	}
	for d := range w {
		if !known[d] {
			return &models.ConfigError{Message: fmt.Sprintf("unknown dimension %q", d)}
		}
	}

	sum := 0.0
	for _, d := range models.Dimensions {
		v, ok := w[d]
		if !ok {
			return &models.ConfigError{Message: fmt.Sprintf("missing weight for dimension %s", d)}
		}
		if math.IsNaN(v) || v < 0 || v > 1 {
			return &models.ConfigError{Message: fmt.Sprintf("weight for %s is %v, must be in [0,1]", d, v)}
		}
		sum += v
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return &models.ConfigError{Message: fmt.Sprintf("weights sum to %v, must sum to 1.0", sum)}
	}
	return nil
}

// Engine is stateless after construction and safe for concurrent use.
type Engine struct {
	weights   Weights
	threshold float64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDefaultThreshold overrides the engine-wide default threshold.
func WithDefaultThreshold(t float64) EngineOption {
	return func(e *Engine) {
		e.threshold = t
	}
}

// NewEngine validates the weights and returns an engine. A misconfigured
// weight table fails here, never at query time.
func NewEngine(weights Weights, opts ...EngineOption) (*Engine, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		weights:   make(Weights, len(weights)),
		threshold: DefaultThreshold,
	}
	for d, v := range weights {
		e.weights[d] = v
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.threshold < 0 || e.threshold > 1 || math.IsNaN(e.threshold) {
		return nil, &models.ConfigError{Message: fmt.Sprintf("default threshold %v outside [0,1]", e.threshold)}
	}
	return e, nil
}

// Threshold returns the engine's default threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Match ranks nodes using the engine's default threshold.
func (e *Engine) Match(facts models.FactMap, nodes []models.RuleNode) ([]models.MatchResult, error) {
	return e.MatchAbove(facts, nodes, e.threshold)
}

// MatchAbove ranks every node whose confidence is at least threshold.
// Results are ordered by confidence descending, then node id ascending.
func (e *Engine) MatchAbove(facts models.FactMap, nodes []models.RuleNode, threshold float64) ([]models.MatchResult, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, &models.ConfigError{Message: fmt.Sprintf("threshold %v outside [0,1]", threshold)}
	}
	results := make([]models.MatchResult, 0, len(nodes))
	for i := range nodes {
		r, err := e.Score(facts, &nodes[i])
		if err != nil {
			return nil, err
		}
		if r.Confidence+scoreTolerance >= threshold {
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].NodeID < results[j].NodeID
	})
	return results, nil
}

// Score computes one node's match against the facts without thresholding.
func (e *Engine) Score(facts models.FactMap, node *models.RuleNode) (models.MatchResult, error) {
	result := models.MatchResult{
		NodeID:            node.NodeID,
		Citation:          node.Citation,
		MatchedDimensions: make(map[models.Dimension]models.DimensionScore, len(models.Dimensions)),
		MissingFields:     []string{},
	}

	missing := make(map[string]bool)
	confidence := 0.0
	for _, d := range models.Dimensions {
		entries := node.Entries(d)
		score := models.DimensionScore{Total: len(entries)}

		for _, entry := range entries {
			matched := true
			for _, c := range entry.Conditions {
				ok, err := evaluate(c, facts)
				if err != nil {
					return models.MatchResult{}, &models.NodeDataError{
						NodeID:    node.NodeID,
						Dimension: d,
						Message:   err.Error(),
					}
				}
				if !ok {
					matched = false
				}
			}
			if matched {
				score.Matched++
				continue
			}
			for _, f := range entry.Fields() {
				if !facts.Has(f) {
					missing[f] = true
				}
			}
		}

		// An empty dimension scores 0 rather than 1 so sparse nodes are not rewarded.
		if score.Total > 0 {
			score.Score = float64(score.Matched) / float64(score.Total)
		}
		result.MatchedDimensions[d] = score
		confidence += e.weights[d] * score.Score
	}

	result.Confidence = confidence
	for f := range missing {
		result.MissingFields = append(result.MissingFields, f)
	}
	sort.Strings(result.MissingFields)
	return result, nil
}
