package models

import (
	"fmt"
	"strings"
)

// DimensionScore is the per-dimension outcome of scoring one node.
type DimensionScore struct {
	Score   float64 `json:"score"`
	Matched int     `json:"matched"`
	Total   int     `json:"total"`
}

// MatchResult is the output of scoring one node against one FactMap.
// Confidence is always the weighted sum of MatchedDimensions.
type MatchResult struct {
	NodeID            string                       `json:"node_id"`
	Citation          string                       `json:"citation"`
	Confidence        float64                      `json:"confidence"`
	MatchedDimensions map[Dimension]DimensionScore `json:"matched_dimensions"`
	MissingFields     []string                     `json:"missing_fields"`
}

// Explanation renders the dimension scores in canonical dimension order.
func (m MatchResult) Explanation() string {
	parts := make([]string, 0, len(Dimensions))
	for _, d := range Dimensions {
		s, ok := m.MatchedDimensions[d]
		if !ok || s.Total == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %d/%d (%.2f)", d, s.Matched, s.Total, s.Score))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s: no populated dimensions", m.NodeID)
	}
	return fmt.Sprintf("%s: confidence %.2f from %s", m.NodeID, m.Confidence, strings.Join(parts, ", "))
}
