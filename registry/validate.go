package registry

import (
	"fmt"
	"math"

	"legalcosts-backend/models"
)

// ValidateNodes returns every structural violation in a node set. An empty
// result means the set may be registered. When fields is empty, condition
// field names are not checked against a declaration.
func ValidateNodes(moduleID string, nodes []models.RuleNode, fields []models.FieldSpec) []string {
	var violations []string
	if moduleID == "" {
		violations = append(violations, "module id is empty")
	}
	if len(nodes) == 0 {
		return append(violations, "module declares no nodes")
	}

	declared := make(map[string]bool, len(fields))
	for _, f := range fields {
		declared[f.Name] = true
	}

	ids := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if n.NodeID == "" {
			violations = append(violations, fmt.Sprintf("node #%d has an empty node_id", i))
			continue
		}
		if first, dup := ids[n.NodeID]; dup {
			violations = append(violations, fmt.Sprintf("duplicate node_id %q (nodes #%d and #%d)", n.NodeID, first, i))
			continue
		}
		ids[n.NodeID] = i
	}

	for i := range nodes {
		n := &nodes[i]
		label := n.NodeID
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}

		if n.ModuleID != "" && n.ModuleID != moduleID {
			violations = append(violations, fmt.Sprintf("node %s belongs to module %q", label, n.ModuleID))
		}
		if math.IsNaN(n.Confidence) || n.Confidence < 0 || n.Confidence > 1 {
			violations = append(violations, fmt.Sprintf("node %s confidence %v outside [0,1]", label, n.Confidence))
		}
		if len(n.PopulatedDimensions()) == 0 {
			violations = append(violations, fmt.Sprintf("node %s has no populated dimensions", label))
		}

		for _, d := range models.Dimensions {
			for j, e := range n.Entries(d) {
				violations = append(violations, validateEntry(label, d, j, e, declared)...)
			}
		}

		for _, ref := range n.References() {
			if _, ok := ids[ref]; !ok {
				violations = append(violations, fmt.Sprintf("node %s references unknown node %q", label, ref))
			}
			if ref == n.NodeID {
				violations = append(violations, fmt.Sprintf("node %s references itself", label))
			}
		}
	}

	return violations
}

func validateEntry(node string, d models.Dimension, idx int, e models.DimensionEntry, declared map[string]bool) []string {
	var out []string
	where := fmt.Sprintf("node %s %s[%d]", node, d, idx)

	if e.Proposition == "" {
		out = append(out, where+" has an empty proposition")
	}
	if math.IsNaN(e.Weight) || e.Weight < 0 || e.Weight > 1 {
		out = append(out, fmt.Sprintf("%s weight %v outside [0,1]", where, e.Weight))
	}
	for k, c := range e.Conditions {
		if msg := ConditionProblem(c); msg != "" {
			out = append(out, fmt.Sprintf("%s condition %d: %s", where, k, msg))
			continue
		}
		if len(declared) > 0 && !declared[c.Field] {
			out = append(out, fmt.Sprintf("%s condition %d references undeclared field %q", where, k, c.Field))
		}
	}
	return out
}

// ConditionProblem describes what is wrong with a condition, or returns "".
func ConditionProblem(c models.Condition) string {
	if c.Field == "" {
		return "empty field"
	}
	if !c.Op.Known() {
		return fmt.Sprintf("unrecognized comparator %q", c.Op)
	}
	switch c.Op {
	case models.OpEq, models.OpNeq:
		if c.Value == nil {
			return fmt.Sprintf("%s requires a value", c.Op)
		}
	case models.OpIn, models.OpNotIn:
		if len(c.Values) == 0 {
			return fmt.Sprintf("%s requires values", c.Op)
		}
	case models.OpGte:
		if c.Min == nil && c.Value == nil {
			return "gte requires min or value"
		}
	case models.OpLte:
		if c.Max == nil && c.Value == nil {
			return "lte requires max or value"
		}
	case models.OpBetween:
		if c.Min == nil || c.Max == nil {
			return "between requires min and max"
		}
	}
	return ""
}
