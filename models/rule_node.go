package models

// Dimension is one of the six logical facets a rule node is scored on.
type Dimension string

const (
	DimensionWhat     Dimension = "what"
	DimensionWhich    Dimension = "which"
	DimensionIfThen   Dimension = "if_then"
	DimensionModality Dimension = "modality"
	DimensionGiven    Dimension = "given"
	DimensionWhy      Dimension = "why"
)

// Dimensions lists every dimension in canonical order.
var Dimensions = []Dimension{
	DimensionWhat,
	DimensionWhich,
	DimensionIfThen,
	DimensionModality,
	DimensionGiven,
	DimensionWhy,
}

// Operator is the comparator a condition applies to a fact.
type Operator string

const (
	OpEq      Operator = "eq"
	OpNeq     Operator = "neq"
	OpIn      Operator = "in"
	OpNotIn   Operator = "not_in"
	OpGte     Operator = "gte"
	OpLte     Operator = "lte"
	OpBetween Operator = "between"
	OpPresent Operator = "present"
)

var knownOperators = map[Operator]bool{
	OpEq:      true,
	OpNeq:     true,
	OpIn:      true,
	OpNotIn:   true,
	OpGte:     true,
	OpLte:     true,
	OpBetween: true,
	OpPresent: true,
}

// Known reports whether the operator is one the matching engine understands.
func (o Operator) Known() bool {
	return knownOperators[o]
}

// Condition is a predicate over a single fact.
type Condition struct {
	Field  string        `json:"field" yaml:"field"`
	Op     Operator      `json:"op" yaml:"op"`
	Value  interface{}   `json:"value,omitempty" yaml:"value,omitempty"`
	Values []interface{} `json:"values,omitempty" yaml:"values,omitempty"`
	Min    interface{}   `json:"min,omitempty" yaml:"min,omitempty"`
	Max    interface{}   `json:"max,omitempty" yaml:"max,omitempty"`
}

// DimensionEntry is a structured predicate fragment inside a dimension.
// An entry with no conditions references no fact and is vacuously satisfied.
type DimensionEntry struct {
	Proposition string      `json:"proposition" yaml:"proposition"`
	Weight      float64     `json:"weight" yaml:"weight"`
	Conditions  []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// Fields returns the fact names the entry references, in declaration order.
func (e DimensionEntry) Fields() []string {
	fields := make([]string, 0, len(e.Conditions))
	for _, c := range e.Conditions {
		fields = append(fields, c.Field)
	}
	return fields
}

// RuleNode is one legal provision or fixed-cost scenario. Nodes are built
// once when their module registers and never mutated afterwards.
type RuleNode struct {
	NodeID     string  `json:"node_id" yaml:"node_id"`
	Citation   string  `json:"citation" yaml:"citation"`
	ModuleID   string  `json:"module_id" yaml:"module_id"`
	Title      string  `json:"title,omitempty" yaml:"title,omitempty"`
	Confidence float64 `json:"confidence" yaml:"confidence"`

	What     []DimensionEntry `json:"what,omitempty" yaml:"what,omitempty"`
	Which    []DimensionEntry `json:"which,omitempty" yaml:"which,omitempty"`
	IfThen   []DimensionEntry `json:"if_then,omitempty" yaml:"if_then,omitempty"`
	Modality []DimensionEntry `json:"modality,omitempty" yaml:"modality,omitempty"`
	Given    []DimensionEntry `json:"given,omitempty" yaml:"given,omitempty"`
	Why      []DimensionEntry `json:"why,omitempty" yaml:"why,omitempty"`

	// Relationships are non-owning references by node id.
	ParentNodes  []string `json:"parent_nodes,omitempty" yaml:"parent_nodes,omitempty"`
	ChildNodes   []string `json:"child_nodes,omitempty" yaml:"child_nodes,omitempty"`
	RelatedNodes []string `json:"related_nodes,omitempty" yaml:"related_nodes,omitempty"`
}

// Entries returns the entries declared for a dimension.
func (n *RuleNode) Entries(d Dimension) []DimensionEntry {
	switch d {
	case DimensionWhat:
		return n.What
	case DimensionWhich:
		return n.Which
	case DimensionIfThen:
		return n.IfThen
	case DimensionModality:
		return n.Modality
	case DimensionGiven:
		return n.Given
	case DimensionWhy:
		return n.Why
	}
	return nil
}

// PopulatedDimensions returns the dimensions that declare at least one entry.
func (n *RuleNode) PopulatedDimensions() []Dimension {
	var out []Dimension
	for _, d := range Dimensions {
		if len(n.Entries(d)) > 0 {
			out = append(out, d)
		}
	}
	return out
}

// References returns every node id this node points at.
func (n *RuleNode) References() []string {
	refs := make([]string, 0, len(n.ParentNodes)+len(n.ChildNodes)+len(n.RelatedNodes))
	refs = append(refs, n.ParentNodes...)
	refs = append(refs, n.ChildNodes...)
	refs = append(refs, n.RelatedNodes...)
	return refs
}

// Clone returns a deep copy so callers cannot reach a registered node's slices.
func (n RuleNode) Clone() RuleNode {
	out := n
	out.What = cloneEntries(n.What)
	out.Which = cloneEntries(n.Which)
	out.IfThen = cloneEntries(n.IfThen)
	out.Modality = cloneEntries(n.Modality)
	out.Given = cloneEntries(n.Given)
	out.Why = cloneEntries(n.Why)
	out.ParentNodes = append([]string(nil), n.ParentNodes...)
	out.ChildNodes = append([]string(nil), n.ChildNodes...)
	out.RelatedNodes = append([]string(nil), n.RelatedNodes...)
	return out
}

func cloneEntries(in []DimensionEntry) []DimensionEntry {
	if in == nil {
		return nil
	}
	out := make([]DimensionEntry, len(in))
	for i, e := range in {
		out[i] = e
		if e.Conditions != nil {
			out[i].Conditions = make([]Condition, len(e.Conditions))
			for j, c := range e.Conditions {
				out[i].Conditions[j] = c
				out[i].Conditions[j].Values = append([]interface{}(nil), c.Values...)
			}
		}
	}
	return out
}
