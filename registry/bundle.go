package registry

import (
	"bytes"
	"fmt"
	"io"

	"legalcosts-backend/models"

	"gopkg.in/yaml.v3"
)

// Bundle is the on-disk form a module author ships: field declarations,
// pre-built nodes and the cost schedule bound to them.
type Bundle struct {
	ModuleID  string                 `yaml:"module_id"`
	Name      string                 `yaml:"name"`
	Authority string                 `yaml:"authority"`
	Version   string                 `yaml:"version"`
	Fields    []models.FieldSpec     `yaml:"fields"`
	Nodes     []models.RuleNode      `yaml:"nodes"`
	Schedule  []models.ScheduleEntry `yaml:"schedule"`
	Notes     []string               `yaml:"notes,omitempty"`
	NextSteps []string               `yaml:"next_steps,omitempty"`
}

// DecodeBundle parses a YAML bundle. Unknown keys are rejected so typos in a
// dimension name cannot silently drop entries.
func DecodeBundle(r io.Reader) (*Bundle, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var b Bundle
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	if b.ModuleID == "" {
		return nil, fmt.Errorf("bundle has no module_id")
	}
	return &b, nil
}

// ParseBundle decodes a bundle held in memory.
func ParseBundle(data []byte) (*Bundle, error) {
	return DecodeBundle(bytes.NewReader(data))
}

// Validate runs node validation plus schedule checks and reports every
// violation together.
func (b *Bundle) Validate() error {
	violations := ValidateNodes(b.ModuleID, b.Nodes, b.Fields)

	known := make(map[string]bool, len(b.Nodes))
	for _, n := range b.Nodes {
		known[n.NodeID] = true
	}
	seen := make(map[string]bool, len(b.Schedule))
	for i, e := range b.Schedule {
		if !known[e.NodeID] {
			violations = append(violations, fmt.Sprintf("schedule #%d references unknown node %q", i, e.NodeID))
		}
		if seen[e.NodeID] {
			violations = append(violations, fmt.Sprintf("schedule lists node %q twice", e.NodeID))
		}
		seen[e.NodeID] = true
		if len(e.Items) == 0 {
			violations = append(violations, fmt.Sprintf("schedule for node %q has no items", e.NodeID))
		}
		for j, item := range e.Items {
			if item.Code == "" {
				violations = append(violations, fmt.Sprintf("schedule for node %q item %d has no code", e.NodeID, j))
			}
			if item.Amount < 0 {
				violations = append(violations, fmt.Sprintf("schedule for node %q item %s has a negative amount", e.NodeID, item.Code))
			}
			switch item.Kind {
			case models.CostBase, models.CostUplift, models.CostDisbursement:
			default:
				violations = append(violations, fmt.Sprintf("schedule for node %q item %s has unknown kind %q", e.NodeID, item.Code, item.Kind))
			}
		}
	}

	if len(violations) > 0 {
		return &models.StructureError{ModuleID: b.ModuleID, Violations: violations}
	}
	return nil
}
