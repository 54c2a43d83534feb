// Package calculator holds the deterministic cost calculators behind each
// legal module.
package calculator

import (
	"fmt"
	"math"

	"legalcosts-backend/models"
	"legalcosts-backend/registry"
)

const (
	// FactPartyCount is the number of opposing parties the costs are sought against.
	FactPartyCount = "party_count"
	// FactIncludeDisbursements toggles disbursement items; absent means true.
	FactIncludeDisbursements = "include_disbursements"

	decisionApplicableRule = "applicable_rule"

	// maxPartyCount bounds party_count so per-party lines stay far from overflow.
	maxPartyCount = 10000
)

// FixedCostsModule computes table-driven fixed costs from a bundle's schedule.
// The matched nodes are its only input for deciding which rule applies.
type FixedCostsModule struct {
	id        string
	name      string
	authority string
	fields    []models.FieldSpec
	nodes     []models.RuleNode
	byID      map[string]*models.RuleNode
	schedule  map[string]models.ScheduleEntry
	notes     []string
	nextSteps []string
}

// NewFixedCostsModule builds a module from a validated bundle.
func NewFixedCostsModule(b *registry.Bundle) (*FixedCostsModule, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	m := &FixedCostsModule{
		id:        b.ModuleID,
		name:      b.Name,
		authority: b.Authority,
		fields:    append([]models.FieldSpec(nil), b.Fields...),
		nodes:     make([]models.RuleNode, len(b.Nodes)),
		byID:      make(map[string]*models.RuleNode, len(b.Nodes)),
		schedule:  make(map[string]models.ScheduleEntry, len(b.Schedule)),
		notes:     append([]string(nil), b.Notes...),
		nextSteps: append([]string(nil), b.NextSteps...),
	}
	for i, n := range b.Nodes {
		m.nodes[i] = n.Clone()
		m.nodes[i].ModuleID = b.ModuleID
		m.byID[n.NodeID] = &m.nodes[i]
	}
	for _, e := range b.Schedule {
		e.Items = append([]models.ScheduleItem(nil), e.Items...)
		m.schedule[e.NodeID] = e
	}
	return m, nil
}

func (m *FixedCostsModule) ID() string {
	return m.id
}

// Name returns the module's display name.
func (m *FixedCostsModule) Name() string {
	return m.name
}

func (m *FixedCostsModule) Nodes() []models.RuleNode {
	out := make([]models.RuleNode, len(m.nodes))
	for i, n := range m.nodes {
		out[i] = n.Clone()
	}
	return out
}

func (m *FixedCostsModule) FieldRequirements() []models.FieldSpec {
	return append([]models.FieldSpec(nil), m.fields...)
}

// Calculate maps ranked matches and facts to a fixed-costs result. Every
// combination it cannot resolve returns an UnsupportedScenarioError.
func (m *FixedCostsModule) Calculate(matches []models.MatchResult, facts models.FactMap) (*models.CalculationResult, error) {
	primary, err := m.primaryMatch(matches)
	if err != nil {
		return nil, err
	}

	parties, err := m.partyCount(facts)
	if err != nil {
		return nil, err
	}
	includeDisbursements := true
	if v, ok := facts.Bool(FactIncludeDisbursements); ok {
		includeDisbursements = v
	}

	applied := []models.MatchResult{primary}
	for _, match := range matches {
		if entry, ok := m.schedule[match.NodeID]; ok && entry.Additive {
			applied = append(applied, match)
		}
	}

	result := &models.CalculationResult{
		ModuleID:  m.id,
		Amounts:   make(map[string]models.Money),
		Breakdown: []models.CostItem{},
		Citations: []string{},
		RuleIDs:   []string{},
		Authority: m.authority,
	}
	seenCitation := make(map[string]bool)
	addCitation := func(c string) {
		if c != "" && !seenCitation[c] {
			seenCitation[c] = true
			result.Citations = append(result.Citations, c)
		}
	}

	for _, match := range applied {
		node := m.byID[match.NodeID]
		entry := m.schedule[match.NodeID]
		result.RuleIDs = append(result.RuleIDs, node.NodeID)
		addCitation(node.Citation)

		for _, item := range entry.Items {
			if item.Kind == models.CostDisbursement && !includeDisbursements {
				continue
			}
			qty := 1
			if item.PerAdditionalParty {
				qty = parties - 1
			}
			if qty == 0 {
				continue
			}

			amount, err := item.Amount.Mul(int64(qty))
			if err != nil {
				return nil, m.overflow(item.Code, err)
			}
			result.Breakdown = append(result.Breakdown, models.CostItem{
				Code:        item.Code,
				Description: item.Description,
				Kind:        item.Kind,
				Quantity:    qty,
				UnitAmount:  item.Amount,
				Amount:      amount,
				Citation:    item.Citation,
				NodeID:      node.NodeID,
			})
			if result.Amounts[item.Code], err = result.Amounts[item.Code].Add(amount); err != nil {
				return nil, m.overflow(item.Code, err)
			}
			addCitation(item.Citation)

			if item.Kind == models.CostDisbursement {
				result.Disbursements, err = result.Disbursements.Add(amount)
			} else {
				result.BaseCosts, err = result.BaseCosts.Add(amount)
			}
			if err != nil {
				return nil, m.overflow(item.Code, err)
			}
		}
	}

	if result.TotalCosts, err = result.BaseCosts.Add(result.Disbursements); err != nil {
		return nil, m.overflow(models.FieldTotalCosts, err)
	}
	result.Confidence = primary.Confidence * m.byID[primary.NodeID].Confidence
	result.Explanation = m.explain(m.byID[primary.NodeID], result)
	result.Notes = append([]string(nil), m.notes...)
	for _, match := range applied {
		node := m.byID[match.NodeID]
		for _, e := range node.Modality {
			result.Notes = append(result.Notes, fmt.Sprintf("%s (%s).", e.Proposition, node.Citation))
		}
	}
	result.NextSteps = append([]string(nil), m.nextSteps...)
	for _, f := range primary.MissingFields {
		result.NextSteps = append(result.NextSteps, fmt.Sprintf("Confirm %s to firm up the match.", f))
	}
	return result, nil
}

// primaryMatch picks the highest-ranked match with a non-additive schedule.
// Two such matches with equal confidence are ambiguous.
func (m *FixedCostsModule) primaryMatch(matches []models.MatchResult) (models.MatchResult, error) {
	if len(matches) == 0 {
		return models.MatchResult{}, &models.UnsupportedScenarioError{
			ModuleID:      m.id,
			DecisionPoint: decisionApplicableRule,
			Message:       "no rule node matched the facts",
		}
	}

	var primary *models.MatchResult
	missing := make(map[string]bool)
	for i := range matches {
		match := &matches[i]
		if _, ok := m.byID[match.NodeID]; !ok {
			return models.MatchResult{}, &models.NodeDataError{
				NodeID:  match.NodeID,
				Message: fmt.Sprintf("matched node is not part of module %q", m.id),
			}
		}
		for _, f := range match.MissingFields {
			missing[f] = true
		}

		entry, ok := m.schedule[match.NodeID]
		if !ok || entry.Additive {
			continue
		}
		if primary == nil {
			primary = match
			continue
		}
		if match.Confidence == primary.Confidence {
			return models.MatchResult{}, &models.UnsupportedScenarioError{
				ModuleID:      m.id,
				DecisionPoint: decisionApplicableRule,
				Message:       fmt.Sprintf("nodes %s and %s match equally", primary.NodeID, match.NodeID),
			}
		}
	}

	if primary == nil {
		return models.MatchResult{}, &models.UnsupportedScenarioError{
			ModuleID:      m.id,
			DecisionPoint: decisionApplicableRule,
			MissingFields: sortedKeys(missing),
			Message:       "no matched node carries a primary cost schedule",
		}
	}
	return *primary, nil
}

func (m *FixedCostsModule) partyCount(facts models.FactMap) (int, error) {
	v, ok := facts.Number(FactPartyCount)
	if !ok {
		return 0, &models.UnsupportedScenarioError{
			ModuleID:      m.id,
			DecisionPoint: FactPartyCount,
			MissingFields: []string{FactPartyCount},
		}
	}
	if v < 1 || v > maxPartyCount || v != math.Trunc(v) {
		return 0, &models.UnsupportedScenarioError{
			ModuleID:      m.id,
			DecisionPoint: FactPartyCount,
			Message:       fmt.Sprintf("party_count must be a whole number from 1 to %d, got %v", maxPartyCount, v),
		}
	}
	return int(v), nil
}

// overflow reports an amount too large to represent exactly.
func (m *FixedCostsModule) overflow(item string, err error) error {
	return &models.UnsupportedScenarioError{
		ModuleID:      m.id,
		DecisionPoint: item,
		Message:       fmt.Sprintf("amount for %s cannot be computed: %v", item, err),
	}
}

func (m *FixedCostsModule) explain(node *models.RuleNode, r *models.CalculationResult) string {
	title := node.Title
	if title == "" {
		title = node.NodeID
	}
	return fmt.Sprintf("Fixed costs for %s under %s: costs $%s, disbursements $%s, total $%s.",
		title, node.Citation, r.BaseCosts, r.Disbursements, r.TotalCosts)
}
