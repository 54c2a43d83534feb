package models

import (
	"sort"
	"time"
)

// Protected field names. No enhancer may change the value of any of these.
const (
	FieldModuleID      = "module_id"
	FieldTotalCosts    = "total_costs"
	FieldBaseCosts     = "base_costs"
	FieldDisbursements = "disbursements"
	FieldBreakdown     = "breakdown"
	FieldCitations     = "citations"
	FieldRuleIDs       = "rule_ids"
	FieldAuthority     = "authority"
	FieldConfidence    = "confidence"

	// AmountFieldPrefix qualifies entries of CalculationResult.Amounts.
	AmountFieldPrefix = "amounts."
)

// CostKind classifies a breakdown line.
type CostKind string

const (
	CostBase         CostKind = "base"
	CostUplift       CostKind = "uplift"
	CostDisbursement CostKind = "disbursement"
)

// CostItem is one line of a calculation breakdown.
type CostItem struct {
	Code        string   `json:"code"`
	Description string   `json:"description"`
	Kind        CostKind `json:"kind"`
	Quantity    int      `json:"quantity"`
	UnitAmount  Money    `json:"unit_amount"`
	Amount      Money    `json:"amount"`
	Citation    string   `json:"citation,omitempty"`
	NodeID      string   `json:"node_id"`
}

// CalculationResult is the deterministic output of a module calculator.
type CalculationResult struct {
	ModuleID      string           `json:"module_id"`
	TotalCosts    Money            `json:"total_costs"`
	BaseCosts     Money            `json:"base_costs"`
	Disbursements Money            `json:"disbursements"`
	Amounts       map[string]Money `json:"amounts,omitempty"`
	Breakdown     []CostItem       `json:"breakdown"`
	Citations     []string         `json:"citations"`
	RuleIDs       []string         `json:"rule_ids"`
	Authority     string           `json:"authority"`
	Confidence    float64          `json:"confidence"`

	// Free-form fields an enhancer may rewrite.
	Explanation string   `json:"explanation"`
	Notes       []string `json:"notes,omitempty"`
	NextSteps   []string `json:"next_steps,omitempty"`

	// CalculatedAt is informational only and never feeds the computation.
	CalculatedAt *time.Time `json:"calculated_at,omitempty"`
}

// ProtectedFieldNames returns the fixed protected set plus the qualified
// names of every amount the result carries, sorted.
func (r *CalculationResult) ProtectedFieldNames() []string {
	names := []string{
		FieldModuleID,
		FieldTotalCosts,
		FieldBaseCosts,
		FieldDisbursements,
		FieldBreakdown,
		FieldCitations,
		FieldRuleIDs,
		FieldAuthority,
		FieldConfidence,
	}
	for k := range r.Amounts {
		names = append(names, AmountFieldPrefix+k)
	}
	sort.Strings(names)
	return names
}

// ProtectedValue returns the value of a protected field and whether it is present.
func (r *CalculationResult) ProtectedValue(name string) (interface{}, bool) {
	switch name {
	case FieldModuleID:
		return r.ModuleID, true
	case FieldTotalCosts:
		return r.TotalCosts, true
	case FieldBaseCosts:
		return r.BaseCosts, true
	case FieldDisbursements:
		return r.Disbursements, true
	case FieldBreakdown:
		return r.Breakdown, true
	case FieldCitations:
		return r.Citations, true
	case FieldRuleIDs:
		return r.RuleIDs, true
	case FieldAuthority:
		return r.Authority, true
	case FieldConfidence:
		return r.Confidence, true
	}
	if len(name) > len(AmountFieldPrefix) && name[:len(AmountFieldPrefix)] == AmountFieldPrefix {
		v, ok := r.Amounts[name[len(AmountFieldPrefix):]]
		return v, ok
	}
	return nil, false
}

// FreeText returns every free-form string, in a fixed order.
func (r *CalculationResult) FreeText() []string {
	out := make([]string, 0, 1+len(r.Notes)+len(r.NextSteps))
	if r.Explanation != "" {
		out = append(out, r.Explanation)
	}
	out = append(out, r.Notes...)
	out = append(out, r.NextSteps...)
	return out
}

// Clone returns a deep copy.
func (r *CalculationResult) Clone() *CalculationResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.Amounts != nil {
		out.Amounts = make(map[string]Money, len(r.Amounts))
		for k, v := range r.Amounts {
			out.Amounts[k] = v
		}
	}
	out.Breakdown = append([]CostItem(nil), r.Breakdown...)
	out.Citations = append([]string(nil), r.Citations...)
	out.RuleIDs = append([]string(nil), r.RuleIDs...)
	out.Notes = append([]string(nil), r.Notes...)
	out.NextSteps = append([]string(nil), r.NextSteps...)
	if r.CalculatedAt != nil {
		t := *r.CalculatedAt
		out.CalculatedAt = &t
	}
	return &out
}

// EnhancementState is a state of the enhancement gate's per-attempt machine.
type EnhancementState string

const (
	StateStart             EnhancementState = "start"
	StateCandidateReceived EnhancementState = "candidate_received"
	StateEnhancerFailed    EnhancementState = "enhancer_failed"
	StateAccepted          EnhancementState = "accepted"
	StateRejected          EnhancementState = "rejected"
	StateSkipped           EnhancementState = "skipped"
)

// Rejection explains why a candidate was not released.
type Rejection struct {
	Rule      string      `json:"rule"`
	Field     string      `json:"field,omitempty"`
	Original  interface{} `json:"original,omitempty"`
	Attempted interface{} `json:"attempted,omitempty"`
	Reason    string      `json:"reason"`
}

// EnhancedResult is the gate's output: the candidate when accepted, otherwise
// the original calculation unchanged.
type EnhancedResult struct {
	Result    *CalculationResult `json:"result"`
	Enhanced  bool               `json:"enhanced"`
	State     EnhancementState   `json:"state"`
	Rejection *Rejection         `json:"rejection,omitempty"`
}
