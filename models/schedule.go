package models

// ScheduleItem is one protected cost line a scheduled node contributes.
type ScheduleItem struct {
	Code               string   `json:"code" yaml:"code"`
	Description        string   `json:"description" yaml:"description"`
	Kind               CostKind `json:"kind" yaml:"kind"`
	Amount             Money    `json:"amount" yaml:"amount"`
	Citation           string   `json:"citation,omitempty" yaml:"citation,omitempty"`
	PerAdditionalParty bool     `json:"per_additional_party,omitempty" yaml:"per_additional_party,omitempty"`
}

// ScheduleEntry binds cost items to a rule node. Additive entries only ever
// supplement a primary entry; they never decide the scenario on their own.
type ScheduleEntry struct {
	NodeID   string         `json:"node_id" yaml:"node_id"`
	Additive bool           `json:"additive,omitempty" yaml:"additive,omitempty"`
	Items    []ScheduleItem `json:"items" yaml:"items"`
}
