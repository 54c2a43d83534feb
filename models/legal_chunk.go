package models

import (
	"github.com/google/uuid"
)

// LegalChunk is a case-law or rule excerpt from the knowledge base. Chunks are
// informational context for an enhancer and never protected output.
type LegalChunk struct {
	ID             uuid.UUID              `json:"id"`
	Text           string                 `json:"text"`
	SourceType     string                 `json:"source_type"` // "rule", "practice_note", "judgment"
	SourceDocument string                 `json:"source_document"`
	Citation       string                 `json:"citation"`
	CaseCitation   *string                `json:"case_citation,omitempty"`
	ModuleID       string                 `json:"module_id"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}
