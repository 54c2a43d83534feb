package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditValue holds an original or attempted protected value as JSONB.
type AuditValue struct {
	V interface{}
}

// Value implements driver.Valuer for JSONB
func (a AuditValue) Value() (driver.Value, error) {
	if a.V == nil {
		return nil, nil
	}
	return json.Marshal(a.V)
}

// Scan implements sql.Scanner for JSONB
func (a *AuditValue) Scan(value interface{}) error {
	if value == nil {
		a.V = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		// pgx may hand back an already decoded value
		a.V = v
		return nil
	}

	if len(bytes) == 0 {
		a.V = nil
		return nil
	}
	return json.Unmarshal(bytes, &a.V)
}

// MarshalJSON writes the wrapped value.
func (a AuditValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.V)
}

// EnhancementAudit records the outcome of one enhancement attempt.
type EnhancementAudit struct {
	ID              uuid.UUID        `json:"id"`
	RequestID       string           `json:"request_id,omitempty"`
	ModuleID        string           `json:"module_id"`
	State           EnhancementState `json:"state"`
	Rule            *string          `json:"rule,omitempty"`
	Field           *string          `json:"field,omitempty"`
	OriginalValue   AuditValue       `json:"original_value"`
	AttemptedValue  AuditValue       `json:"attempted_value"`
	Reason          *string          `json:"reason,omitempty"`
	ProtectedDigest string           `json:"protected_digest"`
	DurationMs      int64            `json:"duration_ms"`
	CreatedAt       time.Time        `json:"created_at"`
}
