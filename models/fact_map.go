package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the ISO date format accepted for date facts.
const DateLayout = "2006-01-02"

// FieldType is the declared type of a fact field.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
	FieldEnum   FieldType = "enum"
	FieldDate   FieldType = "date"
	FieldBool   FieldType = "bool"
)

// FieldSpec declares one fact a module understands.
type FieldSpec struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	Required    bool      `json:"required" yaml:"required"`
	Enum        []string  `json:"enum,omitempty" yaml:"enum,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// FactMap holds the known facts about a case, keyed by field name.
type FactMap map[string]interface{}

// Clone returns a shallow copy; fact values are scalars.
func (f FactMap) Clone() FactMap {
	out := make(FactMap, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Has reports whether a fact is present.
func (f FactMap) Has(field string) bool {
	_, ok := f[field]
	return ok
}

// Number returns a numeric fact.
func (f FactMap) Number(field string) (float64, bool) {
	v, ok := f[field]
	if !ok {
		return 0, false
	}
	return AsNumber(v)
}

// String returns a string fact.
func (f FactMap) String(field string) (string, bool) {
	v, ok := f[field].(string)
	return v, ok
}

// Bool returns a boolean fact.
func (f FactMap) Bool(field string) (bool, bool) {
	v, ok := f[field].(bool)
	return v, ok
}

// AsNumber normalises the numeric types produced by JSON, YAML and Go callers.
func AsNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// AsDate accepts time.Time or an ISO date string.
func AsDate(v interface{}) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, true
	case string:
		t, err := time.Parse(DateLayout, d)
		return t, err == nil
	}
	return time.Time{}, false
}

// RequiredFields returns the names of required fields in declaration order.
func RequiredFields(specs []FieldSpec) []string {
	var out []string
	for _, s := range specs {
		if s.Required {
			out = append(out, s.Name)
		}
	}
	return out
}

// ValidateFacts checks every present fact against its declared field type.
// Missing fields are not reported here; they surface during matching.
func ValidateFacts(specs []FieldSpec, facts FactMap) error {
	byName := make(map[string]FieldSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}

	keys := make([]string, 0, len(facts))
	for k := range facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var problems []string
	for _, k := range keys {
		spec, ok := byName[k]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: unknown field", k))
			continue
		}
		if msg := checkFieldType(spec, facts[k]); msg != "" {
			problems = append(problems, fmt.Sprintf("%s: %s", k, msg))
		}
	}

	if len(problems) > 0 {
		return &FactValidationError{Problems: problems}
	}
	return nil
}

func checkFieldType(spec FieldSpec, v interface{}) string {
	switch spec.Type {
	case FieldString:
		if _, ok := v.(string); !ok {
			return fmt.Sprintf("expected string, got %T", v)
		}
	case FieldNumber:
		if _, ok := AsNumber(v); !ok {
			return fmt.Sprintf("expected number, got %T", v)
		}
	case FieldBool:
		if _, ok := v.(bool); !ok {
			return fmt.Sprintf("expected bool, got %T", v)
		}
	case FieldDate:
		if _, ok := AsDate(v); !ok {
			return fmt.Sprintf("expected date (%s), got %v", DateLayout, v)
		}
	case FieldEnum:
		s, ok := v.(string)
		if !ok {
			return fmt.Sprintf("expected enum string, got %T", v)
		}
		for _, allowed := range spec.Enum {
			if s == allowed {
				return ""
			}
		}
		return fmt.Sprintf("%q is not one of [%s]", s, strings.Join(spec.Enum, ", "))
	default:
		return fmt.Sprintf("field declares unsupported type %q", spec.Type)
	}
	return ""
}
