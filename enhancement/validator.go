package enhancement

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"legalcosts-backend/models"
)

// Validation rule names, in the order they run.
const (
	RuleProtectedField  = "protected_field"
	RuleCitationClosure = "citation_closure"
	RuleTerminology     = "terminology"
)

// Validator decides whether a candidate may replace the original. It is
// pure and synchronous.
type Validator struct {
	citations   *CitationExtractor
	terminology *TerminologyGuard
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// ValidatorWithCitationExtractor replaces the default citation patterns.
func ValidatorWithCitationExtractor(e *CitationExtractor) ValidatorOption {
	return func(v *Validator) {
		v.citations = e
	}
}

// ValidatorWithTerminologyGuard replaces the default terminology guard.
func ValidatorWithTerminologyGuard(g *TerminologyGuard) ValidatorOption {
	return func(v *Validator) {
		v.terminology = g
	}
}

// NewValidator creates a validator with default citation and terminology rules.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		citations:   DefaultCitationExtractor(),
		terminology: DefaultTerminologyGuard(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate returns nil when every rule passes, otherwise the first rejection.
func (v *Validator) Validate(original, candidate *models.CalculationResult) *models.Rejection {
	if r := v.checkProtectedFields(original, candidate); r != nil {
		return r
	}
	if r := v.checkCitationClosure(original, candidate); r != nil {
		return r
	}
	return v.checkTerminology(original, candidate)
}

func (v *Validator) checkProtectedFields(original, candidate *models.CalculationResult) *models.Rejection {
	names := original.ProtectedFieldNames()
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	// An amount the original never carried is a fabricated figure.
	for _, n := range candidate.ProtectedFieldNames() {
		if !seen[n] {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		ov, inOriginal := original.ProtectedValue(name)
		cv, inCandidate := candidate.ProtectedValue(name)
		if inOriginal && inCandidate && protectedEqual(ov, cv) {
			continue
		}

		r := &models.Rejection{Rule: RuleProtectedField, Field: name}
		if inOriginal {
			r.Original = ov
		}
		if inCandidate {
			r.Attempted = cv
		}
		switch {
		case !inCandidate:
			r.Reason = fmt.Sprintf("protected field %s was removed (original %v)", name, ov)
		case !inOriginal:
			r.Reason = fmt.Sprintf("protected field %s was introduced with value %v", name, cv)
		default:
			r.Reason = fmt.Sprintf("protected field %s changed from %v to %v", name, ov, cv)
		}
		return r
	}
	return nil
}

// protectedEqual is exact equality that treats nil and empty slices alike.
func protectedEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case []string:
		bv, ok := b.([]string)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case []models.CostItem:
		bv, ok := b.([]models.CostItem)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func (v *Validator) checkCitationClosure(original, candidate *models.CalculationResult) *models.Rejection {
	known := make(map[string]bool)
	var sources []string
	sources = append(sources, original.Citations...)
	for _, item := range original.Breakdown {
		sources = append(sources, item.Citation)
	}
	for _, c := range sources {
		if c != "" {
			known[normaliseCitation(c)] = true
		}
	}
	sources = append(sources, original.FreeText()...)
	for c := range v.citations.Extract(sources...) {
		known[c] = true
	}

	introduced := v.citations.Introduced(known, candidate.FreeText()...)
	if len(introduced) == 0 {
		return nil
	}
	return &models.Rejection{
		Rule:      RuleCitationClosure,
		Attempted: introduced,
		Reason:    fmt.Sprintf("candidate introduces citations absent from the original: %s", strings.Join(introduced, ", ")),
	}
}

func (v *Validator) checkTerminology(original, candidate *models.CalculationResult) *models.Rejection {
	msg := v.terminology.Check(
		strings.Join(original.FreeText(), "\n"),
		strings.Join(candidate.FreeText(), "\n"),
	)
	if msg == "" {
		return nil
	}
	return &models.Rejection{Rule: RuleTerminology, Reason: msg}
}
