package calculator

import (
	_ "embed"
	"sort"

	"legalcosts-backend/registry"
)

//go:embed bundles/civil_fixed_costs.yaml
var civilFixedCostsBundle []byte

// DefaultBundle returns the built-in civil fixed-costs bundle.
func DefaultBundle() (*registry.Bundle, error) {
	return registry.ParseBundle(civilFixedCostsBundle)
}

// DefaultModule builds the built-in civil fixed-costs module.
func DefaultModule() (*FixedCostsModule, error) {
	b, err := DefaultBundle()
	if err != nil {
		return nil, err
	}
	return NewFixedCostsModule(b)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
