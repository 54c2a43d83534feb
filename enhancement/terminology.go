package enhancement

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// GuardedTerm is a fixed legal term whose occurrences an enhancer must keep.
// Substitutes are the words it is typically swapped for.
type GuardedTerm struct {
	Term        string   `yaml:"term"`
	Substitutes []string `yaml:"substitutes,omitempty"`
}

// DeniedPhrase is a pattern a candidate may not introduce.
type DeniedPhrase struct {
	Pattern string `yaml:"pattern"`
	Reason  string `yaml:"reason"`
}

// PreservedPhrase is a pattern whose matched text must read exactly the same
// in the candidate as in the original, match for match.
type PreservedPhrase struct {
	Pattern string `yaml:"pattern"`
	Reason  string `yaml:"reason"`
}

// TerminologyConfig is the YAML form of the guard.
type TerminologyConfig struct {
	Terms     []GuardedTerm     `yaml:"terms"`
	Denied    []DeniedPhrase    `yaml:"denied"`
	Preserved []PreservedPhrase `yaml:"preserved,omitempty"`
}

// DefaultTerminologyConfig guards the modal verbs that carry legal meaning.
func DefaultTerminologyConfig() TerminologyConfig {
	return TerminologyConfig{
		Terms: []GuardedTerm{
			{Term: "must not", Substitutes: []string{"should not", "need not", "may not"}},
			{Term: "must", Substitutes: []string{"should", "may", "might", "could", "can"}},
			{Term: "shall", Substitutes: []string{"should", "may", "will"}},
			{Term: "may", Substitutes: []string{"must", "shall", "will", "is required to"}},
		},
		Denied: []DeniedPhrase{
			{Pattern: `(?i)\bguarantee[ds]?\b`, Reason: "promises an outcome"},
			{Pattern: `(?i)\bcertain(ly)? to (be )?(award|allow|recover)`, Reason: "promises an outcome"},
		},
		Preserved: []PreservedPhrase{
			{Pattern: `(?i)\b(this|it)\s+is\s+(not\s+|no\s+)?(a\s+substitute\s+for\s+)?legal\s+advice\b`, Reason: "alters the advice disclaimer"},
		},
	}
}

// LoadTerminologyConfig reads a guard configuration file.
func LoadTerminologyConfig(path string) (TerminologyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TerminologyConfig{}, fmt.Errorf("failed to read terminology config: %w", err)
	}
	return DecodeTerminologyConfig(bytes.NewReader(data))
}

// DecodeTerminologyConfig parses a guard configuration.
func DecodeTerminologyConfig(r io.Reader) (TerminologyConfig, error) {
	var cfg TerminologyConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return TerminologyConfig{}, fmt.Errorf("failed to decode terminology config: %w", err)
	}
	return cfg, nil
}

type compiledTerm struct {
	term        string
	re          *regexp.Regexp
	negated     *regexp.Regexp
	substitutes []substitute
}

type substitute struct {
	word string
	re   *regexp.Regexp
}

type compiledDenial struct {
	re     *regexp.Regexp
	reason string
}

// TerminologyGuard rejects candidates that drop a guarded term, negate it,
// swap it for a substitute, introduce a denied phrase or reword a preserved one.
type TerminologyGuard struct {
	terms     []compiledTerm
	denied    []compiledDenial
	preserved []compiledDenial
}

// NewTerminologyGuard compiles a configuration.
func NewTerminologyGuard(cfg TerminologyConfig) (*TerminologyGuard, error) {
	g := &TerminologyGuard{}
	for _, t := range cfg.Terms {
		if strings.TrimSpace(t.Term) == "" {
			return nil, fmt.Errorf("terminology config has an empty term")
		}
		ct := compiledTerm{
			term:    t.Term,
			re:      wordPattern(t.Term),
			negated: negatedPattern(t.Term),
		}
		for _, s := range t.Substitutes {
			ct.substitutes = append(ct.substitutes, substitute{word: s, re: wordPattern(s)})
		}
		g.terms = append(g.terms, ct)
	}
	for _, d := range cfg.Denied {
		re, err := regexp.Compile(d.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denied pattern %q: %w", d.Pattern, err)
		}
		g.denied = append(g.denied, compiledDenial{re: re, reason: d.Reason})
	}
	for _, p := range cfg.Preserved {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid preserved pattern %q: %w", p.Pattern, err)
		}
		g.preserved = append(g.preserved, compiledDenial{re: re, reason: p.Reason})
	}
	return g, nil
}

// DefaultTerminologyGuard compiles DefaultTerminologyConfig.
func DefaultTerminologyGuard() *TerminologyGuard {
	g, err := NewTerminologyGuard(DefaultTerminologyConfig())
	if err != nil {
		panic(err)
	}
	return g
}

func wordPattern(term string) *regexp.Regexp {
	words := strings.Fields(term)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b` + strings.Join(words, `\s+`) + `\b`)
}

// negatedPattern matches the term followed by a negation: "must not",
// "may not", "mustn't".
func negatedPattern(term string) *regexp.Regexp {
	words := strings.Fields(term)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b` + strings.Join(words, `\s+`) + `(\s+not\b|n['’]t\b|not\b)`)
}

func count(re *regexp.Regexp, s string) int {
	return len(re.FindAllStringIndex(s, -1))
}

// normalisePhrase lowercases and collapses whitespace so line wrapping alone
// is not a rewording.
func normalisePhrase(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Check returns a description of the first terminology violation, or "".
func (g *TerminologyGuard) Check(original, candidate string) string {
	for _, t := range g.terms {
		if n, m := count(t.negated, original), count(t.negated, candidate); m > n {
			return fmt.Sprintf("term %q is negated %d times in the candidate but %d times in the original", t.term, m, n)
		}
		before := count(t.re, original)
		if before == 0 {
			continue
		}
		after := count(t.re, candidate)
		if after < before {
			return fmt.Sprintf("term %q appears %d times in the original but %d times in the candidate", t.term, before, after)
		}
		for _, s := range t.substitutes {
			if count(s.re, candidate) > count(s.re, original) {
				return fmt.Sprintf("term %q may have been replaced with %q", t.term, s.word)
			}
		}
	}
	for _, d := range g.denied {
		if d.re.MatchString(candidate) && !d.re.MatchString(original) {
			return fmt.Sprintf("candidate introduces denied phrase %q (%s)", d.re.FindString(candidate), d.reason)
		}
	}
	for _, p := range g.preserved {
		want := p.re.FindAllString(original, -1)
		got := p.re.FindAllString(candidate, -1)
		if len(want) != len(got) {
			return fmt.Sprintf("phrase %q appears %d times in the original but %d times in the candidate (%s)", p.re.String(), len(want), len(got), p.reason)
		}
		for i := range want {
			if normalisePhrase(want[i]) != normalisePhrase(got[i]) {
				return fmt.Sprintf("candidate rewords %q as %q (%s)", want[i], got[i], p.reason)
			}
		}
	}
	return ""
}
