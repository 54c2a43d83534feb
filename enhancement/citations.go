package enhancement

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultCitationPatterns recognise neutral citations, law report citations
// and rule/section/schedule references in prose.
var DefaultCitationPatterns = []string{
	`\[\d{4}\]\s+[A-Z][A-Za-z]{1,9}\s+\d+`,
	`\(\d{4}\)\s+\d+\s+[A-Z][A-Za-z.]{0,9}\s+\d+`,
	`\b(?:rr?|ss?|Sch|sch|Schedule|item|cl|Pt|Part|reg)\.?\s?\d+[A-Za-z]?(?:\.\d+)*(?:\([a-z0-9]+\))*`,
}

// CitationExtractor finds citation-like strings in text.
type CitationExtractor struct {
	patterns []*regexp.Regexp
}

// NewCitationExtractor compiles the given patterns.
func NewCitationExtractor(patterns []string) (*CitationExtractor, error) {
	e := &CitationExtractor{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid citation pattern %q: %w", p, err)
		}
		e.patterns = append(e.patterns, re)
	}
	return e, nil
}

// DefaultCitationExtractor uses DefaultCitationPatterns.
func DefaultCitationExtractor() *CitationExtractor {
	e, err := NewCitationExtractor(DefaultCitationPatterns)
	if err != nil {
		panic(err)
	}
	return e
}

// Extract returns the normalised citations found in texts.
func (e *CitationExtractor) Extract(texts ...string) map[string]bool {
	found := make(map[string]bool)
	for _, t := range texts {
		for _, re := range e.patterns {
			for _, m := range re.FindAllString(t, -1) {
				found[normaliseCitation(m)] = true
			}
		}
	}
	return found
}

// Introduced returns citations in candidate texts absent from known, sorted.
func (e *CitationExtractor) Introduced(known map[string]bool, candidate ...string) []string {
	var out []string
	for c := range e.Extract(candidate...) {
		if !known[c] {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

var citationAbbreviations = strings.NewReplacer(
	"schedule ", "sch ",
	"part ", "pt ",
	".", "",
)

func normaliseCitation(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return citationAbbreviations.Replace(s)
}
