package enhancement

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"legalcosts-backend/models"
)

const plainExplanation = `{{- "" -}}
The fixed costs come to ${{ .TotalCosts }} under {{ index .Citations 0 }}.
{{- range .Breakdown }}
- {{ .Description }}{{ if gt .Quantity 1 }} x{{ .Quantity }}{{ end }}: ${{ .Amount }}
{{- end }}
{{- if .Disbursements.Cents }}
That total includes ${{ .Disbursements }} of disbursements.
{{- end }}`

// TemplateEnhancer rewords a calculation with a fixed text template. It needs
// no network and is used when no model is configured.
type TemplateEnhancer struct {
	tmpl *template.Template
}

// NewTemplateEnhancer parses the default template.
func NewTemplateEnhancer() *TemplateEnhancer {
	return &TemplateEnhancer{
		tmpl: template.Must(template.New("explanation").Parse(plainExplanation)),
	}
}

func (e *TemplateEnhancer) Enhance(ctx context.Context, req EnhancementRequest) (*models.CalculationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := req.Result
	if r == nil || len(r.Citations) == 0 {
		return nil, fmt.Errorf("template enhancer needs at least one citation")
	}

	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, r); err != nil {
		return nil, fmt.Errorf("render explanation: %w", err)
	}

	out := r.Clone()
	out.Explanation = buf.String()
	return out, nil
}
