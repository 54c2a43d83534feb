// Package enhancement gates natural-language rewording of a calculation.
// Enhancers are untrusted: every candidate they return is validated before
// release, and any failure falls back to the original result.
package enhancement

import (
	"context"

	"legalcosts-backend/models"
)

// EnhancementRequest is what an enhancer receives. References are purely
// informational; citations drawn from them still have to pass closure.
type EnhancementRequest struct {
	Result     *models.CalculationResult
	References []models.LegalChunk
}

// Enhancer rewrites the free-form fields of a calculation.
type Enhancer interface {
	Enhance(ctx context.Context, req EnhancementRequest) (*models.CalculationResult, error)
}

// EnhancerFunc adapts a function to the Enhancer interface.
type EnhancerFunc func(ctx context.Context, req EnhancementRequest) (*models.CalculationResult, error)

func (f EnhancerFunc) Enhance(ctx context.Context, req EnhancementRequest) (*models.CalculationResult, error) {
	return f(ctx, req)
}
