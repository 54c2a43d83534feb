package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"legalcosts-backend/enhancement"
	"legalcosts-backend/logging"
	"legalcosts-backend/matching"
	"legalcosts-backend/models"
	"legalcosts-backend/registry"

	"go.uber.org/zap"
)

// maxReferences caps the case-law excerpts handed to an enhancer
const maxReferences = 8

// CaseLawLookup finds reference excerpts for a calculation's citations
type CaseLawLookup interface {
	FindByCitations(ctx context.Context, moduleID string, citations []string, limit int) ([]models.LegalChunk, error)
}

// CostsService evaluates facts against registered modules
type CostsService struct {
	registry *registry.Registry
	engine   *matching.Engine
	gate     *enhancement.Gate
	caseLaw  CaseLawLookup
	logger   *zap.Logger
	now      func() time.Time
}

// CostsServiceOption is a functional option for CostsService
type CostsServiceOption func(*CostsService)

// WithRegistry sets the module registry
func WithRegistry(r *registry.Registry) CostsServiceOption {
	return func(s *CostsService) {
		s.registry = r
	}
}

// WithEngine sets the matching engine
func WithEngine(e *matching.Engine) CostsServiceOption {
	return func(s *CostsService) {
		s.engine = e
	}
}

// WithGate sets the enhancement gate
func WithGate(g *enhancement.Gate) CostsServiceOption {
	return func(s *CostsService) {
		s.gate = g
	}
}

// WithCaseLawLookup sets the reference lookup used for enhancement
func WithCaseLawLookup(l CaseLawLookup) CostsServiceOption {
	return func(s *CostsService) {
		s.caseLaw = l
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) CostsServiceOption {
	return func(s *CostsService) {
		s.logger = l
	}
}

// WithClock overrides the calculation timestamp source
func WithClock(now func() time.Time) CostsServiceOption {
	return func(s *CostsService) {
		s.now = now
	}
}

// NewCostsService creates a new costs service
func NewCostsService(opts ...CostsServiceOption) (*CostsService, error) {
	s := &CostsService{
		gate:   enhancement.NewGate(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		return nil, errors.New("registry not set")
	}
	if s.engine == nil {
		engine, err := matching.NewEngine(matching.DefaultWeights())
		if err != nil {
			return nil, err
		}
		s.engine = engine
	}
	return s, nil
}

// EvaluateRequest represents one evaluation
type EvaluateRequest struct {
	ModuleID  string
	Facts     models.FactMap
	Threshold *float64 // Optional, engine default when nil
	Enhance   bool
}

// EvaluateResult carries the matches, the calculation and the enhancement outcome
type EvaluateResult struct {
	Matches   []models.MatchResult      `json:"matches"`
	Result    *models.CalculationResult `json:"result"`
	Enhanced  bool                      `json:"enhanced"`
	State     models.EnhancementState   `json:"enhancement_state"`
	Rejection *models.Rejection         `json:"rejection,omitempty"`
	Original  *models.CalculationResult `json:"-"`
}

// Evaluate runs lookup, fact validation, matching, calculation and the
// enhancement gate in that order.
func (s *CostsService) Evaluate(ctx context.Context, req EvaluateRequest) (*EvaluateResult, error) {
	logger := s.logger.With(zap.String("module_id", req.ModuleID), logging.RequestField(ctx))

	module, err := s.registry.Module(req.ModuleID)
	if err != nil {
		return nil, err
	}
	nodes, err := s.registry.Lookup(req.ModuleID)
	if err != nil {
		return nil, err
	}

	if err := models.ValidateFacts(module.FieldRequirements(), req.Facts); err != nil {
		return nil, err
	}

	threshold := s.engine.Threshold()
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, &models.ConfigError{Message: fmt.Sprintf("threshold %v outside [0, 1]", threshold)}
	}

	matches, err := s.engine.MatchAbove(req.Facts, nodes, threshold)
	if err != nil {
		var nodeErr *models.NodeDataError
		if errors.As(err, &nodeErr) {
			logger.Error("malformed rule node",
				zap.String("node_id", nodeErr.NodeID),
				zap.String("dimension", string(nodeErr.Dimension)),
				zap.Error(err),
			)
		}
		return nil, err
	}
	logger.Debug("matched rule nodes", zap.Int("matches", len(matches)), zap.Float64("threshold", threshold))

	result, err := module.Calculate(matches, req.Facts)
	if err != nil {
		return nil, err
	}
	calculatedAt := s.now().UTC()
	result.CalculatedAt = &calculatedAt

	out := &EvaluateResult{
		Matches:  matches,
		Result:   result,
		State:    models.StateSkipped,
		Original: result,
	}
	if !req.Enhance {
		return out, nil
	}

	enhanced := s.gate.Enhance(ctx, enhancement.EnhancementRequest{
		Result:     result,
		References: s.references(ctx, logger, result),
	})
	out.Result = enhanced.Result
	out.Enhanced = enhanced.Enhanced
	out.State = enhanced.State
	out.Rejection = enhanced.Rejection
	return out, nil
}

// references is best effort; a failed lookup leaves the enhancer without excerpts
func (s *CostsService) references(ctx context.Context, logger *zap.Logger, result *models.CalculationResult) []models.LegalChunk {
	if s.caseLaw == nil || len(result.Citations) == 0 {
		return nil
	}
	chunks, err := s.caseLaw.FindByCitations(ctx, result.ModuleID, result.Citations, maxReferences)
	if err != nil {
		logger.Warn("failed to retrieve case law references", zap.Error(err))
		return nil
	}
	return chunks
}

// ModuleSummary describes a registered module
type ModuleSummary struct {
	ModuleID string             `json:"module_id"`
	Nodes    int                `json:"nodes"`
	Fields   []models.FieldSpec `json:"fields"`
}

// ListModules returns a summary of every registered module, sorted by id
func (s *CostsService) ListModules() []ModuleSummary {
	ids := s.registry.Modules()
	out := make([]ModuleSummary, 0, len(ids))
	for _, id := range ids {
		nodes, err := s.registry.Lookup(id)
		if err != nil {
			continue
		}
		fields, _ := s.registry.Fields(id)
		out = append(out, ModuleSummary{ModuleID: id, Nodes: len(nodes), Fields: fields})
	}
	return out
}

// Fields returns the declared facts for a module
func (s *CostsService) Fields(moduleID string) ([]models.FieldSpec, error) {
	return s.registry.Fields(moduleID)
}
