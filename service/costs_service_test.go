package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"legalcosts-backend/calculator"
	"legalcosts-backend/enhancement"
	"legalcosts-backend/models"
	"legalcosts-backend/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var fixedNow = time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

type fakeCaseLaw struct {
	mu        sync.Mutex
	chunks    []models.LegalChunk
	err       error
	citations []string
}

func (f *fakeCaseLaw) FindByCitations(_ context.Context, _ string, citations []string, _ int) ([]models.LegalChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.citations = citations
	return f.chunks, f.err
}

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	m, err := calculator.DefaultModule()
	require.NoError(t, err)
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register(m))
	return reg
}

func newService(t *testing.T, opts ...CostsServiceOption) *CostsService {
	t.Helper()
	opts = append([]CostsServiceOption{
		WithRegistry(newRegistry(t)),
		WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	s, err := NewCostsService(opts...)
	require.NoError(t, err)
	return s
}

func hcFacts() models.FactMap {
	return models.FactMap{
		"court_level": "High Court",
		"case_type":   "default_judgment",
		"party_count": float64(1),
	}
}

func TestNewCostsService_RequiresRegistry(t *testing.T) {
	_, err := NewCostsService()
	assert.Error(t, err)
}

func TestEvaluate_Deterministic(t *testing.T) {
	s := newService(t)
	out, err := s.Evaluate(context.Background(), EvaluateRequest{ModuleID: "civil_fixed_costs", Facts: hcFacts()})
	require.NoError(t, err)

	require.Len(t, out.Matches, 1)
	assert.Equal(t, "hc_default_judgment", out.Matches[0].NodeID)
	assert.Equal(t, "2450.00", out.Result.TotalCosts.String())
	assert.Equal(t, models.StateSkipped, out.State)
	assert.False(t, out.Enhanced)
	require.NotNil(t, out.Result.CalculatedAt)
	assert.True(t, fixedNow.Equal(*out.Result.CalculatedAt))
}

func TestEvaluate_UnknownModule(t *testing.T) {
	s := newService(t)
	_, err := s.Evaluate(context.Background(), EvaluateRequest{ModuleID: "family", Facts: hcFacts()})
	assert.ErrorIs(t, err, models.ErrModuleNotFound)
}

func TestEvaluate_InvalidFacts(t *testing.T) {
	s := newService(t)
	facts := hcFacts()
	facts["court_level"] = "Court of Appeal"

	_, err := s.Evaluate(context.Background(), EvaluateRequest{ModuleID: "civil_fixed_costs", Facts: facts})
	var fvErr *models.FactValidationError
	require.True(t, errors.As(err, &fvErr))
	assert.Len(t, fvErr.Problems, 1)
}

func TestEvaluate_ThresholdOverride(t *testing.T) {
	s := newService(t)

	strict := 0.95
	_, err := s.Evaluate(context.Background(), EvaluateRequest{ModuleID: "civil_fixed_costs", Facts: hcFacts(), Threshold: &strict})
	var unsupported *models.UnsupportedScenarioError
	require.True(t, errors.As(err, &unsupported))

	for _, bad := range []float64{1.2, -0.1, math.NaN()} {
		_, err = s.Evaluate(context.Background(), EvaluateRequest{ModuleID: "civil_fixed_costs", Facts: hcFacts(), Threshold: &bad})
		var cfgErr *models.ConfigError
		assert.True(t, errors.As(err, &cfgErr), "threshold %v", bad)
	}
}

func TestEvaluate_HugePartyCountUnsupported(t *testing.T) {
	s := newService(t)
	facts := hcFacts()
	facts["party_count"] = 1e20

	out, err := s.Evaluate(context.Background(), EvaluateRequest{ModuleID: "civil_fixed_costs", Facts: facts})
	assert.Nil(t, out)
	var unsupported *models.UnsupportedScenarioError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "party_count", unsupported.DecisionPoint)
}

func TestEvaluate_EnhancesWithReferences(t *testing.T) {
	caseLaw := &fakeCaseLaw{chunks: []models.LegalChunk{{Citation: "CPR Sch 3 item 1(a)", Text: "Fixed costs are allowed on default judgment."}}}

	var got []models.LegalChunk
	template := enhancement.NewTemplateEnhancer()
	enhancer := enhancement.EnhancerFunc(func(ctx context.Context, req enhancement.EnhancementRequest) (*models.CalculationResult, error) {
		got = req.References
		return template.Enhance(ctx, req)
	})

	s := newService(t,
		WithCaseLawLookup(caseLaw),
		WithGate(enhancement.NewGate(enhancement.GateWithEnhancer(enhancer))),
	)
	out, err := s.Evaluate(context.Background(), EvaluateRequest{ModuleID: "civil_fixed_costs", Facts: hcFacts(), Enhance: true})
	require.NoError(t, err)

	assert.Equal(t, models.StateAccepted, out.State)
	assert.True(t, out.Enhanced)
	assert.Equal(t, "2450.00", out.Result.TotalCosts.String())
	assert.Contains(t, out.Result.Explanation, "The fixed costs come to $2450.00")
	assert.NotEqual(t, out.Original.Explanation, out.Result.Explanation)
	assert.Equal(t, caseLaw.chunks, got)
	assert.Equal(t, []string{"CPR Sch 3 item 1(a)", "Fees Reg sch 1 item 4"}, caseLaw.citations)
}

func TestEvaluate_RejectedEnhancementReturnsOriginal(t *testing.T) {
	enhancer := enhancement.EnhancerFunc(func(_ context.Context, req enhancement.EnhancementRequest) (*models.CalculationResult, error) {
		out := req.Result.Clone()
		out.TotalCosts = models.Dollars(2500, 0)
		return out, nil
	})
	s := newService(t, WithGate(enhancement.NewGate(enhancement.GateWithEnhancer(enhancer))))

	out, err := s.Evaluate(context.Background(), EvaluateRequest{ModuleID: "civil_fixed_costs", Facts: hcFacts(), Enhance: true})
	require.NoError(t, err)
	assert.Equal(t, models.StateRejected, out.State)
	assert.Equal(t, "2450.00", out.Result.TotalCosts.String())
	require.NotNil(t, out.Rejection)
	assert.Equal(t, models.FieldTotalCosts, out.Rejection.Field)
}

func TestEvaluate_CaseLawFailureDegrades(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := newService(t,
		WithCaseLawLookup(&fakeCaseLaw{err: errors.New("connection refused")}),
		WithGate(enhancement.NewGate(enhancement.GateWithEnhancer(enhancement.NewTemplateEnhancer()))),
		WithLogger(zap.New(core)),
	)

	out, err := s.Evaluate(context.Background(), EvaluateRequest{ModuleID: "civil_fixed_costs", Facts: hcFacts(), Enhance: true})
	require.NoError(t, err)
	assert.Equal(t, models.StateAccepted, out.State)
	assert.Equal(t, 1, logs.FilterMessage("failed to retrieve case law references").Len())
}

func TestListModulesAndFields(t *testing.T) {
	s := newService(t)

	modules := s.ListModules()
	require.Len(t, modules, 1)
	assert.Equal(t, "civil_fixed_costs", modules[0].ModuleID)
	assert.Equal(t, 5, modules[0].Nodes)

	fields, err := s.Fields("civil_fixed_costs")
	require.NoError(t, err)
	assert.Equal(t, []string{"court_level", "case_type", "party_count"}, models.RequiredFields(fields))

	_, err = s.Fields("nope")
	assert.ErrorIs(t, err, models.ErrModuleNotFound)
}
