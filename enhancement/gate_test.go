package enhancement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"legalcosts-backend/logging"
	"legalcosts-backend/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingRecorder struct {
	mu     sync.Mutex
	audits []*models.EnhancementAudit
	ctxErr []error
	err    error
}

func (r *recordingRecorder) Record(ctx context.Context, audit *models.EnhancementAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, audit)
	r.ctxErr = append(r.ctxErr, ctx.Err())
	return r.err
}

func (r *recordingRecorder) last(t *testing.T) *models.EnhancementAudit {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.audits)
	return r.audits[len(r.audits)-1]
}

func fixed(candidate *models.CalculationResult) Enhancer {
	return EnhancerFunc(func(context.Context, EnhancementRequest) (*models.CalculationResult, error) {
		return candidate, nil
	})
}

func TestGate_EveryProtectedMutationReturnsOriginal(t *testing.T) {
	for _, tt := range protectedMutations() {
		t.Run(tt.field, func(t *testing.T) {
			original := sampleResult(t)
			candidate := reworded(original)
			tt.mutate(candidate)

			out := NewGate(GateWithEnhancer(fixed(candidate))).Enhance(context.Background(), EnhancementRequest{Result: original})

			assert.Equal(t, models.StateRejected, out.State)
			assert.False(t, out.Enhanced)
			require.NotNil(t, out.Rejection)
			assert.Equal(t, tt.field, out.Rejection.Field)
			if diff := cmp.Diff(original, out.Result); diff != "" {
				t.Errorf("released result differs from original (-original +released):\n%s", diff)
			}
			if diff := cmp.Diff(sampleResult(t), original); diff != "" {
				t.Errorf("original was mutated (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGate_RejectsChangedTotal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	rec := &recordingRecorder{}

	original := sampleResult(t)
	candidate := reworded(original)
	candidate.TotalCosts = models.Dollars(2500, 0)

	gate := NewGate(
		GateWithEnhancer(fixed(candidate)),
		GateWithLogger(zap.New(core)),
		GateWithAuditRecorder(rec),
	)
	ctx := logging.WithRequestID(context.Background(), "req-1")
	out := gate.Enhance(ctx, EnhancementRequest{Result: original})

	assert.Equal(t, models.StateRejected, out.State)
	assert.False(t, out.Enhanced)
	assert.Equal(t, "2450.00", out.Result.TotalCosts.String())
	assert.Empty(t, cmp.Diff(original, out.Result))
	require.NotNil(t, out.Rejection)
	assert.Equal(t, models.FieldTotalCosts, out.Rejection.Field)

	entries := logs.FilterMessage("enhancement not released").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Contains(t, fields["reason"], "total_costs")
	assert.Equal(t, "total_costs", fields["field"])
	assert.Equal(t, "req-1", fields["request_id"])

	audit := rec.last(t)
	assert.Equal(t, models.StateRejected, audit.State)
	assert.Equal(t, "req-1", audit.RequestID)
	require.NotNil(t, audit.Field)
	assert.Equal(t, "total_costs", *audit.Field)
	assert.Equal(t, ProtectedDigest(original), audit.ProtectedDigest)
	assert.Equal(t, models.Dollars(2450, 0), audit.OriginalValue.V)
	assert.Equal(t, models.Dollars(2500, 0), audit.AttemptedValue.V)
}

func TestGate_TimeoutFallsBack(t *testing.T) {
	defer goleak.VerifyNone(t)

	enhancer := EnhancerFunc(func(ctx context.Context, _ EnhancementRequest) (*models.CalculationResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	gate := NewGate(GateWithEnhancer(enhancer), GateWithTimeout(20*time.Millisecond))

	original := sampleResult(t)
	start := time.Now()
	out := gate.Enhance(context.Background(), EnhancementRequest{Result: original})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, models.StateEnhancerFailed, out.State)
	assert.Empty(t, cmp.Diff(original, out.Result))
	require.NotNil(t, out.Rejection)
	assert.Contains(t, out.Rejection.Reason, "timed out")
}

func TestGate_TimeoutDoesNotWaitForStuckEnhancer(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	enhancer := EnhancerFunc(func(context.Context, EnhancementRequest) (*models.CalculationResult, error) {
		<-release
		return nil, nil
	})
	gate := NewGate(GateWithEnhancer(enhancer), GateWithTimeout(20*time.Millisecond))

	out := gate.Enhance(context.Background(), EnhancementRequest{Result: sampleResult(t)})
	assert.Equal(t, models.StateEnhancerFailed, out.State)

	// the abandoned call finishes into a buffered channel and exits
	close(release)
}

func TestGate_EnhancerError(t *testing.T) {
	gate := NewGate(GateWithEnhancer(EnhancerFunc(func(context.Context, EnhancementRequest) (*models.CalculationResult, error) {
		return nil, errors.New("quota exceeded")
	})))

	original := sampleResult(t)
	out := gate.Enhance(context.Background(), EnhancementRequest{Result: original})
	assert.Equal(t, models.StateEnhancerFailed, out.State)
	assert.Equal(t, "enhancer", out.Rejection.Rule)
	assert.Contains(t, out.Rejection.Reason, "quota exceeded")
	assert.Empty(t, cmp.Diff(original, out.Result))
}

func TestGate_EnhancerPanics(t *testing.T) {
	gate := NewGate(GateWithEnhancer(EnhancerFunc(func(context.Context, EnhancementRequest) (*models.CalculationResult, error) {
		panic("boom")
	})))

	out := gate.Enhance(context.Background(), EnhancementRequest{Result: sampleResult(t)})
	assert.Equal(t, models.StateEnhancerFailed, out.State)
	assert.Contains(t, out.Rejection.Reason, "panicked")
}

func TestGate_NilCandidate(t *testing.T) {
	gate := NewGate(GateWithEnhancer(fixed(nil)))
	out := gate.Enhance(context.Background(), EnhancementRequest{Result: sampleResult(t)})
	assert.Equal(t, models.StateEnhancerFailed, out.State)
}

func TestGate_AcceptsValidCandidate(t *testing.T) {
	rec := &recordingRecorder{}
	original := sampleResult(t)
	candidate := reworded(original)
	candidate.CalculatedAt = nil

	gate := NewGate(GateWithEnhancer(fixed(candidate)), GateWithAuditRecorder(rec))
	out := gate.Enhance(context.Background(), EnhancementRequest{Result: original})

	assert.Equal(t, models.StateAccepted, out.State)
	assert.True(t, out.Enhanced)
	assert.Nil(t, out.Rejection)
	assert.Equal(t, candidate.Explanation, out.Result.Explanation)
	require.NotNil(t, out.Result.CalculatedAt)
	assert.True(t, original.CalculatedAt.Equal(*out.Result.CalculatedAt))

	audit := rec.last(t)
	assert.Equal(t, models.StateAccepted, audit.State)
	assert.Nil(t, audit.Rule)
}

func TestGate_EnhancerCannotMutateCallerResult(t *testing.T) {
	original := sampleResult(t)
	before := original.Clone()

	gate := NewGate(GateWithEnhancer(EnhancerFunc(func(_ context.Context, req EnhancementRequest) (*models.CalculationResult, error) {
		req.Result.TotalCosts = 1
		req.Result.Amounts["hc_dj_base"] = 1
		return req.Result, nil
	})))
	out := gate.Enhance(context.Background(), EnhancementRequest{Result: original})

	assert.Equal(t, models.StateRejected, out.State)
	assert.Empty(t, cmp.Diff(before, original))
	assert.Empty(t, cmp.Diff(before, out.Result))
}

func TestGate_SkippedWithoutEnhancer(t *testing.T) {
	rec := &recordingRecorder{}
	original := sampleResult(t)
	out := NewGate(GateWithAuditRecorder(rec)).Enhance(context.Background(), EnhancementRequest{Result: original})

	assert.Equal(t, models.StateSkipped, out.State)
	assert.False(t, out.Enhanced)
	assert.Empty(t, cmp.Diff(original, out.Result))
	assert.Empty(t, rec.audits)
}

func TestGate_AuditSurvivesCancelledRequest(t *testing.T) {
	rec := &recordingRecorder{}
	gate := NewGate(GateWithEnhancer(fixed(nil)), GateWithAuditRecorder(rec))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := gate.Enhance(ctx, EnhancementRequest{Result: sampleResult(t)})

	assert.Equal(t, models.StateEnhancerFailed, out.State)
	require.Len(t, rec.ctxErr, 1)
	assert.NoError(t, rec.ctxErr[0])
}

func TestGate_RecorderFailureIsLoggedOnly(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	rec := &recordingRecorder{err: errors.New("db down")}
	original := sampleResult(t)

	gate := NewGate(
		GateWithEnhancer(fixed(reworded(original))),
		GateWithAuditRecorder(rec),
		GateWithLogger(zap.New(core)),
	)
	out := gate.Enhance(context.Background(), EnhancementRequest{Result: original})

	assert.Equal(t, models.StateAccepted, out.State)
	assert.Equal(t, 1, logs.FilterMessage("failed to record enhancement audit").Len())
}

func TestGate_ConcurrentUse(t *testing.T) {
	original := sampleResult(t)
	gate := NewGate(GateWithEnhancer(fixed(reworded(original))))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := gate.Enhance(context.Background(), EnhancementRequest{Result: original})
			assert.Equal(t, models.StateAccepted, out.State)
		}()
	}
	wg.Wait()
}

func TestTemplateEnhancer_PassesValidation(t *testing.T) {
	original := sampleResult(t)
	gate := NewGate(GateWithEnhancer(NewTemplateEnhancer()))

	out := gate.Enhance(context.Background(), EnhancementRequest{Result: original})
	require.Equal(t, models.StateAccepted, out.State, "rejection: %+v", out.Rejection)
	assert.Contains(t, out.Result.Explanation, "The fixed costs come to $2450.00 under CPR Sch 3 item 1(a).")
	assert.Contains(t, out.Result.Explanation, "- High Court filing fee: $250.00")
	assert.Contains(t, out.Result.Explanation, "That total includes $250.00 of disbursements.")
}

func TestTemplateEnhancer_NeedsCitation(t *testing.T) {
	r := sampleResult(t)
	r.Citations = nil
	_, err := NewTemplateEnhancer().Enhance(context.Background(), EnhancementRequest{Result: r})
	assert.Error(t, err)
}
