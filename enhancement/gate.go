package enhancement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"legalcosts-backend/logging"
	"legalcosts-backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single enhancer call.
const DefaultTimeout = 8 * time.Second

// AuditRecorder persists the outcome of each enhancement attempt.
type AuditRecorder interface {
	Record(ctx context.Context, audit *models.EnhancementAudit) error
}

// NopRecorder discards audit records.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, *models.EnhancementAudit) error { return nil }

// Gate wraps an enhancer and releases its output only when validation passes.
// It never returns an error: every failure path yields the original result.
type Gate struct {
	enhancer  Enhancer
	validator *Validator
	timeout   time.Duration
	recorder  AuditRecorder
	logger    *zap.Logger
	now       func() time.Time
}

// GateOption is a functional option for Gate
type GateOption func(*Gate)

// GateWithEnhancer sets the enhancer. Without one the gate passes results through.
func GateWithEnhancer(e Enhancer) GateOption {
	return func(g *Gate) {
		g.enhancer = e
	}
}

// GateWithValidator sets the validator
func GateWithValidator(v *Validator) GateOption {
	return func(g *Gate) {
		g.validator = v
	}
}

// GateWithTimeout sets the enhancer call timeout
func GateWithTimeout(d time.Duration) GateOption {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// GateWithAuditRecorder sets the audit recorder
func GateWithAuditRecorder(r AuditRecorder) GateOption {
	return func(g *Gate) {
		g.recorder = r
	}
}

// GateWithLogger sets the logger
func GateWithLogger(l *zap.Logger) GateOption {
	return func(g *Gate) {
		g.logger = l
	}
}

// NewGate creates a new enhancement gate
func NewGate(opts ...GateOption) *Gate {
	g := &Gate{
		validator: NewValidator(),
		timeout:   DefaultTimeout,
		recorder:  NopRecorder{},
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type enhancerOutcome struct {
	candidate *models.CalculationResult
	err       error
}

// Enhance runs one attempt through START → CANDIDATE_RECEIVED|ENHANCER_FAILED
// → ACCEPTED|REJECTED. Only ACCEPTED releases the candidate.
func (g *Gate) Enhance(ctx context.Context, req EnhancementRequest) *models.EnhancedResult {
	original := req.Result.Clone()
	if g.enhancer == nil || original == nil {
		return &models.EnhancedResult{Result: original, State: models.StateSkipped}
	}

	start := g.now()
	outcome := g.call(ctx, EnhancementRequest{
		Result:     original.Clone(),
		References: append([]models.LegalChunk(nil), req.References...),
	})

	audit := &models.EnhancementAudit{
		ID:              uuid.New(),
		RequestID:       logging.RequestID(ctx),
		ModuleID:        original.ModuleID,
		ProtectedDigest: ProtectedDigest(original),
	}

	var out *models.EnhancedResult
	switch {
	case outcome.err != nil:
		out = g.fallback(original, models.StateEnhancerFailed, &models.Rejection{
			Rule:   "enhancer",
			Reason: outcome.err.Error(),
		})
	case outcome.candidate == nil:
		out = g.fallback(original, models.StateEnhancerFailed, &models.Rejection{
			Rule:   "enhancer",
			Reason: "enhancer returned no candidate",
		})
	default:
		candidate := outcome.candidate.Clone()
		if rej := g.validator.Validate(original, candidate); rej != nil {
			out = g.fallback(original, models.StateRejected, rej)
		} else {
			candidate.CalculatedAt = original.CalculatedAt
			out = &models.EnhancedResult{Result: candidate, Enhanced: true, State: models.StateAccepted}
		}
	}

	audit.State = out.State
	audit.DurationMs = g.now().Sub(start).Milliseconds()
	if rej := out.Rejection; rej != nil {
		audit.Rule = strPtr(rej.Rule)
		audit.Field = strPtr(rej.Field)
		audit.Reason = strPtr(rej.Reason)
		audit.OriginalValue = models.AuditValue{V: rej.Original}
		audit.AttemptedValue = models.AuditValue{V: rej.Attempted}

		g.logger.Warn("enhancement not released",
			zap.String("module_id", original.ModuleID),
			zap.String("state", string(out.State)),
			zap.String("rule", rej.Rule),
			zap.String("field", rej.Field),
			zap.String("reason", rej.Reason),
			logging.RequestField(ctx),
		)
	} else {
		g.logger.Debug("enhancement accepted", zap.String("module_id", original.ModuleID))
	}
	g.record(ctx, audit)

	return out
}

// call invokes the enhancer under the gate's timeout. The enhancer runs in its
// own goroutine so a call that ignores cancellation cannot hold the caller.
func (g *Gate) call(ctx context.Context, req EnhancementRequest) (outcome enhancerOutcome) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan enhancerOutcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- enhancerOutcome{err: fmt.Errorf("enhancer panicked: %v", rec)}
			}
		}()
		candidate, err := g.enhancer.Enhance(ctx, req)
		done <- enhancerOutcome{candidate: candidate, err: err}
	}()

	select {
	case outcome = <-done:
		if outcome.err == nil && ctx.Err() != nil {
			outcome = enhancerOutcome{err: ctx.Err()}
		}
		return outcome
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("enhancer timed out after %s: %w", g.timeout, err)
		}
		return enhancerOutcome{err: err}
	}
}

func (g *Gate) fallback(original *models.CalculationResult, state models.EnhancementState, rej *models.Rejection) *models.EnhancedResult {
	return &models.EnhancedResult{
		Result:    original,
		State:     state,
		Rejection: rej,
	}
}

func (g *Gate) record(ctx context.Context, audit *models.EnhancementAudit) {
	audit.CreatedAt = g.now().UTC()
	if err := g.recorder.Record(context.WithoutCancel(ctx), audit); err != nil {
		g.logger.Error("failed to record enhancement audit",
			zap.String("module_id", audit.ModuleID),
			zap.Error(err),
		)
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
