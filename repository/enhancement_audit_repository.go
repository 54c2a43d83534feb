package repository

import (
	"context"
	"fmt"

	"legalcosts-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnhancementAuditRepository handles database operations for enhancement audits
type EnhancementAuditRepository struct {
	db *pgxpool.Pool
}

// NewEnhancementAuditRepository creates a new enhancement audit repository
func NewEnhancementAuditRepository(db *pgxpool.Pool) *EnhancementAuditRepository {
	return &EnhancementAuditRepository{db: db}
}

// Record inserts one gate attempt
func (r *EnhancementAuditRepository) Record(ctx context.Context, audit *models.EnhancementAudit) error {
	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}

	query := `
		INSERT INTO enhancement_audits (
			id, request_id, module_id, state, rule, field,
			original_value, attempted_value, reason, protected_digest, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`

	err := r.db.QueryRow(
		ctx, query,
		audit.ID,
		audit.RequestID,
		audit.ModuleID,
		audit.State,
		audit.Rule,
		audit.Field,
		audit.OriginalValue,
		audit.AttemptedValue,
		audit.Reason,
		audit.ProtectedDigest,
		audit.DurationMs,
	).Scan(&audit.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert enhancement audit: %w", err)
	}
	return nil
}

// GetByID retrieves an audit record by ID
func (r *EnhancementAuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EnhancementAudit, error) {
	query := `
		SELECT id, request_id, module_id, state, rule, field,
			original_value, attempted_value, reason, protected_digest,
			duration_ms, created_at
		FROM enhancement_audits
		WHERE id = $1`

	audit, err := scanAudit(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return audit, nil
}

// ListRejections returns the most recent non-accepted attempts for a module
func (r *EnhancementAuditRepository) ListRejections(ctx context.Context, moduleID string, limit int) ([]*models.EnhancementAudit, error) {
	query := `
		SELECT id, request_id, module_id, state, rule, field,
			original_value, attempted_value, reason, protected_digest,
			duration_ms, created_at
		FROM enhancement_audits
		WHERE module_id = $1 AND state <> $2
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, moduleID, models.StateAccepted, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query enhancement audits: %w", err)
	}
	defer rows.Close()

	var audits []*models.EnhancementAudit
	for rows.Next() {
		audit, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		audits = append(audits, audit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enhancement audits: %w", err)
	}
	return audits, nil
}

func scanAudit(row pgx.Row) (*models.EnhancementAudit, error) {
	audit := &models.EnhancementAudit{}
	err := row.Scan(
		&audit.ID,
		&audit.RequestID,
		&audit.ModuleID,
		&audit.State,
		&audit.Rule,
		&audit.Field,
		&audit.OriginalValue,
		&audit.AttemptedValue,
		&audit.Reason,
		&audit.ProtectedDigest,
		&audit.DurationMs,
		&audit.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan enhancement audit: %w", err)
	}
	return audit, nil
}
