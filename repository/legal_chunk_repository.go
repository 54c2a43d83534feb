package repository

import (
	"context"
	"fmt"

	"legalcosts-backend/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LegalChunkRepository handles database operations for legal chunks
type LegalChunkRepository struct {
	db *pgxpool.Pool
}

// NewLegalChunkRepository creates a new legal chunk repository
func NewLegalChunkRepository(db *pgxpool.Pool) *LegalChunkRepository {
	return &LegalChunkRepository{db: db}
}

// FindByCitations returns excerpts filed under any of the given citations.
// citations: exact citation strings taken from a calculation
// limit: Maximum number of chunks to return
func (r *LegalChunkRepository) FindByCitations(
	ctx context.Context,
	moduleID string,
	citations []string,
	limit int,
) ([]models.LegalChunk, error) {
	if len(citations) == 0 {
		return nil, nil
	}

	query := `
		SELECT
			id,
			chunk_text,
			source_type,
			source_document,
			citation,
			case_citation,
			module_id,
			metadata
		FROM legal_chunks
		WHERE
			citation = ANY($1)
			AND (module_id = $2 OR module_id = '')
		ORDER BY citation, chunk_index
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, citations, moduleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query legal chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.LegalChunk
	for rows.Next() {
		var chunk models.LegalChunk
		err := rows.Scan(
			&chunk.ID,
			&chunk.Text,
			&chunk.SourceType,
			&chunk.SourceDocument,
			&chunk.Citation,
			&chunk.CaseCitation,
			&chunk.ModuleID,
			&chunk.Metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan legal chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating legal chunks: %w", err)
	}

	return chunks, nil
}
