package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"legalcosts-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	defaultRejectionLimit = 20
	maxRejectionLimit     = 200
)

// AuditStore reads recorded enhancement attempts
type AuditStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.EnhancementAudit, error)
	ListRejections(ctx context.Context, moduleID string, limit int) ([]*models.EnhancementAudit, error)
}

// AuditHandler exposes the enhancement audit log
type AuditHandler struct {
	audits AuditStore
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(audits AuditStore) *AuditHandler {
	return &AuditHandler{
		audits: audits,
	}
}

// ListRejections handles GET /api/modules/:id/rejections
func (h *AuditHandler) ListRejections(c *gin.Context) {
	limit := defaultRejectionLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxRejectionLimit {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	audits, err := h.audits.ListRejections(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if audits == nil {
		audits = []*models.EnhancementAudit{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    audits,
	})
}

// GetAudit handles GET /api/audits/:id
func (h *AuditHandler) GetAudit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid audit ID")
		return
	}

	audit, err := h.audits.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Audit record not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    audit,
	})
}
