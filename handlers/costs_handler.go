package handlers

import (
	"net/http"

	"legalcosts-backend/models"
	"legalcosts-backend/service"

	"github.com/gin-gonic/gin"
)

// CostsHandler handles HTTP requests for module evaluation
type CostsHandler struct {
	costsService *service.CostsService
}

// NewCostsHandler creates a new costs handler
func NewCostsHandler(costsService *service.CostsService) *CostsHandler {
	return &CostsHandler{
		costsService: costsService,
	}
}

// EvaluateRequest represents the request body for an evaluation
type EvaluateRequest struct {
	Facts     models.FactMap `json:"facts" binding:"required"`
	Threshold *float64       `json:"threshold"`
	Enhance   bool           `json:"enhance"`
}

// ListModules handles GET /api/modules
func (h *CostsHandler) ListModules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.costsService.ListModules(),
	})
}

// GetFields handles GET /api/modules/:id/fields
func (h *CostsHandler) GetFields(c *gin.Context) {
	fields, err := h.costsService.Fields(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    fields,
	})
}

// Evaluate handles POST /api/modules/:id/evaluate
func (h *CostsHandler) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.costsService.Evaluate(c.Request.Context(), service.EvaluateRequest{
		ModuleID:  c.Param("id"),
		Facts:     req.Facts,
		Threshold: req.Threshold,
		Enhance:   req.Enhance,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
