package handlers

import (
	"errors"
	"net/http"

	"legalcosts-backend/models"

	"github.com/gin-gonic/gin"
)

// respondError writes the error envelope
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondErrorDetails writes the error envelope with structured details
func respondErrorDetails(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// respondServiceError maps the model error taxonomy onto HTTP statuses
func respondServiceError(c *gin.Context, err error) {
	var (
		notFound    *models.NotFoundError
		unsupported *models.UnsupportedScenarioError
		invalid     *models.FactValidationError
		nodeData    *models.NodeDataError
		cfgErr      *models.ConfigError
	)
	switch {
	case errors.As(err, &notFound):
		respondError(c, http.StatusNotFound, "MODULE_NOT_FOUND", err.Error())
	case errors.As(err, &invalid):
		respondErrorDetails(c, http.StatusUnprocessableEntity, "INVALID_FACTS", err.Error(), invalid.Problems)
	case errors.As(err, &unsupported):
		respondErrorDetails(c, http.StatusUnprocessableEntity, "UNSUPPORTED_SCENARIO", err.Error(), gin.H{
			"decision_point": unsupported.DecisionPoint,
			"missing_fields": unsupported.MissingFields,
		})
	case errors.As(err, &cfgErr):
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.As(err, &nodeData):
		respondError(c, http.StatusInternalServerError, "NODE_DATA_ERROR", "the module's rule data is malformed")
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}
