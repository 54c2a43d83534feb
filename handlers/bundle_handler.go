package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"legalcosts-backend/storage"

	"github.com/gin-gonic/gin"
)

// BundleHandler serves published module bundles from storage
type BundleHandler struct {
	storage storage.Storage
}

// NewBundleHandler creates a new bundle handler
func NewBundleHandler(store storage.Storage) *BundleHandler {
	return &BundleHandler{
		storage: store,
	}
}

// ListBundles handles GET /api/bundles
func (h *BundleHandler) ListBundles(c *gin.Context) {
	keys, err := h.storage.List(c.Request.Context(), storage.BundlePrefix)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "LIST_FAILED", err.Error())
		return
	}
	if keys == nil {
		keys = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    keys,
	})
}

// GetBundle handles GET /api/modules/:id/bundle
func (h *BundleHandler) GetBundle(c *gin.Context) {
	id := c.Param("id")
	reader, err := h.storage.Get(c.Request.Context(), storage.BundleKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Bundle not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "DOWNLOAD_FAILED", fmt.Sprintf("Failed to download bundle: %v", err))
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.yaml\"", id))
	c.DataFromReader(http.StatusOK, -1, "application/yaml", reader, nil)
}
