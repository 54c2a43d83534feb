package handlers

import (
	"net/http"
	"time"

	"legalcosts-backend/logging"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RequestIDHeader carries the request id in and out
const RequestIDHeader = "X-Request-ID"

// RequestID tags each request's context with an id, reusing the caller's
// header when present
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// AccessLog logs one line per request
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			logging.RequestField(c.Request.Context()),
		)
	}
}

// RateLimit rejects requests beyond a process-wide token bucket
func RateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			respondError(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}

// SetupRoutes registers every API route on the engine. Bundle and audit
// routes are only mounted when their handler is non-nil.
func SetupRoutes(router *gin.Engine, costs *CostsHandler, bundles *BundleHandler, audits *AuditHandler, limiter *rate.Limiter) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	if limiter != nil {
		api.Use(RateLimit(limiter))
	}
	{
		api.GET("/modules", costs.ListModules)
		api.GET("/modules/:id/fields", costs.GetFields)
		api.POST("/modules/:id/evaluate", costs.Evaluate)
		if bundles != nil {
			api.GET("/bundles", bundles.ListBundles)
			api.GET("/modules/:id/bundle", bundles.GetBundle)
		}
		if audits != nil {
			api.GET("/modules/:id/rejections", audits.ListRejections)
			api.GET("/audits/:id", audits.GetAudit)
		}
	}
}
