package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PipelineAuthMiddleware creates a Gin middleware that validates the X-API-Key
// header against the configured pipeline API key.
func PipelineAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !checkAPIKey(c, apiKey) {
			return
		}
		c.Set(ActorKey, PipelineActor)
		c.Next()
	}
}

// OperatorOrPipeline accepts either the pipeline X-API-Key or an operator
// JWT. Requests carrying an API key are never checked for a token.
func OperatorOrPipeline(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-API-Key") != "" {
			if !checkAPIKey(c, apiKey) {
				return
			}
			c.Set(ActorKey, PipelineActor)
			c.Next()
			return
		}
		if !authenticate(c) {
			return
		}
		c.Next()
	}
}

func checkAPIKey(c *gin.Context, apiKey string) bool {
	if apiKey == "" {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable,
			gin.H{"error": gin.H{"code": "PIPELINE_NOT_CONFIGURED", "message": "Pipeline endpoints are not configured"}})
		return false
	}
	key := c.GetHeader("X-API-Key")
	if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			gin.H{"error": gin.H{"code": "INVALID_API_KEY", "message": "Invalid or missing API key"}})
		return false
	}
	return true
}
