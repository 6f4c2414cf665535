package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"traceroot/internal/core/domain/auth"
	"traceroot/pkg/response"
)

// SDKAuth authenticates the ingestion surface by bearer API key. It yields
// only the project id the key is scoped to; no user is resolved. The scheme
// is matched case-insensitively.
func SDKAuth(keys auth.APIKeyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing Authorization header")
			return
		}
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			response.Unauthorized(c, "Authorization header must be 'Bearer <api key>'")
			return
		}

		key, err := keys.AuthenticateToken(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			response.Error(c, err)
			return
		}

		c.Set(ctxKeySDKProjectID, key.ProjectID)
		c.Next()
	}
}
