package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-result-engine/internal/models"
	appErrors "github.com/noah-isme/sma-result-engine/pkg/errors"
	"github.com/noah-isme/sma-result-engine/pkg/response"
)

// RequireRoles lets a request through only when the caller holds one of roles.
// Fine-grained checks (assignment, guardianship) stay in the services.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}
		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
