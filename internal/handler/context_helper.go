package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-result-engine/internal/middleware"
	"github.com/noah-isme/sma-result-engine/internal/models"
)

// actorFromContext returns the caller set by the JWT middleware, or false when the
// request carries no verified claims.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return models.Actor{}, false
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok || claims == nil {
		return models.Actor{}, false
	}
	return claims.Actor(), true
}
