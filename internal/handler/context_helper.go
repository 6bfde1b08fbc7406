package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/unicampus/registrar-api/internal/middleware"
	"github.com/unicampus/registrar-api/internal/models"
)

// currentClaims extracts the authenticated user's claims from the context.
func currentClaims(c *gin.Context) *models.JWTClaims {
	value, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
