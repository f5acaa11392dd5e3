package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agripool/backend/internal/infrastructure/auth"
)

// RequireRole aborts with 403 unless the authenticated caller carries the
// given role. Must run after the JWT middleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetJWTRole(c) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ERR_FORBIDDEN",
					"message": "This operation requires the " + role + " role",
				},
			})
			return
		}
		c.Next()
	}
}

// RequireFarmer gates routes to farmer callers
func RequireFarmer() gin.HandlerFunc {
	return RequireRole(auth.RoleFarmer)
}

// RequireBuyer gates routes to buyer callers
func RequireBuyer() gin.HandlerFunc {
	return RequireRole(auth.RoleBuyer)
}
