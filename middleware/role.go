package middleware

import (
	"net/http"

	"bitwise74/fileshare-api/model"

	"github.com/gin-gonic/gin"
)

// RequireAdmin gates the operator endpoints. Role mismatch is an explicit
// 403, never a silent empty result
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		role, ok := c.MustGet("userRole").(model.Role)
		if !ok || !role.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":     "Admins only",
				"requestID": requestID,
			})
			return
		}

		c.Next()
	}
}
