package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminLockUser freezes an account. Locking an already locked account is
// a no-op, not an error
func (a *API) AdminLockUser(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	actor := c.MustGet("userEmail").(string)

	email := c.Query("email")
	if email == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No email provided",
			"requestID": requestID,
		})
		return
	}

	if err := a.Locker.Lock(c.Request.Context(), email, actor); err != nil {
		abortWithErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"email":  email,
		"locked": true,
	})
}

func (a *API) AdminUnlockUser(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	actor := c.MustGet("userEmail").(string)

	email := c.Query("email")
	if email == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No email provided",
			"requestID": requestID,
		})
		return
	}

	if err := a.Locker.Unlock(c.Request.Context(), email, actor); err != nil {
		abortWithErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"email":  email,
		"locked": false,
	})
}
