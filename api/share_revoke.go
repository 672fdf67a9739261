package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type revokeBody struct {
	FileName string `json:"fileName"`
	Email    string `json:"email"`
}

// ShareRevoke removes a recipient's access. Revoking a grant that doesn't
// exist is not an error
func (a *API) ShareRevoke(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var data revokeBody
	if err := c.ShouldBind(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if data.FileName == "" || data.Email == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "File name and email fields can't be empty",
			"requestID": requestID,
		})
		return
	}

	if err := a.Sharing.Revoke(c.Request.Context(), userID, data.FileName, data.Email); err != nil {
		abortWithErr(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
