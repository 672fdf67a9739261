package api

import (
	"net/http"

	"bitwise74/fileshare-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type shareBody struct {
	FileName   string `json:"fileName"`
	Email      string `json:"email"`
	Permission string `json:"permission"`
}

// ShareCreate grants or overwrites a recipient's access to one of the
// requester's files
func (a *API) ShareCreate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var data shareBody
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

	grant, err := a.Sharing.Share(c.Request.Context(), userID, data.FileName, data.Email, model.Permission(data.Permission))
	if err != nil {
		abortWithErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, grant)
}
