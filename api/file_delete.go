package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) FileDelete(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	name := c.Query("file_name")
	if name == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No file name provided",
			"requestID": requestID,
		})
		return
	}

	if err := a.Files.DeleteByName(c.Request.Context(), userID, name); err != nil {
		abortWithErr(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
