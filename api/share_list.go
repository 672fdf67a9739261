package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ShareList returns the files other users have shared with the requester,
// with the owner and granted permission alongside each one
func (a *API) ShareList(c *gin.Context) {
	email := c.MustGet("userEmail").(string)

	files, err := a.Files.ListSharedWith(c.Request.Context(), email)
	if err != nil {
		abortWithErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files": files,
	})
}
