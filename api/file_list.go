package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// FileList returns the metadata of every file the requester owns, newest
// first. Contents are never included here
func (a *API) FileList(c *gin.Context) {
	userID := c.MustGet("userID").(string)

	files, err := a.Files.ListOwned(c.Request.Context(), userID)
	if err != nil {
		abortWithErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files": files,
	})
}
