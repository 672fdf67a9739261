package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// parseFileID reads the :fileID path parameter. A zero return means the
// response has already been written
func parseFileID(c *gin.Context) uint {
	requestID := c.MustGet("requestID").(string)

	id, err := strconv.ParseUint(c.Param("fileID"), 10, 32)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid file ID",
			"requestID": requestID,
		})
		return 0
	}

	return uint(id)
}

// FilePreview serves the decrypted contents inline for callers holding at
// least view access
func (a *API) FilePreview(c *gin.Context) {
	userID := c.MustGet("userID").(string)

	fileID := parseFileID(c)
	if fileID == 0 {
		return
	}

	file, data, err := a.Files.Preview(c.Request.Context(), fileID, userID)
	if err != nil {
		abortWithErr(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="`+file.Name+`"`)
	c.Data(http.StatusOK, file.MimeType, data)
}
