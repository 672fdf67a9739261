package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// FileDownload serves the decrypted contents as an attachment. Download
// access is stricter than view access and every successful fetch lands in
// the activity log
func (a *API) FileDownload(c *gin.Context) {
	userID := c.MustGet("userID").(string)

	fileID := parseFileID(c)
	if fileID == 0 {
		return
	}

	file, data, err := a.Files.Download(c.Request.Context(), fileID, userID)
	if err != nil {
		abortWithErr(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Data(http.StatusOK, file.MimeType, data)
}
