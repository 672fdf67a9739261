package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminStats reports upload and share totals with per-user rollups, all
// read inside one transaction so the numbers are consistent with each
// other
func (a *API) AdminStats(c *gin.Context) {
	overview, err := a.Stats.Overview(c.Request.Context())
	if err != nil {
		abortWithErr(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}
