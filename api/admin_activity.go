package api

import (
	"net/http"

	"bitwise74/fileshare-api/model"
	"bitwise74/fileshare-api/service"

	"github.com/gin-gonic/gin"
)

// AdminActivityLog pages through the full audit trail, optionally
// narrowed by action, user email and calendar day
func (a *API) AdminActivityLog(c *gin.Context) {
	page, limit, ok := parsePagination(c)
	if !ok {
		return
	}

	entries, err := a.Audit.Query(c.Request.Context(), service.Filter{
		Action: model.Action(c.Query("action")),
		Email:  c.Query("email"),
		Day:    c.Query("date"),
	}, page, limit)
	if err != nil {
		abortWithErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
	})
}

// AdminUserActivity is AdminActivityLog pinned to a single account
func (a *API) AdminUserActivity(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	email := c.Query("email")
	if email == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No email provided",
			"requestID": requestID,
		})
		return
	}

	page, limit, ok := parsePagination(c)
	if !ok {
		return
	}

	entries, err := a.Audit.Query(c.Request.Context(), service.Filter{
		Action: model.Action(c.Query("action")),
		Email:  email,
		Day:    c.Query("date"),
	}, page, limit)
	if err != nil {
		abortWithErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
	})
}
