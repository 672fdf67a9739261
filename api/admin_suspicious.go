package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// AdminSuspiciousActivity returns per-user, per-action aggregates that
// sit at or above their threshold, recomputed from the audit log rather
// than the in-memory window state
func (a *API) AdminSuspiciousActivity(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	page, limit, ok := parsePagination(c)
	if !ok {
		return
	}

	var from, to int64

	if s := c.Query("start_date"); s != "" {
		day, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid start_date, use YYYY-MM-DD",
				"requestID": requestID,
			})
			return
		}
		from = day.UnixMilli()
	}

	if s := c.Query("end_date"); s != "" {
		day, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid end_date, use YYYY-MM-DD",
				"requestID": requestID,
			})
			return
		}
		// Inclusive through the end of the day
		to = day.Add(24*time.Hour).UnixMilli() - 1
	}

	aggregates, err := a.Detector.Summarize(c.Request.Context(), page, limit, from, to)
	if err != nil {
		abortWithErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"aggregates": aggregates,
	})
}
