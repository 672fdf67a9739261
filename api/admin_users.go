package api

import (
	"net/http"
	"strconv"

	"bitwise74/fileshare-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// parsePagination reads the page and limit query parameters. A false
// return means the response has already been written
func parsePagination(c *gin.Context) (page, limit int, ok bool) {
	requestID := c.MustGet("requestID").(string)

	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Page must be a non-negative integer",
			"requestID": requestID,
		})
		return 0, 0, false
	}

	limit, err = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Limit must be between 1 and 100",
			"requestID": requestID,
		})
		return 0, 0, false
	}

	return page, limit, true
}

// AdminUsers lists regular accounts. Admin accounts stay out of the
// listing so they never show up as sharing targets
func (a *API) AdminUsers(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	page, limit, ok := parsePagination(c)
	if !ok {
		return
	}

	var users []model.User

	err := a.DB.
		Where("role = ?", model.RoleUser).
		Order("email ASC").
		Offset(page * limit).
		Limit(limit).
		Find(&users).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list users", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
	})
}
