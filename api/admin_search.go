package api

import (
	"net/http"
	"strings"

	"bitwise74/fileshare-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminSearchUsers finds regular accounts whose email contains the query,
// case-insensitively
func (a *API) AdminSearchUsers(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	query := strings.ToLower(c.Query("query"))
	if query == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No search query provided",
			"requestID": requestID,
		})
		return
	}

	page, limit, ok := parsePagination(c)
	if !ok {
		return
	}

	var users []model.User

	err := a.DB.
		Where("role = ? AND email LIKE ?", model.RoleUser, "%"+query+"%").
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

		zap.L().Error("Failed to search users", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
	})
}
