package api

import (
	"net/http"
	"strings"
	"time"

	"bitwise74/fileshare-api/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) AuthLogin(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data loginBody
	if err := c.ShouldBind(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if data.Email == "" || data.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Email and password fields can't be empty",
			"requestID": requestID,
		})
		return
	}

	email := strings.ToLower(data.Email)

	var user model.User

	if err := a.DB.Where("email = ?", email).First(&user).Error; err != nil {
		// Unknown emails are not tracked, only attempts against real accounts
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":     "Invalid credentials",
			"requestID": requestID,
		})
		return
	}

	if user.Locked {
		if _, err := a.Audit.Record(c.Request.Context(), user.Email, model.ActionFailedLogin, "account locked"); err != nil {
			zap.L().Error("Failed to record rejected login", zap.Error(err), zap.String("requestID", requestID))
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":     "Account is locked. Contact an administrator",
			"requestID": requestID,
		})
		return
	}

	ok, err := a.Argon.VerifyPasswd(data.Password, user.PasswordHash)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to verify password", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if !ok {
		if _, err := a.Audit.Record(c.Request.Context(), user.Email, model.ActionFailedLogin, "bad password"); err != nil {
			zap.L().Error("Failed to record failed login", zap.Error(err), zap.String("requestID", requestID))
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":     "Invalid credentials",
			"requestID": requestID,
		})
		return
	}

	// A failed attempt just now may have tripped the auto-lock, so check
	// the fresh row state before handing out a token
	locked, err := a.Locker.IsLocked(c.Request.Context(), user.Email)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to check lock state", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if locked {
		if _, err := a.Audit.Record(c.Request.Context(), user.Email, model.ActionFailedLogin, "account locked"); err != nil {
			zap.L().Error("Failed to record rejected login", zap.Error(err), zap.String("requestID", requestID))
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":     "Account is locked. Contact an administrator",
			"requestID": requestID,
		})
		return
	}

	authToken, err := makeToken(&jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(time.Hour * 24 * 30).Unix(),
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate JWT auth token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if _, err := a.Audit.Record(c.Request.Context(), user.Email, model.ActionLogin, ""); err != nil {
		zap.L().Error("Failed to record login", zap.Error(err), zap.String("requestID", requestID))
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken": authToken,
		"role":        user.Role,
	})
}

func makeToken(c *jwt.MapClaims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString([]byte(viper.GetString("jwt.secret")))
}
