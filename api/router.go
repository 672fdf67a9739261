// Package api contains all endpoints available
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"bitwise74/fileshare-api/config"
	"bitwise74/fileshare-api/db"
	"bitwise74/fileshare-api/middleware"
	"bitwise74/fileshare-api/pkg/security"
	"bitwise74/fileshare-api/service"
	"bitwise74/fileshare-api/storage"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	ginzap "github.com/gin-contrib/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var store = persist.NewMemoryStore(time.Minute)

type API struct {
	DB     *gorm.DB
	Router *gin.Engine
	Argon  *security.ArgonHash

	Audit    *service.Audit
	Files    *service.Files
	Sharing  *service.Sharing
	Detector *service.Detector
	Locker   *service.Locker
	Stats    *service.Stats
}

func NewRouter() (*API, error) {
	a := &API{}

	d, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	a.DB = d

	makeLogger()

	blobs, err := storage.New(d)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob storage, %w", err)
	}

	cipher, err := security.NewCipher(viper.GetString("security.master_key"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize content cipher, %w", err)
	}

	a.Argon = security.New()

	if err := a.wireCore(d, blobs, cipher); err != nil {
		return nil, err
	}

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	a.Router.MaxMultipartMemory = 5 << 20

	a.registerRoutes()

	return a, nil
}

// wireCore builds the six core services and connects the detector's
// threshold signal to the lock manager. The detector observes the audit
// log, the locker stays the single writer of lock state
func (a *API) wireCore(d *gorm.DB, blobs storage.Store, cipher *security.Cipher) error {
	locks := service.NewFileLocks()

	a.Audit = service.NewAudit(d)
	a.Locker = service.NewLocker(d, a.Audit)
	a.Detector = service.NewDetector(d)
	a.Sharing = service.NewSharing(d, a.Audit, locks)
	a.Files = service.NewFiles(d, blobs, cipher, a.Audit, a.Sharing, locks)
	a.Stats = service.NewStats(d)

	a.Detector.OnFlag(a.Locker.AutoLock)
	a.Audit.Subscribe(a.Detector)

	if config.RebuildDetector() {
		if err := a.Detector.Rebuild(context.Background()); err != nil {
			return fmt.Errorf("failed to rebuild detector state, %w", err)
		}
	}

	a.Detector.StartSweeper(time.Minute)

	return nil
}

func (a *API) registerRoutes() {
	jwt := middleware.NewJWTMiddleware(a.DB)
	admin := middleware.RequireAdmin()
	authLimit := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: 5,
		Burst:             10,
	})
	maxUploadSize := viper.GetInt64("upload.max_size")

	main := a.Router.Group("/api")
	{
		// HEAD /api/heartbeat		-> Used to check if the server is alive
		main.HEAD("/heartbeat", func(c *gin.Context) { c.Status(http.StatusOK) })
	}

	auth := main.Group("/auth", authLimit, middleware.BodySizeLimiter(1<<20))
	{
		// POST /api/auth/register	-> Registers a new user
		auth.POST("/register", a.AuthRegister)

		// POST /api/auth/login		-> Logs in a user and returns a JWT token
		auth.POST("/login", a.AuthLogin)
	}

	files := main.Group("/files", jwt)
	{
		// POST /api/files/upload		-> Uploads a new encrypted file
		files.POST("/upload", middleware.BodySizeLimiter(maxUploadSize+1<<20), a.FileUpload)

		// GET /api/files/my-files		-> Lists the caller's own files
		files.GET("/my-files", a.FileList)

		// GET /api/files/preview/:fileID	-> Returns decrypted content for viewing
		files.GET("/preview/:fileID", a.FilePreview)

		// GET /api/files/download/:fileID	-> Returns decrypted content for download
		files.GET("/download/:fileID", a.FileDownload)

		// DELETE /api/files/delete-file	-> Deletes an owned file by name
		files.DELETE("/delete-file", a.FileDelete)
	}

	share := main.Group("/share", jwt)
	{
		// POST /api/share/share-file		-> Grants another user access to a file
		share.POST("/share-file", a.ShareCreate)

		// DELETE /api/share/revoke		-> Revokes a grant, no-op if absent
		share.DELETE("/revoke", a.ShareRevoke)

		// GET /api/share/shared-files		-> Files other users shared with the caller
		share.GET("/shared-files", a.ShareList)
	}

	adm := main.Group("/admin", jwt, admin)
	{
		// GET /api/admin/users			-> Lists non-admin users
		adm.GET("/users", a.AdminUsers)

		// GET /api/admin/search-users		-> Substring search over user emails
		adm.GET("/search-users", a.AdminSearchUsers)

		// GET /api/admin/stats			-> Upload/share rollups
		adm.GET("/stats", cacheFor(30), a.AdminStats)

		// GET /api/admin/activity-log		-> Filtered audit log pages
		adm.GET("/activity-log", a.AdminActivityLog)

		// GET /api/admin/user-activity		-> One user's audit timeline
		adm.GET("/user-activity", a.AdminUserActivity)

		// GET /api/admin/suspicious-activity	-> Aggregates over thresholds
		adm.GET("/suspicious-activity", a.AdminSuspiciousActivity)

		// PUT /api/admin/lock-user		-> Locks an account
		adm.PUT("/lock-user", a.AdminLockUser)

		// PUT /api/admin/unlock-user		-> Unlocks an account
		adm.PUT("/unlock-user", a.AdminUnlockUser)
	}
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()

	var level zapcore.Level
	if err := level.Set(viper.GetString("app.log_level")); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
