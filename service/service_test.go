package service

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"bitwise74/fileshare-api/db"
	"bitwise74/fileshare-api/model"
	"bitwise74/fileshare-api/pkg/security"
	"bitwise74/fileshare-api/storage"

	"github.com/spf13/viper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testKeyHex = "6368616e676520746869732070617373776f726420746f206120736563726574"

func TestMain(m *testing.M) {
	viper.Set("upload.max_size", int64(1<<20))
	viper.Set("share.require_registered", true)

	viper.Set("suspicious.failed_login.threshold", 3)
	viper.Set("suspicious.failed_login.window", "1h")
	viper.Set("suspicious.share.threshold", 5)
	viper.Set("suspicious.share.window", "1m")
	viper.Set("suspicious.upload.threshold", 100)
	viper.Set("suspicious.upload.window", "1m")
	viper.Set("suspicious.download.threshold", 200)
	viper.Set("suspicious.download.window", "1h")
	viper.Set("suspicious.delete.threshold", 20)
	viper.Set("suspicious.delete.window", "24h")

	os.Exit(m.Run())
}

var dbSeq atomic.Int64

// newTestDB opens a fresh in-memory database with the full schema. Each
// call gets its own namespace so parallel tests don't share state
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:svc%d?mode=memory&cache=shared", dbSeq.Add(1))

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Migrate(conn); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return conn
}

func mustUser(t *testing.T, conn *gorm.DB, id, email string, role model.Role) *model.User {
	t.Helper()

	u := &model.User{
		ID:           id,
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$dGVzdA$dGVzdA",
		Role:         role,
		CreatedAt:    time.Now().Unix(),
	}
	if err := conn.Create(u).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}

	return u
}

func testCipher(t *testing.T) *security.Cipher {
	t.Helper()

	c, err := security.NewCipher(testKeyHex)
	if err != nil {
		t.Fatalf("failed to build cipher: %v", err)
	}

	return c
}

// newFiles wires a Files service backed by the database blob store, with
// sharing and audit attached the same way the router does it
func newFiles(t *testing.T, conn *gorm.DB) (*Files, *Audit, *Sharing) {
	t.Helper()

	locks := NewFileLocks()
	audit := NewAudit(conn)
	sharing := NewSharing(conn, audit, locks)
	files := NewFiles(conn, storage.NewDBStore(conn), testCipher(t), audit, sharing, locks)

	return files, audit, sharing
}
