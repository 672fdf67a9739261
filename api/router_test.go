package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

const testMasterKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	viper.Set("db.driver", "sqlite")
	viper.Set("storage.type", "db")
	viper.Set("jwt.secret", "test-secret")
	viper.Set("security.master_key", testMasterKey)
	viper.Set("upload.max_size", int64(1<<20))
	viper.Set("share.require_registered", true)
	viper.Set("app.admin_emails", []string{"root@x.com"})

	viper.Set("suspicious.failed_login.threshold", 3)
	viper.Set("suspicious.failed_login.window", "1h")
	viper.Set("suspicious.share.threshold", 50)
	viper.Set("suspicious.share.window", "1m")
	viper.Set("suspicious.upload.threshold", 100)
	viper.Set("suspicious.upload.window", "1m")
	viper.Set("suspicious.download.threshold", 200)
	viper.Set("suspicious.download.window", "1h")
	viper.Set("suspicious.delete.threshold", 20)
	viper.Set("suspicious.delete.window", "24h")

	os.Exit(m.Run())
}

var apiSeq atomic.Int64

// newTestAPI spins up the full router against a private in-memory
// database. Tests that use it must not run in parallel, the database DSN
// goes through shared configuration
func newTestAPI(t *testing.T) *API {
	t.Helper()

	viper.Set("db.dsn", fmt.Sprintf("file:api%d?mode=memory&cache=shared", apiSeq.Add(1)))

	a, err := NewRouter()
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}

	return a
}

func doJSON(t *testing.T, a *API, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

func register(t *testing.T, a *API, email, password string) {
	t.Helper()

	w := doJSON(t, a, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    email,
		"password": password,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: got %d, body %s", email, w.Code, w.Body)
	}
}

func login(t *testing.T, a *API, email, password string) string {
	t.Helper()

	w := doJSON(t, a, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    email,
		"password": password,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: got %d, body %s", email, w.Code, w.Body)
	}

	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatalf("login %s returned no token", email)
	}

	return resp.AccessToken
}

func upload(t *testing.T, a *API, token, name string, content []byte) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload %s: got %d, body %s", name, w.Code, w.Body)
	}
}

func TestHeartbeat(t *testing.T) {
	a := newTestAPI(t)

	w := doJSON(t, a, http.MethodHead, "/api/heartbeat", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", w.Code)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	a := newTestAPI(t)

	register(t, a, "new@x.com", "hunter2hunter2")

	// Same email again must conflict
	w := doJSON(t, a, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "New@X.com",
		"password": "hunter2hunter2",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register: got %d, want 409", w.Code)
	}

	w = doJSON(t, a, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "new@x.com",
		"password": "wrong password",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password login: got %d, want 401", w.Code)
	}

	login(t, a, "new@x.com", "hunter2hunter2")
}

func TestFileSharingFlow(t *testing.T) {
	a := newTestAPI(t)

	register(t, a, "owner@x.com", "ownerpass123")
	register(t, a, "friend@x.com", "friendpass123")

	ownerTok := login(t, a, "owner@x.com", "ownerpass123")
	friendTok := login(t, a, "friend@x.com", "friendpass123")

	content := []byte("quarterly numbers")
	upload(t, a, ownerTok, "report.txt", content)

	// Until shared, the friend sees nothing
	w := doJSON(t, a, http.MethodGet, "/api/share/shared-files", friendTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("shared-files: got %d", w.Code)
	}

	w = doJSON(t, a, http.MethodPost, "/api/share/share-file", ownerTok, gin.H{
		"fileName":   "report.txt",
		"email":      "friend@x.com",
		"permission": "view",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("share-file: got %d, body %s", w.Code, w.Body)
	}

	// Sharing with an unregistered address is refused
	w = doJSON(t, a, http.MethodPost, "/api/share/share-file", ownerTok, gin.H{
		"fileName":   "report.txt",
		"email":      "nobody@x.com",
		"permission": "view",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("share to stranger: got %d, want 404", w.Code)
	}

	var list struct {
		Files []struct {
			FileID uint   `json:"file_id"`
			Name   string `json:"name"`
		} `json:"files"`
	}
	w = doJSON(t, a, http.MethodGet, "/api/share/shared-files", friendTok, nil)
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to decode shared files: %v", err)
	}
	if len(list.Files) != 1 || list.Files[0].Name != "report.txt" {
		t.Fatalf("unexpected shared files %+v", list.Files)
	}

	fileID := list.Files[0].FileID
	previewPath := fmt.Sprintf("/api/files/preview/%d", fileID)
	downloadPath := fmt.Sprintf("/api/files/download/%d", fileID)

	w = doJSON(t, a, http.MethodGet, previewPath, friendTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("friend preview: got %d, body %s", w.Code, w.Body)
	}
	if !bytes.Equal(w.Body.Bytes(), content) {
		t.Fatalf("preview returned wrong content %q", w.Body)
	}

	// View-only grant must not allow downloading
	w = doJSON(t, a, http.MethodGet, downloadPath, friendTok, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("friend download: got %d, want 403", w.Code)
	}

	w = doJSON(t, a, http.MethodGet, downloadPath, ownerTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("owner download: got %d", w.Code)
	}

	// Revoke, then the friend is locked out again
	w = doJSON(t, a, http.MethodDelete, "/api/share/revoke", ownerTok, gin.H{
		"fileName": "report.txt",
		"email":    "friend@x.com",
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("revoke: got %d", w.Code)
	}

	w = doJSON(t, a, http.MethodGet, previewPath, friendTok, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("post-revoke preview: got %d, want 403", w.Code)
	}

	w = doJSON(t, a, http.MethodDelete, "/api/files/delete-file?file_name=report.txt", ownerTok, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete-file: got %d", w.Code)
	}
}

func TestFailedLoginsAutoLockAndAdminUnlock(t *testing.T) {
	a := newTestAPI(t)

	register(t, a, "root@x.com", "rootpass1234")
	register(t, a, "target@x.com", "targetpass12")

	// Three bad passwords cross the configured threshold
	for range 3 {
		w := doJSON(t, a, http.MethodPost, "/api/auth/login", "", gin.H{
			"email":    "target@x.com",
			"password": "not the password",
		})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("bad login: got %d, want 401", w.Code)
		}
	}

	// The lock lands asynchronously, wait for the correct password to
	// start bouncing. Polling stays slow so the auth rate limit isn't
	// exhausted by the test itself
	deadline := time.Now().Add(5 * time.Second)
	for {
		w := doJSON(t, a, http.MethodPost, "/api/auth/login", "", gin.H{
			"email":    "target@x.com",
			"password": "targetpass12",
		})
		if w.Code == http.StatusUnauthorized && strings.Contains(w.Body.String(), "locked") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("account never auto-locked, last status %d", w.Code)
		}
		time.Sleep(200 * time.Millisecond)
	}

	adminTok := login(t, a, "root@x.com", "rootpass1234")

	w := doJSON(t, a, http.MethodPut, "/api/admin/unlock-user?email=target@x.com", adminTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unlock-user: got %d, body %s", w.Code, w.Body)
	}

	// An unlocked account with correct credentials logs straight back in,
	// old aggregates must not re-lock it
	login(t, a, "target@x.com", "targetpass12")
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	a := newTestAPI(t)

	register(t, a, "root@x.com", "rootpass1234")
	register(t, a, "pleb@x.com", "plebpass1234")

	adminTok := login(t, a, "root@x.com", "rootpass1234")
	plebTok := login(t, a, "pleb@x.com", "plebpass1234")

	w := doJSON(t, a, http.MethodGet, "/api/admin/users", plebTok, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("non-admin users: got %d, want 403", w.Code)
	}

	w = doJSON(t, a, http.MethodGet, "/api/admin/users", adminTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin users: got %d", w.Code)
	}

	var users struct {
		Users []struct {
			Email string `json:"email"`
		} `json:"users"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &users); err != nil {
		t.Fatalf("failed to decode users: %v", err)
	}
	if len(users.Users) != 1 || users.Users[0].Email != "pleb@x.com" {
		t.Fatalf("admin accounts must not be listed, got %+v", users.Users)
	}

	w = doJSON(t, a, http.MethodGet, "/api/admin/search-users?query=PLEB", adminTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search-users: got %d", w.Code)
	}

	w = doJSON(t, a, http.MethodGet, "/api/admin/stats", adminTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: got %d", w.Code)
	}

	w = doJSON(t, a, http.MethodGet, "/api/admin/activity-log?action=login", adminTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("activity-log: got %d", w.Code)
	}

	w = doJSON(t, a, http.MethodGet, "/api/admin/activity-log?action=teleport", adminTok, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad action filter: got %d, want 400", w.Code)
	}

	w = doJSON(t, a, http.MethodGet, "/api/admin/suspicious-activity", adminTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("suspicious-activity: got %d", w.Code)
	}

	w = doJSON(t, a, http.MethodGet, "/api/admin/user-activity", adminTok, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("user-activity without email: got %d, want 400", w.Code)
	}
}

func TestLockedUserIsRejectedEverywhere(t *testing.T) {
	a := newTestAPI(t)

	register(t, a, "root@x.com", "rootpass1234")
	register(t, a, "frozen@x.com", "frozenpass12")

	adminTok := login(t, a, "root@x.com", "rootpass1234")
	frozenTok := login(t, a, "frozen@x.com", "frozenpass12")

	w := doJSON(t, a, http.MethodPut, "/api/admin/lock-user?email=frozen@x.com", adminTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("lock-user: got %d", w.Code)
	}

	// The still-valid token is useless while the account is locked
	w = doJSON(t, a, http.MethodGet, "/api/files/my-files", frozenTok, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("locked my-files: got %d, want 403", w.Code)
	}

	// Locked logins read the same as bad credentials to the caller
	w = doJSON(t, a, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "frozen@x.com",
		"password": "frozenpass12",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("locked login: got %d, want 401", w.Code)
	}

	// The rejected attempt still lands in the activity log
	w = doJSON(t, a, http.MethodGet, "/api/admin/activity-log?action=failed_login&email=frozen@x.com", adminTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("activity-log: got %d, body %s", w.Code, w.Body)
	}
	if !strings.Contains(w.Body.String(), "account locked") {
		t.Fatalf("locked login denial missing from activity log, body %s", w.Body)
	}
}
