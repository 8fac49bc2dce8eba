package api

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cvstudio/internal/api/middleware"
	"cvstudio/internal/auth"
	"cvstudio/internal/database"
	"cvstudio/internal/errcode"
)

// fakeRedis 只实现认证流程用到的命令（Get/Set/Incr/Expire/Del），
// 其余方法落到内嵌的 nil 接口上，误用即 panic。
type fakeRedis struct {
	redis.UniversalClient

	mu       sync.Mutex
	values   map[string]string
	counters map[string]int64
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		values:   map[string]string{},
		counters: map[string]int64{},
	}
}

func (r *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	if value, ok := r.values[key]; ok {
		return redis.NewStringResult(value, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (r *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (r *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[key]++
	return redis.NewIntResult(r.counters[key], nil)
}

func (r *fakeRedis) Expire(_ context.Context, _ string, _ time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func (r *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for _, key := range keys {
		if _, ok := r.values[key]; ok {
			delete(r.values, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func newTestAuthService(t *testing.T) *auth.AuthService {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	service, err := auth.NewAuthService(privPEM, pubPEM, time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return service
}

// newAuthRouter 装配认证路由。loginLimit 控制每小时登录尝试上限。
func newAuthRouter(db *gorm.DB, service *auth.AuthService, rdb redis.UniversalClient, loginLimit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	handler := NewAuthHandler(db, service, rdb, nil, loginLimit, time.Hour, false)
	authRequired := middleware.AuthMiddleware(service, rdb)

	group := router.Group("/v1/auth")
	group.POST("/register", handler.Register)
	group.POST("/login", handler.Login)
	group.POST("/forgot-password", handler.ForgotPassword)
	group.POST("/reset-password", handler.ResetPassword)
	group.POST("/reset-token", handler.VerifyResetToken)
	group.POST("/logout", authRequired, handler.Logout)
	group.GET("/me", authRequired, handler.Me)
	return router
}

func seedUser(t *testing.T, db *gorm.DB, email, password string, active bool) database.User {
	t.Helper()
	hashed, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := database.User{
		Name:         "Jane Doe",
		Email:        email,
		PasswordHash: hashed,
		Role:         database.RoleUser,
		Active:       active,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func authedRequest(t *testing.T, router *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func tokenFromResult(t *testing.T, env envelope) string {
	t.Helper()
	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Token == "" {
		t.Fatal("result carries no token")
	}
	return result.Token
}

func TestRegisterIssuesUsableToken(t *testing.T) {
	db := newTestDB(t)
	router := newAuthRouter(db, newTestAuthService(t), newFakeRedis(), 10)

	rec := postJSON(t, router, "/v1/auth/register", `{
		"name": "Jane Doe",
		"email": "jane@example.com",
		"password": "super-secret-1",
		"password_confirmation": "super-secret-1"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	token := tokenFromResult(t, decodeEnvelope(t, rec))

	me := authedRequest(t, router, http.MethodGet, "/v1/auth/me", "", token)
	if me.Code != http.StatusOK {
		t.Fatalf("me status = %d, want 200 (body %s)", me.Code, me.Body.String())
	}
	if env := decodeEnvelope(t, me); env.Message != "Authenticated user details." {
		t.Errorf("message = %q", env.Message)
	}
}

func TestLoginInactiveAccountForbidden(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "jane@example.com", "super-secret-1", false)

	// 停用标记必须原样落库，模型带 default 标签时会丢失 false
	var reloaded database.User
	if err := db.First(&reloaded, user.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Active {
		t.Fatal("user seeded inactive was persisted as active")
	}

	router := newAuthRouter(db, newTestAuthService(t), newFakeRedis(), 10)
	rec := postJSON(t, router, "/v1/auth/login", `{"email": "jane@example.com", "password": "super-secret-1"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 (body %s)", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Message != "Your account is inactive. Please contact support." {
		t.Errorf("message = %q", env.Message)
	}
	if env.Code != errcode.Forbidden {
		t.Errorf("code = %d, want %d", env.Code, errcode.Forbidden)
	}
}

func TestLoginRateLimited(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "jane@example.com", "super-secret-1", true)
	router := newAuthRouter(db, newTestAuthService(t), newFakeRedis(), 3)

	body := `{"email": "jane@example.com", "password": "wrong-password"}`
	for i := 0; i < 3; i++ {
		rec := postJSON(t, router, "/v1/auth/login", body)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i+1, rec.Code)
		}
	}

	rec := postJSON(t, router, "/v1/auth/login", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 (body %s)", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Code != errcode.RateLimited {
		t.Errorf("code = %d, want %d", env.Code, errcode.RateLimited)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "jane@example.com", "super-secret-1", true)
	router := newAuthRouter(db, newTestAuthService(t), newFakeRedis(), 10)

	// 用户不存在与口令错误的响应一致
	for _, body := range []string{
		`{"email": "nobody@example.com", "password": "super-secret-1"}`,
		`{"email": "jane@example.com", "password": "wrong-password"}`,
	} {
		rec := postJSON(t, router, "/v1/auth/login", body)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401 (body %s)", rec.Code, rec.Body.String())
		}
		if env := decodeEnvelope(t, rec); env.Message != "Invalid email or password." {
			t.Errorf("message = %q", env.Message)
		}
	}
}

func TestForgotPasswordDoesNotRevealAccounts(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "jane@example.com", "super-secret-1", true)
	router := newAuthRouter(db, newTestAuthService(t), newFakeRedis(), 10)

	var messages []string
	for _, email := range []string{"jane@example.com", "nobody@example.com"} {
		rec := postJSON(t, router, "/v1/auth/forgot-password", fmt.Sprintf(`{"email": %q}`, email))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200 (body %s)", email, rec.Code, rec.Body.String())
		}
		messages = append(messages, decodeEnvelope(t, rec).Message)
	}
	if messages[0] != messages[1] {
		t.Errorf("messages differ, account existence leaks: %q vs %q", messages[0], messages[1])
	}
}

func TestResetPasswordFlow(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "jane@example.com", "super-secret-1", true)
	router := newAuthRouter(db, newTestAuthService(t), newFakeRedis(), 10)

	rec := postJSON(t, router, "/v1/auth/forgot-password", `{"email": "jane@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot status = %d (body %s)", rec.Code, rec.Body.String())
	}
	var result struct {
		ResetToken string `json:"reset_token"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, rec).Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.ResetToken == "" {
		t.Fatal("non-production forgot-password must return the reset token")
	}

	verify := postJSON(t, router, "/v1/auth/reset-token",
		fmt.Sprintf(`{"email": "jane@example.com", "token": %q}`, result.ResetToken))
	if verify.Code != http.StatusOK {
		t.Fatalf("verify status = %d (body %s)", verify.Code, verify.Body.String())
	}

	bad := postJSON(t, router, "/v1/auth/reset-password",
		`{"email": "jane@example.com", "token": "not-the-token", "password": "new-secret-123", "password_confirmation": "new-secret-123"}`)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("bad token status = %d, want 400 (body %s)", bad.Code, bad.Body.String())
	}

	reset := postJSON(t, router, "/v1/auth/reset-password",
		fmt.Sprintf(`{"email": "jane@example.com", "token": %q, "password": "new-secret-123", "password_confirmation": "new-secret-123"}`, result.ResetToken))
	if reset.Code != http.StatusOK {
		t.Fatalf("reset status = %d (body %s)", reset.Code, reset.Body.String())
	}

	// 旧口令失效，新口令生效
	if rec := postJSON(t, router, "/v1/auth/login", `{"email": "jane@example.com", "password": "super-secret-1"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("old password status = %d, want 401", rec.Code)
	}
	if rec := postJSON(t, router, "/v1/auth/login", `{"email": "jane@example.com", "password": "new-secret-123"}`); rec.Code != http.StatusOK {
		t.Errorf("new password status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestLogoutBlacklistsAccessToken(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "jane@example.com", "super-secret-1", true)
	router := newAuthRouter(db, newTestAuthService(t), newFakeRedis(), 10)

	login := postJSON(t, router, "/v1/auth/login", `{"email": "jane@example.com", "password": "super-secret-1"}`)
	if login.Code != http.StatusOK {
		t.Fatalf("login status = %d (body %s)", login.Code, login.Body.String())
	}
	token := tokenFromResult(t, decodeEnvelope(t, login))

	if rec := authedRequest(t, router, http.MethodGet, "/v1/auth/me", "", token); rec.Code != http.StatusOK {
		t.Fatalf("me before logout status = %d", rec.Code)
	}

	if rec := authedRequest(t, router, http.MethodPost, "/v1/auth/logout", "", token); rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d (body %s)", rec.Code, rec.Body.String())
	}

	// 注销后同一令牌在自然过期前被黑名单拒绝
	if rec := authedRequest(t, router, http.MethodGet, "/v1/auth/me", "", token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout status = %d, want 401", rec.Code)
	}
}
