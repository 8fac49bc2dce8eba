package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cvstudio/internal/api/middleware"
	"cvstudio/internal/auth"
	"cvstudio/internal/cv"
	"cvstudio/internal/database"
	"cvstudio/internal/errcode"
)

const resetTokenKeyPrefix = "auth:reset:"

// AuthHandler 处理注册、登录、注销与密码重置。
type AuthHandler struct {
	db                    *gorm.DB
	authService           *auth.AuthService
	redis                 redis.UniversalClient
	logger                *slog.Logger
	loginRateLimitPerHour int
	resetTokenTTL         time.Duration
	isProduction          bool
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(db *gorm.DB, authService *auth.AuthService, redisClient redis.UniversalClient, logger *slog.Logger, loginRateLimitPerHour int, resetTokenTTL time.Duration, isProduction bool) *AuthHandler {
	return &AuthHandler{
		db:                    db,
		authService:           authService,
		redis:                 redisClient,
		logger:                logger,
		loginRateLimitPerHour: loginRateLimitPerHour,
		resetTokenTTL:         resetTokenTTL,
		isProduction:          isProduction,
	}
}

type registerRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type userResult struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Register 创建新用户账号并签发访问令牌。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFail(c, cv.Errors{"body": "The request body must be valid JSON."})
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(slog.String("email", req.Email))

	errs := cv.Errors{}
	if strings.TrimSpace(req.Name) == "" {
		errs.Add("name", "This field is required.")
	}
	validateEmailField(errs, req.Email)
	validatePasswordField(errs, req.Password, req.PasswordConfirmation)
	if len(errs) > 0 {
		ValidationFail(c, errs)
		return
	}

	var existing database.User
	if err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&existing).Error; err == nil {
		errs.Add("email", "The email has already been taken.")
		ValidationFail(c, errs)
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("register lookup failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	user := database.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hashed,
		Role:         database.RoleUser,
		Active:       true,
	}
	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		logger.Error("create user failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	token, err := h.authService.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		logger.Error("generate token failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
	Success(c, http.StatusCreated, "User registered successfully.", gin.H{
		"user":  userResult{ID: user.ID, Name: user.Name, Email: user.Email},
		"token": token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login 校验口令并返回访问令牌。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFail(c, cv.Errors{"body": "The request body must be valid JSON."})
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(slog.String("email", req.Email))

	errs := cv.Errors{}
	validateEmailField(errs, req.Email)
	if req.Password == "" {
		errs.Add("password", "This field is required.")
	}
	if len(errs) > 0 {
		ValidationFail(c, errs)
		return
	}

	// 速率限制：每 IP+邮箱 每小时 N 次
	rateKey := "rate:login:" + c.ClientIP() + ":" + strings.ToLower(req.Email) + ":" + time.Now().UTC().Format("2006010215")
	count := countAttempt(ctx, h.redis, rateKey, time.Hour)
	if h.loginRateLimitPerHour > 0 && count > int64(h.loginRateLimitPerHour) {
		Fail(c, http.StatusTooManyRequests, errcode.RateLimited, "Too many login attempts. Please try again later.")
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("login failed: user not found")
			Unauthorized(c, "Invalid email or password.")
			return
		}
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	if !h.authService.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(user.ID)))
		Unauthorized(c, "Invalid email or password.")
		return
	}

	if !user.Active {
		logger.Info("login rejected: account inactive", slog.Uint64("user_id", uint64(user.ID)))
		Forbidden(c, "Your account is inactive. Please contact support.")
		return
	}

	token, err := h.authService.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		logger.Error("generate token failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	Success(c, http.StatusOK, "Login successful.", gin.H{
		"user":  userResult{ID: user.ID, Name: user.Name, Email: user.Email},
		"token": token,
	})
}

// Logout 将当前访问令牌按 jti 拉黑，直至其自然过期。
func (h *AuthHandler) Logout(c *gin.Context) {
	value, ok := c.Get("tokenClaims")
	claims, _ := value.(*auth.TokenClaims)
	if !ok || claims == nil || claims.ID == "" {
		AbortUnauthorized(c)
		return
	}

	ttl := h.authService.AccessTokenTTL()
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		ttl = time.Second
	}

	key := middleware.AccessTokenBlacklistKeyPrefix + claims.ID
	if err := h.redis.Set(c.Request.Context(), key, "revoked", ttl).Err(); err != nil {
		h.loggerFromContext(c).Error("logout revoke token failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	Success(c, http.StatusOK, "Logged out successfully.", nil)
}

// Me 返回当前登录用户的详情。
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var user database.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "User not found.")
			return
		}
		h.loggerFromContext(c).Error("load user failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	Success(c, http.StatusOK, "Authenticated user details.", gin.H{
		"user": gin.H{
			"id":         user.ID,
			"name":       user.Name,
			"email":      user.Email,
			"phone":      user.Phone,
			"role":       user.Role,
			"active":     user.Active,
			"created_at": user.CreatedAt.Format(time.RFC3339),
		},
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword 生成密码重置令牌并存入 Redis。
// 无论账号是否存在都返回同样的成功响应，不泄露账号存在性。
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFail(c, cv.Errors{"body": "The request body must be valid JSON."})
		return
	}

	errs := cv.Errors{}
	validateEmailField(errs, req.Email)
	if len(errs) > 0 {
		ValidationFail(c, errs)
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(slog.String("email", req.Email))

	var user database.User
	err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error
	switch {
	case err == nil:
		token := uuid.NewString()
		if err := h.storeResetToken(ctx, req.Email, token); err != nil {
			logger.Error("store reset token failed", slog.Any("error", err))
			Internal(c, "Unable to send password reset link.")
			return
		}
		logger.Info("password reset token issued", slog.Uint64("user_id", uint64(user.ID)))
		// 无邮件服务时开发环境直接回传令牌，生产环境只落日志
		if !h.isProduction {
			Success(c, http.StatusOK, "Password reset link sent to your email.", gin.H{"reset_token": token})
			return
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		logger.Info("password reset requested for unknown email")
	default:
		logger.Error("forgot password lookup failed", slog.Any("error", err))
		Internal(c, "Unable to send password reset link.")
		return
	}

	Success(c, http.StatusOK, "Password reset link sent to your email.", nil)
}

type resetPasswordRequest struct {
	Token                string `json:"token"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// ResetPassword 校验重置令牌并更新密码。
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFail(c, cv.Errors{"body": "The request body must be valid JSON."})
		return
	}

	errs := cv.Errors{}
	if req.Token == "" {
		errs.Add("token", "This field is required.")
	}
	validateEmailField(errs, req.Email)
	validatePasswordField(errs, req.Password, req.PasswordConfirmation)
	if len(errs) > 0 {
		ValidationFail(c, errs)
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(slog.String("email", req.Email))

	if !h.checkResetToken(ctx, req.Email, req.Token) {
		Fail(c, http.StatusBadRequest, errcode.Unauthorized, "Invalid or expired reset token.")
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Fail(c, http.StatusBadRequest, errcode.Unauthorized, "Invalid or expired reset token.")
			return
		}
		logger.Error("reset password lookup failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}
	if err := h.db.WithContext(ctx).Model(&user).Update("password_hash", hashed).Error; err != nil {
		logger.Error("update password failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	_ = h.redis.Del(ctx, resetTokenKeyPrefix+strings.ToLower(req.Email)).Err()

	logger.Info("password reset", slog.Uint64("user_id", uint64(user.ID)))
	Success(c, http.StatusOK, "Password reset successfully.", nil)
}

type verifyResetTokenRequest struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// VerifyResetToken 检查重置令牌是否仍然有效。
func (h *AuthHandler) VerifyResetToken(c *gin.Context) {
	var req verifyResetTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFail(c, cv.Errors{"body": "The request body must be valid JSON."})
		return
	}

	errs := cv.Errors{}
	if req.Token == "" {
		errs.Add("token", "This field is required.")
	}
	validateEmailField(errs, req.Email)
	if len(errs) > 0 {
		ValidationFail(c, errs)
		return
	}

	ctx := c.Request.Context()

	var user database.User
	if err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "User not found.")
			return
		}
		h.loggerFromContext(c).Error("verify reset token lookup failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	if !h.checkResetToken(ctx, req.Email, req.Token) {
		Fail(c, http.StatusBadRequest, errcode.Unauthorized, "Invalid or expired reset token.")
		return
	}

	Success(c, http.StatusOK, "Reset token is valid.", nil)
}

// storeResetToken 以 bcrypt 哈希形式保存令牌，TTL 到期自动失效。
func (h *AuthHandler) storeResetToken(ctx context.Context, email, token string) error {
	hashed, err := auth.HashPassword(token)
	if err != nil {
		return err
	}
	return h.redis.Set(ctx, resetTokenKeyPrefix+strings.ToLower(email), hashed, h.resetTokenTTL).Err()
}

func (h *AuthHandler) checkResetToken(ctx context.Context, email, token string) bool {
	hashed, err := h.redis.Get(ctx, resetTokenKeyPrefix+strings.ToLower(email)).Result()
	if err != nil {
		return false
	}
	return auth.CheckPasswordHash(token, hashed)
}

func (h *AuthHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

func validateEmailField(errs cv.Errors, email string) {
	if strings.TrimSpace(email) == "" {
		errs.Add("email", "This field is required.")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		errs.Add("email", "The email must be a valid email address.")
	}
}

func validatePasswordField(errs cv.Errors, password, confirmation string) {
	if password == "" {
		errs.Add("password", "This field is required.")
		return
	}
	if len(password) < 8 {
		errs.Add("password", "The password must be at least 8 characters.")
		return
	}
	// bcrypt 的输入上限
	if len(password) > 72 {
		errs.Add("password", "The password must not be greater than 72 characters.")
		return
	}
	if password != confirmation {
		errs.Add("password", "The password confirmation does not match.")
	}
}
