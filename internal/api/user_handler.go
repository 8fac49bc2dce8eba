package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cvstudio/internal/api/middleware"
	"cvstudio/internal/cv"
	"cvstudio/internal/database"
)

// UserHandler 负责后台的用户管理。
type UserHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewUserHandler 构造 UserHandler。
func NewUserHandler(db *gorm.DB, logger *slog.Logger) *UserHandler {
	return &UserHandler{db: db, logger: logger}
}

type adminUserResult struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

// List 返回全部用户（后台管理）。
func (h *UserHandler) List(c *gin.Context) {
	var users []database.User
	if err := h.db.WithContext(c.Request.Context()).Order("id").Find(&users).Error; err != nil {
		h.loggerFromContext(c).Error("list users failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	items := make([]adminUserResult, 0, len(users))
	for _, user := range users {
		items = append(items, adminUserResult{
			ID:        user.ID,
			Name:      user.Name,
			Email:     user.Email,
			Phone:     user.Phone,
			Role:      user.Role,
			Active:    user.Active,
			CreatedAt: user.CreatedAt.Format(time.RFC3339),
		})
	}
	Success(c, http.StatusOK, "Users retrieved successfully.", items)
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

// SetActive 启用或停用账号。停用后登录被拒绝（403）。
func (h *UserHandler) SetActive(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		NotFound(c, "User not found.")
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		ValidationFail(c, cv.Errors{"active": "This field is required."})
		return
	}

	ctx := c.Request.Context()
	var user database.User
	if err := h.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "User not found.")
			return
		}
		h.loggerFromContext(c).Error("load user failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	if err := h.db.WithContext(ctx).Model(&user).Update("active", *req.Active).Error; err != nil {
		h.loggerFromContext(c).Error("update user failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	h.loggerFromContext(c).Info("user active flag changed",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.Bool("active", *req.Active),
	)
	Success(c, http.StatusOK, "User updated successfully.", adminUserResult{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role,
		Active:    *req.Active,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	})
}

func (h *UserHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
