package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cvstudio/internal/api/middleware"
	"cvstudio/internal/cv"
	"cvstudio/internal/database"
	"cvstudio/internal/render"
	"cvstudio/internal/store"
)

// TemplateHandler 负责模板的公开列表与后台管理。
type TemplateHandler struct {
	templates *store.TemplateStore
	logger    *slog.Logger
}

// NewTemplateHandler 构造 TemplateHandler。
func NewTemplateHandler(templates *store.TemplateStore, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{templates: templates, logger: logger}
}

type templateResult struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	LayoutKey   string `json:"layout_key"`
	Preview     string `json:"preview,omitempty"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
	IsDefault   bool   `json:"is_default"`
}

func newTemplateResult(tmpl database.Template) templateResult {
	return templateResult{
		ID:          tmpl.ID,
		Name:        tmpl.Name,
		LayoutKey:   tmpl.LayoutKey,
		Preview:     tmpl.Preview,
		Description: tmpl.Description,
		IsActive:    tmpl.IsActive,
		IsDefault:   tmpl.IsDefault,
	}
}

// ListActive 返回全部激活模板（公开端点）。
func (h *TemplateHandler) ListActive(c *gin.Context) {
	templates, err := h.templates.ListActive(c.Request.Context())
	if err != nil {
		h.loggerFromContext(c).Error("list templates failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	items := make([]templateResult, 0, len(templates))
	for _, tmpl := range templates {
		items = append(items, newTemplateResult(tmpl))
	}
	Success(c, http.StatusOK, "Templates retrieved successfully.", items)
}

// List 返回全部模板，含未激活（后台管理）。
func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.templates.List(c.Request.Context())
	if err != nil {
		h.loggerFromContext(c).Error("list templates failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	items := make([]templateResult, 0, len(templates))
	for _, tmpl := range templates {
		items = append(items, newTemplateResult(tmpl))
	}
	Success(c, http.StatusOK, "Templates retrieved successfully.", items)
}

// Get 返回单个模板详情（后台管理）。
func (h *TemplateHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		NotFound(c, "Template not found.")
		return
	}

	tmpl, err := h.templates.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Template not found.")
			return
		}
		h.loggerFromContext(c).Error("load template failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	Success(c, http.StatusOK, "Template retrieved successfully.", newTemplateResult(tmpl))
}

type createTemplateRequest struct {
	Name        string  `json:"name"`
	LayoutKey   *string `json:"layout_key"`
	Preview     string  `json:"preview"`
	Description string  `json:"description"`
	IsActive    *bool   `json:"is_active"`
	IsDefault   bool    `json:"is_default"`
}

// Create 新建模板。布局键缺省时由显示名派生一次，之后改名不再
// 影响布局绑定。
func (h *TemplateHandler) Create(c *gin.Context) {
	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFail(c, cv.Errors{"body": "The request body must be valid JSON."})
		return
	}

	errs := cv.Errors{}
	if req.Name == "" {
		errs.Add("name", "This field is required.")
	}
	if len(errs) > 0 {
		ValidationFail(c, errs)
		return
	}

	tmpl := database.Template{
		Name:        req.Name,
		LayoutKey:   render.SlugFromName(req.Name),
		Preview:     req.Preview,
		Description: req.Description,
		IsActive:    true,
		IsDefault:   req.IsDefault,
	}
	if req.LayoutKey != nil && *req.LayoutKey != "" {
		tmpl.LayoutKey = *req.LayoutKey
	}
	if req.IsActive != nil {
		tmpl.IsActive = *req.IsActive
	}

	if err := h.templates.Create(c.Request.Context(), &tmpl); err != nil {
		h.loggerFromContext(c).Error("create template failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	Success(c, http.StatusCreated, "Template created successfully.", newTemplateResult(tmpl))
}

type updateTemplateRequest struct {
	Name        *string `json:"name"`
	LayoutKey   *string `json:"layout_key"`
	Preview     *string `json:"preview"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
	IsDefault   *bool   `json:"is_default"`
}

// Update 只更新提供的字段。改名不会重新派生布局键，布局绑定
// 仅随显式的 layout_key 变化。
func (h *TemplateHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		NotFound(c, "Template not found.")
		return
	}

	var req updateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFail(c, cv.Errors{"body": "The request body must be valid JSON."})
		return
	}
	if req.Name != nil && *req.Name == "" {
		ValidationFail(c, cv.Errors{"name": "This field is required."})
		return
	}

	ctx := c.Request.Context()
	tmpl, err := h.templates.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Template not found.")
			return
		}
		h.loggerFromContext(c).Error("load template failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	if req.Name != nil {
		tmpl.Name = *req.Name
	}
	if req.LayoutKey != nil && *req.LayoutKey != "" {
		tmpl.LayoutKey = *req.LayoutKey
	}
	if req.Preview != nil {
		tmpl.Preview = *req.Preview
	}
	if req.Description != nil {
		tmpl.Description = *req.Description
	}
	if req.IsActive != nil {
		tmpl.IsActive = *req.IsActive
	}
	if req.IsDefault != nil {
		tmpl.IsDefault = *req.IsDefault
	}

	if err := h.templates.Update(ctx, &tmpl); err != nil {
		h.loggerFromContext(c).Error("update template failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	Success(c, http.StatusOK, "Template updated successfully.", newTemplateResult(tmpl))
}

// SetDefault 将模板设为默认，其余默认位在同一事务中清除。
func (h *TemplateHandler) SetDefault(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		NotFound(c, "Template not found.")
		return
	}

	if err := h.templates.SetDefault(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Template not found.")
			return
		}
		h.loggerFromContext(c).Error("set default template failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	Success(c, http.StatusOK, "Default template updated successfully.", nil)
}

// Delete 软删除模板。
func (h *TemplateHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		NotFound(c, "Template not found.")
		return
	}

	if err := h.templates.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Template not found.")
			return
		}
		h.loggerFromContext(c).Error("delete template failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	Success(c, http.StatusOK, "Template deleted successfully.", nil)
}

func (h *TemplateHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
