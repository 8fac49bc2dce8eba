package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cvstudio/internal/api/middleware"
	"cvstudio/internal/cv"
	"cvstudio/internal/database"
	"cvstudio/internal/errcode"
	"cvstudio/internal/render"
	"cvstudio/internal/store"
)

const msgCVNotFound = "CV not found or you do not have permission to access it."

var allowedLanguages = map[string]bool{"en": true, "ar": true, "tr": true}

// CVHandler 负责简历档案的 CRUD 与 PDF 打印。
type CVHandler struct {
	profiles     *store.ProfileStore
	templates    *store.TemplateStore
	renderer     *render.Renderer
	logger       *slog.Logger
	isProduction bool
}

// NewCVHandler 构造 CVHandler。
func NewCVHandler(profiles *store.ProfileStore, templates *store.TemplateStore, renderer *render.Renderer, logger *slog.Logger, isProduction bool) *CVHandler {
	return &CVHandler{
		profiles:     profiles,
		templates:    templates,
		renderer:     renderer,
		logger:       logger,
		isProduction: isProduction,
	}
}

type storeCVRequest struct {
	Name          *string      `json:"name"`
	Language      *string      `json:"language"`
	SectionsOrder []string     `json:"sections_order"`
	UserData      *cv.UserData `json:"user_data"`
	TemplateID    *uint        `json:"template_id"`
	UserID        *uint        `json:"user_id"`
	ReturnURL     bool         `json:"return_url"`
}

// Index 列出当前用户的全部简历，支持 ?language= 过滤。
func (h *CVHandler) Index(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	profiles, err := h.profiles.ListForUser(c.Request.Context(), userID, c.Query("language"))
	if err != nil {
		h.loggerFromContext(c).Error("list profiles failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	cvs := make([]cv.ProfileResponse, 0, len(profiles))
	for _, profile := range profiles {
		cvs = append(cvs, cv.FormatProfileResponse(profile))
	}
	Success(c, http.StatusOK, "CVs retrieved successfully.", cvs)
}

// Store 保存一份新简历。匿名请求带 template_id 时不落库，
// 直接按临时档案渲染 PDF（与打印端点共用流程）。
func (h *CVHandler) Store(c *gin.Context) {
	var req storeCVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFail(c, cv.Errors{"body": "The request body must be valid JSON."})
		return
	}

	userID, authed := userIDFromContext(c)

	if !authed && req.TemplateID != nil {
		errs := validateLanguage(req.Language)
		for key, msg := range cv.ValidateUserData("user_data", req.UserData, false) {
			errs.Add(key, msg)
		}
		if len(errs) > 0 {
			ValidationFail(c, errs)
			return
		}
		profile := h.buildTransientProfile(nil, req.Name, req.Language, req.SectionsOrder, req.UserData)
		h.renderProfile(c, profile, *req.TemplateID, req.ReturnURL)
		return
	}

	errs := validateLanguage(req.Language)
	if req.Name == nil || *req.Name == "" {
		errs.Add("name", "This field is required.")
	}
	for key, msg := range cv.ValidateUserData("user_data", req.UserData, false) {
		errs.Add(key, msg)
	}
	if len(errs) > 0 {
		ValidationFail(c, errs)
		return
	}

	var owner *uint
	if authed {
		owner = &userID
	} else {
		owner = req.UserID
	}

	profile := h.buildTransientProfile(owner, req.Name, req.Language, req.SectionsOrder, req.UserData)
	if err := h.profiles.Create(c.Request.Context(), &profile); err != nil {
		h.loggerFromContext(c).Error("create profile failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	Success(c, http.StatusCreated, "CV created successfully.", cv.FormatProfileResponse(profile))
}

// Show 返回一份属于当前用户的简历。
func (h *CVHandler) Show(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		NotFound(c, msgCVNotFound)
		return
	}

	profile, err := h.profiles.GetForUser(c.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, msgCVNotFound)
			return
		}
		h.loggerFromContext(c).Error("load profile failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	Success(c, http.StatusOK, "CV retrieved successfully.", cv.FormatProfileResponse(profile))
}

type updateCVRequest struct {
	Name          *string      `json:"name"`
	Language      *string      `json:"language"`
	SectionsOrder []string     `json:"sections_order"`
	UserData      *cv.UserData `json:"user_data"`
}

// Update 只更新提供的字段；提供的空集合会清空对应分区。
func (h *CVHandler) Update(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		NotFound(c, msgCVNotFound)
		return
	}

	var req updateCVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFail(c, cv.Errors{"body": "The request body must be valid JSON."})
		return
	}

	errs := validateLanguage(req.Language)
	if req.Name != nil && *req.Name == "" {
		errs.Add("name", "This field is required.")
	}
	for key, msg := range cv.ValidateUserData("user_data", req.UserData, false) {
		errs.Add(key, msg)
	}
	if len(errs) > 0 {
		ValidationFail(c, errs)
		return
	}

	ctx := c.Request.Context()
	profile, err := h.profiles.GetForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, msgCVNotFound)
			return
		}
		h.loggerFromContext(c).Error("load profile failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	if req.Name != nil {
		profile.Name = *req.Name
	}
	if req.Language != nil {
		profile.Language = *req.Language
	}
	if req.SectionsOrder != nil {
		profile.SectionsOrder = cv.EncodeSectionsOrder(req.SectionsOrder)
	}
	if req.UserData != nil {
		cv.ApplyToProfile(cv.MapUserDataToProfile(req.UserData), &profile)
	}

	if err := h.profiles.Update(ctx, &profile); err != nil {
		h.loggerFromContext(c).Error("update profile failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	Success(c, http.StatusOK, "CV updated successfully.", cv.FormatProfileResponse(profile))
}

// Destroy 软删除一份属于当前用户的简历。
func (h *CVHandler) Destroy(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		NotFound(c, msgCVNotFound)
		return
	}

	ctx := c.Request.Context()
	profile, err := h.profiles.GetForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, msgCVNotFound)
			return
		}
		h.loggerFromContext(c).Error("load profile failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	if err := h.profiles.SoftDelete(ctx, &profile); err != nil {
		h.loggerFromContext(c).Error("delete profile failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}

	Success(c, http.StatusOK, "CV deleted successfully.", nil)
}

type printCVRequest struct {
	ProfileID     *uint        `json:"profile_id"`
	TemplateID    *uint        `json:"template_id"`
	Name          *string      `json:"name"`
	Language      *string      `json:"language"`
	SectionsOrder []string     `json:"sections_order"`
	UserData      *cv.UserData `json:"user_data"`
	ReturnURL     bool         `json:"return_url"`
}

// Print 渲染 PDF：指定 profile_id 时使用已存档案（登录用户仅限
// 自己的档案），否则由 user_data 构造临时档案。template_id 缺省
// 回退到默认模板。return_url 为 true 时持久化并返回限时链接，
// 否则直接以附件流式返回。
func (h *CVHandler) Print(c *gin.Context) {
	var req printCVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFail(c, cv.Errors{"body": "The request body must be valid JSON."})
		return
	}

	ctx := c.Request.Context()
	userID, authed := userIDFromContext(c)

	errs := validateLanguage(req.Language)
	if req.ProfileID == nil && req.UserData == nil {
		errs.Add("user_data", "This field is required when profile_id is not present.")
	}
	// user_data 提供时 firstName/lastName 必填
	for key, msg := range cv.ValidateUserData("user_data", req.UserData, req.UserData != nil) {
		errs.Add(key, msg)
	}

	var tmpl database.Template
	var tmplErr error
	if req.TemplateID != nil {
		tmpl, tmplErr = h.templates.GetActive(ctx, *req.TemplateID)
	} else {
		tmpl, tmplErr = h.templates.DefaultActive(ctx)
		if errors.Is(tmplErr, gorm.ErrRecordNotFound) {
			errs.Add("template_id", "This field is required.")
		}
	}

	if len(errs) > 0 {
		ValidationFail(c, errs)
		return
	}

	if tmplErr != nil {
		if errors.Is(tmplErr, gorm.ErrRecordNotFound) {
			NotFound(c, "Template not found or inactive.")
			return
		}
		h.loggerFromContext(c).Error("load template failed", slog.Any("error", tmplErr))
		Internal(c, "Internal server error.")
		return
	}

	var profile database.Profile
	if req.ProfileID != nil {
		var err error
		if authed {
			profile, err = h.profiles.GetForUser(ctx, *req.ProfileID, userID)
		} else {
			profile, err = h.profiles.Get(ctx, *req.ProfileID)
		}
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				NotFound(c, msgCVNotFound)
				return
			}
			h.loggerFromContext(c).Error("load profile failed", slog.Any("error", err))
			Internal(c, "Internal server error.")
			return
		}
	} else {
		var owner *uint
		if authed {
			owner = &userID
		}
		profile = h.buildTransientProfile(owner, req.Name, req.Language, req.SectionsOrder, req.UserData)
	}

	h.renderTemplate(c, profile, tmpl, req.ReturnURL)
}

// renderProfile 按模板 ID 渲染（匿名直出 PDF 的建档分支使用）。
func (h *CVHandler) renderProfile(c *gin.Context, profile database.Profile, templateID uint, returnURL bool) {
	tmpl, err := h.templates.GetActive(c.Request.Context(), templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Template not found or inactive.")
			return
		}
		h.loggerFromContext(c).Error("load template failed", slog.Any("error", err))
		Internal(c, "Internal server error.")
		return
	}
	h.renderTemplate(c, profile, tmpl, returnURL)
}

func (h *CVHandler) renderTemplate(c *gin.Context, profile database.Profile, tmpl database.Template, returnURL bool) {
	logger := h.loggerFromContext(c).With(
		slog.Uint64("template_id", uint64(tmpl.ID)),
		slog.String("layout_key", tmpl.LayoutKey),
	)

	if returnURL {
		url, err := h.renderer.RenderToURL(c.Request.Context(), profile, tmpl)
		if err != nil {
			h.failRender(c, logger, err)
			return
		}
		Success(c, http.StatusOK, "CV rendered successfully.", gin.H{"url": url})
		return
	}

	pdfBytes, filename, err := h.renderer.RenderPDF(profile, tmpl)
	if err != nil {
		h.failRender(c, logger, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// failRender 将渲染错误映射到错误分类：布局缺失是配置问题，
// 子进程失败是环境问题，其余细节在生产环境不外露。
func (h *CVHandler) failRender(c *gin.Context, logger *slog.Logger, err error) {
	logger.Error("pdf generation failed", slog.Any("error", err))

	switch {
	case errors.Is(err, render.ErrLayoutNotFound):
		Fail(c, http.StatusInternalServerError, errcode.ConfigError,
			"PDF generation failed: Template view not found. Please check server configuration.")
	case errors.Is(err, render.ErrRenderProcess):
		Fail(c, http.StatusInternalServerError, errcode.RenderError,
			"PDF generation failed: PDF generation process failed. Please ensure Chrome/Chromium is installed on the server.")
	default:
		message := "PDF generation failed"
		if h.isProduction {
			message += ". Please contact support if this issue persists."
		} else {
			message += ": " + err.Error()
		}
		Fail(c, http.StatusInternalServerError, errcode.SystemError, message)
	}
}

// buildTransientProfile 构造一份未落库的档案模型，建档与临时打印共用。
func (h *CVHandler) buildTransientProfile(owner *uint, name, language *string, sectionsOrder []string, userData *cv.UserData) database.Profile {
	profile := database.Profile{
		UserID:   owner,
		Name:     "CV",
		Language: "en",
	}
	if name != nil && *name != "" {
		profile.Name = *name
	}
	if language != nil && *language != "" {
		profile.Language = *language
	}
	if sectionsOrder != nil {
		profile.SectionsOrder = cv.EncodeSectionsOrder(sectionsOrder)
	}
	cv.ApplyToProfile(cv.MapUserDataToProfile(userData), &profile)
	return profile
}

func (h *CVHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

func validateLanguage(language *string) cv.Errors {
	errs := cv.Errors{}
	if language != nil && *language != "" && !allowedLanguages[*language] {
		errs.Add("language", "The selected language is invalid.")
	}
	return errs
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}
