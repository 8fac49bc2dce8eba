package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cvstudio/internal/api/middleware"
	"cvstudio/internal/database"
	"cvstudio/internal/errcode"
	"cvstudio/internal/store"
)

// newAdminRouter 装配模板路由，后台分组挂真实的 AdminOnly 门禁，
// 身份由注入的 userID/userRole 模拟。
func newAdminRouter(db *gorm.DB, userID uint, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	handler := NewTemplateHandler(store.NewTemplateStore(db), nil)

	router.GET("/v1/templates", handler.ListActive)

	admin := router.Group("/v1/admin", func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("userRole", role)
		c.Next()
	}, middleware.AdminOnly())
	admin.GET("/templates", handler.List)
	admin.POST("/templates", handler.Create)
	admin.GET("/templates/:id", handler.Get)
	admin.PUT("/templates/:id", handler.Update)
	admin.DELETE("/templates/:id", handler.Delete)
	admin.POST("/templates/:id/default", handler.SetDefault)
	return router
}

func adminRequest(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeTemplateResult(t *testing.T, env envelope) templateResult {
	t.Helper()
	var result templateResult
	if err := json.Unmarshal(env.Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return result
}

func TestAdminOnlyRejectsNonAdminRole(t *testing.T) {
	db := newTestDB(t)
	router := newAdminRouter(db, 1, database.RoleUser)

	rec := adminRequest(t, router, http.MethodGet, "/v1/admin/templates", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 (body %s)", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Message != "Administrator access required." {
		t.Errorf("message = %q", env.Message)
	}
	if env.Code != errcode.Forbidden {
		t.Errorf("code = %d, want %d", env.Code, errcode.Forbidden)
	}
}

func TestAdminCreateInactiveTemplateStaysHidden(t *testing.T) {
	db := newTestDB(t)
	router := newAdminRouter(db, 1, database.RoleAdmin)

	rec := adminRequest(t, router, http.MethodPost, "/v1/admin/templates",
		`{"name": "Draft Layout", "is_active": false}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	created := decodeTemplateResult(t, decodeEnvelope(t, rec))
	if created.IsActive {
		t.Fatal("template created with is_active=false reported active")
	}
	if created.LayoutKey != "draft-layout" {
		t.Errorf("layout_key = %q, want derived draft-layout", created.LayoutKey)
	}

	var reloaded database.Template
	if err := db.First(&reloaded, created.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.IsActive {
		t.Fatal("template created with is_active=false was persisted as active")
	}

	// 公开列表不含未激活模板
	public := adminRequest(t, router, http.MethodGet, "/v1/templates", "")
	if public.Code != http.StatusOK {
		t.Fatalf("public list status = %d", public.Code)
	}
	var items []templateResult
	if err := json.Unmarshal(decodeEnvelope(t, public).Result, &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("public list = %+v, want empty", items)
	}

	// 后台列表包含
	all := adminRequest(t, router, http.MethodGet, "/v1/admin/templates", "")
	if err := json.Unmarshal(decodeEnvelope(t, all).Result, &items); err != nil {
		t.Fatalf("decode admin list: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("admin list = %+v, want the draft template", items)
	}
}

func TestAdminUpdateRenameKeepsLayoutKey(t *testing.T) {
	db := newTestDB(t)
	router := newAdminRouter(db, 1, database.RoleAdmin)

	rec := adminRequest(t, router, http.MethodPost, "/v1/admin/templates", `{"name": "Modern Professional"}`)
	created := decodeTemplateResult(t, decodeEnvelope(t, rec))

	update := adminRequest(t, router, http.MethodPut,
		fmt.Sprintf("/v1/admin/templates/%d", created.ID),
		`{"name": "Modern Professional v2", "is_active": false}`)
	if update.Code != http.StatusOK {
		t.Fatalf("update status = %d (body %s)", update.Code, update.Body.String())
	}
	updated := decodeTemplateResult(t, decodeEnvelope(t, update))
	if updated.Name != "Modern Professional v2" {
		t.Errorf("name = %q", updated.Name)
	}
	// 改名不重新派生布局键
	if updated.LayoutKey != "modern-professional" {
		t.Errorf("layout_key = %q, want unchanged modern-professional", updated.LayoutKey)
	}
	if updated.IsActive {
		t.Error("is_active=false not applied")
	}
}

func TestAdminSetDefaultKeepsSingleDefault(t *testing.T) {
	db := newTestDB(t)
	router := newAdminRouter(db, 1, database.RoleAdmin)

	first := decodeTemplateResult(t, decodeEnvelope(t,
		adminRequest(t, router, http.MethodPost, "/v1/admin/templates", `{"name": "A", "is_default": true}`)))
	if !first.IsDefault {
		t.Fatal("first template not created as default")
	}
	second := decodeTemplateResult(t, decodeEnvelope(t,
		adminRequest(t, router, http.MethodPost, "/v1/admin/templates", `{"name": "B"}`)))

	rec := adminRequest(t, router, http.MethodPost,
		fmt.Sprintf("/v1/admin/templates/%d/default", second.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("set default status = %d (body %s)", rec.Code, rec.Body.String())
	}

	var defaults []database.Template
	if err := db.Where("is_default = ?", true).Find(&defaults).Error; err != nil {
		t.Fatalf("query defaults: %v", err)
	}
	if len(defaults) != 1 || defaults[0].ID != second.ID {
		t.Fatalf("defaults = %+v, want only template %d", defaults, second.ID)
	}

	missing := adminRequest(t, router, http.MethodPost, "/v1/admin/templates/9999/default", "")
	if missing.Code != http.StatusNotFound {
		t.Errorf("missing template status = %d, want 404", missing.Code)
	}
}

func TestAdminDeleteTemplate(t *testing.T) {
	db := newTestDB(t)
	router := newAdminRouter(db, 1, database.RoleAdmin)

	created := decodeTemplateResult(t, decodeEnvelope(t,
		adminRequest(t, router, http.MethodPost, "/v1/admin/templates", `{"name": "Short Lived"}`)))

	rec := adminRequest(t, router, http.MethodDelete,
		fmt.Sprintf("/v1/admin/templates/%d", created.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d (body %s)", rec.Code, rec.Body.String())
	}

	gone := adminRequest(t, router, http.MethodGet,
		fmt.Sprintf("/v1/admin/templates/%d", created.ID), "")
	if gone.Code != http.StatusNotFound {
		t.Errorf("status after delete = %d, want 404", gone.Code)
	}

	again := adminRequest(t, router, http.MethodDelete,
		fmt.Sprintf("/v1/admin/templates/%d", created.ID), "")
	if again.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", again.Code)
	}
}
