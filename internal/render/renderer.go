package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"cvstudio/internal/cv"
	"cvstudio/internal/database"
	"cvstudio/internal/metrics"
)

// 渲染失败的分类。调用方据此区分“运维该修配置”与“环境缺依赖”。
var (
	// ErrLayoutNotFound：模板行存在但布局未注册，属于服务端配置错误。
	ErrLayoutNotFound = errors.New("layout not found")
	// ErrRenderProcess：无头浏览器子进程启动或导出失败，属于运行环境错误。
	ErrRenderProcess = errors.New("pdf render process failed")
)

// Engine 将 HTML 渲染为 PDF 字节。生产实现是 go-rod 无头浏览器，
// 测试用假引擎替换，避免依赖 Chromium。
type Engine interface {
	RenderHTML(html string) ([]byte, error)
}

// EngineFunc 让普通函数充当 Engine。
type EngineFunc func(html string) ([]byte, error)

// RenderHTML 实现 Engine。
func (f EngineFunc) RenderHTML(html string) ([]byte, error) { return f(html) }

// ObjectStore 是持久化输出所需的最小对象存储接口。
type ObjectStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
}

// Renderer 负责 Profile + Template 到 PDF 的编排：
// 查布局 → 出站映射合入模板 → 子进程渲染 → 流式返回或持久化返回 URL。
type Renderer struct {
	registry *Registry
	engine   Engine
	store    ObjectStore
	urlTTL   time.Duration
}

// NewRenderer 构造渲染编排器。store 可为 nil，此时仅支持流式输出。
func NewRenderer(registry *Registry, engine Engine, store ObjectStore, urlTTL time.Duration) *Renderer {
	if urlTTL <= 0 {
		urlTTL = 7 * 24 * time.Hour
	}
	return &Renderer{
		registry: registry,
		engine:   engine,
		store:    store,
		urlTTL:   urlTTL,
	}
}

// RenderPDF 渲染单份简历并返回 PDF 字节与下载文件名。
// 模板是否激活由上游仓储保证，此处只认布局键。
func (r *Renderer) RenderPDF(profile database.Profile, template database.Template) ([]byte, string, error) {
	start := time.Now()

	layout, ok := r.registry.Lookup(template.LayoutKey)
	if !ok {
		metrics.ObserveRender(template.LayoutKey, "layout_missing", time.Since(start))
		return nil, "", fmt.Errorf("%w: key %q (template %d %q)",
			ErrLayoutNotFound, template.LayoutKey, template.ID, template.Name)
	}

	data := cv.FormatProfileResponse(profile)

	var html bytes.Buffer
	if err := layout.Execute(&html, map[string]any{"CV": data}); err != nil {
		metrics.ObserveRender(template.LayoutKey, "layout_error", time.Since(start))
		return nil, "", fmt.Errorf("execute layout %q: %w", template.LayoutKey, err)
	}

	pdfBytes, err := r.engine.RenderHTML(html.String())
	if err != nil {
		metrics.ObserveRender(template.LayoutKey, "process_error", time.Since(start))
		return nil, "", fmt.Errorf("%w: %v", ErrRenderProcess, err)
	}

	metrics.ObserveRender(template.LayoutKey, "ok", time.Since(start))
	return pdfBytes, DownloadFilename(data.UserData), nil
}

// RenderToURL 渲染并持久化到对象存储，返回限时可取回的 URL。
// 对象名按调用生成，UUID 保证无碰撞；未实现清理策略。
func (r *Renderer) RenderToURL(ctx context.Context, profile database.Profile, template database.Template) (string, error) {
	if r.store == nil {
		return "", errors.New("object store is not configured")
	}

	pdfBytes, _, err := r.RenderPDF(profile, template)
	if err != nil {
		return "", err
	}

	objectName := fmt.Sprintf("cvs/%s.pdf", uuid.NewString())
	reader := bytes.NewReader(pdfBytes)
	if _, err := r.store.UploadFile(ctx, objectName, reader, int64(len(pdfBytes)), "application/pdf"); err != nil {
		return "", fmt.Errorf("store rendered pdf: %w", err)
	}

	url, err := r.store.GeneratePresignedURL(ctx, objectName, r.urlTTL)
	if err != nil {
		return "", fmt.Errorf("presign rendered pdf: %w", err)
	}
	return url, nil
}

// DownloadFilename 按 {firstName}_{lastName}.pdf 派生下载文件名，
// 缺失部分回退为 CV/Resume。
func DownloadFilename(userData cv.UserData) string {
	first := "CV"
	if userData.FirstName != nil && *userData.FirstName != "" {
		first = *userData.FirstName
	}
	last := "Resume"
	if userData.LastName != nil && *userData.LastName != "" {
		last = *userData.LastName
	}
	return first + "_" + last + ".pdf"
}
