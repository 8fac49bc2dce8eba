package render

import (
	"embed"
	"fmt"
	"html/template"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed templates/*.html
var layoutFS embed.FS

// Registry 保存布局键到 HTML 模板的映射。
// 布局键在模板创建时写入 Template.LayoutKey，渲染阶段只做查表，
// 不再从可变的模板名现场派生。
type Registry struct {
	layouts map[string]*template.Template
}

// NewRegistry 解析所有内嵌布局，以文件名（去扩展名）作为布局键。
func NewRegistry() (*Registry, error) {
	entries, err := layoutFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read layout dir: %w", err)
	}

	layouts := make(map[string]*template.Template, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		tmpl, err := template.New(name).Funcs(layoutFuncs).ParseFS(layoutFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse layout %q: %w", name, err)
		}
		key := strings.TrimSuffix(name, filepath.Ext(name))
		layouts[key] = tmpl
	}

	return &Registry{layouts: layouts}, nil
}

// Lookup 返回布局键对应的模板。
func (r *Registry) Lookup(key string) (*template.Template, bool) {
	tmpl, ok := r.layouts[key]
	return tmpl, ok
}

// Keys 返回全部已注册的布局键（有序）。
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.layouts))
	for key := range r.layouts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// SlugFromName 将模板显示名转换为默认布局键（小写、空格转连字符）。
// 仅在模板创建/更新时调用一次，结果落库。
func SlugFromName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
}

var layoutFuncs = template.FuncMap{
	// 解引用可空文本字段，nil 渲染为空串
	"str": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}
