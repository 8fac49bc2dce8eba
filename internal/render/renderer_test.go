package render

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cvstudio/internal/cv"
	"cvstudio/internal/database"
)

// fakeObjectStore 记录上传的对象名，避免测试依赖 MinIO。
type fakeObjectStore struct {
	uploadedName string
	uploadedSize int64
	uploadErr    error
	presignErr   error
}

func (f *fakeObjectStore) UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploadedName = objectName
	f.uploadedSize = size
	return &minio.UploadInfo{Key: objectName, Size: size}, nil
}

func (f *fakeObjectStore) GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://storage.example.com/" + objectKey + "?signed=1", nil
}

func newTestProfile(info string) database.Profile {
	return database.Profile{
		Model:    gorm.Model{ID: 1},
		Name:     "My CV",
		Language: "en",
		Info:     datatypes.JSON([]byte(info)),
	}
}

func mustRegistry(t *testing.T) *Registry {
	t.Helper()
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return registry
}

func TestRegistryContainsSeededLayouts(t *testing.T) {
	registry := mustRegistry(t)

	for _, key := range []string{"modern-professional", "office-manager"} {
		if _, ok := registry.Lookup(key); !ok {
			t.Errorf("layout %q not registered, have %v", key, registry.Keys())
		}
	}
}

func TestRenderPDFStreamsEngineOutput(t *testing.T) {
	registry := mustRegistry(t)

	var gotHTML string
	engine := EngineFunc(func(html string) ([]byte, error) {
		gotHTML = html
		return []byte("%PDF-fake"), nil
	})
	renderer := NewRenderer(registry, engine, nil, 0)

	profile := newTestProfile(`{"firstName":"Jane","lastName":"Doe","jobTitle":"Engineer"}`)
	tmpl := database.Template{Model: gorm.Model{ID: 3}, Name: "Modern Professional", LayoutKey: "modern-professional"}

	pdfBytes, filename, err := renderer.RenderPDF(profile, tmpl)
	if err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	if !bytes.Equal(pdfBytes, []byte("%PDF-fake")) {
		t.Errorf("unexpected pdf bytes %q", pdfBytes)
	}
	if filename != "Jane_Doe.pdf" {
		t.Errorf("filename = %q, want Jane_Doe.pdf", filename)
	}
	if !strings.Contains(gotHTML, "Jane") || !strings.Contains(gotHTML, "Engineer") {
		t.Errorf("rendered html missing profile fields")
	}
}

func TestRenderPDFUnknownLayoutKey(t *testing.T) {
	registry := mustRegistry(t)
	engine := EngineFunc(func(string) ([]byte, error) {
		t.Fatal("engine must not run when the layout is missing")
		return nil, nil
	})
	renderer := NewRenderer(registry, engine, nil, 0)

	tmpl := database.Template{Model: gorm.Model{ID: 9}, Name: "Ghost", LayoutKey: "ghost"}
	if _, _, err := renderer.RenderPDF(newTestProfile(`{}`), tmpl); !errors.Is(err, ErrLayoutNotFound) {
		t.Fatalf("err = %v, want ErrLayoutNotFound", err)
	}
}

func TestRenderPDFEngineFailure(t *testing.T) {
	registry := mustRegistry(t)
	engine := EngineFunc(func(string) ([]byte, error) {
		return nil, errors.New("exec: chromium: not found")
	})
	renderer := NewRenderer(registry, engine, nil, 0)

	tmpl := database.Template{LayoutKey: "modern-professional"}
	if _, _, err := renderer.RenderPDF(newTestProfile(`{}`), tmpl); !errors.Is(err, ErrRenderProcess) {
		t.Fatalf("err = %v, want ErrRenderProcess", err)
	}
}

func TestRenderToURLUploadsAndPresigns(t *testing.T) {
	registry := mustRegistry(t)
	engine := EngineFunc(func(string) ([]byte, error) { return []byte("%PDF-fake"), nil })
	store := &fakeObjectStore{}
	renderer := NewRenderer(registry, engine, store, time.Hour)

	tmpl := database.Template{LayoutKey: "office-manager"}
	url, err := renderer.RenderToURL(context.Background(), newTestProfile(`{"firstName":"Jane"}`), tmpl)
	if err != nil {
		t.Fatalf("RenderToURL: %v", err)
	}
	if !strings.HasPrefix(store.uploadedName, "cvs/") || !strings.HasSuffix(store.uploadedName, ".pdf") {
		t.Errorf("object name = %q, want cvs/<uuid>.pdf", store.uploadedName)
	}
	if store.uploadedSize != int64(len("%PDF-fake")) {
		t.Errorf("uploaded size = %d", store.uploadedSize)
	}
	if !strings.Contains(url, store.uploadedName) {
		t.Errorf("url %q does not reference uploaded object %q", url, store.uploadedName)
	}
}

func TestRenderToURLWithoutStore(t *testing.T) {
	registry := mustRegistry(t)
	engine := EngineFunc(func(string) ([]byte, error) { return []byte("%PDF-fake"), nil })
	renderer := NewRenderer(registry, engine, nil, 0)

	tmpl := database.Template{LayoutKey: "office-manager"}
	if _, err := renderer.RenderToURL(context.Background(), newTestProfile(`{}`), tmpl); err == nil {
		t.Fatal("expected error when object store is not configured")
	}
}

func TestDownloadFilename(t *testing.T) {
	first, last := "Jane", "Doe"
	cases := []struct {
		name string
		data cv.UserData
		want string
	}{
		{"both names", cv.UserData{FirstName: &first, LastName: &last}, "Jane_Doe.pdf"},
		{"missing last", cv.UserData{FirstName: &first}, "Jane_Resume.pdf"},
		{"missing first", cv.UserData{LastName: &last}, "CV_Doe.pdf"},
		{"empty profile", cv.UserData{}, "CV_Resume.pdf"},
	}
	for _, tc := range cases {
		if got := DownloadFilename(tc.data); got != tc.want {
			t.Errorf("%s: DownloadFilename = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestSlugFromName(t *testing.T) {
	cases := map[string]string{
		"Modern Professional": "modern-professional",
		"Office Manager":      "office-manager",
		"  Spaced  ":          "spaced",
		"already-slugged":     "already-slugged",
	}
	for name, want := range cases {
		if got := SlugFromName(name); got != want {
			t.Errorf("SlugFromName(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestAllLayoutsExecuteWithFullProfile(t *testing.T) {
	registry := mustRegistry(t)

	info := `{"firstName":"Jane","lastName":"Doe","jobTitle":"Engineer","email":"jane@example.com",` +
		`"phone":"+10000000","address":"Berlin","portfolioUrl":"https://jane.dev","summary":"Builder.",` +
		`"birthdate":"1990-01","skills":[{"name":"Go"}]}`
	profile := newTestProfile(info)
	profile.Experiences = datatypes.JSON([]byte(`[{"position":"Dev","name":"Acme","from":"2020-01","to":null,"currentlyWorkingHere":true}]`))
	profile.Projects = datatypes.JSON([]byte(`[{"name":"CLI","url":"https://example.com","from":"2021-02","to":"2021-06"}]`))
	profile.Educations = datatypes.JSON([]byte(`[{"institution":"MIT","degree":"BSc","from":"2010-09","to":"2014-06"}]`))
	profile.Languages = datatypes.JSON([]byte(`[{"language":"English","level":"native"}]`))
	profile.Interests = datatypes.JSON([]byte(`[{"interest":"Chess"}]`))

	data := cv.FormatProfileResponse(profile)
	for _, key := range registry.Keys() {
		layout, _ := registry.Lookup(key)
		var html bytes.Buffer
		if err := layout.Execute(&html, map[string]any{"CV": data}); err != nil {
			t.Errorf("layout %q: execute failed: %v", key, err)
			continue
		}
		for _, needle := range []string{"Jane", "Doe", "Acme", "Chess", "English"} {
			if !strings.Contains(html.String(), needle) {
				t.Errorf("layout %q: output missing %q", key, needle)
			}
		}
	}
}
