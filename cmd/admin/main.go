package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"cvstudio/internal/auth"
	"cvstudio/internal/config"
	"cvstudio/internal/database"
	"cvstudio/internal/render"
)

// 后台引导工具：迁移库表，播种内置模板与初始管理员账号。
// 幂等，可重复执行。
func main() {
	var (
		adminEmail    = flag.String("admin-email", "", "初始管理员邮箱（可选，默认读 ADMIN_EMAIL）")
		adminPassword = flag.String("admin-password", "", "初始管理员密码（可选，缺省随机生成并打印一次）")
	)
	flag.Parse()

	cfg := config.MustLoad()

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := db.AutoMigrate(&database.User{}, &database.Profile{}, &database.Template{}); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	if err := seedTemplates(db); err != nil {
		log.Fatalf("seed templates: %v", err)
	}

	email := strings.TrimSpace(*adminEmail)
	if email == "" {
		email = strings.TrimSpace(cfg.Auth.AdminEmail)
	}
	if email == "" {
		log.Println("no admin email configured, skipping admin account seed")
		return
	}

	password := strings.TrimSpace(*adminPassword)
	if password == "" {
		password = strings.TrimSpace(cfg.Auth.AdminPassword)
	}
	if err := seedAdmin(db, email, password); err != nil {
		log.Fatalf("seed admin: %v", err)
	}
}

// seedTemplates 播种两份内置模板；布局键在创建时由显示名派生。
func seedTemplates(db *gorm.DB) error {
	templates := []database.Template{
		{
			Name:        "Modern Professional",
			Description: "Clean single-column layout with a highlighted header.",
			IsActive:    true,
			IsDefault:   true,
		},
		{
			Name:        "Office Manager",
			Description: "Two-column layout with a dark sidebar.",
			IsActive:    true,
		},
	}

	for _, tmpl := range templates {
		tmpl.LayoutKey = render.SlugFromName(tmpl.Name)

		var existing database.Template
		switch err := db.Where("name = ?", tmpl.Name).First(&existing).Error; {
		case err == nil:
			continue
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := db.Create(&tmpl).Error; err != nil {
				return fmt.Errorf("create template %q: %w", tmpl.Name, err)
			}
			log.Printf("seeded template %q (layout %s)", tmpl.Name, tmpl.LayoutKey)
		default:
			return fmt.Errorf("query template %q: %w", tmpl.Name, err)
		}
	}
	return nil
}

// seedAdmin 创建初始管理员。密码缺省随机生成并仅打印一次。
func seedAdmin(db *gorm.DB, email, password string) error {
	var existing database.User
	switch err := db.Where("email = ?", email).First(&existing).Error; {
	case err == nil:
		log.Printf("admin account %q already exists, skipping", email)
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return fmt.Errorf("query admin: %w", err)
	}

	generated := false
	if password == "" {
		var err error
		password, err = generateRandomPassword(24)
		if err != nil {
			return fmt.Errorf("generate password: %w", err)
		}
		generated = true
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	admin := database.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hashed,
		Role:         database.RoleAdmin,
		Active:       true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	fmt.Printf("已创建初始管理员账号：\n")
	fmt.Printf("邮箱: %s\n", email)
	if generated {
		fmt.Printf("初始密码: %s\n", password)
		fmt.Printf("提示：请立即登录并修改密码（该密码仅显示一次）。\n")
	}
	return nil
}

func generateRandomPassword(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 24
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
