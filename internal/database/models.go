package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 用户角色。
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Name         string    `gorm:"size:255"`
	Email        string    `gorm:"uniqueIndex;size:255"`
	Phone        string    `gorm:"size:50"`
	PasswordHash string    `gorm:"size:255"`
	Role         string    `gorm:"size:16;default:user"`
	// 不能带 default 标签：GORM 会把零值 false 从 INSERT 中剔除，
	// 停用状态会被默认值覆盖。默认激活由写入方显式赋值。
	Active bool
	Profiles     []Profile `gorm:"constraint:OnDelete:CASCADE"`
}

// IsAdmin 判断账号是否为管理员。
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Profile 表示一份简历档案。
// 六个半结构化分区以 JSONB 存储，字段命名采用存储侧（内部）约定；
// API 侧的字段名差异由 internal/cv 的映射层负责。
type Profile struct {
	gorm.Model
	UserID        *uint          `gorm:"index"` // 允许匿名创建，临时档案不落库
	Name          string         `gorm:"size:255"`
	Language      string         `gorm:"size:10;default:en"`
	SectionsOrder datatypes.JSON `gorm:"type:jsonb"`
	Info          datatypes.JSON `gorm:"type:jsonb"`
	Interests     datatypes.JSON `gorm:"type:jsonb"`
	Languages     datatypes.JSON `gorm:"type:jsonb"`
	Experiences   datatypes.JSON `gorm:"type:jsonb"`
	Projects      datatypes.JSON `gorm:"type:jsonb"`
	Educations    datatypes.JSON `gorm:"type:jsonb"`
}

// Template 表示可供选择的简历视觉模板。
// LayoutKey 在创建模板时确定，渲染阶段凭它查找布局实现，
// 不再从可变的 Name 派生。
type Template struct {
	gorm.Model
	Name        string `gorm:"size:255"`
	LayoutKey   string `gorm:"size:255;index"`
	Preview     string `gorm:"size:512"`
	Description string `gorm:"size:1024"`
	// 同 User.Active：带 default 标签时零值 false 不会写入。
	IsActive  bool
	IsDefault bool
}
