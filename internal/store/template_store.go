package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"cvstudio/internal/database"
)

// TemplateStore 封装模板的数据库访问。
type TemplateStore struct {
	db *gorm.DB
}

// NewTemplateStore 构造 TemplateStore。
func NewTemplateStore(db *gorm.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// Get 按主键加载模板，不限定激活状态（后台管理使用）。
func (s *TemplateStore) Get(ctx context.Context, id uint) (database.Template, error) {
	var tmpl database.Template
	err := s.db.WithContext(ctx).First(&tmpl, id).Error
	return tmpl, err
}

// GetActive 按主键加载模板，且必须处于激活状态。
// 不存在与未激活不可区分，均返回 gorm.ErrRecordNotFound。
func (s *TemplateStore) GetActive(ctx context.Context, id uint) (database.Template, error) {
	var tmpl database.Template
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&tmpl).Error
	return tmpl, err
}

// DefaultActive 返回默认模板；没有默认时回退到任意一个激活模板。
func (s *TemplateStore) DefaultActive(ctx context.Context) (database.Template, error) {
	var tmpl database.Template
	err := s.db.WithContext(ctx).
		Where("is_default = ? AND is_active = ?", true, true).
		First(&tmpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.WithContext(ctx).
			Where("is_active = ?", true).
			Order("id").
			First(&tmpl).Error
	}
	return tmpl, err
}

// List 返回全部模板（后台管理使用）。
func (s *TemplateStore) List(ctx context.Context) ([]database.Template, error) {
	var templates []database.Template
	if err := s.db.WithContext(ctx).Order("id").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// ListActive 返回全部激活模板（公开列表使用）。
func (s *TemplateStore) ListActive(ctx context.Context) ([]database.Template, error) {
	var templates []database.Template
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id").
		Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list active templates: %w", err)
	}
	return templates, nil
}

// Create 持久化一个新模板。若模板被标记为默认，在同一事务中
// 先清除其他默认位，保证默认模板唯一。
func (s *TemplateStore) Create(ctx context.Context, tmpl *database.Template) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tmpl.IsDefault {
			if err := tx.Model(&database.Template{}).
				Where("is_default = ?", true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(tmpl).Error
	})
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// Update 保存已修改的模板，默认位唯一性与 Create 同样在事务内维护。
func (s *TemplateStore) Update(ctx context.Context, tmpl *database.Template) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tmpl.IsDefault {
			if err := tx.Model(&database.Template{}).
				Where("is_default = ? AND id <> ?", true, tmpl.ID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Save(tmpl).Error
	})
	if err != nil {
		return fmt.Errorf("update template %d: %w", tmpl.ID, err)
	}
	return nil
}

// SetDefault 将指定模板设为默认，并在同一事务中清除其他默认位。
func (s *TemplateStore) SetDefault(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tmpl database.Template
		if err := tx.First(&tmpl, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&database.Template{}).
			Where("is_default = ? AND id <> ?", true, id).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&tmpl).Update("is_default", true).Error
	})
}

// Delete 软删除模板。
func (s *TemplateStore) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&database.Template{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete template %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
