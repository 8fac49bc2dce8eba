package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"cvstudio/internal/database"
)

// ProfileStore 封装简历档案的数据库访问。
// 查不到记录时透传 gorm.ErrRecordNotFound，由调用方映射为 404。
type ProfileStore struct {
	db *gorm.DB
}

// NewProfileStore 构造 ProfileStore。
func NewProfileStore(db *gorm.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Create 持久化一份新的档案。
func (s *ProfileStore) Create(ctx context.Context, profile *database.Profile) error {
	if err := s.db.WithContext(ctx).Create(profile).Error; err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// GetForUser 按主键加载档案，并限定归属用户。
// 不存在与归属他人不可区分，均返回 gorm.ErrRecordNotFound。
func (s *ProfileStore) GetForUser(ctx context.Context, id, userID uint) (database.Profile, error) {
	var profile database.Profile
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&profile).Error
	return profile, err
}

// Get 按主键加载档案，不限定归属（匿名打印持久档案时使用）。
func (s *ProfileStore) Get(ctx context.Context, id uint) (database.Profile, error) {
	var profile database.Profile
	err := s.db.WithContext(ctx).First(&profile, id).Error
	return profile, err
}

// Update 保存已套用更新的档案。合并语义由调用方通过
// cv.ApplyToProfile 完成，未提供的列不会被改写。
func (s *ProfileStore) Update(ctx context.Context, profile *database.Profile) error {
	if err := s.db.WithContext(ctx).Save(profile).Error; err != nil {
		return fmt.Errorf("update profile %d: %w", profile.ID, err)
	}
	return nil
}

// SoftDelete 软删除档案，行保留 deleted_at。
func (s *ProfileStore) SoftDelete(ctx context.Context, profile *database.Profile) error {
	if err := s.db.WithContext(ctx).Delete(profile).Error; err != nil {
		return fmt.Errorf("delete profile %d: %w", profile.ID, err)
	}
	return nil
}

// ListForUser 返回用户的全部档案，language 非空时按语言过滤。
func (s *ProfileStore) ListForUser(ctx context.Context, userID uint, language string) ([]database.Profile, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if language != "" {
		query = query.Where("language = ?", language)
	}

	var profiles []database.Profile
	if err := query.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("list profiles for user %d: %w", userID, err)
	}
	return profiles, nil
}
