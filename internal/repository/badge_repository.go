package repository

import (
	"ace_lms_backend/internal/model"

	"gorm.io/gorm"
)

type BadgeRepository struct {
	DB *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: db}
}

type BadgeFilter struct {
	Category model.BadgeCategory
	Tier     model.BadgeTier
	IsActive *bool
}

func (r *BadgeRepository) Create(b *model.Badge) error {
	return r.DB.Create(b).Error
}

func (r *BadgeRepository) FindByID(id string) (*model.Badge, error) {
	var b model.Badge
	if err := r.DB.First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BadgeRepository) FindByName(name string) (*model.Badge, error) {
	var b model.Badge
	if err := r.DB.Where("name = ?", name).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BadgeRepository) List(f BadgeFilter) ([]model.Badge, error) {
	var list []model.Badge
	q := r.DB.Model(&model.Badge{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Tier != "" {
		q = q.Where("tier = ?", f.Tier)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	err := q.Order("created_at asc").Find(&list).Error
	return list, err
}

func (r *BadgeRepository) UpdateIcon(id, icon string) error {
	return r.DB.Model(&model.Badge{}).Where("id = ?", id).Update("icon", icon).Error
}

func (r *BadgeRepository) Count() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Badge{}).Count(&count).Error
	return count, err
}

func (r *BadgeRepository) UserHasBadge(userID, badgeID string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.UserBadge{}).Where("user_id = ? AND badge_id = ?", userID, badgeID).Count(&count).Error
	return count > 0, err
}

func (r *BadgeRepository) CreateUserBadge(ub *model.UserBadge) error {
	return r.DB.Omit("Badge").Create(ub).Error
}

func (r *BadgeRepository) FindUserBadges(userID string) ([]model.UserBadge, error) {
	var list []model.UserBadge
	err := r.DB.Preload("Badge").Where("user_id = ?", userID).Order("awarded_at desc").Find(&list).Error
	return list, err
}

func (r *BadgeRepository) CountUserBadges(userID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.UserBadge{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *BadgeRepository) DisplayedBadgeIDs(userID string) ([]string, error) {
	var ids []string
	err := r.DB.Model(&model.UserBadge{}).
		Where("user_id = ? AND is_displayed = ?", userID, true).
		Order("awarded_at asc").
		Pluck("badge_id", &ids).Error
	return ids, err
}
