package repository

import (
	"ace_lms_backend/internal/model"

	"gorm.io/gorm"
)

type AchievementRepository struct {
	DB *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{DB: db}
}

type AchievementFilter struct {
	Type     model.AchievementType
	IsActive *bool
}

func (r *AchievementRepository) Create(a *model.Achievement) error {
	return r.DB.Create(a).Error
}

func (r *AchievementRepository) FindByID(id string) (*model.Achievement, error) {
	var a model.Achievement
	if err := r.DB.First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AchievementRepository) List(f AchievementFilter) ([]model.Achievement, error) {
	var list []model.Achievement
	q := r.DB.Model(&model.Achievement{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	err := q.Order("created_at asc").Find(&list).Error
	return list, err
}

func (r *AchievementRepository) Count() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Achievement{}).Count(&count).Error
	return count, err
}

func (r *AchievementRepository) FindUserAchievement(userID, achievementID string) (*model.UserAchievement, error) {
	var ua model.UserAchievement
	err := r.DB.Where("user_id = ? AND achievement_id = ?", userID, achievementID).First(&ua).Error
	if err != nil {
		return nil, err
	}
	return &ua, nil
}

func (r *AchievementRepository) CreateUserAchievement(ua *model.UserAchievement) error {
	return r.DB.Omit("Achievement").Create(ua).Error
}

func (r *AchievementRepository) SaveUserAchievement(ua *model.UserAchievement) error {
	return r.DB.Omit("Achievement").Save(ua).Error
}

func (r *AchievementRepository) FindUserAchievements(userID string) ([]model.UserAchievement, error) {
	var list []model.UserAchievement
	err := r.DB.Preload("Achievement").Where("user_id = ?", userID).Order("created_at desc").Find(&list).Error
	return list, err
}

// CountUnlocked 统计已解锁（进度达到 100%）的成就数
func (r *AchievementRepository) CountUnlocked(userID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.UserAchievement{}).
		Where("user_id = ? AND unlocked_at IS NOT NULL", userID).
		Count(&count).Error
	return count, err
}
