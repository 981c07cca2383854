package repository

import (
	"ace_lms_backend/internal/model"

	"gorm.io/gorm"
)

type LevelRepository struct {
	DB *gorm.DB
}

func NewLevelRepository(db *gorm.DB) *LevelRepository {
	return &LevelRepository{DB: db}
}

func (r *LevelRepository) Create(l *model.Level) error {
	return r.DB.Create(l).Error
}

func (r *LevelRepository) FindByID(id string) (*model.Level, error) {
	var l model.Level
	if err := r.DB.First(&l, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LevelRepository) FindByNumber(number int) (*model.Level, error) {
	var l model.Level
	if err := r.DB.Where("number = ?", number).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LevelRepository) List() ([]model.Level, error) {
	var list []model.Level
	err := r.DB.Order("number asc").Find(&list).Error
	return list, err
}

func (r *LevelRepository) Count() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Level{}).Count(&count).Error
	return count, err
}
