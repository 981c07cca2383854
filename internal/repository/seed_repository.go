package repository

import (
	"ace_lms_backend/internal/model"

	"gorm.io/gorm"
)

type SeedRepository struct {
	DB *gorm.DB
}

func NewSeedRepository(db *gorm.DB) *SeedRepository {
	return &SeedRepository{DB: db}
}

func (r *SeedRepository) FindMarker(name string) (*model.SeedMarker, error) {
	var m model.SeedMarker
	if err := r.DB.First(&m, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *SeedRepository) SaveMarker(m *model.SeedMarker) error {
	return r.DB.Save(m).Error
}
