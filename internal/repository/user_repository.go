package repository

import (
	"ace_lms_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id string) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Exists(id string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) FindByIDs(ids []string) ([]model.User, error) {
	var users []model.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *UserRepository) UpdateLastLogin(id string, at time.Time) error {
	return r.DB.Model(&model.User{}).Where("id = ?", id).Update("last_login", at).Error
}
