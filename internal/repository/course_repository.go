package repository

import (
	"ace_lms_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

type CourseFilter struct {
	Status  model.CourseStatus
	Level   model.CourseLevel
	College model.College
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) FindByID(id string) (*model.Course, error) {
	var course model.Course
	if err := r.DB.First(&course, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) Exists(id string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Course{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *CourseRepository) List(f CourseFilter) ([]model.Course, error) {
	var courses []model.Course
	q := r.DB.Model(&model.Course{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Level != "" {
		q = q.Where("level = ?", f.Level)
	}
	if f.College != "" {
		q = q.Where("college = ?", f.College)
	}
	err := q.Order("created_at desc").Find(&courses).Error
	return courses, err
}
