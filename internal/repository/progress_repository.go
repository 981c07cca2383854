package repository

import (
	"ace_lms_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) FindProgress(userID, requirementID string) (*model.UserProgress, error) {
	var p model.UserProgress
	err := r.DB.Where("user_id = ? AND requirement_id = ?", userID, requirementID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProgressRepository) SaveProgress(p *model.UserProgress) error {
	return r.DB.Save(p).Error
}

func (r *ProgressRepository) FindProgressByUser(userID string) ([]model.UserProgress, error) {
	var list []model.UserProgress
	err := r.DB.Where("user_id = ?", userID).Order("updated_at desc").Find(&list).Error
	return list, err
}

func (r *ProgressRepository) FindProgressForRequirements(userID string, requirementIDs []string) ([]model.UserProgress, error) {
	var list []model.UserProgress
	if len(requirementIDs) == 0 {
		return list, nil
	}
	err := r.DB.Where("user_id = ? AND requirement_id IN ?", userID, requirementIDs).Find(&list).Error
	return list, err
}

func (r *ProgressRepository) FindUserCertification(userID, certificationID string) (*model.UserCertification, error) {
	var uc model.UserCertification
	err := r.DB.Where("user_id = ? AND certification_id = ?", userID, certificationID).First(&uc).Error
	if err != nil {
		return nil, err
	}
	return &uc, nil
}

func (r *ProgressRepository) SaveUserCertification(uc *model.UserCertification) error {
	return r.DB.Omit("Certification").Save(uc).Error
}

func (r *ProgressRepository) CertificateNumberExists(number string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.UserCertification{}).Where("certificate_number = ?", number).Count(&count).Error
	return count > 0, err
}

func (r *ProgressRepository) FindUserCertifications(userID string) ([]model.UserCertification, error) {
	var list []model.UserCertification
	err := r.DB.Preload("Certification").
		Where("user_id = ?", userID).
		Order("completion_percentage desc").
		Find(&list).Error
	return list, err
}

// MarkExpiredCertifications 将已过有效期的证书标记为过期，返回影响行数
func (r *ProgressRepository) MarkExpiredCertifications(now time.Time) (int64, error) {
	res := r.DB.Model(&model.UserCertification{}).
		Where("is_completed = ? AND is_expired = ? AND expires_at IS NOT NULL AND expires_at < ?", true, false, now).
		Update("is_expired", true)
	return res.RowsAffected, res.Error
}
