package repository

import (
	"ace_lms_backend/internal/model"

	"gorm.io/gorm"
)

type MVKRepository struct {
	DB *gorm.DB
}

func NewMVKRepository(db *gorm.DB) *MVKRepository {
	return &MVKRepository{DB: db}
}

type RequirementFilter struct {
	Level   model.CourseLevel
	College model.College
	Type    model.RequirementType
}

type CertificationFilter struct {
	Level    model.CourseLevel
	College  model.College
	IsActive *bool
}

func (r *MVKRepository) CreateRequirement(req *model.MVKRequirement) error {
	return r.DB.Create(req).Error
}

func (r *MVKRepository) SaveRequirement(req *model.MVKRequirement) error {
	return r.DB.Save(req).Error
}

func (r *MVKRepository) DeleteRequirement(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("requirement_id = ?", id).Delete(&model.CertificationRequirement{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.MVKRequirement{}, "id = ?", id).Error
	})
}

func (r *MVKRepository) FindRequirementByID(id string) (*model.MVKRequirement, error) {
	var req model.MVKRequirement
	if err := r.DB.First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *MVKRepository) FindRequirementsByIDs(ids []string) ([]model.MVKRequirement, error) {
	var reqs []model.MVKRequirement
	if len(ids) == 0 {
		return reqs, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&reqs).Error
	return reqs, err
}

// FindRequirementsByTarget 查找指向某个课程/测验的要求
func (r *MVKRepository) FindRequirementsByTarget(t model.RequirementType, itemID string) ([]model.MVKRequirement, error) {
	var reqs []model.MVKRequirement
	err := r.DB.Where("type = ? AND item_id = ?", t, itemID).Order("sort_order asc").Find(&reqs).Error
	return reqs, err
}

func (r *MVKRepository) ListRequirements(f RequirementFilter) ([]model.MVKRequirement, error) {
	var reqs []model.MVKRequirement
	q := r.DB.Model(&model.MVKRequirement{})
	if f.Level != "" {
		q = q.Where("level = ?", f.Level)
	}
	if f.College != "" {
		q = q.Where("college = ?", f.College)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	err := q.Order("sort_order asc, created_at asc").Find(&reqs).Error
	return reqs, err
}

func (r *MVKRepository) CreateCertification(cert *model.MVKCertification, requirementIDs []string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(cert).Error; err != nil {
			return err
		}
		links := make([]model.CertificationRequirement, 0, len(requirementIDs))
		for i, id := range requirementIDs {
			links = append(links, model.CertificationRequirement{
				CertificationID: cert.ID,
				RequirementID:   id,
				Position:        i + 1,
			})
		}
		if len(links) > 0 {
			if err := tx.Create(&links).Error; err != nil {
				return err
			}
		}
		cert.RequirementIDs = requirementIDs
		return nil
	})
}

func (r *MVKRepository) FindCertificationByID(id string) (*model.MVKCertification, error) {
	var cert model.MVKCertification
	if err := r.DB.First(&cert, "id = ?", id).Error; err != nil {
		return nil, err
	}
	ids, err := r.requirementIDs(cert.ID)
	if err != nil {
		return nil, err
	}
	cert.RequirementIDs = ids
	return &cert, nil
}

// FindCertificationRequirements 按顺序返回认证包含的要求
func (r *MVKRepository) FindCertificationRequirements(certID string) ([]model.MVKRequirement, error) {
	var reqs []model.MVKRequirement
	err := r.DB.Joins("JOIN certification_requirements ON certification_requirements.requirement_id = mvk_requirements.id").
		Where("certification_requirements.certification_id = ?", certID).
		Order("certification_requirements.position asc").
		Find(&reqs).Error
	return reqs, err
}

func (r *MVKRepository) ListCertifications(f CertificationFilter) ([]model.MVKCertification, error) {
	var certs []model.MVKCertification
	q := r.DB.Model(&model.MVKCertification{})
	if f.Level != "" {
		q = q.Where("level = ?", f.Level)
	}
	if f.College != "" {
		q = q.Where("college = ?", f.College)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if err := q.Order("created_at asc").Find(&certs).Error; err != nil {
		return nil, err
	}
	for i := range certs {
		ids, err := r.requirementIDs(certs[i].ID)
		if err != nil {
			return nil, err
		}
		certs[i].RequirementIDs = ids
	}
	return certs, nil
}

func (r *MVKRepository) requirementIDs(certID string) ([]string, error) {
	var ids []string
	err := r.DB.Model(&model.CertificationRequirement{}).
		Where("certification_id = ?", certID).
		Order("position asc").
		Pluck("requirement_id", &ids).Error
	return ids, err
}
