package repository

import (
	"ace_lms_backend/internal/model"

	"gorm.io/gorm"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

type AssessmentFilter struct {
	CourseID string
	ModuleID string
	IsActive *bool
}

// 题库

func (r *AssessmentRepository) CreateQuestion(q *model.Question) error {
	return r.DB.Create(q).Error
}

func (r *AssessmentRepository) FindQuestionByID(id string) (*model.Question, error) {
	var q model.Question
	if err := r.DB.First(&q, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *AssessmentRepository) FindQuestionsByIDs(ids []string) ([]model.Question, error) {
	var qs []model.Question
	if len(ids) == 0 {
		return qs, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&qs).Error
	return qs, err
}

// 测验

// CreateAssessment 在同一事务中写入测验、新建的内嵌题目以及有序关联
func (r *AssessmentRepository) CreateAssessment(a *model.Assessment, newQuestions []model.Question, questionIDs []string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		for i := range newQuestions {
			if err := tx.Create(&newQuestions[i]).Error; err != nil {
				return err
			}
			questionIDs = append(questionIDs, newQuestions[i].ID)
		}
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		links := make([]model.AssessmentQuestion, 0, len(questionIDs))
		for i, qid := range questionIDs {
			links = append(links, model.AssessmentQuestion{
				AssessmentID: a.ID,
				QuestionID:   qid,
				Position:     i + 1,
			})
		}
		if len(links) > 0 {
			if err := tx.Create(&links).Error; err != nil {
				return err
			}
		}
		a.QuestionIDs = questionIDs
		return nil
	})
}

func (r *AssessmentRepository) FindAssessmentByID(id string) (*model.Assessment, error) {
	var a model.Assessment
	if err := r.DB.First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	ids, err := r.questionIDs(a.ID)
	if err != nil {
		return nil, err
	}
	a.QuestionIDs = ids
	return &a, nil
}

func (r *AssessmentRepository) AssessmentExists(id string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Assessment{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// FindAssessmentQuestions 按出题顺序返回测验的题目
func (r *AssessmentRepository) FindAssessmentQuestions(assessmentID string) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.Joins("JOIN assessment_questions ON assessment_questions.question_id = questions.id").
		Where("assessment_questions.assessment_id = ?", assessmentID).
		Order("assessment_questions.position asc").
		Find(&qs).Error
	return qs, err
}

func (r *AssessmentRepository) ListAssessments(f AssessmentFilter) ([]model.Assessment, error) {
	var as []model.Assessment
	q := r.DB.Model(&model.Assessment{})
	if f.CourseID != "" {
		q = q.Where("course_id = ?", f.CourseID)
	}
	if f.ModuleID != "" {
		q = q.Where("module_id = ?", f.ModuleID)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if err := q.Order("created_at desc").Find(&as).Error; err != nil {
		return nil, err
	}
	for i := range as {
		ids, err := r.questionIDs(as[i].ID)
		if err != nil {
			return nil, err
		}
		as[i].QuestionIDs = ids
	}
	return as, nil
}

func (r *AssessmentRepository) questionIDs(assessmentID string) ([]string, error) {
	var ids []string
	err := r.DB.Model(&model.AssessmentQuestion{}).
		Where("assessment_id = ?", assessmentID).
		Order("position asc").
		Pluck("question_id", &ids).Error
	return ids, err
}
