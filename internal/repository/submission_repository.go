package repository

import (
	"ace_lms_backend/internal/model"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) Create(s *model.Submission) error {
	return r.DB.Create(s).Error
}

func (r *SubmissionRepository) FindByID(id string) (*model.Submission, error) {
	var s model.Submission
	if err := r.DB.First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// CountAttempts 统计 (用户, 测验) 的全部提交
func (r *SubmissionRepository) CountAttempts(userID, assessmentID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Submission{}).
		Where("user_id = ? AND assessment_id = ?", userID, assessmentID).
		Count(&count).Error
	return count, err
}

// CountFinished 统计已提交（completed 或 graded）的次数
func (r *SubmissionRepository) CountFinished(userID, assessmentID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Submission{}).
		Where("user_id = ? AND assessment_id = ? AND status IN ?", userID, assessmentID,
			[]model.SubmissionStatus{model.SubmissionCompleted, model.SubmissionGraded}).
		Count(&count).Error
	return count, err
}

func (r *SubmissionRepository) FindLatestInProgress(userID, assessmentID string) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.Where("user_id = ? AND assessment_id = ? AND status = ?", userID, assessmentID, model.SubmissionInProgress).
		Order("attempt_number desc").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Transaction fn 内的仓库绑定到同一事务，返回错误时整体回滚
func (r *SubmissionRepository) Transaction(fn func(repo *SubmissionRepository) error) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return fn(&SubmissionRepository{DB: tx})
	})
}

// ClaimForSubmit 仅当提交仍处于 in_progress 时才推进到 completed，返回是否抢占成功
func (r *SubmissionRepository) ClaimForSubmit(id string, answers datatypes.JSON, submittedAt time.Time, timeSpent int) (bool, error) {
	res := r.DB.Model(&model.Submission{}).
		Where("id = ? AND status = ?", id, model.SubmissionInProgress).
		Updates(map[string]interface{}{
			"status":             model.SubmissionCompleted,
			"answers":            answers,
			"submitted_at":       submittedAt,
			"time_spent_seconds": timeSpent,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SaveGrade 写入评分结果，completed -> graded
func (r *SubmissionRepository) SaveGrade(s *model.Submission) (bool, error) {
	res := r.DB.Model(&model.Submission{}).
		Where("id = ? AND status = ?", s.ID, model.SubmissionCompleted).
		Updates(map[string]interface{}{
			"status":           model.SubmissionGraded,
			"score":            s.Score,
			"max_score":        s.MaxScore,
			"score_percentage": s.ScorePercentage,
			"passed":           s.Passed,
			"graded_at":        s.GradedAt,
			"feedback":         s.Feedback,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *SubmissionRepository) FindByUser(userID, assessmentID string) ([]model.Submission, error) {
	var list []model.Submission
	q := r.DB.Where("user_id = ?", userID)
	if assessmentID != "" {
		q = q.Where("assessment_id = ?", assessmentID)
	}
	err := q.Order("created_at desc").Find(&list).Error
	return list, err
}
