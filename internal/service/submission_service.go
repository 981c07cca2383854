package service

import (
	"ace_lms_backend/internal/grading"
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/repository"
	"ace_lms_backend/internal/util"
	"ace_lms_backend/pkg/logger"
	"ace_lms_backend/pkg/monitoring"
	"ace_lms_backend/pkg/tracing"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SubmissionService struct {
	SubmissionRepo *repository.SubmissionRepository
	AssessmentRepo *repository.AssessmentRepository
	UserService    *UserService
	// 可选联动，nil 时跳过
	Progress ItemCompletionRecorder
	Rewards  CompletionRecorder
}

func NewSubmissionService(
	submissionRepo *repository.SubmissionRepository,
	assessmentRepo *repository.AssessmentRepository,
	userService *UserService,
	progress ItemCompletionRecorder,
	rewards CompletionRecorder,
) *SubmissionService {
	return &SubmissionService{
		SubmissionRepo: submissionRepo,
		AssessmentRepo: assessmentRepo,
		UserService:    userService,
		Progress:       progress,
		Rewards:        rewards,
	}
}

type SubmitRequest struct {
	Answers map[string]json.RawMessage `json:"answers" binding:"required"`
}

type SubmitResult struct {
	Submission  *model.Submission   `json:"submission"`
	SideEffects []SideEffectFailure `json:"sideEffects"`
}

// Start 开始一次作答
func (s *SubmissionService) Start(userID, assessmentID string) (*model.Submission, error) {
	if err := requireID(userID, "user ID"); err != nil {
		return nil, err
	}
	if err := requireID(assessmentID, "assessment ID"); err != nil {
		return nil, err
	}
	if err := s.UserService.ensureUser(userID); err != nil {
		return nil, err
	}

	a, err := s.AssessmentRepo.FindAssessmentByID(assessmentID)
	if err != nil {
		return nil, notFoundOr(err, "assessment with ID %s not found", assessmentID)
	}
	if !a.IsActive {
		return nil, util.ErrAssessmentInactive
	}

	if a.MaxAttempts > 0 {
		finished, err := s.SubmissionRepo.CountFinished(userID, assessmentID)
		if err != nil {
			return nil, err
		}
		if finished >= int64(a.MaxAttempts) {
			return nil, util.ErrMaxAttemptsExceeded
		}
	}

	attempts, err := s.SubmissionRepo.CountAttempts(userID, assessmentID)
	if err != nil {
		return nil, err
	}

	sub := &model.Submission{
		UserID:        userID,
		AssessmentID:  assessmentID,
		Status:        model.SubmissionInProgress,
		AttemptNumber: int(attempts) + 1,
		StartedAt:     time.Now(),
		MaxScore:      a.TotalPoints,
	}
	if err := s.SubmissionRepo.Create(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Submit 提交答案并立即评分。先加载测验和题目，再在一个事务内完成
// in_progress -> completed 抢占、评分和写回；任一步失败整体回滚，提交仍可重试。
// 并发的第二次提交抢占不到记录，返回 NotFound
func (s *SubmissionService) Submit(ctx context.Context, userID, assessmentID string, answers map[string]json.RawMessage) (*SubmitResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "submission.submit")
	defer span.End()
	span.SetAttributes(attribute.String("assessment.id", assessmentID))

	if err := requireID(userID, "user ID"); err != nil {
		return nil, err
	}
	if err := requireID(assessmentID, "assessment ID"); err != nil {
		return nil, err
	}
	if answers == nil {
		answers = map[string]json.RawMessage{}
	}

	sub, err := s.SubmissionRepo.FindLatestInProgress(userID, assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNoActiveSubmission
		}
		return nil, err
	}

	a, err := s.AssessmentRepo.FindAssessmentByID(assessmentID)
	if err != nil {
		return nil, notFoundOr(err, "assessment with ID %s not found", assessmentID)
	}
	questions, err := s.AssessmentRepo.FindAssessmentQuestions(assessmentID)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, util.InvalidArgument("invalid answers")
	}

	now := time.Now()
	spent := int(now.Sub(sub.StartedAt).Seconds())
	err = s.SubmissionRepo.Transaction(func(repo *repository.SubmissionRepository) error {
		claimed, err := repo.ClaimForSubmit(sub.ID, datatypes.JSON(raw), now, spent)
		if err != nil {
			return err
		}
		if !claimed {
			return util.ErrNoActiveSubmission
		}
		sub.Status = model.SubmissionCompleted
		sub.Answers = datatypes.JSON(raw)
		sub.SubmittedAt = &now
		sub.TimeSpentSeconds = spent
		return s.grade(ctx, repo, sub, a, questions, answers)
	})
	if err != nil {
		return nil, err
	}
	monitoring.SubmissionsGraded.WithLabelValues(strconv.FormatBool(sub.Passed)).Inc()

	logger.Log.Info("Submission graded",
		zap.String("submissionId", sub.ID),
		zap.String("userId", userID),
		zap.Int("score", sub.Score),
		zap.Int("percentage", sub.ScorePercentage),
		zap.Bool("passed", sub.Passed))

	result := &SubmitResult{Submission: sub, SideEffects: []SideEffectFailure{}}
	if sub.Passed {
		result.SideEffects = s.applyPassEffects(sub)
	}
	return result, nil
}

// grade 评分并通过 repo 写回，repo 由调用方绑定到提交事务
func (s *SubmissionService) grade(ctx context.Context, repo *repository.SubmissionRepository, sub *model.Submission, a *model.Assessment, questions []model.Question, answers map[string]json.RawMessage) error {
	_, span := tracing.Tracer.Start(ctx, "submission.grade")
	defer span.End()

	gq := make([]grading.Question, 0, len(questions))
	for _, q := range questions {
		gq = append(gq, grading.Question{
			ID:            q.ID,
			Type:          string(q.Type),
			Points:        q.Points,
			CorrectAnswer: json.RawMessage(q.CorrectAnswer),
			Explanation:   q.Explanation,
		})
	}

	res := grading.Grade(answers, gq, grading.Policy{
		MaxScore:        a.TotalPoints,
		PassingScore:    a.PassingScore,
		ShowExplanation: a.ShowExplanation,
	})

	feedback, err := json.Marshal(res.Feedback)
	if err != nil {
		return err
	}

	gradedAt := time.Now()
	sub.Score = res.Score
	sub.MaxScore = res.MaxScore
	sub.ScorePercentage = res.ScorePercentage
	sub.Passed = res.Passed
	sub.GradedAt = &gradedAt
	sub.Feedback = datatypes.JSON(feedback)

	saved, err := repo.SaveGrade(sub)
	if err != nil {
		return err
	}
	if !saved {
		return util.BusinessRule("submission %s is no longer awaiting grading", sub.ID)
	}
	sub.Status = model.SubmissionGraded

	span.SetAttributes(attribute.Int("score.percentage", sub.ScorePercentage))
	return nil
}

// applyPassEffects 先推进 MVK 要求，再记录积分，各自独立的错误边界
func (s *SubmissionService) applyPassEffects(sub *model.Submission) []SideEffectFailure {
	var failures []SideEffectFailure

	if s.Progress != nil {
		var nested []SideEffectFailure
		f := runSideEffect(StepMVKProgress, sub.AssessmentID, func() error {
			var err error
			nested, err = s.Progress.RecordItemCompletion(sub.UserID, model.RequirementAssessment, sub.AssessmentID, sub.ScorePercentage)
			return err
		})
		failures = appendFailure(failures, f)
		failures = append(failures, nested...)
	}

	if s.Rewards != nil {
		var nested []SideEffectFailure
		f := runSideEffect(StepAssessmentCompletion, sub.ID, func() error {
			res, err := s.Rewards.RecordAssessmentCompletion(sub.UserID, sub.ID)
			if res != nil {
				nested = res.Failures
			}
			return err
		})
		failures = appendFailure(failures, f)
		failures = append(failures, nested...)
	}

	if failures == nil {
		failures = []SideEffectFailure{}
	}
	return failures
}

func (s *SubmissionService) GetSubmission(id string) (*model.Submission, error) {
	if err := requireID(id, "submission ID"); err != nil {
		return nil, err
	}
	sub, err := s.SubmissionRepo.FindByID(id)
	if err != nil {
		return nil, notFoundOr(err, "submission with ID %s not found", id)
	}
	return sub, nil
}

// GetUserSubmissions 按提交时间倒序
func (s *SubmissionService) GetUserSubmissions(userID, assessmentID string) ([]model.Submission, error) {
	if err := requireID(userID, "user ID"); err != nil {
		return nil, err
	}
	if assessmentID != "" {
		if err := requireID(assessmentID, "assessment ID"); err != nil {
			return nil, err
		}
	}
	return s.SubmissionRepo.FindByUser(userID, assessmentID)
}
