package service

import (
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/repository"
	"ace_lms_backend/internal/util"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gorm.io/datatypes"
)

const (
	statCoursesCompleted     = "courses_completed"
	statAssessmentsCompleted = "assessments_completed"
)

type CompletionResult struct {
	PointsAwarded int                 `json:"pointsAwarded"`
	TransactionID string              `json:"transactionId,omitempty"`
	Unlocked      []string            `json:"unlockedAchievements"`
	Failures      []SideEffectFailure `json:"failures,omitempty"`
}

// RecordCourseCompletion 课程本身查不到时返回包装后的错误；单个成就失败只记录
func (s *GamificationService) RecordCourseCompletion(userID, courseID string) (*CompletionResult, error) {
	if err := requireID(userID, "user ID"); err != nil {
		return nil, err
	}
	if err := requireID(courseID, "course ID"); err != nil {
		return nil, err
	}
	if err := s.UserService.ensureUser(userID); err != nil {
		return nil, err
	}

	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		return nil, fmt.Errorf("record course completion: %w", notFoundOr(err, "course with ID %s not found", courseID))
	}

	done, err := s.PointRepo.HasReference(userID, model.SourceCourseCompletion, course.ID)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, util.AlreadyExists("course %s already recorded as completed", course.ID)
	}

	points := course.TotalPoints
	if points <= 0 {
		points = s.Cfg.DefaultCoursePoints
	}
	result := &CompletionResult{Unlocked: []string{}}
	if points > 0 {
		tx, err := s.AwardPoints(AwardPointsRequest{
			UserID:      userID,
			Amount:      points,
			Source:      string(model.SourceCourseCompletion),
			ReferenceID: course.ID,
			Description: fmt.Sprintf("Earned %d points for completing course: %s", points, course.Title),
		})
		if err != nil {
			return nil, err
		}
		result.PointsAwarded = points
		result.TransactionID = tx.ID
	}

	stats, err := s.bumpCounter(userID, statCoursesCompleted)
	if err != nil {
		return nil, err
	}

	s.scanAchievements(userID, model.AchievementContentCompletion, result, func(c datatypes.JSONMap) bool {
		return matchCourseCriteria(c, course, stats.CoursesCompleted)
	})
	return result, nil
}

// RecordAssessmentCompletion 只处理已通过的提交，积分按得分比例折算
func (s *GamificationService) RecordAssessmentCompletion(userID, submissionID string) (*CompletionResult, error) {
	if err := requireID(userID, "user ID"); err != nil {
		return nil, err
	}
	if err := requireID(submissionID, "submission ID"); err != nil {
		return nil, err
	}

	sub, err := s.SubmissionRepo.FindByID(submissionID)
	if err != nil {
		return nil, fmt.Errorf("record assessment completion: %w", notFoundOr(err, "submission with ID %s not found", submissionID))
	}
	if sub.UserID != userID {
		return nil, util.BusinessRule("submission %s does not belong to user %s", sub.ID, userID)
	}

	result := &CompletionResult{Unlocked: []string{}}
	if !sub.Passed {
		return result, nil
	}

	a, err := s.AssessmentRepo.FindAssessmentByID(sub.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("record assessment completion: %w", notFoundOr(err, "assessment with ID %s not found", sub.AssessmentID))
	}

	done, err := s.PointRepo.HasReference(userID, model.SourceAssessment, sub.ID)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, util.AlreadyExists("submission %s already recorded", sub.ID)
	}

	points := 0
	if sub.MaxScore > 0 {
		points = int(math.Round(float64(sub.Score) / float64(sub.MaxScore) * float64(a.TotalPoints)))
	}
	if points > 0 {
		tx, err := s.AwardPoints(AwardPointsRequest{
			UserID:      userID,
			Amount:      points,
			Source:      string(model.SourceAssessment),
			ReferenceID: sub.ID,
			Description: fmt.Sprintf("Earned %d points for passing assessment: %s", points, a.Title),
		})
		if err != nil {
			return nil, err
		}
		result.PointsAwarded = points
		result.TransactionID = tx.ID
	}

	if _, err := s.bumpCounter(userID, statAssessmentsCompleted); err != nil {
		return nil, err
	}

	s.scanAchievements(userID, model.AchievementAssessmentScore, result, func(c datatypes.JSONMap) bool {
		return matchAssessmentCriteria(c, a, sub.ScorePercentage)
	})
	return result, nil
}

// CertificationCompleted 认证首次完成时发放奖励积分
func (s *GamificationService) CertificationCompleted(userID string, cert *model.MVKCertification, uc *model.UserCertification) error {
	points := s.Cfg.CertificationPoints
	if points <= 0 {
		return nil
	}
	done, err := s.PointRepo.HasReference(userID, model.SourceCertification, cert.ID)
	if err != nil || done {
		return err
	}
	_, err = s.AwardPoints(AwardPointsRequest{
		UserID:      userID,
		Amount:      points,
		Source:      string(model.SourceCertification),
		ReferenceID: cert.ID,
		Description: fmt.Sprintf("Earned %d points for certification: %s", points, cert.Title),
	})
	return err
}

func (s *GamificationService) bumpCounter(userID, column string) (*model.UserStats, error) {
	if _, err := s.GetUserStats(userID); err != nil {
		return nil, err
	}
	if err := s.PointRepo.IncrementCounter(userID, column); err != nil {
		return nil, err
	}
	return s.PointRepo.FindStats(userID)
}

// scanAchievements 对匹配的成就逐个解锁，每个成就独立的错误边界
func (s *GamificationService) scanAchievements(userID string, t model.AchievementType, result *CompletionResult, match func(datatypes.JSONMap) bool) {
	list, err := s.AchievementRepo.List(repository.AchievementFilter{Type: t, IsActive: boolPtr(true)})
	if err != nil {
		result.Failures = appendFailure(result.Failures, runSideEffect(StepAchievementUnlock, string(t), func() error { return err }))
		return
	}

	for _, a := range list {
		if !match(a.TriggerCriteria) {
			continue
		}
		f := runSideEffect(StepAchievementUnlock, a.ID, func() error {
			res, err := s.UnlockAchievement(UnlockAchievementRequest{UserID: userID, AchievementID: a.ID, Progress: intPtr(100)})
			if errors.Is(err, util.ErrAlreadyExists) {
				return nil
			}
			if err != nil {
				return err
			}
			if res.Unlocked {
				result.Unlocked = append(result.Unlocked, a.ID)
			}
			return nil
		})
		result.Failures = appendFailure(result.Failures, f)
	}
}

// matchCourseCriteria courseId、college、level 依次匹配，any 为 true 时匹配任意课程。
// count 额外要求已完成课程数；只给出 count 的条件视为里程碑，数量达到即匹配
func matchCourseCriteria(c datatypes.JSONMap, course *model.Course, completed int) bool {
	if criteriaString(c, "type") != "course_completion" {
		return false
	}
	n, hasCount := criteriaInt(c, "count")
	if hasCount && completed < n {
		return false
	}
	switch {
	case criteriaString(c, "courseId") != "":
		return criteriaString(c, "courseId") == course.ID
	case criteriaString(c, "college") != "":
		return criteriaString(c, "college") == string(course.College)
	case criteriaString(c, "level") != "":
		return criteriaString(c, "level") == string(course.Level)
	}
	return criteriaAny(c) || hasCount
}

// matchAssessmentCriteria perfectScore 单独成立；否则需要达到 minScore，
// 再按 assessmentId、assessmentType 过滤，两者都没有时必须显式给出 any
func matchAssessmentCriteria(c datatypes.JSONMap, a *model.Assessment, percentage int) bool {
	if perfect, _ := c["perfectScore"].(bool); perfect && percentage == 100 {
		return true
	}
	minScore, ok := criteriaInt(c, "minScore")
	if !ok || percentage < minScore {
		return false
	}
	switch {
	case criteriaString(c, "assessmentId") != "":
		return criteriaString(c, "assessmentId") == a.ID
	case criteriaString(c, "assessmentType") != "":
		return criteriaString(c, "assessmentType") == string(a.Type)
	}
	return criteriaAny(c)
}

func criteriaAny(c datatypes.JSONMap) bool {
	v, _ := c["any"].(bool)
	return v
}

func criteriaString(c datatypes.JSONMap, key string) string {
	v, _ := c[key].(string)
	return v
}

// criteriaInt 兼容从数据库读出的 float64 和代码中构造的整数
func criteriaInt(c datatypes.JSONMap, key string) (int, bool) {
	switch v := c[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}
