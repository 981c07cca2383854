package service

import (
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/repository"
	"ace_lms_backend/internal/util"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mvkSetup struct {
	user   *model.User
	course *model.Course
	reqA   *model.MVKRequirement
	reqB   *model.MVKRequirement
	cert   *model.MVKCertification
}

// newMVKSetup 一个认证包含两个课程要求
func newMVKSetup(t *testing.T, f *fixture) *mvkSetup {
	t.Helper()
	s := &mvkSetup{user: f.learner(t, "mvk@example.com")}
	s.course = f.course(t, "Strategy", 0)
	other := f.course(t, "Finance", 0)

	var err error
	s.reqA, err = f.mvk.CreateRequirement(RequirementRequest{
		Title: "Strategy", Level: string(model.LeaderI), College: string(model.CollegeLeadership),
		Type: string(model.RequirementCourse), ItemID: s.course.ID,
	})
	require.NoError(t, err)
	s.reqB, err = f.mvk.CreateRequirement(RequirementRequest{
		Title: "Finance", Level: string(model.LeaderI), College: string(model.CollegeLeadership),
		Type: string(model.RequirementCourse), ItemID: other.ID, Order: intPtr(2),
	})
	require.NoError(t, err)

	s.cert, err = f.mvk.CreateCertification(CertificationRequest{
		Title: "Leader I", Level: string(model.LeaderI), College: string(model.CollegeLeadership),
		Requirements: []string{s.reqA.ID, s.reqB.ID},
	})
	require.NoError(t, err)
	return s
}

func TestRequirementDefaultsAndResolution(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, "Ops", 0)

	r, err := f.mvk.CreateRequirement(RequirementRequest{
		Title: "Ops", Level: string(model.LeaderII), College: string(model.CollegeOperationalExcellence),
		Type: string(model.RequirementCourse), ItemID: c.ID,
	})
	require.NoError(t, err)
	assert.True(t, r.IsRequired)
	assert.Equal(t, 1, r.SortOrder)
	assert.Equal(t, 0, r.MinScore)

	_, err = f.mvk.CreateRequirement(RequirementRequest{
		Title: "Missing", Level: string(model.LeaderII), College: string(model.CollegeOperationalExcellence),
		Type: string(model.RequirementAssessment), ItemID: model.GenerateUUID(),
	})
	assert.ErrorIs(t, err, util.ErrNotFound)

	// 结业项目只校验ID格式
	_, err = f.mvk.CreateRequirement(RequirementRequest{
		Title: "Capstone", Level: string(model.LeaderIII), College: string(model.CollegeLeadership),
		Type: string(model.RequirementCapstone), ItemID: model.GenerateUUID(),
	})
	assert.NoError(t, err)

	_, err = f.mvk.CreateRequirement(RequirementRequest{
		Title: "Bad college", Level: string(model.LeaderI), College: "Astrology",
		Type: string(model.RequirementCapstone), ItemID: model.GenerateUUID(),
	})
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
}

func TestCreateCertificationRejectsUnknownRequirement(t *testing.T) {
	f := newFixture(t)

	_, err := f.mvk.CreateCertification(CertificationRequest{
		Title: "Broken", Level: string(model.LeaderI), College: string(model.CollegeLeadership),
		Requirements: []string{model.GenerateUUID()},
	})
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
}

func TestCertificationIssuedOnceAtCompletion(t *testing.T) {
	f := newFixture(t)
	s := newMVKSetup(t, f)

	res, err := f.mvk.UpdateUserProgress(s.user.ID, s.reqA.ID, ProgressPatch{Status: strPtr(string(model.ProgressCompleted))})
	require.NoError(t, err)
	require.Len(t, res.Certifications, 1)
	assert.Equal(t, 50, res.Certifications[0].CompletionPercentage)
	assert.False(t, res.Certifications[0].IsCompleted)
	assert.Nil(t, res.Certifications[0].CertificateNumber)

	res, err = f.mvk.UpdateUserProgress(s.user.ID, s.reqB.ID, ProgressPatch{Progress: intPtr(100)})
	require.NoError(t, err)
	require.Len(t, res.Certifications, 1)
	uc := res.Certifications[0]
	assert.Equal(t, 100, uc.CompletionPercentage)
	assert.True(t, uc.IsCompleted)
	require.NotNil(t, uc.CertificateNumber)
	assert.True(t, strings.HasPrefix(*uc.CertificateNumber, "ACE-"))
	assert.Len(t, *uc.CertificateNumber, 12)
	assert.Equal(t, strings.ToUpper(*uc.CertificateNumber), *uc.CertificateNumber)
	require.NotNil(t, uc.CompletedAt)
	require.NotNil(t, uc.ExpiresAt)
	assert.WithinDuration(t, uc.CompletedAt.AddDate(2, 0, 0), *uc.ExpiresAt, time.Second)
	assert.Empty(t, res.SideEffects)

	number := *uc.CertificateNumber

	// 重复计算不会重新签发
	again, err := f.mvk.RecomputeCertifications(s.user.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Issued)
	assert.Equal(t, number, *again.Certifications[0].CertificateNumber)

	// 认证完成奖励只发放一次
	txs, err := f.gamification.GetUserPointTransactions(s.user.ID)
	require.NoError(t, err)
	certPoints := 0
	for _, tx := range txs {
		if tx.Source == model.SourceCertification {
			certPoints += tx.Amount
		}
	}
	assert.Equal(t, 100, certPoints)
}

func TestCertificationRegressionKeepsNumber(t *testing.T) {
	f := newFixture(t)
	s := newMVKSetup(t, f)

	_, err := f.mvk.UpdateUserProgress(s.user.ID, s.reqA.ID, ProgressPatch{Progress: intPtr(100)})
	require.NoError(t, err)
	res, err := f.mvk.UpdateUserProgress(s.user.ID, s.reqB.ID, ProgressPatch{Progress: intPtr(100)})
	require.NoError(t, err)
	number := *res.Certifications[0].CertificateNumber

	res, err = f.mvk.UpdateUserProgress(s.user.ID, s.reqB.ID, ProgressPatch{Progress: intPtr(40)})
	require.NoError(t, err)
	uc := res.Certifications[0]
	assert.False(t, uc.IsCompleted)
	assert.Nil(t, uc.CompletedAt)
	assert.Equal(t, 70, uc.CompletionPercentage)
	require.NotNil(t, uc.CertificateNumber)
	assert.Equal(t, number, *uc.CertificateNumber)

	// 再次完成沿用原编号
	res, err = f.mvk.UpdateUserProgress(s.user.ID, s.reqB.ID, ProgressPatch{Progress: intPtr(100)})
	require.NoError(t, err)
	assert.True(t, res.Certifications[0].IsCompleted)
	assert.Equal(t, number, *res.Certifications[0].CertificateNumber)
}

func TestApplyProgressPatchOrdering(t *testing.T) {
	now := time.Now()

	p := &model.UserProgress{Status: model.ProgressNotStarted}
	applyProgressPatch(p, ProgressPatch{Status: strPtr(string(model.ProgressCompleted)), Progress: intPtr(30)}, now)
	// progress 在 status 之后处理，最终以 progress 推导
	assert.Equal(t, model.ProgressInProgress, p.Status)
	assert.Equal(t, 30, p.Progress)
	assert.NotNil(t, p.StartedAt)

	p = &model.UserProgress{Status: model.ProgressNotStarted}
	applyProgressPatch(p, ProgressPatch{Progress: intPtr(150)}, now)
	assert.Equal(t, model.ProgressCompleted, p.Status)
	assert.Equal(t, 100, p.Progress)

	p = &model.UserProgress{Status: model.ProgressInProgress, Progress: 40}
	applyProgressPatch(p, ProgressPatch{Progress: intPtr(0)}, now)
	assert.Equal(t, model.ProgressNotStarted, p.Status)

	started := now.Add(-time.Hour)
	p = &model.UserProgress{StartedAt: &started}
	applyProgressPatch(p, ProgressPatch{Status: strPtr(string(model.ProgressInProgress))}, now)
	assert.Equal(t, started, *p.StartedAt)
}

func TestRecordItemCompletionIgnoresMinScore(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "score@example.com")
	a := f.assessment(t, AssessmentRequest{Title: "Gate", EmbeddedQuestions: []QuestionRequest{mcQuestion(1)}})

	req, err := f.mvk.CreateRequirement(RequirementRequest{
		Title: "Gate", Level: string(model.LeaderI), College: string(model.CollegeLeadership),
		Type: string(model.RequirementAssessment), ItemID: a.ID, MinScore: intPtr(80),
	})
	require.NoError(t, err)

	// 通过即完成，分数低于 minScore 也一样
	failures, err := f.mvk.RecordItemCompletion(u.ID, model.RequirementAssessment, a.ID, 75)
	require.NoError(t, err)
	assert.Empty(t, failures)

	p, err := f.mvk.ProgressRepo.FindProgress(u.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProgressCompleted, p.Status)
	assert.Equal(t, 100, p.Progress)
	assert.Equal(t, 75, p.Score)
	assert.NotNil(t, p.CompletedAt)

	_, err = f.mvk.RecordItemCompletion(u.ID, model.RequirementAssessment, a.ID, 90)
	require.NoError(t, err)
	p, err = f.mvk.ProgressRepo.FindProgress(u.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProgressCompleted, p.Status)
	assert.Equal(t, 90, p.Score)
}

func TestSubmitPassCompletesLinkedRequirement(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "linked@example.com")
	a := f.assessment(t, AssessmentRequest{
		Title:             "Linked",
		PassingScore:      intPtr(70),
		EmbeddedQuestions: []QuestionRequest{mcQuestion(1), mcQuestion(1), mcQuestion(1), mcQuestion(1)},
	})
	req, err := f.mvk.CreateRequirement(RequirementRequest{
		Title: "Linked", Level: string(model.LeaderI), College: string(model.CollegeLeadership),
		Type: string(model.RequirementAssessment), ItemID: a.ID, MinScore: intPtr(80),
	})
	require.NoError(t, err)

	_, err = f.submissions.Start(u.ID, a.ID)
	require.NoError(t, err)
	res, err := f.submissions.Submit(context.Background(), u.ID, a.ID,
		answers(a.QuestionIDs[0], `1`, a.QuestionIDs[1], `1`, a.QuestionIDs[2], `1`))
	require.NoError(t, err)
	require.True(t, res.Submission.Passed)
	assert.Equal(t, 75, res.Submission.ScorePercentage)

	p, err := f.mvk.ProgressRepo.FindProgress(u.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProgressCompleted, p.Status)
	assert.Equal(t, 100, p.Progress)
	assert.Equal(t, 75, p.Score)
}

func TestProgressSummaryAndFilters(t *testing.T) {
	f := newFixture(t)
	s := newMVKSetup(t, f)

	_, err := f.mvk.UpdateUserProgress(s.user.ID, s.reqA.ID, ProgressPatch{Progress: intPtr(50)})
	require.NoError(t, err)

	summary, err := f.mvk.ProgressSummary(s.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalRequirements)
	assert.Equal(t, 1, summary.InProgress)
	assert.Equal(t, 1, summary.NotStarted)
	assert.Equal(t, 25, summary.OverallProgress)
	require.Len(t, summary.Certifications, 1)
	assert.Equal(t, 25, summary.Certifications[0].CompletionPercentage)

	views, err := f.mvk.GetUserProgress(s.user.ID, ProgressFilter{Status: model.ProgressCompleted})
	require.NoError(t, err)
	assert.Empty(t, views)

	views, err = f.mvk.GetUserProgress(s.user.ID, ProgressFilter{College: model.CollegeLeadership})
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.NotNil(t, views[0].Requirement)
	assert.Equal(t, s.reqA.ID, views[0].Requirement.ID)
}

func TestUpdateUserProgressUnknownRequirement(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "lost@example.com")

	_, err := f.mvk.UpdateUserProgress(u.ID, model.GenerateUUID(), ProgressPatch{Progress: intPtr(10)})
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestCourseCompletionDrivesCertification(t *testing.T) {
	f := newFixture(t)
	s := newMVKSetup(t, f)

	res, err := f.courses.CompleteCourse(s.user.ID, s.course.ID)
	require.NoError(t, err)
	assert.Empty(t, res.SideEffects)
	require.NotNil(t, res.Rewards)
	assert.Equal(t, 50, res.Rewards.PointsAwarded)

	p, err := f.mvk.ProgressRepo.FindProgress(s.user.ID, s.reqA.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProgressCompleted, p.Status)

	list, err := f.mvk.GetUserCertifications(s.user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 50, list[0].CompletionPercentage)
}

func TestDeleteRequirement(t *testing.T) {
	f := newFixture(t)
	s := newMVKSetup(t, f)

	require.NoError(t, f.mvk.DeleteRequirement(s.reqB.ID))
	_, err := f.mvk.GetRequirement(s.reqB.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)

	list, err := f.mvk.ListRequirements(repository.RequirementFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
