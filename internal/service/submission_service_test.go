package service

import (
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/repository"
	"ace_lms_backend/internal/util"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSubmitFullScorePasses(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "ada@example.com")
	a := f.assessment(t, AssessmentRequest{
		Title:             "Basics",
		EmbeddedQuestions: []QuestionRequest{mcQuestion(2), mcQuestion(3)},
	})

	sub, err := f.submissions.Start(u.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sub.AttemptNumber)
	assert.Equal(t, model.SubmissionInProgress, sub.Status)
	assert.Equal(t, 5, sub.MaxScore)

	res, err := f.submissions.Submit(context.Background(), u.ID, a.ID,
		answers(a.QuestionIDs[0], `1`, a.QuestionIDs[1], `1`))
	require.NoError(t, err)

	graded := res.Submission
	assert.Equal(t, model.SubmissionGraded, graded.Status)
	assert.Equal(t, 5, graded.Score)
	assert.Equal(t, 100, graded.ScorePercentage)
	assert.True(t, graded.Passed)
	assert.NotNil(t, graded.GradedAt)
	assert.Empty(t, res.SideEffects)

	// 通过后积分按比例记入流水
	bal, err := f.gamification.PointsBalance(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, bal.TotalPoints)

	stored, err := f.submissions.GetSubmission(graded.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionGraded, stored.Status)
}

func TestSubmitFailingScoreSkipsRewards(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "bob@example.com")
	a := f.assessment(t, AssessmentRequest{
		Title:             "Hard",
		EmbeddedQuestions: []QuestionRequest{mcQuestion(1), mcQuestion(1)},
	})

	_, err := f.submissions.Start(u.ID, a.ID)
	require.NoError(t, err)
	res, err := f.submissions.Submit(context.Background(), u.ID, a.ID, answers(a.QuestionIDs[0], `1`))
	require.NoError(t, err)

	assert.Equal(t, 50, res.Submission.ScorePercentage)
	assert.False(t, res.Submission.Passed)

	txs, err := f.gamification.GetUserPointTransactions(u.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestStartRespectsMaxAttempts(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "cy@example.com")
	a := f.assessment(t, AssessmentRequest{
		Title:             "Once",
		EmbeddedQuestions: []QuestionRequest{mcQuestion(1)},
	})

	_, err := f.submissions.Start(u.ID, a.ID)
	require.NoError(t, err)
	_, err = f.submissions.Submit(context.Background(), u.ID, a.ID, answers(a.QuestionIDs[0], `0`))
	require.NoError(t, err)

	_, err = f.submissions.Start(u.ID, a.ID)
	assert.ErrorIs(t, err, util.ErrBusinessRule)
	assert.ErrorIs(t, err, util.ErrMaxAttemptsExceeded)
}

func TestStartUnlimitedAttemptsNumbersSequentially(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "dee@example.com")
	a := f.assessment(t, AssessmentRequest{
		Title:             "Practice",
		MaxAttempts:       intPtr(0),
		EmbeddedQuestions: []QuestionRequest{mcQuestion(1)},
	})

	for i := 1; i <= 3; i++ {
		sub, err := f.submissions.Start(u.ID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, i, sub.AttemptNumber)
		_, err = f.submissions.Submit(context.Background(), u.ID, a.ID, answers(a.QuestionIDs[0], `0`))
		require.NoError(t, err)
	}

	list, err := f.submissions.GetUserSubmissions(u.ID, a.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestStartInactiveAssessment(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "eve@example.com")
	a := f.assessment(t, AssessmentRequest{
		Title:             "Closed",
		IsActive:          boolPtr(false),
		EmbeddedQuestions: []QuestionRequest{mcQuestion(1)},
	})

	_, err := f.submissions.Start(u.ID, a.ID)
	assert.ErrorIs(t, err, util.ErrAssessmentInactive)
}

func TestStartUnknownUser(t *testing.T) {
	f := newFixture(t)
	a := f.assessment(t, AssessmentRequest{Title: "Ghost", EmbeddedQuestions: []QuestionRequest{mcQuestion(1)}})

	_, err := f.submissions.Start(model.GenerateUUID(), a.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestDoubleSubmitIsNotFound(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "fay@example.com")
	a := f.assessment(t, AssessmentRequest{
		Title:             "Twice",
		EmbeddedQuestions: []QuestionRequest{mcQuestion(1)},
	})

	_, err := f.submissions.Start(u.ID, a.ID)
	require.NoError(t, err)
	_, err = f.submissions.Submit(context.Background(), u.ID, a.ID, answers(a.QuestionIDs[0], `1`))
	require.NoError(t, err)

	_, err = f.submissions.Submit(context.Background(), u.ID, a.ID, answers(a.QuestionIDs[0], `1`))
	assert.ErrorIs(t, err, util.ErrNotFound)
	assert.ErrorIs(t, err, util.ErrNoActiveSubmission)
}

func TestConcurrentSubmitGradesOnce(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "race@example.com")
	a := f.assessment(t, AssessmentRequest{
		Title:             "Race",
		EmbeddedQuestions: []QuestionRequest{mcQuestion(2), mcQuestion(3)},
	})
	_, err := f.submissions.Start(u.ID, a.ID)
	require.NoError(t, err)

	const n = 5
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.submissions.Submit(context.Background(), u.ID, a.ID,
				answers(a.QuestionIDs[0], `1`, a.QuestionIDs[1], `1`))
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, util.ErrNoActiveSubmission)
	}
	assert.Equal(t, 1, ok)

	// 只有一次通过记入积分
	bal, err := f.gamification.PointsBalance(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, bal.TotalPoints)

	subs, err := f.submissions.GetUserSubmissions(u.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, model.SubmissionGraded, subs[0].Status)
}

func TestSubmitGradeWriteFailureKeepsAttemptOpen(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "retry@example.com")
	a := f.assessment(t, AssessmentRequest{Title: "Retry", EmbeddedQuestions: []QuestionRequest{mcQuestion(5)}})
	started, err := f.submissions.Start(u.ID, a.ID)
	require.NoError(t, err)

	// 评分写回时报错，抢占随事务回滚
	const hook = "test:fail_save_grade"
	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register(hook, func(tx *gorm.DB) {
		if values, ok := tx.Statement.Dest.(map[string]interface{}); ok {
			if _, isGrade := values["score"]; isGrade {
				_ = tx.AddError(errors.New("grade store unavailable"))
			}
		}
	}))

	_, err = f.submissions.Submit(context.Background(), u.ID, a.ID, answers(a.QuestionIDs[0], `1`))
	require.EqualError(t, err, "grade store unavailable")

	stored, err := f.submissions.GetSubmission(started.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionInProgress, stored.Status)
	assert.Nil(t, stored.SubmittedAt)

	require.NoError(t, f.db.Callback().Update().Remove(hook))

	res, err := f.submissions.Submit(context.Background(), u.ID, a.ID, answers(a.QuestionIDs[0], `1`))
	require.NoError(t, err)
	assert.Equal(t, started.ID, res.Submission.ID)
	assert.Equal(t, model.SubmissionGraded, res.Submission.Status)
	assert.True(t, res.Submission.Passed)
}

func TestSubmitMissingAssessmentKeepsAttemptOpen(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "gone@example.com")
	a := f.assessment(t, AssessmentRequest{Title: "Gone", EmbeddedQuestions: []QuestionRequest{mcQuestion(1)}})
	started, err := f.submissions.Start(u.ID, a.ID)
	require.NoError(t, err)

	require.NoError(t, f.db.Delete(&model.Assessment{}, "id = ?", a.ID).Error)

	_, err = f.submissions.Submit(context.Background(), u.ID, a.ID, answers(a.QuestionIDs[0], `1`))
	assert.ErrorIs(t, err, util.ErrNotFound)

	stored, err := f.submissions.GetSubmission(started.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionInProgress, stored.Status)
}

func TestSubmitWithoutStart(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "gus@example.com")
	a := f.assessment(t, AssessmentRequest{Title: "Cold", EmbeddedQuestions: []QuestionRequest{mcQuestion(1)}})

	_, err := f.submissions.Submit(context.Background(), u.ID, a.ID, nil)
	assert.ErrorIs(t, err, util.ErrNoActiveSubmission)
}

func TestZeroPointAssessment(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "hal@example.com")
	a := f.assessment(t, AssessmentRequest{Title: "Empty", PassingScore: intPtr(0)})

	_, err := f.submissions.Start(u.ID, a.ID)
	require.NoError(t, err)
	res, err := f.submissions.Submit(context.Background(), u.ID, a.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Submission.ScorePercentage)
	assert.True(t, res.Submission.Passed)

	// 0 分测验不写流水
	txs, err := f.gamification.GetUserPointTransactions(u.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

type failingRecorder struct{}

func (failingRecorder) RecordItemCompletion(string, model.RequirementType, string, int) ([]SideEffectFailure, error) {
	return nil, errors.New("progress store unavailable")
}

func TestSubmitSideEffectFailureIsReported(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "ivy@example.com")
	a := f.assessment(t, AssessmentRequest{Title: "Flaky", EmbeddedQuestions: []QuestionRequest{mcQuestion(4)}})

	svc := NewSubmissionService(
		repository.NewSubmissionRepository(f.db),
		repository.NewAssessmentRepository(f.db),
		f.users,
		failingRecorder{},
		f.gamification,
	)

	_, err := svc.Start(u.ID, a.ID)
	require.NoError(t, err)
	res, err := svc.Submit(context.Background(), u.ID, a.ID, answers(a.QuestionIDs[0], `1`))
	require.NoError(t, err)

	assert.True(t, res.Submission.Passed)
	require.Len(t, res.SideEffects, 1)
	assert.Equal(t, StepMVKProgress, res.SideEffects[0].Step)
	assert.Equal(t, a.ID, res.SideEffects[0].Ref)

	// 后续步骤仍然执行
	bal, err := f.gamification.PointsBalance(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, bal.TotalPoints)
}

func TestGetSubmissionNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.submissions.GetSubmission(model.GenerateUUID())
	assert.ErrorIs(t, err, util.ErrNotFound)
}
