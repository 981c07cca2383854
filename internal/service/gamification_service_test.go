package service

import (
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/repository"
	"ace_lms_backend/internal/util"
	"bytes"
	"context"
	"errors"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func award(t *testing.T, f *fixture, userID string, amount int) {
	t.Helper()
	_, err := f.gamification.AwardPoints(AwardPointsRequest{UserID: userID, Amount: amount, Source: string(model.SourceAdmin)})
	require.NoError(t, err)
}

func TestFoldTransactions(t *testing.T) {
	b := foldTransactions([]model.PointTransaction{
		{Type: model.TransactionEarned, Amount: 100},
		{Type: model.TransactionEarned, Amount: 30, Expired: true},
		{Type: model.TransactionSpent, Amount: 20},
		{Type: model.TransactionExpired, Amount: 5},
		{Type: model.TransactionAdjusted, Amount: 10},
	})

	assert.Equal(t, 140, b.TotalPoints)
	assert.Equal(t, 110, b.AvailablePoints)
	assert.Equal(t, 20, b.SpentPoints)
	assert.Equal(t, 35, b.ExpiredPoints)
}

func TestAwardPointsValidation(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "pts@example.com")

	_, err := f.gamification.AwardPoints(AwardPointsRequest{UserID: u.ID, Amount: 0, Source: "admin"})
	assert.ErrorIs(t, err, util.ErrInvalidArgument)

	_, err = f.gamification.AwardPoints(AwardPointsRequest{UserID: u.ID, Amount: 5, Source: "lottery"})
	assert.ErrorIs(t, err, util.ErrInvalidArgument)

	_, err = f.gamification.AwardPoints(AwardPointsRequest{UserID: model.GenerateUUID(), Amount: 5, Source: "admin"})
	assert.ErrorIs(t, err, util.ErrNotFound)

	tx, err := f.gamification.AwardPoints(AwardPointsRequest{UserID: u.ID, Amount: 5, Source: "login"})
	require.NoError(t, err)
	assert.Equal(t, model.TransactionEarned, tx.Type)
	assert.Equal(t, "Earned 5 points from login", tx.Description)
}

func TestStatsMatchLedger(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "ledger@example.com")

	award(t, f, u.ID, 40)
	award(t, f, u.ID, 60)

	stats, err := f.gamification.GetUserStats(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, stats.TotalPoints)
	assert.Equal(t, 100, stats.AvailablePoints)

	again, err := f.gamification.RecomputeUserStats(u.ID)
	require.NoError(t, err)
	assert.Equal(t, stats.TotalPoints, again.TotalPoints)
	assert.Equal(t, stats.AvailablePoints, again.AvailablePoints)
}

func TestLevelUpIsSingleStep(t *testing.T) {
	f := newFixture(t)
	_, err := f.gamification.SeedDefaultCatalog(1, false)
	require.NoError(t, err)
	u := f.learner(t, "climber@example.com")

	// 足以跨过 2、3 级，但一次只升一级
	award(t, f, u.ID, 350)
	stats, err := f.gamification.GetUserStats(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CurrentLevel)

	award(t, f, u.ID, 1)
	stats, err = f.gamification.GetUserStats(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.CurrentLevel)

	info, err := f.gamification.GetUserLevel(u.ID)
	require.NoError(t, err)
	require.NotNil(t, info.CurrentLevel)
	require.NotNil(t, info.NextLevel)
	assert.Equal(t, "Practitioner", info.CurrentLevel.Name)
	assert.Equal(t, 4, info.NextLevel.Number)
	assert.Equal(t, 249, info.PointsToNextLevel)
	assert.Equal(t, 17, info.Progress)
}

func TestLevelProgress(t *testing.T) {
	assert.Equal(t, 50, levelProgress(150, 100, 200))
	assert.Equal(t, 0, levelProgress(50, 100, 200))
	assert.Equal(t, 100, levelProgress(500, 100, 200))
	assert.Equal(t, 100, levelProgress(10, 100, 100))
}

func TestCreateLevelRules(t *testing.T) {
	f := newFixture(t)

	_, err := f.gamification.CreateLevel(LevelRequest{Number: 2, Name: "Skip", PointsRequired: intPtr(10)})
	assert.ErrorIs(t, err, util.ErrBusinessRule)

	_, err = f.gamification.CreateLevel(LevelRequest{Number: 1, Name: "One", PointsRequired: intPtr(0)})
	require.NoError(t, err)

	_, err = f.gamification.CreateLevel(LevelRequest{Number: 1, Name: "Again", PointsRequired: intPtr(0)})
	assert.ErrorIs(t, err, util.ErrAlreadyExists)

	_, err = f.gamification.CreateLevel(LevelRequest{Number: 2, Name: "Flat", PointsRequired: intPtr(0)})
	assert.ErrorIs(t, err, util.ErrBusinessRule)

	_, err = f.gamification.CreateLevel(LevelRequest{Number: 2, Name: "Two"})
	assert.ErrorIs(t, err, util.ErrInvalidArgument)

	l, err := f.gamification.CreateLevel(LevelRequest{Number: 2, Name: "Two", PointsRequired: intPtr(50)})
	require.NoError(t, err)

	got, err := f.gamification.GetLevelByNumber(2)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)

	_, err = f.gamification.GetLevelByNumber(0)
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
}

func TestBadgeCatalogAndAward(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "badge@example.com")

	b, err := f.gamification.CreateBadge(BadgeRequest{
		Name: "Helper", Category: string(model.BadgeParticipation), Tier: string(model.TierBronze), PointValue: intPtr(15),
	})
	require.NoError(t, err)
	assert.True(t, b.IsActive)

	_, err = f.gamification.CreateBadge(BadgeRequest{
		Name: "Helper", Category: string(model.BadgeParticipation), Tier: string(model.TierSilver),
	})
	assert.ErrorIs(t, err, util.ErrAlreadyExists)

	ub, err := f.gamification.AwardBadge(AwardBadgeRequest{UserID: u.ID, BadgeID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, "Earned Helper badge", ub.AwardReason)

	_, err = f.gamification.AwardBadge(AwardBadgeRequest{UserID: u.ID, BadgeID: b.ID})
	assert.ErrorIs(t, err, util.ErrAlreadyExists)
	assert.EqualError(t, err, "user already has badge: Helper")

	// 重复授予不产生积分
	stats, err := f.gamification.GetUserStats(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, stats.TotalPoints)
	assert.Equal(t, 1, stats.BadgesCount)

	list, err := f.gamification.ListBadges(repository.BadgeFilter{Tier: model.TierBronze})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	badges, err := f.gamification.GetUserBadges(u.ID)
	require.NoError(t, err)
	assert.Len(t, badges, 1)
}

func TestUnlockAchievementProgressAndRewards(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "ach@example.com")

	badge, err := f.gamification.CreateBadge(BadgeRequest{
		Name: "Finisher", Category: string(model.BadgeAchievement), Tier: string(model.TierGold), PointValue: intPtr(10),
	})
	require.NoError(t, err)
	ach, err := f.gamification.CreateAchievement(AchievementRequest{
		Name: "Marathon", Type: string(model.AchievementSpecial), PointValue: intPtr(20), BadgeID: badge.ID,
	})
	require.NoError(t, err)

	res, err := f.gamification.UnlockAchievement(UnlockAchievementRequest{
		UserID: u.ID, AchievementID: ach.ID, Progress: intPtr(60), Metadata: map[string]interface{}{"step": "half"},
	})
	require.NoError(t, err)
	assert.False(t, res.Unlocked)
	assert.True(t, res.Updated)

	// 进度不回退
	res, err = f.gamification.UnlockAchievement(UnlockAchievementRequest{UserID: u.ID, AchievementID: ach.ID, Progress: intPtr(30)})
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Equal(t, 60, res.UserAchievement.Progress)

	// 未给进度时不覆盖已有的部分进度
	res, err = f.gamification.UnlockAchievement(UnlockAchievementRequest{UserID: u.ID, AchievementID: ach.ID})
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.False(t, res.Unlocked)
	assert.Equal(t, 60, res.UserAchievement.Progress)
	assert.Nil(t, res.UserAchievement.UnlockedAt)

	res, err = f.gamification.UnlockAchievement(UnlockAchievementRequest{UserID: u.ID, AchievementID: ach.ID, Progress: intPtr(100)})
	require.NoError(t, err)
	assert.True(t, res.Unlocked)
	assert.NotNil(t, res.UserAchievement.UnlockedAt)
	assert.Equal(t, "half", res.UserAchievement.Metadata["step"])

	_, err = f.gamification.UnlockAchievement(UnlockAchievementRequest{UserID: u.ID, AchievementID: ach.ID})
	assert.ErrorIs(t, err, util.ErrAlreadyExists)

	stats, err := f.gamification.GetUserStats(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, stats.TotalPoints)
	assert.Equal(t, 1, stats.BadgesCount)
	assert.Equal(t, 1, stats.AchievementsCount)
}

func TestRecordCourseCompletionTwice(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "twice@example.com")
	c := f.course(t, "Intro", 120)

	res, err := f.gamification.RecordCourseCompletion(u.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 120, res.PointsAwarded)
	assert.NotEmpty(t, res.TransactionID)

	_, err = f.gamification.RecordCourseCompletion(u.ID, c.ID)
	assert.ErrorIs(t, err, util.ErrAlreadyExists)

	stats, err := f.gamification.GetUserStats(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CoursesCompleted)
	assert.Equal(t, 120, stats.TotalPoints)
}

func TestRecordCourseCompletionUnknownCourse(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "nocourse@example.com")

	_, err := f.gamification.RecordCourseCompletion(u.ID, model.GenerateUUID())
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrNotFound)
	assert.Contains(t, err.Error(), "record course completion")
}

func TestSeededCourseAchievement(t *testing.T) {
	f := newFixture(t)
	_, err := f.gamification.SeedDefaultCatalog(1, false)
	require.NoError(t, err)
	u := f.learner(t, "first@example.com")
	c := f.course(t, "Welcome", 0)

	res, err := f.gamification.RecordCourseCompletion(u.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, res.PointsAwarded)
	require.Len(t, res.Unlocked, 1)
	assert.Empty(t, res.Failures)

	badges, err := f.gamification.GetUserBadges(u.ID)
	require.NoError(t, err)
	require.Len(t, badges, 1)
	require.NotNil(t, badges[0].Badge)
	assert.Equal(t, "First Steps", badges[0].Badge.Name)

	// 课程 50 + 成就 25 + 徽章 10
	bal, err := f.gamification.PointsBalance(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 85, bal.TotalPoints)
}

func TestRecordAssessmentCompletionRules(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "quiz@example.com")
	other := f.learner(t, "other@example.com")
	a := f.assessment(t, AssessmentRequest{
		Title:             "Quiz",
		MaxAttempts:       intPtr(0),
		EmbeddedQuestions: []QuestionRequest{mcQuestion(1), mcQuestion(1), mcQuestion(1), mcQuestion(1)},
	})

	// 关闭联动，直接调用积分记录
	svc := NewSubmissionService(f.submissions.SubmissionRepo, f.submissions.AssessmentRepo, f.users, nil, nil)
	_, err := svc.Start(u.ID, a.ID)
	require.NoError(t, err)
	res, err := svc.Submit(context.Background(), u.ID, a.ID,
		answers(a.QuestionIDs[0], `1`, a.QuestionIDs[1], `1`, a.QuestionIDs[2], `1`))
	require.NoError(t, err)
	sub := res.Submission
	require.True(t, sub.Passed)

	bare, err := f.gamification.CreateAchievement(AchievementRequest{
		Name: "Bare", Type: string(model.AchievementAssessmentScore),
		TriggerCriteria: map[string]interface{}{"minScore": 50},
	})
	require.NoError(t, err)
	wildcard, err := f.gamification.CreateAchievement(AchievementRequest{
		Name: "Wildcard", Type: string(model.AchievementAssessmentScore),
		TriggerCriteria: map[string]interface{}{"minScore": 50, "any": true},
	})
	require.NoError(t, err)

	_, err = f.gamification.RecordAssessmentCompletion(other.ID, sub.ID)
	assert.ErrorIs(t, err, util.ErrBusinessRule)

	rec, err := f.gamification.RecordAssessmentCompletion(u.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.PointsAwarded)
	assert.Equal(t, []string{wildcard.ID}, rec.Unlocked)
	assert.NotContains(t, rec.Unlocked, bare.ID)

	_, err = f.gamification.RecordAssessmentCompletion(u.ID, sub.ID)
	assert.ErrorIs(t, err, util.ErrAlreadyExists)

	_, err = f.gamification.RecordAssessmentCompletion(u.ID, model.GenerateUUID())
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestMatchCriteria(t *testing.T) {
	course := &model.Course{UUIDBase: model.UUIDBase{ID: "c1"}, College: model.CollegeLeadership, Level: model.LeaderI}

	assert.False(t, matchCourseCriteria(map[string]interface{}{"type": "course_completion"}, course, 1))
	assert.True(t, matchCourseCriteria(map[string]interface{}{"type": "course_completion", "any": true}, course, 1))
	assert.True(t, matchCourseCriteria(map[string]interface{}{"type": "course_completion", "count": 1}, course, 1))
	assert.False(t, matchCourseCriteria(map[string]interface{}{"type": "course_completion", "courseId": "c2", "count": 1}, course, 3))
	assert.True(t, matchCourseCriteria(map[string]interface{}{"type": "course_completion", "courseId": "c1"}, course, 1))
	assert.False(t, matchCourseCriteria(map[string]interface{}{"type": "course_completion", "courseId": "c2"}, course, 1))
	assert.True(t, matchCourseCriteria(map[string]interface{}{"type": "course_completion", "college": "Leadership"}, course, 1))
	assert.False(t, matchCourseCriteria(map[string]interface{}{"type": "course_completion", "count": float64(5)}, course, 4))
	assert.True(t, matchCourseCriteria(map[string]interface{}{"type": "course_completion", "count": 5}, course, 5))
	assert.False(t, matchCourseCriteria(map[string]interface{}{"type": "level_up"}, course, 1))

	a := &model.Assessment{UUIDBase: model.UUIDBase{ID: "a1"}, Type: model.AssessmentExam}
	assert.True(t, matchAssessmentCriteria(map[string]interface{}{"perfectScore": true}, a, 100))
	assert.False(t, matchAssessmentCriteria(map[string]interface{}{"perfectScore": true}, a, 99))
	assert.False(t, matchAssessmentCriteria(map[string]interface{}{"minScore": float64(50)}, a, 100))
	assert.True(t, matchAssessmentCriteria(map[string]interface{}{"minScore": float64(80), "any": true}, a, 85))
	assert.False(t, matchAssessmentCriteria(map[string]interface{}{"minScore": float64(80), "any": true}, a, 75))
	assert.False(t, matchAssessmentCriteria(map[string]interface{}{"any": true}, a, 100))
	assert.True(t, matchAssessmentCriteria(map[string]interface{}{"minScore": 80, "assessmentType": "exam"}, a, 90))
	assert.False(t, matchAssessmentCriteria(map[string]interface{}{"minScore": 80, "assessmentId": "a2"}, a, 90))
}

func TestSeedDefaultCatalogIdempotent(t *testing.T) {
	f := newFixture(t)

	report, err := f.gamification.SeedDefaultCatalog(1, false)
	require.NoError(t, err)
	assert.Equal(t, 8, report.Levels)
	assert.Equal(t, 4, report.Badges)
	assert.Equal(t, 4, report.Achievements)

	report, err = f.gamification.SeedDefaultCatalog(1, false)
	require.NoError(t, err)
	assert.True(t, report.Skipped)

	// force 重跑时表已有数据，不会重复写入
	report, err = f.gamification.SeedDefaultCatalog(1, true)
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Zero(t, report.Levels+report.Badges+report.Achievements)

	levels, err := f.gamification.ListLevels()
	require.NoError(t, err)
	assert.Len(t, levels, 8)

	achievements, err := f.gamification.ListAchievements(repository.AchievementFilter{})
	require.NoError(t, err)
	require.Len(t, achievements, 4)
	for _, a := range achievements {
		assert.NotNil(t, a.BadgeID, a.Name)
	}
}

func TestLeaderboardOrder(t *testing.T) {
	f := newFixture(t)
	a := f.learner(t, "a@example.com")
	b := f.learner(t, "b@example.com")
	c := f.learner(t, "c@example.com")

	award(t, f, a.ID, 10)
	award(t, f, b.ID, 30)
	award(t, f, c.ID, 20)

	entries, err := f.gamification.Leaderboard(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, b.ID, entries[0].UserID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, c.ID, entries[1].UserID)
	assert.Equal(t, 2, entries[1].Rank)
	require.NotNil(t, entries[0].UserInfo)
	assert.Equal(t, "b@example.com", entries[0].UserInfo.Email)
}

func TestUploadBadgeIcon(t *testing.T) {
	f := newFixture(t)
	b, err := f.gamification.CreateBadge(BadgeRequest{Name: "Icon", Category: string(model.BadgeStreak), Tier: string(model.TierBronze)})
	require.NoError(t, err)

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	url, err := f.gamification.UploadBadgeIcon(context.Background(), b.ID, "icon.png", bytes.NewReader(png), int64(len(png)))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/badges/"+b.ID+".png", url)

	got, err := f.gamification.GetBadge(b.ID)
	require.NoError(t, err)
	assert.Equal(t, url, got.Icon)

	text := []byte("definitely not an image")
	_, err = f.gamification.UploadBadgeIcon(context.Background(), b.ID, "icon.png", bytes.NewReader(text), int64(len(text)))
	assert.ErrorIs(t, err, util.ErrInvalidArgument)

	_, err = f.gamification.UploadBadgeIcon(context.Background(), b.ID, "icon.exe", bytes.NewReader(png), int64(len(png)))
	assert.ErrorIs(t, err, util.ErrInvalidArgument)

	// 读取错误原样作为消息，不当作格式串
	_, err = f.gamification.UploadBadgeIcon(context.Background(), b.ID, "icon.png", iotest.ErrReader(errors.New("disk 100% full")), 64)
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
	assert.EqualError(t, err, "disk 100% full")
}

func TestScheduledExpiryUpdatesStats(t *testing.T) {
	f := newFixture(t)
	u := f.learner(t, "expire@example.com")

	past := time.Now().Add(-time.Hour)
	_, err := f.gamification.AwardPoints(AwardPointsRequest{UserID: u.ID, Amount: 40, Source: "admin", ExpirationDate: &past})
	require.NoError(t, err)
	award(t, f, u.ID, 10)

	users, err := f.gamification.PointRepo.ExpireDue(time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{u.ID}, users)

	stats, err := f.gamification.RecomputeUserStats(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, stats.TotalPoints)
	assert.Equal(t, 10, stats.AvailablePoints)
	assert.Equal(t, 40, stats.ExpiredPoints)
}
