package service

import (
	"ace_lms_backend/internal/config"
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/repository"
	"ace_lms_backend/internal/testutil"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fixture 与 app 相同的依赖装配，数据库为内存 sqlite
type fixture struct {
	db           *gorm.DB
	users        *UserService
	auth         *AuthService
	gamification *GamificationService
	mvk          *MVKService
	assessments  *AssessmentService
	submissions  *SubmissionService
	courses      *CourseService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)

	cfg := &config.Config{
		JWT:          config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		Storage:      config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		Gamification: config.GamificationConfig{DefaultCoursePoints: 50, CertificationPoints: 100},
	}

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	storage, err := NewStorageService(cfg)
	require.NoError(t, err)

	f := &fixture{db: db}
	f.users = NewUserService(userRepo)
	f.auth = NewAuthService(userRepo, cfg)
	f.gamification = NewGamificationService(
		repository.NewPointRepository(db),
		repository.NewBadgeRepository(db),
		repository.NewAchievementRepository(db),
		repository.NewLevelRepository(db),
		repository.NewSeedRepository(db),
		userRepo,
		courseRepo,
		submissionRepo,
		assessmentRepo,
		f.users,
		storage,
		cfg.Gamification,
	)
	f.mvk = NewMVKService(repository.NewMVKRepository(db), progressRepo, courseRepo, assessmentRepo, f.users, f.gamification)
	f.assessments = NewAssessmentService(assessmentRepo)
	f.submissions = NewSubmissionService(submissionRepo, assessmentRepo, f.users, f.mvk, f.gamification)
	f.courses = NewCourseService(courseRepo, f.users, f.mvk, f.gamification)
	return f
}

func (f *fixture) learner(t *testing.T, email string) *model.User {
	return testutil.CreateUser(t, f.db, email, model.Learner)
}

func (f *fixture) course(t *testing.T, title string, points int) *model.Course {
	t.Helper()
	c, err := f.courses.CreateCourse(CourseRequest{
		Title:       title,
		Status:      string(model.CoursePublished),
		Level:       string(model.LeaderI),
		College:     string(model.CollegeLeadership),
		TotalPoints: intPtr(points),
	})
	require.NoError(t, err)
	return c
}

// mcQuestion 正确答案为下标 1
func mcQuestion(points int) QuestionRequest {
	return QuestionRequest{
		Text:          "Pick B",
		Type:          string(model.QuestionMultipleChoice),
		Options:       []string{"A", "B", "C"},
		CorrectAnswer: json.RawMessage(`1`),
		Points:        intPtr(points),
	}
}

func (f *fixture) assessment(t *testing.T, req AssessmentRequest) *model.Assessment {
	t.Helper()
	a, err := f.assessments.CreateAssessment(req)
	require.NoError(t, err)
	return a
}

func answers(pairs ...string) map[string]json.RawMessage {
	m := make(map[string]json.RawMessage, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		m[pairs[i]] = json.RawMessage(pairs[i+1])
	}
	return m
}
