package service

import (
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/repository"
	"ace_lms_backend/internal/util"
)

type CourseService struct {
	CourseRepo  *repository.CourseRepository
	UserService *UserService
	Progress    ItemCompletionRecorder
	Rewards     CompletionRecorder
}

func NewCourseService(courseRepo *repository.CourseRepository, userService *UserService, progress ItemCompletionRecorder, rewards CompletionRecorder) *CourseService {
	return &CourseService{
		CourseRepo:  courseRepo,
		UserService: userService,
		Progress:    progress,
		Rewards:     rewards,
	}
}

type CourseRequest struct {
	Title                string   `json:"title" binding:"required,max=255"`
	Description          string   `json:"description"`
	Status               string   `json:"status" binding:"omitempty,oneof=draft published archived"`
	Level                string   `json:"level"`
	College              string   `json:"college"`
	TotalPoints          *int     `json:"totalPoints" binding:"omitempty,min=0"`
	TotalDurationMinutes *int     `json:"totalDurationMinutes" binding:"omitempty,min=0"`
	Tags                 []string `json:"tags"`
}

type CourseCompletionResult struct {
	CourseID    string              `json:"courseId"`
	Rewards     *CompletionResult   `json:"rewards,omitempty"`
	SideEffects []SideEffectFailure `json:"sideEffects"`
}

func (s *CourseService) CreateCourse(req CourseRequest) (*model.Course, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Level != "" && !model.ValidCourseLevel(model.CourseLevel(req.Level)) {
		return nil, util.InvalidArgument("invalid level: %s", req.Level)
	}
	if req.College != "" && !model.ValidCollege(model.College(req.College)) {
		return nil, util.InvalidArgument("invalid college: %s", req.College)
	}

	course := &model.Course{
		Title:                req.Title,
		Description:          req.Description,
		Status:               model.CourseStatus(req.Status),
		Level:                model.CourseLevel(req.Level),
		College:              model.College(req.College),
		TotalPoints:          intOr(req.TotalPoints, 0),
		TotalDurationMinutes: intOr(req.TotalDurationMinutes, 0),
		Tags:                 req.Tags,
	}
	if course.Status == "" {
		course.Status = model.CourseDraft
	}
	if err := s.CourseRepo.Create(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) GetCourse(id string) (*model.Course, error) {
	if err := requireID(id, "course ID"); err != nil {
		return nil, err
	}
	course, err := s.CourseRepo.FindByID(id)
	if err != nil {
		return nil, notFoundOr(err, "course with ID %s not found", id)
	}
	return course, nil
}

func (s *CourseService) ListCourses(f repository.CourseFilter) ([]model.Course, error) {
	return s.CourseRepo.List(f)
}

// CompleteCourse 推进 MVK 要求后记录积分，两步各自独立，失败汇总返回
func (s *CourseService) CompleteCourse(userID, courseID string) (*CourseCompletionResult, error) {
	if err := s.UserService.ensureUser(userID); err != nil {
		return nil, err
	}
	course, err := s.GetCourse(courseID)
	if err != nil {
		return nil, err
	}

	result := &CourseCompletionResult{CourseID: course.ID, SideEffects: []SideEffectFailure{}}

	if s.Progress != nil {
		var nested []SideEffectFailure
		f := runSideEffect(StepMVKProgress, course.ID, func() error {
			var err error
			nested, err = s.Progress.RecordItemCompletion(userID, model.RequirementCourse, course.ID, 100)
			return err
		})
		result.SideEffects = appendFailure(result.SideEffects, f)
		result.SideEffects = append(result.SideEffects, nested...)
	}

	if s.Rewards != nil {
		f := runSideEffect(StepCourseCompletion, course.ID, func() error {
			res, err := s.Rewards.RecordCourseCompletion(userID, course.ID)
			if err != nil {
				return err
			}
			result.Rewards = res
			result.SideEffects = append(result.SideEffects, res.Failures...)
			return nil
		})
		result.SideEffects = appendFailure(result.SideEffects, f)
	}
	return result, nil
}
