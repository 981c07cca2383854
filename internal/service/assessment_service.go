package service

import (
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/repository"
	"ace_lms_backend/internal/util"
	"bytes"
	"encoding/json"
	"math/rand"

	"gorm.io/datatypes"
)

type AssessmentService struct {
	AssessmentRepo *repository.AssessmentRepository
}

func NewAssessmentService(assessmentRepo *repository.AssessmentRepository) *AssessmentService {
	return &AssessmentService{AssessmentRepo: assessmentRepo}
}

type QuestionRequest struct {
	Text          string          `json:"text" binding:"required"`
	Type          string          `json:"type" binding:"omitempty,oneof=multiple_choice true_false short_answer matching"`
	Options       []string        `json:"options"`
	CorrectAnswer json.RawMessage `json:"correctAnswer"`
	Explanation   string          `json:"explanation"`
	Difficulty    string          `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Points        *int            `json:"points" binding:"omitempty,min=0"`
	Tags          []string        `json:"tags"`
}

type AssessmentRequest struct {
	Title              string            `json:"title" binding:"required,max=255"`
	Description        string            `json:"description"`
	Type               string            `json:"type" binding:"omitempty,oneof=quiz test exam survey"`
	Questions          []string          `json:"questions"`
	EmbeddedQuestions  []QuestionRequest `json:"embeddedQuestions" binding:"omitempty,dive"`
	TimeLimit          *int              `json:"timeLimit" binding:"omitempty,min=0"`
	PassingScore       *int              `json:"passingScore" binding:"omitempty,min=0,max=100"`
	CourseID           string            `json:"courseId"`
	ModuleID           string            `json:"moduleId"`
	RandomizeQuestions bool              `json:"randomizeQuestions"`
	ShowExplanation    bool              `json:"showExplanation"`
	MaxAttempts        *int              `json:"maxAttempts" binding:"omitempty,min=0"`
	IsActive           *bool             `json:"isActive"`
}

const (
	defaultPassingScore = 70
	defaultMaxAttempts  = 1
)

// buildQuestion 校验题型约束并生成题目实体，不落库
func buildQuestion(req QuestionRequest) (*model.Question, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	qt := model.QuestionType(req.Type)
	if qt == "" {
		qt = model.QuestionMultipleChoice
	}
	difficulty := model.Difficulty(req.Difficulty)
	if difficulty == "" {
		difficulty = model.DifficultyMedium
	}

	switch qt {
	case model.QuestionMultipleChoice:
		if len(req.Options) < 2 {
			return nil, util.InvalidArgument("multiple choice questions require at least 2 options")
		}
		idx, ok := answerIndex(req.CorrectAnswer)
		if !ok || idx < 0 || idx >= len(req.Options) {
			return nil, util.InvalidArgument("correctAnswer must be an option index between 0 and %d", len(req.Options)-1)
		}
	case model.QuestionTrueFalse:
		var b bool
		if err := json.Unmarshal(req.CorrectAnswer, &b); err != nil {
			return nil, util.InvalidArgument("true/false questions require a boolean correctAnswer")
		}
	default:
		if isEmptyAnswer(req.CorrectAnswer) {
			return nil, util.InvalidArgument("correctAnswer is required")
		}
	}

	return &model.Question{
		Text:          req.Text,
		Type:          qt,
		Options:       datatypes.JSONSlice[string](req.Options),
		CorrectAnswer: model.AnswerKey(req.CorrectAnswer),
		Explanation:   req.Explanation,
		Difficulty:    difficulty,
		Points:        intOr(req.Points, 1),
		Tags:          datatypes.JSONSlice[string](req.Tags),
	}, nil
}

// answerIndex 只接受整数值，1.5 或 "1" 都不算
func answerIndex(raw json.RawMessage) (int, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func isEmptyAnswer(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", `""`, "[]", "{}":
		return true
	}
	return false
}

func (s *AssessmentService) CreateQuestion(req QuestionRequest) (*model.Question, error) {
	q, err := buildQuestion(req)
	if err != nil {
		return nil, err
	}
	if err := s.AssessmentRepo.CreateQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *AssessmentService) GetQuestion(id string) (*model.Question, error) {
	if err := requireID(id, "question ID"); err != nil {
		return nil, err
	}
	q, err := s.AssessmentRepo.FindQuestionByID(id)
	if err != nil {
		return nil, notFoundOr(err, "question with ID %s not found", id)
	}
	return q, nil
}

func (s *AssessmentService) CreateAssessment(req AssessmentRequest) (*model.Assessment, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if len(req.Questions) > 0 && len(req.EmbeddedQuestions) > 0 {
		return nil, util.InvalidArgument("questions and embeddedQuestions cannot be combined")
	}
	if req.CourseID != "" && !model.IsValidID(req.CourseID) {
		return nil, util.InvalidArgument("invalid course ID")
	}

	a := &model.Assessment{
		Title:              req.Title,
		Description:        req.Description,
		Type:               model.AssessmentType(req.Type),
		TimeLimit:          intOr(req.TimeLimit, 0),
		PassingScore:       intOr(req.PassingScore, defaultPassingScore),
		CourseID:           req.CourseID,
		ModuleID:           req.ModuleID,
		RandomizeQuestions: req.RandomizeQuestions,
		ShowExplanation:    req.ShowExplanation,
		MaxAttempts:        intOr(req.MaxAttempts, defaultMaxAttempts),
		IsActive:           boolOr(req.IsActive, true),
	}
	if a.Type == "" {
		a.Type = model.AssessmentQuiz
	}

	var newQuestions []model.Question
	var ids []string
	total := 0

	if len(req.EmbeddedQuestions) > 0 {
		for _, qr := range req.EmbeddedQuestions {
			q, err := buildQuestion(qr)
			if err != nil {
				return nil, err
			}
			newQuestions = append(newQuestions, *q)
			total += q.Points
		}
	} else if len(req.Questions) > 0 {
		ids = dedupe(req.Questions)
		for _, id := range ids {
			if !model.IsValidID(id) {
				return nil, util.ErrInvalidQuestionIDs
			}
		}
		found, err := s.AssessmentRepo.FindQuestionsByIDs(ids)
		if err != nil {
			return nil, err
		}
		if len(found) != len(ids) {
			return nil, util.ErrInvalidQuestionIDs
		}
		for _, q := range found {
			total += q.Points
		}
	}

	a.TotalPoints = total
	if err := s.AssessmentRepo.CreateAssessment(a, newQuestions, ids); err != nil {
		return nil, err
	}
	return a, nil
}

// GetAssessment includeQuestions 时按关联顺序展开题目
func (s *AssessmentService) GetAssessment(id string, includeQuestions bool) (*model.Assessment, error) {
	if err := requireID(id, "assessment ID"); err != nil {
		return nil, err
	}
	a, err := s.AssessmentRepo.FindAssessmentByID(id)
	if err != nil {
		return nil, notFoundOr(err, "assessment with ID %s not found", id)
	}
	if includeQuestions {
		questions, err := s.AssessmentRepo.FindAssessmentQuestions(id)
		if err != nil {
			return nil, err
		}
		a.Questions = questions
	}
	return a, nil
}

// PrepareForLearner 去掉答案，按需打乱题目顺序
func (s *AssessmentService) PrepareForLearner(a *model.Assessment) {
	a.HideAnswerKeys()
	if a.RandomizeQuestions {
		rand.Shuffle(len(a.Questions), func(i, j int) {
			a.Questions[i], a.Questions[j] = a.Questions[j], a.Questions[i]
		})
	}
}

func (s *AssessmentService) ListAssessments(f repository.AssessmentFilter) ([]model.Assessment, error) {
	return s.AssessmentRepo.ListAssessments(f)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
