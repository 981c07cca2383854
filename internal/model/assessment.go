package model

type AssessmentType string

const (
	AssessmentQuiz   AssessmentType = "quiz"
	AssessmentTest   AssessmentType = "test"
	AssessmentExam   AssessmentType = "exam"
	AssessmentSurvey AssessmentType = "survey"
)

// Assessment 测验定义。TotalPoints 在创建时汇总，之后不再自动重算
// swagger:model Assessment
type Assessment struct {
	UUIDBase
	Title              string         `gorm:"size:255;not null" json:"title"`
	Description        string         `gorm:"type:text" json:"description"`
	Type               AssessmentType `gorm:"size:20;not null;default:'quiz'" json:"type"`
	TimeLimit          int            `json:"timeLimit"` // 分钟，0 表示不限，仅供展示
	PassingScore       int            `json:"passingScore"`
	CourseID           string         `gorm:"size:36;index" json:"courseId,omitempty"`
	ModuleID           string         `gorm:"size:36;index" json:"moduleId,omitempty"`
	RandomizeQuestions bool           `json:"randomizeQuestions"`
	ShowExplanation    bool           `json:"showExplanation"`
	MaxAttempts        int            `json:"maxAttempts"` // 0 表示不限次数
	IsActive           bool           `gorm:"index" json:"isActive"`
	TotalPoints        int            `json:"totalPoints"`

	QuestionIDs []string   `gorm:"-" json:"questionIds"`
	Questions   []Question `gorm:"-" json:"questions,omitempty"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// HideAnswerKeys 面向学员返回题目时去掉答案
func (a *Assessment) HideAnswerKeys() {
	for i := range a.Questions {
		a.Questions[i].CorrectAnswer = nil
		a.Questions[i].Explanation = ""
	}
}
