package model

import "gorm.io/datatypes"

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionMatching       QuestionType = "matching"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question 题库中的可评分题目，被已评分提交引用后不再修改
// swagger:model Question
type Question struct {
	UUIDBase
	Text          string                      `gorm:"type:text;not null" json:"text"`
	Type          QuestionType                `gorm:"size:30;not null" json:"type"`
	Options       datatypes.JSONSlice[string] `json:"options"`
	CorrectAnswer AnswerKey                   `gorm:"type:text" json:"correctAnswer,omitempty"`
	Explanation   string                      `gorm:"type:text" json:"explanation,omitempty"`
	Difficulty    Difficulty                  `gorm:"size:10;not null;default:'medium'" json:"difficulty"`
	Points        int                         `gorm:"not null" json:"points"`
	Tags          datatypes.JSONSlice[string] `json:"tags"`
}

func (Question) TableName() string {
	return "questions"
}
