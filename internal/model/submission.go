package model

import (
	"time"

	"gorm.io/datatypes"
)

type SubmissionStatus string

const (
	SubmissionInProgress SubmissionStatus = "in_progress"
	SubmissionCompleted  SubmissionStatus = "completed"
	SubmissionGraded     SubmissionStatus = "graded"
)

// swagger:model Submission
type Submission struct {
	UUIDBase
	UserID           string           `gorm:"size:36;not null;index:idx_submission_user_assessment" json:"userId"`
	AssessmentID     string           `gorm:"size:36;not null;index:idx_submission_user_assessment" json:"assessmentId"`
	Status           SubmissionStatus `gorm:"size:20;not null;index" json:"status"`
	Answers          datatypes.JSON   `json:"answers,omitempty"`
	Score            int              `json:"score"`
	MaxScore         int              `json:"maxScore"`
	ScorePercentage  int              `json:"scorePercentage"`
	Passed           bool             `json:"passed"`
	AttemptNumber    int              `gorm:"not null" json:"attemptNumber"`
	StartedAt        time.Time        `json:"startedAt"`
	SubmittedAt      *time.Time       `json:"submittedAt,omitempty"`
	GradedAt         *time.Time       `json:"gradedAt,omitempty"`
	TimeSpentSeconds int              `json:"timeSpentSeconds"`
	Feedback         datatypes.JSON   `json:"feedback,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
}
