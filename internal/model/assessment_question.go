package model

// AssessmentQuestion 测验与题目的有序关联
type AssessmentQuestion struct {
	AssessmentID string `gorm:"primaryKey;size:36" json:"assessmentId"`
	QuestionID   string `gorm:"primaryKey;size:36;index" json:"questionId"`
	Position     int    `gorm:"not null" json:"position"`
}

func (AssessmentQuestion) TableName() string {
	return "assessment_questions"
}
