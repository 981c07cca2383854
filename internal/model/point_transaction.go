package model

import "time"

type TransactionType string

const (
	TransactionEarned   TransactionType = "earned"
	TransactionSpent    TransactionType = "spent"
	TransactionExpired  TransactionType = "expired"
	TransactionAdjusted TransactionType = "adjusted"
)

type PointSource string

const (
	SourceCourseCompletion PointSource = "course_completion"
	SourceLessonCompletion PointSource = "lesson_completion"
	SourceAssessment       PointSource = "assessment"
	SourceBadge            PointSource = "badge"
	SourceAchievement      PointSource = "achievement"
	SourceLogin            PointSource = "login"
	SourceRedemption       PointSource = "redemption"
	SourceAdmin            PointSource = "admin"
	SourceCertification    PointSource = "certification"
)

func ValidPointSource(s PointSource) bool {
	switch s {
	case SourceCourseCompletion, SourceLessonCompletion, SourceAssessment, SourceBadge,
		SourceAchievement, SourceLogin, SourceRedemption, SourceAdmin, SourceCertification:
		return true
	}
	return false
}

// PointTransaction 积分流水，只追加
// swagger:model PointTransaction
type PointTransaction struct {
	UUIDBase
	UserID          string          `gorm:"size:36;not null;index;index:idx_point_reference" json:"userId"`
	Amount          int             `gorm:"not null" json:"amount"`
	Type            TransactionType `gorm:"size:20;not null" json:"type"`
	Source          PointSource     `gorm:"size:30;not null;index:idx_point_reference" json:"source"`
	ReferenceID     string          `gorm:"size:36;index:idx_point_reference" json:"referenceId,omitempty"`
	Description     string          `gorm:"size:255" json:"description"`
	TransactionDate time.Time       `gorm:"index" json:"transactionDate"`
	Expired         bool            `json:"expired"`
	ExpirationDate  *time.Time      `gorm:"index" json:"expirationDate,omitempty"`
}

func (PointTransaction) TableName() string {
	return "point_transactions"
}
