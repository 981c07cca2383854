package model

import "time"

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// UserProgress 每个 (用户, 要求) 一行
// swagger:model UserProgress
type UserProgress struct {
	UUIDBase
	UserID           string         `gorm:"size:36;not null;uniqueIndex:idx_user_requirement" json:"userId"`
	RequirementID    string         `gorm:"size:36;not null;uniqueIndex:idx_user_requirement" json:"requirementId"`
	Status           ProgressStatus `gorm:"size:20;not null" json:"status"`
	Progress         int            `json:"progress"`
	Score            int            `json:"score"`
	StartedAt        *time.Time     `json:"startedAt,omitempty"`
	CompletedAt      *time.Time     `json:"completedAt,omitempty"`
	TimeSpentMinutes int            `json:"timeSpentMinutes"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}

// Percentage 要求的完成百分比：已完成计 100，否则取 Progress
func (p *UserProgress) Percentage() int {
	if p == nil {
		return 0
	}
	if p.Status == ProgressCompleted {
		return 100
	}
	return p.Progress
}

// UserCertification 每个 (用户, 认证) 一行。证书编号只在首次完成时签发
// swagger:model UserCertification
type UserCertification struct {
	UUIDBase
	UserID               string     `gorm:"size:36;not null;uniqueIndex:idx_user_certification" json:"userId"`
	CertificationID      string     `gorm:"size:36;not null;uniqueIndex:idx_user_certification" json:"certificationId"`
	CompletionPercentage int        `json:"completionPercentage"`
	IsCompleted          bool       `json:"isCompleted"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
	CertificateNumber    *string    `gorm:"size:20;uniqueIndex" json:"certificateNumber,omitempty"`
	ExpiresAt            *time.Time `gorm:"index" json:"expiresAt,omitempty"`
	IsExpired            bool       `json:"isExpired"`

	Certification *MVKCertification `gorm:"foreignKey:CertificationID" json:"certification,omitempty"`
}

func (UserCertification) TableName() string {
	return "user_certifications"
}
